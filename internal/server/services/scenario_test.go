package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/blobstore"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/dmitrijs2005/devicegate/internal/server/pending"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A registered device logs in with a fixed code and round-trips a file.
func TestScenario_DeviceLoginAndFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	rm := newMemRepoManager()
	clk := &fakeClock{t: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}

	blobs, err := blobstore.NewFSStore(t.TempDir(), cfg.ChunkSize)
	require.NoError(t, err)

	authSvc := NewAuthService(nil, rm, pending.NewStore(cfg.MaxVerifyAttempts), &recordingNotifier{}, cfg, logging.Nop{})
	authSvc.now = clk.now
	authSvc.generateCode = func() (string, error) { return "0427", nil }

	fileSvc := NewFileService(nil, rm, blobs, cfg, logging.Nop{})
	fileSvc.now = clk.now

	u, err := rm.users.Create(ctx, &models.User{Email: "u@example.com", DeviceID: "D1"})
	require.NoError(t, err)

	code, err := authSvc.RequestCode(ctx, u.Email, "D1")
	require.NoError(t, err)
	assert.Equal(t, "0427", code)

	token, err := authSvc.VerifyCode(ctx, "D1", "0427")
	require.NoError(t, err)
	assert.Regexp(t, tokenRe, token)

	uid, err := fileSvc.Authorize(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)

	content := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err = fileSvc.UploadWithToken(ctx, token, "a.png", bytes.NewReader(content))
	require.NoError(t, err)

	d, err := fileSvc.DownloadWithToken(ctx, token, "a.png")
	require.NoError(t, err)
	assert.Equal(t, content, readAll(t, d))

	_, err = authSvc.VerifyCode(ctx, "D1", "0427")
	assert.ErrorIs(t, err, common.ErrorNoPendingCode)

	clk.advance(cfg.SessionTTL)
	_, err = fileSvc.Authorize(ctx, token)
	assert.ErrorIs(t, err, common.ErrorSessionExpired)
}
