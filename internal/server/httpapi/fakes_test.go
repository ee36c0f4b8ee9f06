package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/dmitrijs2005/devicegate/internal/server/services"
)

const testToken = "0123456789abcdef"

type fakeAuth struct {
	mu        sync.Mutex
	err       error
	gotEmail  string
	gotDevice string
	gotCode   string
	loggedOut []string
}

func (f *fakeAuth) RequestCode(_ context.Context, email, deviceID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotEmail, f.gotDevice = email, deviceID
	if f.err != nil {
		return "", f.err
	}
	return "0427", nil
}

func (f *fakeAuth) VerifyCode(_ context.Context, deviceID, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotDevice, f.gotCode = deviceID, code
	if f.err != nil {
		return "", f.err
	}
	return testToken, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

type fakeFiles struct {
	mu       sync.Mutex
	sessions map[string]string
	data     map[string]map[string][]byte
	err      error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{
		sessions: map[string]string{testToken: "user-1"},
		data:     map[string]map[string][]byte{},
	}
}

func (f *fakeFiles) Authorize(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.sessions[token]
	if !ok {
		return "", common.ErrorSessionNotFound
	}
	return userID, nil
}

func (f *fakeFiles) Upload(_ context.Context, userID, fileName string, r io.Reader) (*models.StoredFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	name, err := services.SanitizeFileName(fileName)
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, common.ErrorEmptyContent
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[userID] == nil {
		f.data[userID] = map[string][]byte{}
	}
	f.data[userID][name] = b
	return fileOf(userID, name, b), nil
}

func (f *fakeFiles) Download(_ context.Context, userID, fileName string) (*services.Download, error) {
	f.mu.Lock()
	b, ok := f.data[userID][fileName]
	f.mu.Unlock()
	if !ok {
		return nil, common.ErrorFileNotFound
	}
	return services.NewDownload(fileOf(userID, fileName, b), io.NopCloser(bytes.NewReader(b)), 4), nil
}

func (f *fakeFiles) List(_ context.Context, userID string) ([]*models.StoredFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.StoredFile
	for name, b := range f.data[userID] {
		out = append(out, fileOf(userID, name, b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}

func fileOf(userID, name string, b []byte) *models.StoredFile {
	sum := sha256.Sum256(b)
	return &models.StoredFile{
		UserID:    userID,
		FileName:  name,
		SizeBytes: int64(len(b)),
		SHA256:    hex.EncodeToString(sum[:]),
		UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
