package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/blobstore"
	"github.com/dmitrijs2005/devicegate/internal/server/config"
	"github.com/dmitrijs2005/devicegate/internal/server/notify"
	"github.com/dmitrijs2005/devicegate/internal/server/pending"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/devicegate/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.StorageRoot = t.TempDir()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.LogLevel = "error"
	return c
}

func newTestApp(t *testing.T, c *config.Config) (*App, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	require.NoError(t, err)

	blobs, err := blobstore.NewFSStore(c.StorageRoot, c.ChunkSize)
	require.NoError(t, err)

	logger := logging.Nop{}
	as := services.NewAuthService(db, rm, pending.NewStore(c.MaxVerifyAttempts), notify.NewLogNotifier(logger, false), c, logger)
	fs := services.NewFileService(db, rm, blobs, c, logger)

	return &App{config: c, logger: logger, db: db, authService: as, fileService: fs}, mock
}

func TestNewNotifier(t *testing.T) {
	c := testConfig(t)

	_, ok := newNotifier(c, logging.Nop{}).(*notify.LogNotifier)
	assert.True(t, ok, "no smtp host keeps codes in the log")

	c.SMTPHost = "smtp.example.com"
	c.SMTPFrom = "codes@example.com"
	_, ok = newNotifier(c, logging.Nop{}).(*notify.EmailNotifier)
	assert.True(t, ok, "smtp host selects mail delivery")
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.StorageBackend = "tape"

	called := false
	orig := openDB
	openDB = func(context.Context, string) (*sql.DB, error) {
		called = true
		return nil, errors.New("unexpected")
	}
	t.Cleanup(func() { openDB = orig })

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	assert.False(t, called)
}

func TestNewApp_DBError(t *testing.T) {
	orig := openDB
	openDB = func(context.Context, string) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { openDB = orig })

	_, err := NewApp(context.Background(), testConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunSweeper_DeletesExpiredSessions(t *testing.T) {
	app, mock := newTestApp(t, testConfig(t))

	mock.ExpectExec(`DELETE FROM sessions\s+WHERE expires_at <= \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.runSweeper(ctx, 10*time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	c := testConfig(t)
	c.SweepInterval = 0
	app, mock := newTestApp(t, c)
	mock.ExpectClose()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
