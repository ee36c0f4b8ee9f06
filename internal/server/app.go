// Package server initializes and runs the devicegate server: it opens the
// database, applies migrations, builds the blob store and services, and runs
// the HTTP and gRPC transports plus the expiry sweeper until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/blobstore"
	"github.com/dmitrijs2005/devicegate/internal/server/config"
	"github.com/dmitrijs2005/devicegate/internal/server/httpapi"
	"github.com/dmitrijs2005/devicegate/internal/server/notify"
	"github.com/dmitrijs2005/devicegate/internal/server/pending"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/devicegate/internal/server/services"

	gs "github.com/dmitrijs2005/devicegate/internal/server/grpc"
)

// Seams for tests.
var (
	openDB       = repomanager.OpenDB
	newBlobStore = blobstore.New
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	authService *services.AuthService
	fileService *services.FileService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository manager init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := newBlobStore(ctx, blobstore.Options{
		Backend:   c.StorageBackend,
		Root:      c.StorageRoot,
		ChunkSize: c.ChunkSize,
		S3: blobstore.S3Config{
			Region:    c.S3Region,
			AccessKey: c.S3RootUser,
			SecretKey: c.S3RootPassword,
			Endpoint:  c.S3BaseEndpoint,
			Bucket:    c.S3Bucket,
		},
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	store := pending.NewStore(c.MaxVerifyAttempts)
	as := services.NewAuthService(db, rm, store, newNotifier(c, logger), c, logger)
	fs := services.NewFileService(db, rm, blobs, c, logger)

	return &App{config: c, logger: logger, db: db, authService: as, fileService: fs}, nil
}

// newNotifier mails codes when an SMTP host is configured and falls back to
// the log otherwise.
func newNotifier(c *config.Config, logger logging.Logger) notify.Notifier {
	if c.SMTPEnabled() {
		return notify.NewEmailNotifier(notify.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			User:     c.SMTPUser,
			Password: c.SMTPPassword,
			From:     c.SMTPFrom,
		}, logger)
	}
	return notify.NewLogNotifier(logger, c.DevEcho)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.fileService)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.authService, app.fileService, app.config.MaxUploadBytes)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runSweeper purges expired codes and sessions every interval until ctx is
// done.
func (app *App) runSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			codes, sessions, err := app.authService.Sweep(ctx)
			if err != nil {
				app.logger.Error(ctx, "sweep failed", "error", err.Error())
				continue
			}
			if codes > 0 || sessions > 0 {
				app.logger.Info(ctx, "expired entries removed", "codes", codes, "sessions", sessions)
			}
		}
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// waits for every component to stop and closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	if app.config.EndpointAddrHTTP != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startHTTPServer(ctx, cancelFunc)
		}()
	}

	if app.config.SweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.runSweeper(ctx, app.config.SweepInterval)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err.Error())
	}
	app.logger.Info(context.Background(), "App stopped")
}
