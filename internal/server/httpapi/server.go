// Package httpapi exposes the DeviceGate operations as a JSON-over-HTTP API
// routed with gorilla/mux. File bodies travel as raw bytes.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/dmitrijs2005/devicegate/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// AuthService is the part of services.AuthService served over HTTP.
type AuthService interface {
	RequestCode(ctx context.Context, email, deviceID string) (string, error)
	VerifyCode(ctx context.Context, deviceID, code string) (string, error)
	Logout(ctx context.Context, token string) error
}

// FileService is the part of services.FileService served over HTTP.
type FileService interface {
	Authorize(ctx context.Context, token string) (string, error)
	Upload(ctx context.Context, userID, fileName string, r io.Reader) (*models.StoredFile, error)
	Download(ctx context.Context, userID, fileName string) (*services.Download, error)
	List(ctx context.Context, userID string) ([]*models.StoredFile, error)
}

type Server struct {
	address        string
	auth           AuthService
	files          FileService
	logger         logging.Logger
	maxUploadBytes int64
}

func NewServer(a string, l logging.Logger, as AuthService, fs FileService, maxUploadBytes int64) *Server {
	return &Server{
		address:        a,
		logger:         l.With("module", "http_server"),
		auth:           as,
		files:          fs,
		maxUploadBytes: maxUploadBytes,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve handles connections on lis until ctx is done, then shuts down,
// waiting up to shutdownTimeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
