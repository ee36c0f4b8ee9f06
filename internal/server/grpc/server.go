// Package grpc exposes the DeviceGate service over gRPC. Messages are JSON
// encoded; clients select the codec with grpc.CallContentSubtype("json").
package grpc

import (
	"context"
	"io"
	"net"

	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/dmitrijs2005/devicegate/internal/server/services"
	"google.golang.org/grpc"
)

// AuthService is the part of services.AuthService used by the handlers.
type AuthService interface {
	RequestCode(ctx context.Context, email, deviceID string) (string, error)
	VerifyCode(ctx context.Context, deviceID, code string) (string, error)
	Logout(ctx context.Context, token string) error
}

// FileService is the part of services.FileService used by the handlers.
type FileService interface {
	Authorize(ctx context.Context, token string) (string, error)
	Upload(ctx context.Context, userID, fileName string, r io.Reader) (*models.StoredFile, error)
	Download(ctx context.Context, userID, fileName string) (*services.Download, error)
}

type GRPCServer struct {
	address string
	auth    AuthService
	files   FileService
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, as AuthService, fs FileService) (*GRPCServer, error) {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    as,
		files:   fs,
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingUnaryInterceptor),
		grpc.ChainStreamInterceptor(s.loggingStreamInterceptor, s.sessionStreamInterceptor),
	)
	RegisterDeviceGateServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
