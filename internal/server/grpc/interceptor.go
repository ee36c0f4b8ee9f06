package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// metadataValue returns the first value of key in the incoming metadata.
func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func requestID(ctx context.Context) string {
	if id := metadataValue(ctx, "x-request-id"); id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *GRPCServer) loggingUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx = logging.WithRequestID(ctx, requestID(ctx))
	start := time.Now()

	resp, err := handler(ctx, req)

	s.logger.Info(ctx, "grpc call", "method", info.FullMethod,
		"code", status.Code(err).String(), "duration", time.Since(start).String())
	return resp, err
}

// wrappedStream overrides the context of a server stream.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

func (s *GRPCServer) loggingStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx := logging.WithRequestID(ss.Context(), requestID(ss.Context()))
	start := time.Now()

	err := handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})

	s.logger.Info(ctx, "grpc stream", "method", info.FullMethod,
		"code", status.Code(err).String(), "duration", time.Since(start).String())
	return err
}

// sessionStreamInterceptor resolves the session token of file streams into
// a user id stored in the stream context.
func (s *GRPCServer) sessionStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if info.FullMethod != methodUpload && info.FullMethod != methodDownload {
		return handler(srv, ss)
	}

	ctx := ss.Context()
	token := metadataValue(ctx, common.SessionTokenHeaderName)
	if token == "" {
		return status.Error(codes.Unauthenticated, "missing session token")
	}

	userID, err := s.files.Authorize(ctx, token)
	if err != nil {
		return s.toStatus(ctx, err)
	}

	ctx = context.WithValue(ctx, userIDKey, userID)
	return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
}
