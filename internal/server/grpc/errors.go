package grpc

import (
	"context"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// codeOf maps a service error onto a gRPC status code.
func codeOf(err error) codes.Code {
	switch common.KindOf(err) {
	case common.KindValidation:
		if common.IsThrottled(err) {
			return codes.ResourceExhausted
		}
		return codes.InvalidArgument
	case common.KindUnauthorized:
		return codes.Unauthenticated
	case common.KindNotFound:
		return codes.NotFound
	default:
		return codes.Internal
	}
}

// toStatus converts err into a status error. Internal and storage failures
// are logged and replaced by a generic message.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codeOf(err)
	if code == codes.Internal {
		s.logger.Error(ctx, "request failed", "error", err.Error(), "kind", common.KindOf(err).String())
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}
