package grpc

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) RequestCode(ctx context.Context, req *RequestCodeRequest) (*RequestCodeResponse, error) {
	if _, err := s.auth.RequestCode(ctx, req.Email, req.DeviceID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &RequestCodeResponse{Status: "sent"}, nil
}

func (s *GRPCServer) VerifyCode(ctx context.Context, req *VerifyCodeRequest) (*VerifyCodeResponse, error) {
	token, err := s.auth.VerifyCode(ctx, req.DeviceID, req.Code)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &VerifyCodeResponse{Token: token}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *LogoutRequest) (*LogoutResponse, error) {
	token := metadataValue(ctx, common.SessionTokenHeaderName)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing session token")
	}
	if err := s.auth.Logout(ctx, token); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &LogoutResponse{}, nil
}

func (s *GRPCServer) Upload(stream grpc.ClientStreamingServer[UploadChunk, UploadResponse]) error {
	ctx := stream.Context()
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing session")
	}

	name := metadataValue(ctx, common.FileNameMetadataKey)
	file, err := s.files.Upload(ctx, userID, name, &chunkReader{stream: stream})
	if err != nil {
		return s.toStatus(ctx, err)
	}

	return stream.SendAndClose(&UploadResponse{
		FileName:  file.FileName,
		Size:      file.SizeBytes,
		SHA256:    file.SHA256,
		UpdatedAt: file.UpdatedAt,
	})
}

func (s *GRPCServer) Download(req *DownloadRequest, stream grpc.ServerStreamingServer[DownloadChunk]) error {
	ctx := stream.Context()
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing session")
	}

	d, err := s.files.Download(ctx, userID, req.FileName)
	if err != nil {
		return s.toStatus(ctx, err)
	}
	defer d.Close()

	header := metadata.Pairs(
		common.FileNameMetadataKey, d.File.FileName,
		"file_size", strconv.FormatInt(d.File.SizeBytes, 10),
		"file_sha256", d.File.SHA256,
	)
	if err := stream.SendHeader(header); err != nil {
		return err
	}

	for {
		chunk, err := d.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return s.toStatus(ctx, err)
		}
		if err := stream.Send(&DownloadChunk{Data: chunk}); err != nil {
			return err
		}
	}
}

// chunkReader presents the chunks of an upload stream as an io.Reader.
type chunkReader struct {
	stream grpc.ClientStreamingServer[UploadChunk, UploadResponse]
	buf    []byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	for len(c.buf) == 0 {
		msg, err := c.stream.Recv()
		if err != nil {
			return 0, err
		}
		c.buf = msg.Data
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}
