package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

const serviceName = "devicegate.v1.DeviceGate"

const (
	methodRequestCode = "/" + serviceName + "/RequestCode"
	methodVerifyCode  = "/" + serviceName + "/VerifyCode"
	methodLogout      = "/" + serviceName + "/Logout"
	methodUpload      = "/" + serviceName + "/Upload"
	methodDownload    = "/" + serviceName + "/Download"
)

type RequestCodeRequest struct {
	Email    string `json:"email"`
	DeviceID string `json:"device_id"`
}

type RequestCodeResponse struct {
	Status string `json:"status"`
}

type VerifyCodeRequest struct {
	DeviceID string `json:"device_id"`
	Code     string `json:"code"`
}

type VerifyCodeResponse struct {
	Token string `json:"token"`
}

// LogoutRequest is empty, the session token travels in metadata.
type LogoutRequest struct{}

type LogoutResponse struct{}

// UploadChunk is one piece of an upload stream. The file name is sent in
// the file_name metadata key.
type UploadChunk struct {
	Data []byte `json:"data"`
}

type UploadResponse struct {
	FileName  string    `json:"file_name"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DownloadRequest struct {
	FileName string `json:"file_name"`
}

type DownloadChunk struct {
	Data []byte `json:"data"`
}

// DeviceGateServer is the server API of the DeviceGate service.
type DeviceGateServer interface {
	RequestCode(context.Context, *RequestCodeRequest) (*RequestCodeResponse, error)
	VerifyCode(context.Context, *VerifyCodeRequest) (*VerifyCodeResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	Upload(grpc.ClientStreamingServer[UploadChunk, UploadResponse]) error
	Download(*DownloadRequest, grpc.ServerStreamingServer[DownloadChunk]) error
}

// RegisterDeviceGateServer registers srv on s.
func RegisterDeviceGateServer(s grpc.ServiceRegistrar, srv DeviceGateServer) {
	s.RegisterService(&serviceDesc, srv)
}

func requestCodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RequestCodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DeviceGateServer).RequestCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRequestCode}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeviceGateServer).RequestCode(ctx, req.(*RequestCodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func verifyCodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(VerifyCodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DeviceGateServer).VerifyCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodVerifyCode}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeviceGateServer).VerifyCode(ctx, req.(*VerifyCodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func logoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LogoutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DeviceGateServer).Logout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodLogout}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeviceGateServer).Logout(ctx, req.(*LogoutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func uploadHandler(srv any, stream grpc.ServerStream) error {
	return srv.(DeviceGateServer).Upload(&grpc.GenericServerStream[UploadChunk, UploadResponse]{ServerStream: stream})
}

func downloadHandler(srv any, stream grpc.ServerStream) error {
	in := new(DownloadRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DeviceGateServer).Download(in, &grpc.GenericServerStream[DownloadRequest, DownloadChunk]{ServerStream: stream})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DeviceGateServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestCode", Handler: requestCodeHandler},
		{MethodName: "VerifyCode", Handler: verifyCodeHandler},
		{MethodName: "Logout", Handler: logoutHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Upload", Handler: uploadHandler, ClientStreams: true},
		{StreamName: "Download", Handler: downloadHandler, ServerStreams: true},
	},
	Metadata: "devicegate/v1/devicegate",
}
