package syncapi

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName = "timekeeper.sync.v1.SyncService"

	PullMethod = "/" + ServiceName + "/Pull"
	PushMethod = "/" + ServiceName + "/Push"
)

// SyncServer is implemented by the server-side handler.
type SyncServer interface {
	Pull(ctx context.Context, req *PullRequest) (*PullResponse, error)
	Push(ctx context.Context, req *PushRequest) (*PushResponse, error)
}

// SyncClient is the client stub returned by NewSyncClient.
type SyncClient interface {
	Pull(ctx context.Context, req *PullRequest, opts ...grpc.CallOption) (*PullResponse, error)
	Push(ctx context.Context, req *PushRequest, opts ...grpc.CallOption) (*PushResponse, error)
}

type syncClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncClient(cc grpc.ClientConnInterface) SyncClient {
	return &syncClient{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *syncClient) Pull(ctx context.Context, req *PullRequest, opts ...grpc.CallOption) (*PullResponse, error) {
	out := new(PullResponse)
	if err := c.cc.Invoke(ctx, PullMethod, req, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncClient) Push(ctx context.Context, req *PushRequest, opts ...grpc.CallOption) (*PushResponse, error) {
	out := new(PushResponse)
	if err := c.cc.Invoke(ctx, PushMethod, req, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterSyncServer attaches srv to s.
func RegisterSyncServer(s grpc.ServiceRegistrar, srv SyncServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func pullHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PullRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SyncServer).Pull(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SyncServer).Pull(ctx, req.(*PullRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func pushHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PushRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SyncServer).Push(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PushMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SyncServer).Push(ctx, req.(*PushRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the sync service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Pull", Handler: pullHandler},
		{MethodName: "Push", Handler: pushHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "timekeeper/sync/v1/sync.json",
}
