// Package pb describes the tetris.Sessions gRPC service.
//
// Messages are protobuf well-known types: the session id is a StringValue,
// actions are StringValues and game snapshots are Structs. Calls other than
// Create carry the session id in the "session-id" metadata key.
package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "tetris.Sessions"
	SessionKey  = "session-id"

	createMethod  = "/" + ServiceName + "/Create"
	commandMethod = "/" + ServiceName + "/Command"
	watchMethod   = "/" + ServiceName + "/Watch"
	closeMethod   = "/" + ServiceName + "/Close"
)

// SessionsServer is the server API for the tetris.Sessions service.
type SessionsServer interface {
	// Create starts a new game and returns its session id.
	Create(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	// Command applies an action to the game and returns the resulting snapshot.
	Command(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Watch streams a snapshot after every change of the game.
	Watch(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
	// Close stops the game.
	Close(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// UnimplementedSessionsServer can be embedded to have forward compatible implementations.
type UnimplementedSessionsServer struct{}

func (UnimplementedSessionsServer) Create(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Create not implemented")
}

func (UnimplementedSessionsServer) Command(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Command not implemented")
}

func (UnimplementedSessionsServer) Watch(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}

func (UnimplementedSessionsServer) Close(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Close not implemented")
}

func RegisterSessionsServer(s grpc.ServiceRegistrar, srv SessionsServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Create", SessionsServer.Create),
		unary("Command", SessionsServer.Command),
		unary("Close", SessionsServer.Close),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tetris/sessions",
}

func unary[Req, Res any](name string, call func(SessionsServer, context.Context, *Req) (*Res, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SessionsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SessionsServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SessionsServer).Watch(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// SessionsClient is the client API for the tetris.Sessions service.
type SessionsClient interface {
	Create(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Command(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Watch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
	Close(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type sessionsClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionsClient(cc grpc.ClientConnInterface) SessionsClient {
	return &sessionsClient{cc: cc}
}

func (c *sessionsClient) Create(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, createMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionsClient) Command(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, commandMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionsClient) Watch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], watchMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *sessionsClient) Close(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, closeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WithSession returns a context that sends the session id to the server.
func WithSession(ctx context.Context, id string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, SessionKey, id)
}

// SessionFromContext returns the session id sent by the client.
func SessionFromContext(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	v := md.Get(SessionKey)
	if len(v) == 0 || v[0] == "" {
		return "", false
	}
	return v[0], true
}
