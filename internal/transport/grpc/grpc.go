// Package grpc implements the gRPC transport for parley.
//
// The parley.v1.Conversation service is described by a hand-written
// ServiceDesc and carries the message envelopes as JSON (content-subtype
// "json"), so clients need no generated stubs: any gRPC client that sets
// the subtype can call it. The standard grpc.health.v1 service is
// registered alongside.
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/parley/internal/message"
	"github.com/nadzzz/parley/internal/session"
	"github.com/nadzzz/parley/internal/transport"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "parley.v1.Conversation"

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals messages as JSON.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and serves requests with svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	t.server = NewServer(svc)

	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// NewServer returns a gRPC server with the conversation and health services
// registered.
func NewServer(svc transport.Service, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(statusInterceptor))
	s := grpc.NewServer(opts...)
	s.RegisterService(&serviceDesc, svc)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s
}

// statusInterceptor maps service errors to gRPC status codes.
func statusInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	if _, ok := status.FromError(err); ok {
		return nil, err
	}
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return nil, status.Error(codes.NotFound, err.Error())
	case errors.Is(err, transport.ErrInvalidRequest):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return nil, status.Error(codes.Canceled, err.Error())
	default:
		slog.Error("grpc call failed", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*transport.Service)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OpenSession", Handler: unary("OpenSession", func(ctx context.Context, svc transport.Service, req *message.OpenRequest) (any, error) {
			return svc.Open(ctx, req)
		})},
		{MethodName: "Turn", Handler: unary("Turn", func(ctx context.Context, svc transport.Service, req *message.TurnRequest) (any, error) {
			return svc.Turn(ctx, req)
		})},
		{MethodName: "Transcript", Handler: unary("Transcript", func(ctx context.Context, svc transport.Service, req *message.TranscriptRequest) (any, error) {
			return svc.Transcript(ctx, req)
		})},
		{MethodName: "CloseSession", Handler: unary("CloseSession", func(ctx context.Context, svc transport.Service, req *message.CloseRequest) (any, error) {
			if err := svc.CloseSession(ctx, req.SessionID); err != nil {
				return nil, err
			}
			return &message.CloseResult{SessionID: req.SessionID}, nil
		})},
	},
	Streams: []grpc.StreamDesc{},
}

// unary adapts a typed call to a grpc.MethodDesc handler.
func unary[Req any](method string, call func(context.Context, transport.Service, *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		svc := srv.(transport.Service)
		if interceptor == nil {
			return call(ctx, svc, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(ctx, svc, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
