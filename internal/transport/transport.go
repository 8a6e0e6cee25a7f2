// Package transport defines the interface for pluggable remote front-ends.
//
// Each transport (gRPC, HTTP/WebSocket) implements Transport and serves a
// Service, which the dispatcher provides. The service doesn't care how turns
// arrive; it only works with the request/result envelopes in package message.
package transport

import (
	"context"
	"errors"

	"github.com/nadzzz/parley/internal/message"
)

// ErrInvalidRequest marks a request the service cannot act on (for example an
// unknown initial language). Transports map it to their "bad request" status.
var ErrInvalidRequest = errors.New("invalid request")

// Service is the conversation API exposed by every transport.
type Service interface {
	// Open creates a session and describes it.
	Open(ctx context.Context, req *message.OpenRequest) (*message.SessionInfo, error)

	// Turn processes one user turn. Pipeline failures are reported in the
	// result; the error is reserved for unknown sessions and invalid requests.
	Turn(ctx context.Context, req *message.TurnRequest) (*message.TurnResult, error)

	// Transcript returns the turns of a session.
	Transcript(ctx context.Context, req *message.TranscriptRequest) (*message.TranscriptResult, error)

	// CloseSession drops a session.
	CloseSession(ctx context.Context, id string) error
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and serves them with svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
