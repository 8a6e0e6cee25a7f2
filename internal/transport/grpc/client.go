package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/nadzzz/parley/internal/message"
	"github.com/nadzzz/parley/internal/transport"
)

var _ transport.Service = (*Client)(nil)

// Client calls a remote parley.v1.Conversation service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(codecName))
}

// Open creates a remote session.
func (c *Client) Open(ctx context.Context, req *message.OpenRequest) (*message.SessionInfo, error) {
	out := new(message.SessionInfo)
	if err := c.invoke(ctx, "OpenSession", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Turn submits a turn.
func (c *Client) Turn(ctx context.Context, req *message.TurnRequest) (*message.TurnResult, error) {
	out := new(message.TurnResult)
	if err := c.invoke(ctx, "Turn", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transcript fetches a session transcript.
func (c *Client) Transcript(ctx context.Context, req *message.TranscriptRequest) (*message.TranscriptResult, error) {
	out := new(message.TranscriptResult)
	if err := c.invoke(ctx, "Transcript", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CloseSession drops a remote session.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.invoke(ctx, "CloseSession", &message.CloseRequest{SessionID: id}, new(message.CloseResult))
}
