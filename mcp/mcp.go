package mcp

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

//go:generate mockgen -source=mcp.go -destination=../mocks/mockmcp/mcp_mock.gen.go -package mockmcp

var (
	// ErrTransport is returned when no response was obtained from the tool backend:
	// the channel could not be opened, the backend failed or its reply is not a JSON object.
	ErrTransport = errors.New("tool transport error")
	// ErrProtocol is returned when the tool backend replied without a result.
	ErrProtocol = errors.New("tool protocol error")
)

// Transport executes one tool call against the tool backend.
// Implementations must be safe for concurrent use, each call owns its channel.
type Transport interface {
	// Invoke calls the tool with the arguments and returns the JSON result.
	Invoke(ctx context.Context, toolName string, arguments map[string]any) (json.RawMessage, error)
}

// TransportFunc is an adapter to use a function as a Transport.
type TransportFunc func(ctx context.Context, toolName string, arguments map[string]any) (json.RawMessage, error)

// Invoke implements Transport.
func (f TransportFunc) Invoke(ctx context.Context, toolName string, arguments map[string]any) (json.RawMessage, error) {
	return f(ctx, toolName, arguments)
}

// TransportError marks the error as ErrTransport.
func TransportError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrTransport)
}

// ProtocolError marks the error as ErrProtocol.
func ProtocolError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrProtocol)
}
