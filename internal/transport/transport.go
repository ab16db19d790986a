// Package transport implements the Worker Transport (C7) from spec.md
// §4.6: a child-process JSON-RPC handshake by default, with an
// alternate HTTP transport for the fundamentals basket that falls back
// to child-process on connection failure.
package transport

import (
	"context"
	"encoding/json"
)

// Transport invokes a single tool call against a basket worker and
// returns its decoded payload.
type Transport interface {
	CallTool(ctx context.Context, basket, tool string, args map[string]any) (json.RawMessage, error)
}
