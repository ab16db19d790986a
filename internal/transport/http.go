package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTP is the alternate transport for the fundamentals basket
// (spec.md §4.6): it POSTs to /tools/<name> on a load-balanced worker
// URL and falls back to a child-process transport on connection
// failure.
type HTTP struct {
	BaseURL  string
	Client   *http.Client
	Fallback Transport
}

// NewHTTP builds an HTTP transport with the given fallback.
func NewHTTP(baseURL string, timeout time.Duration, fallback Transport) *HTTP {
	return &HTTP{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}, Fallback: fallback}
}

func (h *HTTP) CallTool(ctx context.Context, basketID, tool string, args map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("TransportError: marshal args: %w", err)
	}

	url := h.BaseURL + "/tools/" + tool
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("TransportError: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		// Connection failure: transparently fall back to child-process,
		// per spec.md §4.6.
		if h.Fallback != nil {
			return h.Fallback.CallTool(ctx, basketID, tool, args)
		}
		return nil, fmt.Errorf("TransportError: http call failed and no fallback configured: %w", err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("TransportError: decode http response: %w", err)
	}
	return raw, nil
}
