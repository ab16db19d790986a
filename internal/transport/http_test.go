package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubTransport struct {
	called bool
	result json.RawMessage
	err    error
}

func (s *stubTransport) CallTool(ctx context.Context, basket, tool string, args map[string]any) (json.RawMessage, error) {
	s.called = true
	return s.result, s.err
}

func TestHTTPCallToolDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools/get_all_sources_fundamentals" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"source":"SEC EDGAR"}`))
	}))
	defer server.Close()

	fallback := &stubTransport{}
	h := NewHTTP(server.URL, time.Second, fallback)

	raw, err := h.CallTool(context.Background(), "fundamentals", "get_all_sources_fundamentals", map[string]any{"ticker": "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fallback.called {
		t.Fatal("fallback should not be invoked on a successful HTTP call")
	}
	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("could not decode result: %v", err)
	}
	if decoded["source"] != "SEC EDGAR" {
		t.Fatalf("decoded = %v, want source SEC EDGAR", decoded)
	}
}

func TestHTTPCallToolFallsBackOnConnectionFailure(t *testing.T) {
	fallback := &stubTransport{result: json.RawMessage(`{"source":"fallback"}`)}
	h := NewHTTP("http://127.0.0.1:0", 50*time.Millisecond, fallback)

	raw, err := h.CallTool(context.Background(), "fundamentals", "get_all_sources_fundamentals", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fallback.called {
		t.Fatal("expected the fallback transport to be invoked on connection failure")
	}
	if string(raw) != `{"source":"fallback"}` {
		t.Fatalf("raw = %s, want the fallback's result", raw)
	}
}

func TestHTTPCallToolNoFallbackConfigured(t *testing.T) {
	h := NewHTTP("http://127.0.0.1:0", 50*time.Millisecond, nil)
	if _, err := h.CallTool(context.Background(), "fundamentals", "tool", nil); err == nil {
		t.Fatal("expected an error when the connection fails and no fallback is configured")
	}
}
