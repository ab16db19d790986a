package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/breaker"
	"github.com/vn6295337/Researcher-Agent/internal/ratelimit"
)

func newFetcher() (*Fetcher, *ratelimit.Registry, *breaker.Registry) {
	limiters := ratelimit.NewRegistry()
	breakers := breaker.NewRegistry(breaker.DefaultConfig())
	return New(limiters, breakers), limiters, breakers
}

func TestGetDecodesJSONOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":42}`))
	}))
	defer server.Close()

	f, _, _ := newFetcher()
	var decoded struct {
		Value int `json:"value"`
	}
	_, err := f.Get(context.Background(), "sec_filings", server.URL, nil, time.Second, &decoded, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Value != 42 {
		t.Fatalf("decoded.Value = %d, want 42", decoded.Value)
	}
}

func TestGetRawSkipsDecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	f, _, _ := newFetcher()
	body, err := f.Get(context.Background(), "sec_filings", server.URL, nil, time.Second, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "not json at all" {
		t.Fatalf("body = %q, want raw passthrough", body)
	}
}

func TestGetParseErrorOnMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not valid json"))
	}))
	defer server.Close()

	f, _, _ := newFetcher()
	var decoded map[string]any
	_, err := f.Get(context.Background(), "sec_filings", server.URL, nil, time.Second, &decoded, false)
	ferr, ok := err.(*Error)
	if !ok || ferr.Kind != KindParseError {
		t.Fatalf("err = %v, want a ParseError", err)
	}
}

func TestGetNonRetryable4xxFailsImmediately(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f, _, _ := newFetcher()
	_, err := f.Get(context.Background(), "sec_filings", server.URL, nil, time.Second, nil, true)
	ferr, ok := err.(*Error)
	if !ok || ferr.Kind != KindHTTPError {
		t.Fatalf("err = %v, want HTTPError", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("hits = %d, want exactly 1 (no retry for a non-retryable status)", hits)
	}
}

func TestGetRetriesRetryableStatusThenSucceeds(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	f, _, _ := newFetcher()
	var decoded map[string]bool
	_, err := f.Get(context.Background(), "sec_filings", server.URL, nil, 2*time.Second, &decoded, false)
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if !decoded["ok"] {
		t.Fatal("expected the eventually-successful response to be decoded")
	}
}

func TestGetCircuitOpenShortCircuits(t *testing.T) {
	f, _, breakers := newFetcher()
	b := breakers.Get("quote_service")
	for i := 0; i < 10; i++ {
		b.RecordFailure()
	}

	_, err := f.Get(context.Background(), "quote_service", "http://example.invalid", nil, time.Second, nil, true)
	ferr, ok := err.(*Error)
	if !ok || ferr.Kind != KindCircuitOpen {
		t.Fatalf("err = %v, want CircuitOpen", err)
	}
}

func TestGetRateLimitedWhenWaitExceeded(t *testing.T) {
	f, limiters, _ := newFetcher()
	limiters.Register("news_search", ratelimit.NewDailyQuota(0))

	_, err := f.Get(context.Background(), "news_search", "http://example.invalid", nil, time.Second, nil, true)
	ferr, ok := err.(*Error)
	if !ok || ferr.Kind != KindRateLimited {
		t.Fatalf("err = %v, want RateLimited", err)
	}
}
