// Package fetcher implements the Upstream Fetcher (C4) from spec.md
// §4.4: an HTTP client wrapping the rate limiter and circuit breaker
// with bounded retries and exponential backoff.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/breaker"
	"github.com/vn6295337/Researcher-Agent/internal/observability"
	"github.com/vn6295337/Researcher-Agent/internal/ratelimit"
)

// Kind enumerates the error taxonomy from spec.md §7.
type Kind string

const (
	KindCircuitOpen   Kind = "CircuitOpen"
	KindRateLimited   Kind = "RateLimited"
	KindHTTPError     Kind = "HTTPError"
	KindTimeout       Kind = "Timeout"
	KindParseError    Kind = "ParseError"
	KindTransportErr  Kind = "TransportError"
)

// Error carries a taxonomic kind alongside the underlying cause.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Status     int
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

var retryableStatus = map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true}

// Fetcher issues gated, retried HTTP GETs.
type Fetcher struct {
	client    *http.Client
	limiters  *ratelimit.Registry
	breakers  *breaker.Registry
}

// New builds a Fetcher bound to process-wide limiter/breaker registries.
func New(limiters *ratelimit.Registry, breakers *breaker.Registry) *Fetcher {
	return &Fetcher{client: &http.Client{}, limiters: limiters, breakers: breakers}
}

// Get performs the five-step protocol from spec.md §4.4: breaker check,
// rate-limit acquire, retried HTTP GET, JSON decode, breaker update.
// decoded is populated via json.Unmarshal unless raw is true, in which
// case body bytes are returned undecoded (blob endpoints).
func (f *Fetcher) Get(ctx context.Context, providerID, url string, headers map[string]string, timeout time.Duration, decoded any, raw bool) ([]byte, error) {
	if b := f.breakers.Get(providerID); b != nil {
		if ok, retryAfter := b.Allow(); !ok {
			return nil, &Error{Kind: KindCircuitOpen, Message: "breaker open for " + providerID, RetryAfter: retryAfter}
		}
	}

	if l := f.limiters.Get(providerID); l != nil {
		if !l.Wait(ctx) {
			observability.RateLimiterRejections.WithLabelValues(providerID).Inc()
			return nil, &Error{Kind: KindRateLimited, Message: "rate limit wait exceeded for " + providerID}
		}
	}

	body, status, err := f.doWithRetry(ctx, url, headers, timeout)
	if err != nil {
		f.recordFailure(providerID)
		observability.ProviderCalls.WithLabelValues(providerID, "failure").Inc()
		return nil, err
	}

	if raw {
		f.recordSuccess(providerID)
		observability.ProviderCalls.WithLabelValues(providerID, "success").Inc()
		return body, nil
	}

	if decoded != nil {
		if err := json.Unmarshal(body, decoded); err != nil {
			f.recordFailure(providerID)
			observability.ProviderCalls.WithLabelValues(providerID, "parse_error").Inc()
			return nil, &Error{Kind: KindParseError, Message: err.Error(), Status: status}
		}
	}
	f.recordSuccess(providerID)
	observability.ProviderCalls.WithLabelValues(providerID, "success").Inc()
	return body, nil
}

func (f *Fetcher) recordSuccess(providerID string) {
	if b := f.breakers.Get(providerID); b != nil {
		b.RecordSuccess()
	}
}

func (f *Fetcher) recordFailure(providerID string) {
	if b := f.breakers.Get(providerID); b != nil {
		b.RecordFailure()
	}
}

// doWithRetry implements step 3 of spec.md §4.4: base=1s, factor=2,
// max 3 attempts. Retryable statuses, transport errors, timeouts and
// body-read failures are retried; any other non-2xx status fails at once.
func (f *Fetcher) doWithRetry(ctx context.Context, url string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {
	const maxAttempts = 3
	const base = time.Second

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
		if err != nil {
			cancel()
			return nil, 0, &Error{Kind: KindTransportErr, Message: err.Error()}
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			cancel()
			if errors.Is(cctx.Err(), context.DeadlineExceeded) {
				lastErr = &Error{Kind: KindTimeout, Message: err.Error()}
			} else {
				lastErr = &Error{Kind: KindTransportErr, Message: err.Error()}
			}
			f.backoff(ctx, attempt, base)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if readErr != nil {
			lastErr = &Error{Kind: KindTransportErr, Message: readErr.Error()}
			f.backoff(ctx, attempt, base)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, resp.StatusCode, nil
		}

		if retryableStatus[resp.StatusCode] {
			lastErr = &Error{Kind: KindHTTPError, Message: fmt.Sprintf("retryable status %d", resp.StatusCode), Status: resp.StatusCode}
			f.backoff(ctx, attempt, base)
			continue
		}

		// Non-retryable 4xx terminates immediately.
		return nil, resp.StatusCode, &Error{Kind: KindHTTPError, Message: fmt.Sprintf("status %d", resp.StatusCode), Status: resp.StatusCode}
	}
	return nil, 0, lastErr
}

func (f *Fetcher) backoff(ctx context.Context, attempt int, base time.Duration) {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
