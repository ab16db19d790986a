package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAdmitsWithinCapacity(t *testing.T) {
	tb := NewTokenBucket(1000, 5)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if !tb.Wait(ctx) {
			t.Fatalf("call %d: expected admission within burst capacity", i)
		}
	}
}

func TestSlidingWindowRejectsOverMax(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if !sw.tryAcquire() {
		t.Fatal("first call should be admitted")
	}
	if !sw.tryAcquire() {
		t.Fatal("second call should be admitted")
	}
	if sw.Wait(ctx) {
		t.Fatal("third call should be rejected once the window budget is exhausted and ctx deadline is short")
	}
}

func TestDailyQuotaExhaustsAndReports(t *testing.T) {
	dq := NewDailyQuota(2)
	ctx := context.Background()

	if !dq.Wait(ctx) || !dq.Wait(ctx) {
		t.Fatal("expected first two calls admitted")
	}
	if dq.Wait(ctx) {
		t.Fatal("third call should exhaust the daily quota")
	}
	if got := dq.Remaining(); got != 0 {
		t.Fatalf("Remaining() = %d, want 0", got)
	}
}

func TestRegistryGetReturnsRegisteredLimiter(t *testing.T) {
	r := NewRegistry()
	tb := NewTokenBucket(1, 1)
	r.Register("provider-a", tb)

	if got := r.Get("provider-a"); got != Limiter(tb) {
		t.Fatal("expected Get to return the registered limiter")
	}
	if got := r.Get("unregistered"); got != nil {
		t.Fatalf("expected nil for unregistered provider, got %v", got)
	}
}

func TestDefaultRegistryCoversKnownProviders(t *testing.T) {
	r := DefaultRegistry()
	for _, id := range []string{"sec_filings", "quote_service", "reserve_bank_series", "retail_sentiment", "news_search", "curated_news", "generic_news", "sentiment_provider"} {
		if r.Get(id) == nil {
			t.Errorf("expected a limiter registered for %q", id)
		}
	}
}
