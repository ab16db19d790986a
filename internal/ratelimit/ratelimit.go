// Package ratelimit implements the three admission-control strategies
// described in spec.md §4.5: token bucket, sliding window, and daily
// quota, each keyed by upstream provider id.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the contract every basket worker gates its provider calls
// through.
type Limiter interface {
	// Wait blocks until a token is available or ctx is done, whichever
	// comes first. It returns false if the wait budget was exhausted.
	Wait(ctx context.Context) bool
}

// TokenBucket wraps golang.org/x/time/rate the way
// control_plane/scheduler/limiter.go wraps it for per-key limiters, but
// here one bucket always belongs to exactly one provider.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a bucket refilling at r tokens/sec up to
// capacity burst tokens.
func NewTokenBucket(r float64, capacity int) *TokenBucket {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(r), capacity)}
}

// Wait acquires one token, waiting up to the 5s budget from spec.md §4.4
// step 2, or until ctx is canceled.
func (t *TokenBucket) Wait(ctx context.Context) bool {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return t.limiter.Wait(wctx) == nil
}

// SlidingWindow admits a request if fewer than max requests occurred in
// the trailing window, tracked as a FIFO deque of timestamps.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	times  []time.Time
}

// NewSlidingWindow builds a limiter admitting at most max requests per
// window (e.g. 120/min).
func NewSlidingWindow(window time.Duration, max int) *SlidingWindow {
	return &SlidingWindow{window: window, max: max}
}

func (s *SlidingWindow) evict(now time.Time) {
	cut := now.Add(-s.window)
	i := 0
	for ; i < len(s.times); i++ {
		if s.times[i].After(cut) {
			break
		}
	}
	s.times = s.times[i:]
}

// Wait polls for admission within a short 5s budget (matching the token
// bucket's wait contract), sleeping briefly between checks.
func (s *SlidingWindow) Wait(ctx context.Context) bool {
	deadline := time.Now().Add(5 * time.Second)
	for {
		if s.tryAcquire() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(25 * time.Millisecond):
		}
	}
}

func (s *SlidingWindow) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.evict(now)
	if len(s.times) >= s.max {
		return false
	}
	s.times = append(s.times, now)
	return true
}

// DailyQuota admits up to max requests per local calendar day, resetting
// the counter when the day key rolls over.
type DailyQuota struct {
	mu      sync.Mutex
	max     int
	day     string
	counter int
}

// NewDailyQuota builds a limiter admitting at most max requests per
// local calendar day.
func NewDailyQuota(max int) *DailyQuota {
	return &DailyQuota{max: max, day: dayKey(time.Now())}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Wait is instantaneous: daily quotas never make the caller sleep, they
// either admit immediately or exhaust.
func (d *DailyQuota) Wait(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	today := dayKey(time.Now())
	if today != d.day {
		d.day = today
		d.counter = 0
	}
	if d.counter >= d.max {
		return false
	}
	d.counter++
	return true
}

// Remaining reports how many calls are left today, for diagnostics.
func (d *DailyQuota) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	today := dayKey(time.Now())
	if today != d.day {
		return d.max
	}
	return d.max - d.counter
}

// Registry holds one Limiter per provider id, matching the
// process-wide-singleton model from spec.md §5 ("Shared resources").
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]Limiter
}

// NewRegistry builds an empty registry. Register providers with
// Register before first use from concurrent goroutines.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]Limiter)}
}

// Register installs (or replaces) the limiter for a provider id.
func (r *Registry) Register(providerID string, l Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[providerID] = l
}

// Get returns the limiter for a provider id, or nil if unregistered (no
// limiting applied).
func (r *Registry) Get(providerID string) Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[providerID]
}

// DefaultRegistry builds the provider configuration table from
// spec.md §4.5's "Registered provider configurations".
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("sec_filings", NewTokenBucket(10, 10))
	r.Register("quote_service", NewTokenBucket(5, 20))
	r.Register("reserve_bank_series", NewSlidingWindow(time.Minute, 120))
	r.Register("retail_sentiment", NewSlidingWindow(time.Minute, 100))
	r.Register("news_search", NewDailyQuota(33))
	r.Register("curated_news", NewDailyQuota(500))
	r.Register("generic_news", NewDailyQuota(100))
	r.Register("sentiment_provider", NewTokenBucket(1, 5))
	return r
}
