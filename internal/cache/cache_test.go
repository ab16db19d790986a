package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok := m.Get(ctx, "missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	m.Set(ctx, "k", "v", time.Minute)
	got, ok := m.Get(ctx, "k")
	if !ok || got != "v" {
		t.Fatalf("Get() = (%q, %v), want (\"v\", true)", got, ok)
	}
}

func TestMemoryExpiresLazily(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to be evicted on lookup")
	}
}

func TestTypedCacheJSONRoundTrip(t *testing.T) {
	tc := NewTypedCache(NewMemory(), "fundamentals")
	ctx := context.Background()

	type payload struct {
		Value float64 `json:"value"`
	}
	tc.SetJSON(ctx, "AAPL", payload{Value: 42.5}, time.Minute)

	var out payload
	if !tc.GetJSON(ctx, "AAPL", &out) {
		t.Fatal("expected GetJSON to find the stored value")
	}
	if out.Value != 42.5 {
		t.Fatalf("out.Value = %v, want 42.5", out.Value)
	}
}

func TestTypedCacheNamespacesKeys(t *testing.T) {
	backend := NewMemory()
	a := NewTypedCache(backend, "fundamentals")
	b := NewTypedCache(backend, "valuation")
	ctx := context.Background()

	a.SetJSON(ctx, "AAPL", 1, time.Minute)

	var out int
	if b.GetJSON(ctx, "AAPL", &out) {
		t.Fatal("expected a different namespace to miss even with the same key")
	}
}
