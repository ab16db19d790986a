package breaker

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 3, SuccessThreshold: 2, HalfOpenTimeout: 10 * time.Millisecond})

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if b.State() != Closed {
			t.Fatalf("after %d failures: state = %v, want Closed", i+1, b.State())
		}
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("after threshold failures: state = %v, want Open", b.State())
	}

	if ok, _ := b.Allow(); ok {
		t.Fatal("Allow() should reject while breaker is open and within the half-open timeout")
	}
}

func TestBreakerHalfOpensAfterTimeoutAndCloses(t *testing.T) {
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 2, HalfOpenTimeout: 5 * time.Millisecond})

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state = %v, want Open", b.State())
	}

	time.Sleep(10 * time.Millisecond)
	ok, _ := b.Allow()
	if !ok {
		t.Fatal("Allow() should admit a probe once the half-open timeout elapses")
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want HalfOpen", b.State())
	}

	b.RecordSuccess()
	b.RecordSuccess()
	if b.State() != Closed {
		t.Fatalf("state = %v, want Closed after success threshold", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 2, HalfOpenTimeout: 5 * time.Millisecond})
	b.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	b.Allow() // transitions to HalfOpen

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state = %v, want Open after a half-open probe fails", b.State())
	}
}

func TestRegistryOverridePersists(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	r.Override("quote_service", Config{FailureThreshold: 1, SuccessThreshold: 1, HalfOpenTimeout: time.Second})

	b := r.Get("quote_service")
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("overridden breaker should open after a single failure, got %v", b.State())
	}
}

func TestDefaultRegistryHasQuoteServiceOverride(t *testing.T) {
	r := DefaultRegistry()
	snaps := r.Snapshots()
	if _, ok := snaps["quote_service"]; !ok {
		t.Fatal("expected quote_service breaker to exist after DefaultRegistry installs its override")
	}
}
