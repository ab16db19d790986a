package macro

import (
	"context"
	"testing"

	"github.com/vn6295337/Researcher-Agent/internal/breaker"
	"github.com/vn6295337/Researcher-Agent/internal/fetcher"
	"github.com/vn6295337/Researcher-Agent/internal/model"
	"github.com/vn6295337/Researcher-Agent/internal/ratelimit"
)

func TestHistoricalAveragesAlwaysSucceeds(t *testing.T) {
	result, err := historicalAverages{}.Fetch(context.Background(), model.Ticker{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env, ok := result.Sources["Historical Average"]
	if !ok {
		t.Fatalf("expected a Historical Average entry, got %+v", result.Sources)
	}
	for _, field := range []string{"gdp_growth", "interest_rate", "inflation", "unemployment"} {
		if _, ok := env.Data[field]; !ok {
			t.Errorf("expected %s in the historical average payload", field)
		}
	}
}

func TestWorkerFallsBackToHistoricalAveragesWhenUpstreamsUnreachable(t *testing.T) {
	f := fetcher.New(ratelimit.NewRegistry(), breaker.NewRegistry(breaker.DefaultConfig()))
	w := NewWorker(f)
	// The primary agencies and reserve bank series point at unreachable
	// example hosts, so the chain should fall through to the historical
	// average provider, which always succeeds.
	result, err := w.Call(context.Background(), "get_all_sources_macro", model.Ticker{Symbol: "MACRO"}, nil)
	if err != nil {
		t.Fatalf("Call itself should not error, got %v", err)
	}
	if _, ok := result.Sources["Historical Average"]; !ok {
		t.Fatalf("expected fallback to Historical Average, got %+v", result.Sources)
	}
}
