package valuation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/vn6295337/Researcher-Agent/internal/model"
)

func TestParseFloatHandlesNumericString(t *testing.T) {
	if got := parseFloat("24.5"); got != 24.5 {
		t.Fatalf("parseFloat(24.5) = %v, want 24.5", got)
	}
}

func TestParseFloatNonNumericYieldsZero(t *testing.T) {
	if got := parseFloat("None"); got != 0 {
		t.Fatalf("parseFloat(None) = %v, want 0", got)
	}
}

func TestMarketAverageDefaultsAlwaysSucceeds(t *testing.T) {
	result, err := marketAverageDefaults{}.Fetch(context.Background(), model.Ticker{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env, ok := result.Sources["Historical Average"]
	if !ok {
		t.Fatalf("expected a Historical Average entry, got %+v", result.Sources)
	}
	if _, ok := env.Data["pe_ratio"]; !ok {
		t.Fatal("expected pe_ratio in the historical average payload")
	}
}

func TestWorkerRejectsMissingTicker(t *testing.T) {
	w := NewWorker(nil)
	result, err := w.Call(context.Background(), "get_all_sources_valuation", model.Ticker{}, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Call itself should not error, got %v", err)
	}
	if result.Error == "" {
		t.Fatal("expected a populated error payload for a missing ticker argument")
	}
}
