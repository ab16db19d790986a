package volatility

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/vn6295337/Researcher-Agent/internal/model"
)

func TestHistoricalAveragesAlwaysSucceeds(t *testing.T) {
	result, err := historicalAverages{}.Fetch(context.Background(), model.Ticker{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env, ok := result.Sources["Historical Average"]
	if !ok {
		t.Fatalf("expected a Historical Average entry, got %+v", result.Sources)
	}
	for _, field := range []string{"beta", "hist_vol", "vix", "implied_vol"} {
		if _, ok := env.Data[field]; !ok {
			t.Errorf("expected %s in the historical average payload", field)
		}
	}
}

func TestWorkerRejectsMissingTicker(t *testing.T) {
	w := NewWorker(nil)
	result, err := w.Call(context.Background(), "get_all_sources_volatility", model.Ticker{}, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Call itself should not error, got %v", err)
	}
	if result.Error == "" {
		t.Fatal("expected a populated error payload for a missing ticker argument")
	}
}
