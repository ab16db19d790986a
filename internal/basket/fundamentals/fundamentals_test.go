package fundamentals

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/cache"
	"github.com/vn6295337/Researcher-Agent/internal/model"
)

func TestFiscalPeriodDefaultsToFY(t *testing.T) {
	if got := fiscalPeriod(""); got != "FY" {
		t.Fatalf("fiscalPeriod(\"\") = %q, want FY", got)
	}
	if got := fiscalPeriod("Q2"); got != "Q" {
		t.Fatalf("fiscalPeriod(\"Q2\") = %q, want Q", got)
	}
}

func TestLatestUSDPicksMostRecentEndDate(t *testing.T) {
	var facts xbrlFacts
	facts.Facts.USGAAP = map[string]struct {
		Units map[string][]struct {
			Val   float64 `json:"val"`
			End   string  `json:"end"`
			Filed string  `json:"filed"`
			FY    int     `json:"fy"`
			FP    string  `json:"fp"`
			Form  string  `json:"form"`
		} `json:"units"`
	}{
		"Revenues": {Units: map[string][]struct {
			Val   float64 `json:"val"`
			End   string  `json:"end"`
			Filed string  `json:"filed"`
			FY    int     `json:"fy"`
			FP    string  `json:"fp"`
			Form  string  `json:"form"`
		}{"USD": {
			{Val: 100, End: "2023-12-31", FY: 2023, FP: "FY", Form: "10-K"},
			{Val: 150, End: "2024-12-31", FY: 2024, FP: "FY", Form: "10-K"},
		}}},
	}

	metric := latestUSD(facts, "Revenues")
	if metric.Value == nil || *metric.Value != 150 {
		t.Fatalf("expected the later filing (150), got %+v", metric)
	}
	if metric.EndDate != "2024-12-31" {
		t.Fatalf("EndDate = %q, want 2024-12-31", metric.EndDate)
	}
}

func TestLatestUSDMissingTagReturnsNullMetric(t *testing.T) {
	metric := latestUSD(xbrlFacts{}, "Revenues")
	if metric.Value != nil {
		t.Fatalf("expected a null metric for a missing tag, got %+v", metric)
	}
}

func TestIdentifierMapCacheHitAndMiss(t *testing.T) {
	tc := cache.NewTypedCache(cache.NewMemory(), "identifier")
	im := identifierMap{cik: tc}
	ctx := context.Background()

	if _, ok := im.cikFor(ctx, "AAPL"); ok {
		t.Fatal("expected a cache miss before any value is set")
	}

	tc.SetJSON(ctx, "AAPL", "0000320193", time.Minute)
	cik, ok := im.cikFor(ctx, "AAPL")
	if !ok || cik != "0000320193" {
		t.Fatalf("cikFor() = (%q, %v), want (0000320193, true)", cik, ok)
	}
}

func TestWorkerRejectsMissingTicker(t *testing.T) {
	w := NewWorker(nil, cache.NewTypedCache(cache.NewMemory(), "identifier"))
	result, err := w.Call(context.Background(), "get_all_sources_fundamentals", model.Ticker{}, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Call itself should not error, got %v", err)
	}
	if result.Error == "" {
		t.Fatal("expected a populated error payload for a missing ticker argument")
	}
}
