package aggregator

import (
	"encoding/json"
	"testing"

	"github.com/vn6295337/Researcher-Agent/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestNormalizeCanonicalPassthrough(t *testing.T) {
	raw, _ := json.Marshal(model.BasketResult{
		Sources: map[string]model.SourceEnvelope{"SEC EDGAR": {Source: "SEC EDGAR"}},
	})
	result, err := Normalize("fundamentals", "source_comparison", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Group != "source_comparison" || result.Source != "fundamentals" {
		t.Fatalf("expected defaults filled in, got %+v", result)
	}
}

func TestNormalizeLegacyShapeBridges(t *testing.T) {
	raw := []byte(`{"metrics":{"revenue":{"value":100}},"source":"Yahoo"}`)
	result, err := Normalize("fundamentals", "source_comparison", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env, ok := result.Sources["Yahoo"]
	if !ok {
		t.Fatalf("expected legacy metrics bridged under the named source, got %+v", result.Sources)
	}
	if _, ok := env.Data["revenue"]; !ok {
		t.Fatalf("expected revenue to survive the bridge, got %+v", env.Data)
	}
}

func TestNormalizeUnrecognizedShapeProducesError(t *testing.T) {
	result, err := Normalize("macro", "raw_metrics", []byte(`{"unexpected":true}`))
	if err != nil {
		t.Fatalf("Normalize should not hard-fail, got err=%v", err)
	}
	if result.Error == "" {
		t.Fatal("expected a non-empty Error field for an unrecognized payload shape")
	}
}

func TestComputeCompletenessCountsMissingFields(t *testing.T) {
	metrics := map[string]model.BasketResult{
		"fundamentals": {
			Sources: map[string]model.SourceEnvelope{
				"SEC EDGAR": {Data: map[string]any{
					"revenue":    model.TemporalMetric{Value: f64(1)},
					"net_income": model.TemporalMetric{Value: f64(1)},
				}},
			},
		},
	}
	c := ComputeCompleteness(metrics)
	if c.Found == 0 {
		t.Fatal("expected at least the two populated fundamentals fields to count as found")
	}
	if len(c.Missing["fundamentals"]) == 0 {
		t.Fatal("eps and total_debt are absent, expected them listed as missing")
	}
	if len(c.Missing["valuation"]) != 4 {
		t.Fatalf("valuation basket absent entirely: expected all 4 required fields missing, got %v", c.Missing["valuation"])
	}
}

func TestDetectConflictsFlagsBeyondTolerance(t *testing.T) {
	result := model.BasketResult{
		Sources: map[string]model.SourceEnvelope{
			"SEC EDGAR": {Data: map[string]any{"revenue": model.TemporalMetric{Value: f64(100)}}},
			"Yahoo":     {Data: map[string]any{"revenue": model.TemporalMetric{Value: f64(110)}}},
		},
	}
	conflicts := DetectConflicts("fundamentals", result)
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict for a 10%% relative difference, got %d", len(conflicts))
	}
	if conflicts[0].Used != "primary" {
		t.Fatalf("expected primary source to win, got %q", conflicts[0].Used)
	}
}

func TestDetectConflictsIgnoresWithinTolerance(t *testing.T) {
	result := model.BasketResult{
		Sources: map[string]model.SourceEnvelope{
			"SEC EDGAR": {Data: map[string]any{"revenue": model.TemporalMetric{Value: f64(100)}}},
			"Yahoo":     {Data: map[string]any{"revenue": model.TemporalMetric{Value: f64(100.1)}}},
		},
	}
	if conflicts := DetectConflicts("fundamentals", result); len(conflicts) != 0 {
		t.Fatalf("expected no conflicts within the 0.5%% tolerance, got %v", conflicts)
	}
}

func TestApplyDerivedFundamentalsComputesNetMargin(t *testing.T) {
	result := model.BasketResult{
		Sources: map[string]model.SourceEnvelope{
			"SEC EDGAR": {Data: map[string]any{
				"revenue":    model.TemporalMetric{Value: f64(200), EndDate: "2024-12-31"},
				"net_income": model.TemporalMetric{Value: f64(20), EndDate: "2024-09-30"},
			}},
		},
	}
	out := ApplyDerivedFundamentals(result)
	margin, ok := out.Sources["SEC EDGAR"].Data["net_margin"].(model.TemporalMetric)
	if !ok {
		t.Fatalf("expected a computed net_margin TemporalMetric, got %+v", out.Sources["SEC EDGAR"].Data)
	}
	if *margin.Value != 10 {
		t.Fatalf("net_margin = %v, want 10", *margin.Value)
	}
	if margin.EndDate != "2024-12-31" {
		t.Fatalf("expected the freshest provenance (revenue's end date), got %q", margin.EndDate)
	}
}

func TestMergeSwotConcatenates(t *testing.T) {
	results := map[string]model.BasketResult{
		"fundamentals": {SwotSummary: &model.SwotSummary{Strengths: []string{"strong balance sheet"}}},
		"news":         {SwotSummary: &model.SwotSummary{Threats: []string{"regulatory risk"}}},
		"macro":        {},
	}
	merged := MergeSwot(results)
	if len(merged.Strengths) != 1 || len(merged.Threats) != 1 {
		t.Fatalf("expected one strength and one threat merged, got %+v", merged)
	}
}

func TestProjectEventsContentBasketReportsCount(t *testing.T) {
	result := model.BasketResult{
		Sources: map[string]model.SourceEnvelope{
			"Curated News": {Data: map[string]any{"total_items": 3}},
		},
	}
	events := ProjectEvents("news", result)
	if len(events) != 1 || events[0].Metric != "items_found" {
		t.Fatalf("expected a single items_found event, got %+v", events)
	}
	if events[0].Value != 3 {
		t.Fatalf("items_found value = %v, want 3", events[0].Value)
	}
}

func TestProjectEventsContentBasketZeroItems(t *testing.T) {
	result := model.BasketResult{Sources: map[string]model.SourceEnvelope{"Curated News": {Data: map[string]any{}}}}
	events := ProjectEvents("news", result)
	if len(events) != 1 {
		t.Fatalf("expected one event even with zero items, got %+v", events)
	}
	if _, ok := events[0].Value.(string); !ok {
		t.Fatalf("expected a descriptive string value for zero items, got %v", events[0].Value)
	}
}
