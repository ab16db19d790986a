package stress

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/vn6295337/Researcher-Agent/internal/aggregator"
	"github.com/vn6295337/Researcher-Agent/internal/model"
)

func TestSampleUniformReturnsRequestedSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := Sample(Fixture, StrategyUniform, 5, rng)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
}

func TestSampleEdgeCaseOnlyReturnsEdgeCompanies(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := Sample(Fixture, StrategyEdgeCase, 2, rng)
	for _, c := range got {
		if !c.EdgeCase {
			t.Fatalf("expected only edge-case companies, got %+v", c)
		}
	}
}

func TestSampleStratifiedSpreadsAcrossSectors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := Sample(Fixture, StrategyStratified, 4, rng)
	seen := map[string]bool{}
	for _, c := range got {
		seen[c.Sector] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected a stratified sample to span multiple sectors, got %v", seen)
	}
}

func TestSampleMixedIncludesBothKinds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := Sample(Fixture, StrategyMixed, 6, rng)
	var edge, normal bool
	for _, c := range got {
		if c.EdgeCase {
			edge = true
		} else {
			normal = true
		}
	}
	if !edge || !normal {
		t.Fatalf("expected mixed sample to include both edge and non-edge companies, got %+v", got)
	}
}

func TestClassifySuccessWhenClean(t *testing.T) {
	result := model.BasketResult{Sources: map[string]model.SourceEnvelope{"SEC EDGAR": {Data: map[string]any{"revenue": 1}}}}
	if got := Classify(result, nil, false, 0); got != OutcomeSuccess {
		t.Fatalf("Classify() = %v, want SUCCESS", got)
	}
}

func TestClassifyFallbackWhenMinimalFallbackSource(t *testing.T) {
	result := model.BasketResult{Sources: map[string]model.SourceEnvelope{"Minimal Fallback (sec_filings)": {}}}
	if got := Classify(result, nil, false, 0); got != OutcomeFallback {
		t.Fatalf("Classify() = %v, want FALLBACK", got)
	}
}

func TestClassifyRateLimited(t *testing.T) {
	if got := Classify(model.BasketResult{}, errors.New("RateLimited: quota exceeded"), false, 0); got != OutcomeRateLimited {
		t.Fatalf("Classify() = %v, want RATE_LIMITED", got)
	}
}

func TestClassifyTimeout(t *testing.T) {
	if got := Classify(model.BasketResult{}, errors.New("context deadline exceeded"), false, 0); got != OutcomeTimeout {
		t.Fatalf("Classify() = %v, want TIMEOUT", got)
	}
}

func TestClassifyPersistentVsTransientFallback(t *testing.T) {
	result := model.BasketResult{Sources: map[string]model.SourceEnvelope{"Minimal Fallback (x)": {}}, Error: "transporterror: dial failed"}
	if got := Classify(result, nil, false, 0); got != OutcomeTransient {
		t.Fatalf("Classify() first attempt = %v, want TRANSIENT", got)
	}
	if got := Classify(result, nil, true, 0); got != OutcomePersistent {
		t.Fatalf("Classify() retried = %v, want PERSISTENT", got)
	}
}

func TestClassifyUnknownWhenNoMessage(t *testing.T) {
	if got := Classify(model.BasketResult{Error: ""}, errors.New(""), false, 0); got != OutcomeUnknown {
		t.Fatalf("Classify() = %v, want UNKNOWN", got)
	}
}

func TestDriverRunCoversFullCrossProduct(t *testing.T) {
	baskets := []aggregator.BasketSpec{{ID: "fundamentals"}, {ID: "valuation"}}
	companies := []Company{
		{Ticker: model.Ticker{Symbol: "AAPL"}, Sector: "Technology"},
		{Ticker: model.Ticker{Symbol: "MSFT"}, Sector: "Technology"},
	}
	d := &Driver{
		Baskets:     baskets,
		Concurrency: 2,
		Caller: func(ctx context.Context, spec aggregator.BasketSpec, ticker model.Ticker) (model.BasketResult, error) {
			return model.BasketResult{Sources: map[string]model.SourceEnvelope{"x": {Data: map[string]any{"a": 1}}}}, nil
		},
	}
	results := d.Run(context.Background(), companies)
	if len(results) != len(baskets)*len(companies) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(baskets)*len(companies))
	}
	for _, r := range results {
		if r.Outcome != OutcomeSuccess {
			t.Fatalf("expected every call to classify SUCCESS, got %+v", r)
		}
	}
}

func TestSummarizeComputesRatesAndPercentiles(t *testing.T) {
	results := []CallResult{
		{Outcome: OutcomeSuccess, LatencyMs: 10, BasketID: "fundamentals"},
		{Outcome: OutcomeFallback, LatencyMs: 20, BasketID: "fundamentals"},
		{Outcome: OutcomeHardFailure, LatencyMs: 30, BasketID: "news"},
		{Outcome: OutcomeSuccess, LatencyMs: 40, BasketID: "news"},
	}
	report := Summarize(results, map[string]string{"sec_filings": "CLOSED"})
	if report.Total != 4 {
		t.Fatalf("Total = %d, want 4", report.Total)
	}
	if report.SuccessRate != 50 {
		t.Fatalf("SuccessRate = %v, want 50", report.SuccessRate)
	}
	if report.FallbackRate != 25 {
		t.Fatalf("FallbackRate = %v, want 25", report.FallbackRate)
	}
	if report.FailureRate != 25 {
		t.Fatalf("FailureRate = %v, want 25", report.FailureRate)
	}
	if report.LatencyP50Ms == 0 {
		t.Fatal("expected a non-zero p50 latency")
	}
}

func TestSummarizeEmptyResults(t *testing.T) {
	report := Summarize(nil, nil)
	if report.Total != 0 {
		t.Fatalf("Total = %d, want 0", report.Total)
	}
}

func TestWriteNDJSONOneRecordPerLine(t *testing.T) {
	results := []CallResult{
		{Ticker: "AAPL", BasketID: "fundamentals", Outcome: OutcomeSuccess},
		{Ticker: "MSFT", BasketID: "valuation", Outcome: OutcomeFallback},
	}
	var buf bytes.Buffer
	if err := WriteNDJSON(&buf, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	var lines int
	for scanner.Scan() {
		var rec CallResult
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d did not decode as a CallResult: %v", lines, err)
		}
		lines++
	}
	if lines != len(results) {
		t.Fatalf("lines = %d, want %d", lines, len(results))
	}
}
