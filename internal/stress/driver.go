package stress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/aggregator"
	"github.com/vn6295337/Researcher-Agent/internal/model"
)

// CallResult is one per-call record, the unit the NDJSON exporter and
// the report both consume.
type CallResult struct {
	Ticker     string    `json:"ticker"`
	Sector     string    `json:"sector"`
	BasketID   string    `json:"basket_id"`
	Outcome    Outcome   `json:"outcome"`
	LatencyMs  int64     `json:"latency_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// BasketCaller invokes a single basket for a single ticker, the same
// shape the Aggregator's own per-basket retry loop uses, so the stress
// harness exercises the real worker transport rather than a stub.
type BasketCaller func(ctx context.Context, spec aggregator.BasketSpec, ticker model.Ticker) (model.BasketResult, error)

// Driver runs a sample of companies against a set of baskets with a
// caller-specified concurrency ceiling (spec.md §4.7's "controlled
// concurrent driver"), the way control_plane/load_test.go floods an
// endpoint with a WaitGroup-bounded goroutine batch, generalized to a
// semaphore so the ceiling is a rate rather than a fixed batch size.
type Driver struct {
	Baskets     []aggregator.BasketSpec
	Caller      BasketCaller
	Concurrency int
}

// Run drives every (company, basket) pair concurrently up to d.Concurrency
// in flight and returns one CallResult per pair.
func (d *Driver) Run(ctx context.Context, companies []Company) []CallResult {
	type job struct {
		company Company
		spec    aggregator.BasketSpec
	}

	var jobs []job
	for _, c := range companies {
		for _, spec := range d.Baskets {
			jobs = append(jobs, job{company: c, spec: spec})
		}
	}

	sem := make(chan struct{}, d.Concurrency)
	results := make([]CallResult, len(jobs))
	var wg sync.WaitGroup

	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, j job) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = d.runOne(ctx, j.company, j.spec)
		}(i, j)
	}
	wg.Wait()
	return results
}

func (d *Driver) runOne(ctx context.Context, company Company, spec aggregator.BasketSpec) CallResult {
	start := time.Now()
	result, err := d.Caller(ctx, spec, company.Ticker)
	elapsed := time.Since(start)

	outcome := Classify(result, err, false, elapsed.Milliseconds())
	rec := CallResult{
		Ticker:    company.Ticker.Symbol,
		Sector:    company.Sector,
		BasketID:  spec.ID,
		Outcome:   outcome,
		LatencyMs: elapsed.Milliseconds(),
		StartedAt: start.UTC(),
	}
	if err != nil {
		rec.Error = err.Error()
	} else {
		rec.Error = result.Error
	}
	return rec
}

// Report is the aggregate summary spec.md §4.7 requires.
type Report struct {
	Total              int                `json:"total"`
	SuccessRate        float64            `json:"success_rate"`
	FallbackRate       float64            `json:"fallback_rate"`
	FailureRate        float64            `json:"failure_rate"`
	LatencyP50Ms       int64              `json:"latency_p50_ms"`
	LatencyP95Ms       int64              `json:"latency_p95_ms"`
	LatencyP99Ms       int64              `json:"latency_p99_ms"`
	ByCategory         map[string]int     `json:"by_category"`
	ByServer           map[string]int     `json:"by_server"`
	CircuitBreakerInfo map[string]string  `json:"circuit_breaker_status"`
}

// Summarize reduces a slice of CallResults into a Report.
func Summarize(results []CallResult, breakerStatus map[string]string) Report {
	total := len(results)
	report := Report{
		Total:              total,
		ByCategory:         map[string]int{},
		ByServer:           map[string]int{},
		CircuitBreakerInfo: breakerStatus,
	}
	if total == 0 {
		return report
	}

	var success, fallback, failure int
	latencies := make([]int64, 0, total)
	for _, r := range results {
		latencies = append(latencies, r.LatencyMs)
		report.ByCategory[r.BasketID]++
		report.ByServer[string(r.Outcome)]++

		switch r.Outcome {
		case OutcomeSuccess, OutcomePartial:
			success++
		case OutcomeFallback:
			fallback++
		default:
			failure++
		}
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	report.LatencyP50Ms = percentile(latencies, 50)
	report.LatencyP95Ms = percentile(latencies, 95)
	report.LatencyP99Ms = percentile(latencies, 99)

	report.SuccessRate = 100 * float64(success) / float64(total)
	report.FallbackRate = 100 * float64(fallback) / float64(total)
	report.FailureRate = 100 * float64(failure) / float64(total)
	return report
}

func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
