// Package macro implements the macro basket. It takes no ticker
// argument and fans out across a national-accounts agency and a
// labor-statistics agency concurrently as the primary tier, falling
// back to a reserve-bank series and finally historical averages.
package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/basket"
	"github.com/vn6295337/Researcher-Agent/internal/fetcher"
	"github.com/vn6295337/Researcher-Agent/internal/model"
)

const BasketID = "macro"
const Group = "raw_metrics"

type primaryAgencies struct{ fetch *fetcher.Fetcher }

func (primaryAgencies) ID() string { return "national_accounts+labor_statistics" }

type agencyResult struct {
	data map[string]any
	err  error
}

func (p primaryAgencies) Fetch(ctx context.Context, _ model.Ticker) (model.BasketResult, error) {
	var wg sync.WaitGroup
	out := make(chan agencyResult, 2)
	wg.Add(2)
	go func() { defer wg.Done(); out <- p.fetchGDP(ctx) }()
	go func() { defer wg.Done(); out <- p.fetchLaborStats(ctx) }()
	go func() { wg.Wait(); close(out) }()

	merged := map[string]any{}
	var anyOK bool
	var lastErr error
	for r := range out {
		if r.err != nil {
			lastErr = r.err
			continue
		}
		anyOK = true
		for k, v := range r.data {
			merged[k] = v
		}
	}
	if !anyOK {
		return model.BasketResult{}, lastErr
	}
	asOf := time.Now().UTC().Format("2006-01-02")
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"BEA/BLS": {Source: "BEA/BLS", AsOf: asOf, Data: merged},
	}}, nil
}

func (p primaryAgencies) fetchGDP(ctx context.Context) agencyResult {
	url := "https://apps.bea.example.gov/api/data?DataSetName=NIPA&TableName=T10101"
	var payload struct {
		GDPGrowthPct *float64 `json:"gdpGrowthPct"`
		Period       string   `json:"period"`
	}
	if _, err := p.fetch.Get(ctx, "national_accounts", url, nil, 30*time.Second, &payload, false); err != nil {
		return agencyResult{err: err}
	}
	if payload.GDPGrowthPct == nil {
		return agencyResult{err: fmt.Errorf("no GDP growth in payload")}
	}
	end := payload.Period
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}
	return agencyResult{data: map[string]any{"gdp_growth": basket.Metric(*payload.GDPGrowthPct, "Quarterly", end)}}
}

func (p primaryAgencies) fetchLaborStats(ctx context.Context) agencyResult {
	url := "https://api.bls.example.gov/publicAPI/v2/timeseries/data/LNS14000000,CUUR0000SA0"
	var payload struct {
		UnemploymentPct *float64 `json:"unemploymentPct"`
		InflationPct    *float64 `json:"inflationPct"`
		Period          string   `json:"period"`
	}
	if _, err := p.fetch.Get(ctx, "labor_statistics", url, nil, 30*time.Second, &payload, false); err != nil {
		return agencyResult{err: err}
	}
	data := map[string]any{}
	end := payload.Period
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}
	if payload.UnemploymentPct != nil {
		data["unemployment"] = basket.Metric(*payload.UnemploymentPct, "Monthly", end)
	}
	if payload.InflationPct != nil {
		data["inflation"] = basket.Metric(*payload.InflationPct, "Monthly", end)
	}
	if len(data) == 0 {
		return agencyResult{err: fmt.Errorf("empty labor statistics payload")}
	}
	return agencyResult{data: data}
}

type reserveBankSeries struct{ fetch *fetcher.Fetcher }

func (reserveBankSeries) ID() string { return "reserve_bank_series" }
func (r reserveBankSeries) Fetch(ctx context.Context, _ model.Ticker) (model.BasketResult, error) {
	url := "https://api.stlouisfed.example.org/fred/series/observations?series_id=FEDFUNDS"
	var payload struct {
		InterestRatePct *float64 `json:"interestRatePct"`
		Date            string   `json:"date"`
	}
	if _, err := r.fetch.Get(ctx, "reserve_bank_series", url, nil, 30*time.Second, &payload, false); err != nil {
		return model.BasketResult{}, err
	}
	if payload.InterestRatePct == nil {
		return model.BasketResult{}, fmt.Errorf("no interest rate in reserve bank payload")
	}
	end := payload.Date
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"Reserve Bank": {Source: "Reserve Bank", AsOf: end, Data: map[string]any{
			"interest_rate": basket.Metric(*payload.InterestRatePct, "Monthly", end),
		}},
	}}, nil
}

type historicalAverages struct{}

func (historicalAverages) ID() string { return "historical_average" }
func (historicalAverages) Fetch(ctx context.Context, _ model.Ticker) (model.BasketResult, error) {
	asOf := time.Now().UTC().Format("2006-01-02")
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"Historical Average": {Source: "Historical Average", AsOf: asOf, Data: map[string]any{
			"gdp_growth":    basket.Metric(2.1, "Forward", asOf),
			"interest_rate": basket.Metric(4.5, "Forward", asOf),
			"inflation":     basket.Metric(3.0, "Forward", asOf),
			"unemployment":  basket.Metric(4.0, "Forward", asOf),
		}},
	}}, nil
}

func NewWorker(f *fetcher.Fetcher) *basket.Worker {
	chain := basket.Chain{
		BasketID: BasketID,
		Group:    Group,
		Providers: []basket.Provider{
			primaryAgencies{fetch: f},
			reserveBankSeries{fetch: f},
			historicalAverages{},
		},
	}

	w := basket.NewWorker(BasketID, Group)
	w.Register("get_all_sources_macro", func(ctx context.Context, _ json.RawMessage) (model.BasketResult, error) {
		return chain.Run(ctx, model.Ticker{Symbol: "MACRO"}), nil
	})
	return w
}
