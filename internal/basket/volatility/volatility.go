// Package volatility implements the volatility basket. Its primary tier
// fans out concurrently across quote-service, options-chain, and a
// macro index (spec.md §4.3's parallel fan-out for this basket), then
// falls back to overview-service and finally historical averages.
package volatility

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

const BasketID = "volatility"
const Group = "source_comparison"

// primaryTier fans out across quote-service, options-chain, and the
// macro index concurrently and merges whatever comes back. It only
// fails the chain if every sub-call fails.
type primaryTier struct{ fetch *fetcher.Fetcher }

func (primaryTier) ID() string { return "quote_service+options+macro_index" }

type subResult struct {
	key  string
	data map[string]any
	err  error
}

func (p primaryTier) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	var wg sync.WaitGroup
	results := make(chan subResult, 3)

	wg.Add(3)
	go func() { defer wg.Done(); results <- p.fetchQuote(ctx, ticker) }()
	go func() { defer wg.Done(); results <- p.fetchOptions(ctx, ticker) }()
	go func() { defer wg.Done(); results <- p.fetchMacroIndex(ctx) }()

	go func() { wg.Wait(); close(results) }()

	merged := map[string]any{}
	var anyOK bool
	var lastErr error
	for r := range results {
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
		"Yahoo": {Source: "Yahoo", AsOf: asOf, Data: merged},
	}}, nil
}

func (p primaryTier) fetchQuote(ctx context.Context, ticker model.Ticker) subResult {
	url := fmt.Sprintf("https://query1.finance.example.com/v7/finance/quoteSummary/%s?modules=defaultKeyStatistics", ticker.Symbol)
	var payload struct {
		Beta *float64 `json:"beta"`
	}
	if _, err := p.fetch.Get(ctx, "quote_service", url, nil, 15*time.Second, &payload, false); err != nil {
		return subResult{err: err}
	}
	if payload.Beta == nil {
		return subResult{err: fmt.Errorf("no beta in quote payload")}
	}
	return subResult{data: map[string]any{"beta": basket.Metric(*payload.Beta, "Point-in-time", time.Now().UTC().Format("2006-01-02"))}}
}

func (p primaryTier) fetchOptions(ctx context.Context, ticker model.Ticker) subResult {
	url := fmt.Sprintf("https://query1.finance.example.com/v7/finance/options/%s", ticker.Symbol)
	var payload struct {
		ImpliedVolatility *float64 `json:"impliedVolatility"`
		HistoricalVol30D  *float64 `json:"historicalVolatility30d"`
	}
	if _, err := p.fetch.Get(ctx, "quote_service", url, nil, 15*time.Second, &payload, false); err != nil {
		return subResult{err: err}
	}
	data := map[string]any{}
	asOf := time.Now().UTC().Format("2006-01-02")
	if payload.ImpliedVolatility != nil {
		data["implied_vol"] = basket.Metric(*payload.ImpliedVolatility, "30D", asOf)
	}
	if payload.HistoricalVol30D != nil {
		data["hist_vol"] = basket.Metric(*payload.HistoricalVol30D, "30D", asOf)
	}
	if len(data) == 0 {
		return subResult{err: fmt.Errorf("empty options chain")}
	}
	return subResult{data: data}
}

func (p primaryTier) fetchMacroIndex(ctx context.Context) subResult {
	url := "https://query1.finance.example.com/v7/finance/quote?symbols=%5EVIX"
	var payload struct {
		Price *float64 `json:"regularMarketPrice"`
	}
	if _, err := p.fetch.Get(ctx, "quote_service", url, nil, 15*time.Second, &payload, false); err != nil {
		return subResult{err: err}
	}
	if payload.Price == nil {
		return subResult{err: fmt.Errorf("no VIX price")}
	}
	return subResult{data: map[string]any{"vix": basket.Metric(*payload.Price, "Daily", time.Now().UTC().Format("2006-01-02"))}}
}

type overviewSecondary struct{ fetch *fetcher.Fetcher }

func (overviewSecondary) ID() string { return "overview_service" }
func (o overviewSecondary) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	url := fmt.Sprintf("https://www.alphavantage.example.com/query?function=OVERVIEW&symbol=%s", ticker.Symbol)
	var payload struct {
		Beta string `json:"Beta"`
	}
	if _, err := o.fetch.Get(ctx, "overview_service", url, nil, 20*time.Second, &payload, false); err != nil {
		return model.BasketResult{}, err
	}
	var beta float64
	fmt.Sscanf(payload.Beta, "%f", &beta)
	asOf := time.Now().UTC().Format("2006-01-02")
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"Alpha Vantage": {Source: "Alpha Vantage", AsOf: asOf, Data: map[string]any{
			"beta": basket.Metric(beta, "Quarterly", asOf),
		}},
	}}, nil
}

type historicalAverages struct{}

func (historicalAverages) ID() string { return "historical_average" }
func (historicalAverages) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	asOf := time.Now().UTC().Format("2006-01-02")
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"Historical Average": {Source: "Historical Average", AsOf: asOf, Data: map[string]any{
			"beta":        basket.Metric(1.0, "Forward", asOf),
			"hist_vol":    basket.Metric(0.25, "Forward", asOf),
			"vix":         basket.Metric(17.0, "Forward", asOf),
			"implied_vol": basket.Metric(0.27, "Forward", asOf),
		}},
	}}, nil
}

func NewWorker(f *fetcher.Fetcher) *basket.Worker {
	chain := basket.Chain{
		BasketID: BasketID,
		Group:    Group,
		Providers: []basket.Provider{
			primaryTier{fetch: f},
			overviewSecondary{fetch: f},
			historicalAverages{},
		},
	}

	w := basket.NewWorker(BasketID, Group)
	w.Register("get_all_sources_volatility", func(ctx context.Context, args json.RawMessage) (model.BasketResult, error) {
		var in struct{ Ticker string `json:"ticker"` }
		if err := json.Unmarshal(args, &in); err != nil || in.Ticker == "" {
			return model.BasketResult{}, fmt.Errorf("invalid arguments: missing ticker")
		}
		return chain.Run(ctx, model.Ticker{Symbol: in.Ticker}), nil
	})
	return w
}
