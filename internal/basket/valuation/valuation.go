// Package valuation implements the valuation basket: quote service as
// primary, an overview-service fallback, and market-average defaults as
// the last resort, per spec.md §4.3.
package valuation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/basket"
	"github.com/vn6295337/Researcher-Agent/internal/fetcher"
	"github.com/vn6295337/Researcher-Agent/internal/model"
)

const BasketID = "valuation"
const Group = "source_comparison"

type quoteValuation struct{ fetch *fetcher.Fetcher }

func NewQuoteProvider(f *fetcher.Fetcher) basket.Provider { return quoteValuation{fetch: f} }
func (q quoteValuation) ID() string                       { return "quote_service" }

type quoteValuationPayload struct {
	TrailingPE       *float64 `json:"trailingPE"`
	PriceToBook      *float64 `json:"priceToBook"`
	PriceToSales     *float64 `json:"priceToSalesTrailing12Months"`
	EnterpriseToEBITDA *float64 `json:"enterpriseToEbitda"`
	AsOf             string   `json:"asOf"`
}

func (q quoteValuation) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	url := fmt.Sprintf("https://query1.finance.example.com/v7/finance/quoteSummary/%s?modules=defaultKeyStatistics,summaryDetail", ticker.Symbol)
	var p quoteValuationPayload
	if _, err := q.fetch.Get(ctx, "quote_service", url, nil, 15*time.Second, &p, false); err != nil {
		return model.BasketResult{}, err
	}

	asOf := p.AsOf
	if asOf == "" {
		asOf = time.Now().UTC().Format("2006-01-02")
	}
	metric := func(v *float64) model.TemporalMetric {
		if v == nil {
			return basket.NullMetric()
		}
		return basket.Metric(*v, "Point-in-time", asOf)
	}

	data := map[string]any{
		"pe_ratio":       metric(p.TrailingPE),
		"pb_ratio":       metric(p.PriceToBook),
		"ps_ratio":       metric(p.PriceToSales),
		"ev_ebitda":      metric(p.EnterpriseToEBITDA),
	}
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"Yahoo": {Source: "Yahoo", AsOf: asOf, Data: data},
	}}, nil
}

type overviewValuation struct{ fetch *fetcher.Fetcher }

func NewOverviewProvider(f *fetcher.Fetcher) basket.Provider { return overviewValuation{fetch: f} }
func (o overviewValuation) ID() string                       { return "overview_service" }

type overviewPayload struct {
	PERatio      string `json:"PERatio"`
	PriceToBookRatio string `json:"PriceToBookRatio"`
	PriceToSalesRatioTTM string `json:"PriceToSalesRatioTTM"`
	EVToEBITDA   string `json:"EVToEBITDA"`
	LatestQuarter string `json:"LatestQuarter"`
}

func (o overviewValuation) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	url := fmt.Sprintf("https://www.alphavantage.example.com/query?function=OVERVIEW&symbol=%s", ticker.Symbol)
	var p overviewPayload
	if _, err := o.fetch.Get(ctx, "overview_service", url, nil, 20*time.Second, &p, false); err != nil {
		return model.BasketResult{}, err
	}

	asOf := p.LatestQuarter
	if asOf == "" {
		asOf = time.Now().UTC().Format("2006-01-02")
	}
	data := map[string]any{
		"pe_ratio":  basket.Metric(parseFloat(p.PERatio), "Quarterly", asOf),
		"pb_ratio":  basket.Metric(parseFloat(p.PriceToBookRatio), "Quarterly", asOf),
		"ps_ratio":  basket.Metric(parseFloat(p.PriceToSalesRatioTTM), "TTM", asOf),
		"ev_ebitda": basket.Metric(parseFloat(p.EVToEBITDA), "Quarterly", asOf),
	}
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"Alpha Vantage": {Source: "Alpha Vantage", AsOf: asOf, Data: data},
	}}, nil
}

func parseFloat(s string) float64 {
	var f float64
	fmt.Sscanf(s, "%f", &f)
	return f
}

// marketAverageDefaults is the final fallback: conservative sector-wide
// averages, used when both upstreams fail.
type marketAverageDefaults struct{}

func (marketAverageDefaults) ID() string { return "market_average" }
func (marketAverageDefaults) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	asOf := time.Now().UTC().Format("2006-01-02")
	data := map[string]any{
		"pe_ratio":  basket.Metric(22.5, "Forward", asOf),
		"pb_ratio":  basket.Metric(3.1, "Forward", asOf),
		"ps_ratio":  basket.Metric(2.4, "Forward", asOf),
		"ev_ebitda": basket.Metric(14.0, "Forward", asOf),
	}
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"Historical Average": {Source: "Historical Average", AsOf: asOf, Data: data},
	}}, nil
}

func NewWorker(f *fetcher.Fetcher) *basket.Worker {
	chain := basket.Chain{
		BasketID: BasketID,
		Group:    Group,
		Providers: []basket.Provider{
			NewQuoteProvider(f),
			NewOverviewProvider(f),
			marketAverageDefaults{},
		},
	}

	w := basket.NewWorker(BasketID, Group)
	w.Register("get_all_sources_valuation", func(ctx context.Context, args json.RawMessage) (model.BasketResult, error) {
		var in struct{ Ticker string `json:"ticker"` }
		if err := json.Unmarshal(args, &in); err != nil || in.Ticker == "" {
			return model.BasketResult{}, fmt.Errorf("invalid arguments: missing ticker")
		}
		return chain.Run(ctx, model.Ticker{Symbol: in.Ticker}), nil
	})
	return w
}
