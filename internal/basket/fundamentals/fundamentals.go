// Package fundamentals implements the fundamentals basket: SEC XBRL
// company-facts as primary source, quote-service as fallback, per
// spec.md §4.3.
package fundamentals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/basket"
	"github.com/vn6295337/Researcher-Agent/internal/cache"
	"github.com/vn6295337/Researcher-Agent/internal/fetcher"
	"github.com/vn6295337/Researcher-Agent/internal/model"
)

const BasketID = "fundamentals"
const Group = "source_comparison"

// identifierMap is a ticker-to-CIK lookup over a TypedCache. It only
// reads the cache: nothing in this package populates it, and misses are
// not cached.
type identifierMap struct {
	cik *cache.TypedCache
}

func (im identifierMap) cikFor(ctx context.Context, ticker string) (string, bool) {
	var cik string
	if im.cik.GetJSON(ctx, ticker, &cik) {
		return cik, true
	}
	return "", false
}

// xbrlCompanyFacts is the primary provider: SEC EDGAR's companyfacts API.
type xbrlCompanyFacts struct {
	fetch *fetcher.Fetcher
	ids   identifierMap
}

func NewXBRLProvider(f *fetcher.Fetcher, identifierCache *cache.TypedCache) basket.Provider {
	return xbrlCompanyFacts{fetch: f, ids: identifierMap{cik: identifierCache}}
}

func (x xbrlCompanyFacts) ID() string { return "sec_edgar" }

type xbrlFacts struct {
	Facts struct {
		USGAAP map[string]struct {
			Units map[string][]struct {
				Val     float64 `json:"val"`
				End     string  `json:"end"`
				Filed   string  `json:"filed"`
				FY      int     `json:"fy"`
				FP      string  `json:"fp"`
				Form    string  `json:"form"`
			} `json:"units"`
		} `json:"us-gaap"`
	} `json:"facts"`
}

func (x xbrlCompanyFacts) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	cik, ok := x.ids.cikFor(ctx, ticker.Symbol)
	if !ok {
		// No identifier match: the fallback chain advances to quote
		// service, per spec.md §8's boundary behavior.
		return model.BasketResult{}, fmt.Errorf("no CIK mapping for %s", ticker.Symbol)
	}

	url := fmt.Sprintf("https://data.sec.gov/api/xbrl/companyfacts/CIK%s.json", cik)
	var facts xbrlFacts
	if _, err := x.fetch.Get(ctx, "sec_filings", url, map[string]string{"User-Agent": "research-aggregator"}, 30*time.Second, &facts, false); err != nil {
		return model.BasketResult{}, err
	}

	data := map[string]any{
		"revenue":         latestUSD(facts, "Revenues"),
		"net_income":      latestUSD(facts, "NetIncomeLoss"),
		"eps":             latestUSD(facts, "EarningsPerShareDiluted"),
		"total_debt":      latestUSD(facts, "LongTermDebtNoncurrent"),
		"stockholders_equity": latestUSD(facts, "StockholdersEquity"),
	}

	return model.BasketResult{
		Sources: map[string]model.SourceEnvelope{
			"SEC EDGAR": {Source: "SEC EDGAR", AsOf: time.Now().UTC().Format(time.RFC3339), Data: data},
		},
	}, nil
}

func latestUSD(f xbrlFacts, tag string) model.TemporalMetric {
	concept, ok := f.Facts.USGAAP[tag]
	if !ok {
		return basket.NullMetric()
	}
	units, ok := concept.Units["USD"]
	if !ok || len(units) == 0 {
		return basket.NullMetric()
	}
	latest := units[len(units)-1]
	for _, u := range units {
		if u.End > latest.End {
			latest = u
		}
	}
	fy := latest.FY
	return model.TemporalMetric{
		Value: basket.F64(latest.Val), DataType: fiscalPeriod(latest.FP),
		EndDate: latest.End, Filed: latest.Filed, FiscalYear: &fy, Form: latest.Form,
	}
}

func fiscalPeriod(fp string) string {
	if fp == "FY" || fp == "" {
		return "FY"
	}
	return "Q"
}

// quoteServiceFundamentals is the fallback provider, deriving coarse
// fundamentals from a quote-service summary payload.
type quoteServiceFundamentals struct {
	fetch *fetcher.Fetcher
}

func NewQuoteServiceProvider(f *fetcher.Fetcher) basket.Provider {
	return quoteServiceFundamentals{fetch: f}
}

func (q quoteServiceFundamentals) ID() string { return "quote_service" }

type quoteSummary struct {
	TrailingEPS      *float64 `json:"trailingEps"`
	TotalDebt        *float64 `json:"totalDebt"`
	TotalRevenue     *float64 `json:"totalRevenue"`
	NetIncome        *float64 `json:"netIncomeToCommon"`
	DebtToEquity     *float64 `json:"debtToEquity"`
	AsOf             string   `json:"asOf"`
}

func (q quoteServiceFundamentals) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	url := fmt.Sprintf("https://query1.finance.example.com/v7/finance/quoteSummary/%s?modules=financialData,defaultKeyStatistics", ticker.Symbol)
	var sum quoteSummary
	if _, err := q.fetch.Get(ctx, "quote_service", url, nil, 15*time.Second, &sum, false); err != nil {
		return model.BasketResult{}, err
	}

	asOf := sum.AsOf
	if asOf == "" {
		asOf = time.Now().UTC().Format("2006-01-02")
	}

	toMetric := func(v *float64) model.TemporalMetric {
		if v == nil {
			return basket.NullMetric()
		}
		return basket.Metric(*v, "TTM", asOf)
	}

	data := map[string]any{
		"revenue":             toMetric(sum.TotalRevenue),
		"net_income":          toMetric(sum.NetIncome),
		"eps":                 toMetric(sum.TrailingEPS),
		"total_debt":          toMetric(sum.TotalDebt),
		"debt_to_equity":      toMetric(sum.DebtToEquity),
	}

	return model.BasketResult{
		Sources: map[string]model.SourceEnvelope{
			"Yahoo": {Source: "Yahoo", AsOf: asOf, Data: data},
		},
	}, nil
}

// NewWorker wires the fallback chain (EDGAR -> quote service -> minimal
// fallback) behind the `get_all_sources_fundamentals` tool.
func NewWorker(f *fetcher.Fetcher, identifierCache *cache.TypedCache) *basket.Worker {
	chain := basket.Chain{
		BasketID: BasketID,
		Group:    Group,
		Providers: []basket.Provider{
			NewXBRLProvider(f, identifierCache),
			NewQuoteServiceProvider(f),
		},
	}

	w := basket.NewWorker(BasketID, Group)
	w.Register("get_all_sources_fundamentals", func(ctx context.Context, args json.RawMessage) (model.BasketResult, error) {
		var in struct {
			Ticker string `json:"ticker"`
		}
		if err := json.Unmarshal(args, &in); err != nil || in.Ticker == "" {
			return model.BasketResult{}, fmt.Errorf("invalid arguments: missing ticker")
		}
		return chain.Run(ctx, model.Ticker{Symbol: in.Ticker}), nil
	})
	return w
}
