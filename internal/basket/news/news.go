// Package news implements the news basket: all providers run in
// parallel and their items are merged; an empty item list is a valid,
// non-error outcome (spec.md §4.3).
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/basket"
	"github.com/vn6295337/Researcher-Agent/internal/fetcher"
	"github.com/vn6295337/Researcher-Agent/internal/model"
)

const BasketID = "news"
const Group = "content_analysis"

type fanOutProvider struct {
	fetch *fetcher.Fetcher
}

func (fanOutProvider) ID() string { return "news_search+curated_news+generic_news" }

type feedResult struct {
	source string
	items  []model.ContentItem
	err    error
}

func (p fanOutProvider) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	var wg sync.WaitGroup
	out := make(chan feedResult, 3)

	feeds := []struct {
		providerID string
		source     string
		url        string
	}{
		{"news_search", "News Search", fmt.Sprintf("https://newsapi.example.com/v2/everything?q=%s", ticker.Symbol)},
		{"curated_news", "Curated News", fmt.Sprintf("https://api.curatednews.example.com/v1/articles?ticker=%s", ticker.Symbol)},
		{"generic_news", "Generic News", fmt.Sprintf("https://api.genericnews.example.com/articles?symbol=%s", ticker.Symbol)},
	}

	for _, feed := range feeds {
		feed := feed
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := p.fetchFeed(ctx, feed.providerID, feed.source, feed.url)
			out <- feedResult{source: feed.source, items: items, err: err}
		}()
	}
	go func() { wg.Wait(); close(out) }()

	var merged []model.ContentItem
	for r := range out {
		if r.err != nil {
			// A single failed feed does not fail the basket: an empty
			// item list from a feed is a valid outcome.
			continue
		}
		merged = append(merged, r.items...)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].DateTime > merged[j].DateTime })

	asOf := time.Now().UTC().Format(time.RFC3339)
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"Aggregated News": {
			Source: "Aggregated News",
			AsOf:   asOf,
			Data: map[string]any{
				"items":       merged,
				"total_items": len(merged),
			},
		},
	}}, nil
}

type rawArticle struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Date     string `json:"publishedAt"`
	Provider string `json:"provider"`
}

func (p fanOutProvider) fetchFeed(ctx context.Context, providerID, source, url string) ([]model.ContentItem, error) {
	var payload struct {
		Articles []rawArticle `json:"articles"`
	}
	if _, err := p.fetch.Get(ctx, providerID, url, nil, 20*time.Second, &payload, false); err != nil {
		return nil, err
	}
	items := make([]model.ContentItem, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		date := a.Date
		if len(date) > 10 {
			date = date[:10]
		}
		items = append(items, model.ContentItem{
			Title: a.Title, Content: a.Summary, URL: a.URL, DateTime: date, Source: source,
		})
	}
	return items, nil
}

func NewWorker(f *fetcher.Fetcher) *basket.Worker {
	chain := basket.Chain{
		BasketID:  BasketID,
		Group:     Group,
		Providers: []basket.Provider{fanOutProvider{fetch: f}},
	}

	w := basket.NewWorker(BasketID, Group)
	w.Register("get_all_sources_news", func(ctx context.Context, args json.RawMessage) (model.BasketResult, error) {
		var in struct{ Ticker string `json:"ticker"` }
		if err := json.Unmarshal(args, &in); err != nil || in.Ticker == "" {
			return model.BasketResult{}, fmt.Errorf("invalid arguments: missing ticker")
		}
		return chain.Run(ctx, model.Ticker{Symbol: in.Ticker}), nil
	})
	return w
}
