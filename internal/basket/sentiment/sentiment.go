// Package sentiment implements the retail-sentiment basket: its single
// provider is the retail sentiment feed, rate-limited by a sliding
// window, with a dedicated sentiment-scoring provider as a secondary
// signal. Both are fanned out in parallel and merged like the news
// basket.
package sentiment

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

const BasketID = "sentiment"
const Group = "content_analysis"

type fanOutProvider struct{ fetch *fetcher.Fetcher }

func (fanOutProvider) ID() string { return "retail_sentiment+sentiment_provider" }

type feedResult struct {
	items []model.ContentItem
	err   error
}

func (p fanOutProvider) Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error) {
	var wg sync.WaitGroup
	out := make(chan feedResult, 2)

	wg.Add(2)
	go func() { defer wg.Done(); out <- p.fetchRetail(ctx, ticker) }()
	go func() { defer wg.Done(); out <- p.fetchScored(ctx, ticker) }()
	go func() { wg.Wait(); close(out) }()

	var merged []model.ContentItem
	for r := range out {
		if r.err != nil {
			continue
		}
		merged = append(merged, r.items...)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].DateTime > merged[j].DateTime })

	asOf := time.Now().UTC().Format(time.RFC3339)
	return model.BasketResult{Sources: map[string]model.SourceEnvelope{
		"Aggregated Sentiment": {
			Source: "Aggregated Sentiment",
			AsOf:   asOf,
			Data: map[string]any{
				"items":       merged,
				"total_items": len(merged),
			},
		},
	}}, nil
}

type rawPost struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	URL       string `json:"url"`
	CreatedAt string `json:"createdAt"`
	Subreddit string `json:"subreddit"`
}

func (p fanOutProvider) fetchRetail(ctx context.Context, ticker model.Ticker) feedResult {
	url := fmt.Sprintf("https://api.retailsentiment.example.com/v1/mentions?symbol=%s", ticker.Symbol)
	var payload struct {
		Posts []rawPost `json:"posts"`
	}
	if _, err := p.fetch.Get(ctx, "retail_sentiment", url, nil, 20*time.Second, &payload, false); err != nil {
		return feedResult{err: err}
	}
	items := make([]model.ContentItem, 0, len(payload.Posts))
	for _, post := range payload.Posts {
		date := post.CreatedAt
		if len(date) > 10 {
			date = date[:10]
		}
		items = append(items, model.ContentItem{
			Title: post.Title, Content: post.Body, URL: post.URL, DateTime: date,
			Source: "Retail Sentiment", Subreddit: post.Subreddit,
		})
	}
	return feedResult{items: items}
}

func (p fanOutProvider) fetchScored(ctx context.Context, ticker model.Ticker) feedResult {
	url := fmt.Sprintf("https://api.sentimentscore.example.com/v1/feed?symbol=%s", ticker.Symbol)
	var payload struct {
		Posts []rawPost `json:"posts"`
	}
	if _, err := p.fetch.Get(ctx, "sentiment_provider", url, nil, 20*time.Second, &payload, false); err != nil {
		return feedResult{err: err}
	}
	items := make([]model.ContentItem, 0, len(payload.Posts))
	for _, post := range payload.Posts {
		date := post.CreatedAt
		if len(date) > 10 {
			date = date[:10]
		}
		items = append(items, model.ContentItem{
			Title: post.Title, Content: post.Body, URL: post.URL, DateTime: date, Source: "Sentiment Provider",
		})
	}
	return feedResult{items: items}
}

func NewWorker(f *fetcher.Fetcher) *basket.Worker {
	chain := basket.Chain{
		BasketID:  BasketID,
		Group:     Group,
		Providers: []basket.Provider{fanOutProvider{fetch: f}},
	}

	w := basket.NewWorker(BasketID, Group)
	w.Register("get_all_sources_sentiment", func(ctx context.Context, args json.RawMessage) (model.BasketResult, error) {
		var in struct{ Ticker string `json:"ticker"` }
		if err := json.Unmarshal(args, &in); err != nil || in.Ticker == "" {
			return model.BasketResult{}, fmt.Errorf("invalid arguments: missing ticker")
		}
		return chain.Run(ctx, model.Ticker{Symbol: in.Ticker}), nil
	})
	return w
}
