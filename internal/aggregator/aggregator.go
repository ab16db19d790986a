// Package aggregator implements the Aggregator (C8) from spec.md §4.2:
// it drives basket workers in a fixed order, normalizes their payloads,
// emits progress events, and assembles the final ResearchArtifact.
package aggregator

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/model"
	"github.com/vn6295337/Researcher-Agent/internal/observability"
	"github.com/vn6295337/Researcher-Agent/internal/transport"
)

// basketDeadline is the overall per-basket deadline from spec.md §4.2.
const basketDeadline = 90 * time.Second

// ProgressSink is the append-only capability the Task Manager exposes
// to a running Aggregator (spec.md §4.1, §9: "opaque progress-sink
// capability").
type ProgressSink interface {
	Emit(model.MetricEvent)
}

// BasketSpec wires a basket id to the tool it exposes and the transport
// that reaches its worker.
type BasketSpec struct {
	ID        string
	Group     string
	ToolName  string
	Transport transport.Transport
}

// Aggregator runs the fixed basket sequence for a single task.
type Aggregator struct {
	baskets       []BasketSpec
	metricDelay   time.Duration
}

// New builds an Aggregator over the given basket specs, which must
// already be ordered fundamentals -> valuation -> volatility -> macro ->
// news -> sentiment per spec.md §4.2.
func New(baskets []BasketSpec, metricDelay time.Duration) *Aggregator {
	return &Aggregator{baskets: baskets, metricDelay: metricDelay}
}

// Run produces exactly one ResearchArtifact for ticker, emitting
// progress events to sink as each basket completes. isCanceled is
// polled at each basket boundary; if it returns true the aggregator
// stops invoking further workers and returns whatever it has so far.
func (a *Aggregator) Run(ctx context.Context, ticker model.Ticker, sink ProgressSink, isCanceled func() bool) model.ResearchArtifact {
	metrics := make(map[string]model.BasketResult)
	var available, failed []string

	for _, spec := range a.baskets {
		if isCanceled != nil && isCanceled() {
			log.Printf("[aggregator] task canceled before basket %s, stopping", spec.ID)
			break
		}

		start := time.Now()
		result, ok := a.runBasketWithRetry(ctx, spec, ticker)
		observability.BasketDuration.WithLabelValues(spec.ID, outcomeLabel(ok)).Observe(time.Since(start).Seconds())

		if spec.ID == "fundamentals" {
			result = ApplyDerivedFundamentals(result)
		}

		metrics[spec.ID] = result
		if ok {
			available = append(available, spec.ID)
		} else {
			failed = append(failed, spec.ID)
		}

		for _, event := range ProjectEvents(spec.ID, result) {
			event.Timestamp = time.Now()
			sink.Emit(event)
			if a.metricDelay > 0 {
				time.Sleep(a.metricDelay)
			}
		}
	}

	trimContent(metrics)

	conflicts := map[string][]model.ConflictRecord{}
	for basketID, result := range metrics {
		if c := DetectConflicts(basketID, result); len(c) > 0 {
			conflicts[basketID] = c
		}
	}

	multiSource := map[string]model.BasketResult{}
	for _, basketID := range []string{"fundamentals", "valuation", "macro", "volatility"} {
		if r, ok := metrics[basketID]; ok {
			multiSource[basketID+"_all"] = r
		}
	}

	completeness := ComputeCompleteness(metrics)
	observability.CompletenessScore.Observe(completeness.Pct)

	return model.ResearchArtifact{
		Ticker:             ticker.Symbol,
		CompanyName:        ticker.CompanyName,
		SourcesAvailable:   available,
		SourcesFailed:      failed,
		Metrics:            metrics,
		MultiSource:        multiSource,
		ConflictResolution: conflicts,
		AggregatedSwot:     MergeSwot(metrics),
		Completeness:       completeness,
		GeneratedAt:        time.Now().UTC(),
	}
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

// runBasketWithRetry implements spec.md §4.2's per-basket protocol: one
// call under a 90s deadline, one retry on failure, minimal fallback
// marked retried:true if the retry also fails.
func (a *Aggregator) runBasketWithRetry(ctx context.Context, spec BasketSpec, ticker model.Ticker) (model.BasketResult, bool) {
	result, err := a.invokeOnce(ctx, spec, ticker)
	if err == nil && result.Error == "" {
		return result, true
	}

	log.Printf("[aggregator] basket %s failed on first attempt (%v), retrying once", spec.ID, firstError(err, result.Error))
	result, err = a.invokeOnce(ctx, spec, ticker)
	if err == nil && result.Error == "" {
		return result, true
	}

	msg := firstError(err, result.Error)
	log.Printf("[aggregator] basket %s failed after retry: %s", spec.ID, msg)
	fallback := model.BasketResult{
		Group:  spec.Group,
		Source: spec.ID,
		Ticker: ticker.Symbol,
		AsOf:   time.Now().UTC().Format(time.RFC3339),
		Error:  msg,
		Retried: true,
		Sources: map[string]model.SourceEnvelope{
			"Minimal Fallback": {Source: "Minimal Fallback", Data: map[string]any{}},
		},
	}
	return fallback, false
}

func firstError(err error, resultErr string) string {
	if err != nil {
		return err.Error()
	}
	return resultErr
}

func (a *Aggregator) invokeOnce(ctx context.Context, spec BasketSpec, ticker model.Ticker) (model.BasketResult, error) {
	cctx, cancel := context.WithTimeout(ctx, basketDeadline)
	defer cancel()

	args := map[string]any{}
	if spec.ID != "macro" {
		args["ticker"] = ticker.Symbol
	}

	raw, err := spec.Transport.CallTool(cctx, spec.ID, spec.ToolName, args)
	if err != nil {
		return model.BasketResult{}, err
	}
	return Normalize(spec.ID, spec.Group, raw)
}

// trimContent sorts content items descending by datetime and truncates
// to the top ten, retaining the original count as total_items
// (spec.md §4.2's news/sentiment trimming).
func trimContent(metrics map[string]model.BasketResult) {
	for _, basketID := range []string{"news", "sentiment"} {
		result, ok := metrics[basketID]
		if !ok {
			continue
		}
		for name, env := range result.Sources {
			items, ok := env.Data["items"]
			if !ok {
				continue
			}
			list := toContentItems(items)
			sort.Slice(list, func(i, j int) bool { return list[i].DateTime > list[j].DateTime })
			total := len(list)
			if total > 10 {
				list = list[:10]
			}
			env.Data["items"] = list
			env.Data["total_items"] = total
			result.Sources[name] = env
		}
		metrics[basketID] = result
	}
}

func toContentItems(v any) []model.ContentItem {
	switch t := v.(type) {
	case []model.ContentItem:
		return t
	case []any:
		out := make([]model.ContentItem, 0, len(t))
		for _, raw := range t {
			b, err := json.Marshal(raw)
			if err != nil {
				continue
			}
			var item model.ContentItem
			if json.Unmarshal(b, &item) == nil {
				out = append(out, item)
			}
		}
		return out
	default:
		return nil
	}
}
