// Package basket implements the Basket Worker framework (C6) from
// spec.md §4.3: a fallback chain of heterogeneous providers composed
// from orthogonal capabilities (rate limiting, circuit breaking,
// caching) rather than a type hierarchy, per spec.md §9's guidance on
// deep inheritance.
package basket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/model"
)

// ToolDeadline is the outer deadline every tool call is wrapped with,
// per spec.md §4.3's tool execution wrapper.
const ToolDeadline = 90 * time.Second

// Provider is one upstream data source a basket can fall back across.
// Fetch returns a BasketResult already shaped for this single provider
// (its Sources map has exactly one entry keyed by the provider's own
// source name), or an error if the provider produced nothing usable.
type Provider interface {
	ID() string
	Fetch(ctx context.Context, ticker model.Ticker) (model.BasketResult, error)
}

// Chain is an ordered fallback list: the first provider whose result is
// non-empty and non-errored wins (spec.md §4.3).
type Chain struct {
	BasketID  string
	Group     string
	Providers []Provider
}

// Run executes the fallback chain and guarantees a well-formed result:
// if every provider fails, it synthesizes a minimal-fallback entry from
// the last provider's error.
func (c Chain) Run(ctx context.Context, ticker model.Ticker) model.BasketResult {
	var lastErr error
	var lastProviderID string

	for _, p := range c.Providers {
		result, err := p.Fetch(ctx, ticker)
		if err != nil {
			lastErr = err
			lastProviderID = p.ID()
			continue
		}
		if len(result.Sources) == 0 {
			lastErr = fmt.Errorf("provider %s returned no sources", p.ID())
			lastProviderID = p.ID()
			continue
		}
		result.Group = c.Group
		result.Source = c.BasketID
		result.Ticker = ticker.Symbol
		result.AsOf = time.Now().UTC().Format(time.RFC3339)
		return result
	}

	return MinimalFallback(c.BasketID, c.Group, ticker, lastProviderID, lastErr)
}

// MinimalFallback builds the last-resort response required by the
// always-respond invariant: null data values, populated envelope.
func MinimalFallback(basketID, group string, ticker model.Ticker, failedProvider string, cause error) model.BasketResult {
	msg := "all providers exhausted"
	if cause != nil {
		msg = cause.Error()
	}
	name := "Minimal Fallback"
	if failedProvider != "" {
		name = "Minimal Fallback (" + failedProvider + ")"
	}
	return model.BasketResult{
		Group:  group,
		Ticker: ticker.Symbol,
		Source: basketID,
		AsOf:   time.Now().UTC().Format(time.RFC3339),
		Error:  msg,
		Sources: map[string]model.SourceEnvelope{
			name: {
				Source: name,
				AsOf:   time.Now().UTC().Format(time.RFC3339),
				Data:   map[string]any{},
			},
		},
	}
}

// ToolFunc is a basket's exposed tool (named callable taking a validated
// argument object, §4.3/§4.6's `{ticker}` or `{}` shapes).
type ToolFunc func(ctx context.Context, args json.RawMessage) (model.BasketResult, error)

// Worker exposes a basket's tools by name, applying the tool execution
// wrapper from spec.md §4.3: a 90s outer deadline and conversion of tool
// errors and panics into the error payload. Call returns the result
// unencoded; JSON encoding is left to the caller (cmd/worker).
type Worker struct {
	BasketID string
	Group    string
	Tools    map[string]ToolFunc
}

// NewWorker builds a worker with no tools registered yet.
func NewWorker(basketID, group string) *Worker {
	return &Worker{BasketID: basketID, Group: group, Tools: make(map[string]ToolFunc)}
}

// Register installs a tool under name.
func (w *Worker) Register(name string, fn ToolFunc) {
	w.Tools[name] = fn
}

// Call invokes the named tool under the 90s deadline, converting panics
// and timeouts into the canonical error payload from spec.md §4.3:
// {error, ticker, tool, source, fallback: true}.
func (w *Worker) Call(ctx context.Context, tool string, ticker model.Ticker, args json.RawMessage) (result model.BasketResult, callErr error) {
	fn, ok := w.Tools[tool]
	if !ok {
		return model.BasketResult{}, fmt.Errorf("unknown tool %q for basket %s", tool, w.BasketID)
	}

	cctx, cancel := context.WithTimeout(ctx, ToolDeadline)
	defer cancel()

	type outcome struct {
		result model.BasketResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{result: errorPayload(w.BasketID, tool, ticker, fmt.Errorf("panic: %v", r))}
			}
		}()
		res, err := fn(cctx, args)
		if err != nil {
			done <- outcome{result: errorPayload(w.BasketID, tool, ticker, err)}
			return
		}
		done <- outcome{result: res}
	}()

	select {
	case o := <-done:
		return o.result, nil
	case <-cctx.Done():
		return errorPayload(w.BasketID, tool, ticker, cctx.Err()), nil
	}
}

func errorPayload(basketID, tool string, ticker model.Ticker, err error) model.BasketResult {
	return model.BasketResult{
		Source: basketID,
		Ticker: ticker.Symbol,
		Error:  err.Error(),
		Sources: map[string]model.SourceEnvelope{
			"error": {Source: "error", Data: map[string]any{
				"error":    err.Error(),
				"ticker":   ticker.Symbol,
				"tool":     tool,
				"source":   basketID,
				"fallback": true,
			}},
		},
	}
}
