// Command stress is the Stress Harness entry point (spec.md §4.7): a
// separate binary that samples companies from a fixture, drives the
// configured baskets concurrently, classifies each result, and prints a
// reliability report plus a per-call NDJSON export.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vn6295337/Researcher-Agent/internal/aggregator"
	"github.com/vn6295337/Researcher-Agent/internal/basket/fundamentals"
	"github.com/vn6295337/Researcher-Agent/internal/basket/macro"
	"github.com/vn6295337/Researcher-Agent/internal/basket/news"
	"github.com/vn6295337/Researcher-Agent/internal/basket/sentiment"
	"github.com/vn6295337/Researcher-Agent/internal/basket/valuation"
	"github.com/vn6295337/Researcher-Agent/internal/basket/volatility"
	"github.com/vn6295337/Researcher-Agent/internal/breaker"
	"github.com/vn6295337/Researcher-Agent/internal/config"
	"github.com/vn6295337/Researcher-Agent/internal/model"
	"github.com/vn6295337/Researcher-Agent/internal/stress"
	"github.com/vn6295337/Researcher-Agent/internal/transport"
)

var (
	sampleSize   int
	concurrency  int
	strategyFlag string
	basketsFlag  []string
	ndjsonPath   string
)

func main() {
	root := &cobra.Command{
		Use:   "stress",
		Short: "samples companies, drives baskets concurrently, reports reliability",
		RunE:  runStress,
	}
	root.Flags().IntVar(&sampleSize, "sample-size", 10, "number of companies to sample")
	root.Flags().IntVar(&concurrency, "concurrency", 5, "max in-flight basket calls")
	root.Flags().StringVar(&strategyFlag, "strategy", "uniform", "uniform|stratified|edge_case|mixed")
	root.Flags().StringSliceVar(&basketsFlag, "baskets", model.BasketIDs, "basket ids to drive")
	root.Flags().StringVar(&ndjsonPath, "ndjson-out", "", "path to write per-call NDJSON records (stdout if empty)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "[stress]", err)
		os.Exit(1)
	}
}

func runStress(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	rng := rand.New(rand.NewSource(1))

	companies := stress.Sample(stress.Fixture, stress.Strategy(strategyFlag), sampleSize, rng)
	childProc := transport.NewChildProcess(cfg.WorkerBinary)
	specs := buildSpecs(childProc, basketsFlag)

	caller := func(ctx context.Context, spec aggregator.BasketSpec, ticker model.Ticker) (model.BasketResult, error) {
		callArgs := map[string]any{}
		if spec.ID != "macro" {
			callArgs["ticker"] = ticker.Symbol
		}
		raw, err := childProc.CallTool(ctx, spec.ID, spec.ToolName, callArgs)
		if err != nil {
			return model.BasketResult{}, err
		}
		return aggregator.Normalize(spec.ID, spec.Group, raw)
	}

	driver := &stress.Driver{Baskets: specs, Caller: caller, Concurrency: concurrency}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	results := driver.Run(ctx, companies)

	breakers := breaker.DefaultRegistry()
	report := stress.Summarize(results, breakerSnapshot(breakers, basketsFlag))

	out := os.Stdout
	if ndjsonPath != "" {
		f, err := os.Create(ndjsonPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := stress.WriteNDJSON(f, results); err != nil {
			return err
		}
	} else {
		stress.WriteNDJSON(out, results)
	}

	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func breakerSnapshot(registry *breaker.Registry, basketIDs []string) map[string]string {
	out := make(map[string]string, len(basketIDs))
	for id, snap := range registry.Snapshots() {
		out[id] = snap.State
	}
	return out
}

func buildSpecs(childProc transport.Transport, basketIDs []string) []aggregator.BasketSpec {
	all := map[string]aggregator.BasketSpec{
		fundamentals.BasketID: {ID: fundamentals.BasketID, Group: fundamentals.Group, ToolName: "get_all_sources_fundamentals", Transport: childProc},
		valuation.BasketID:    {ID: valuation.BasketID, Group: valuation.Group, ToolName: "get_all_sources_valuation", Transport: childProc},
		volatility.BasketID:   {ID: volatility.BasketID, Group: volatility.Group, ToolName: "get_all_sources_volatility", Transport: childProc},
		macro.BasketID:        {ID: macro.BasketID, Group: macro.Group, ToolName: "get_all_sources_macro", Transport: childProc},
		news.BasketID:         {ID: news.BasketID, Group: news.Group, ToolName: "get_all_sources_news", Transport: childProc},
		sentiment.BasketID:    {ID: sentiment.BasketID, Group: sentiment.Group, ToolName: "get_all_sources_sentiment", Transport: childProc},
	}
	var out []aggregator.BasketSpec
	for _, id := range basketIDs {
		if spec, ok := all[id]; ok {
			out = append(out, spec)
		}
	}
	return out
}
