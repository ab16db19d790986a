// Package stress implements the Stress Harness (C10) from spec.md §4.7:
// a company sampler, a controlled concurrent driver, and a result
// classifier, run as a separate entry point from the main service.
package stress

import (
	"math/rand"

	"github.com/vn6295337/Researcher-Agent/internal/model"
)

// Company is one entry of the fixture sampler draws from.
type Company struct {
	Ticker model.Ticker
	Sector string
	// EdgeCase marks a fixture entry deliberately chosen to exercise an
	// unusual path (delisted, recent IPO, thinly-traded, non-US primary
	// listing).
	EdgeCase bool
}

// Strategy selects which fixture entries a sample draws from.
type Strategy string

const (
	StrategyUniform    Strategy = "uniform"
	StrategyStratified Strategy = "stratified" // balanced across sectors
	StrategyEdgeCase   Strategy = "edge_case"
	StrategyMixed      Strategy = "mixed" // half uniform, half edge-case
)

// Fixture is a small, hand-curated sample of real tickers spanning
// several sectors plus a handful of known edge cases. Real ticker
// directories are explicitly out of scope (spec.md's ticker-name
// normalization non-goal); this is stress-test fixture data only.
var Fixture = []Company{
	{Ticker: model.Ticker{Symbol: "AAPL", CompanyName: "Apple"}, Sector: "Technology"},
	{Ticker: model.Ticker{Symbol: "MSFT", CompanyName: "Microsoft"}, Sector: "Technology"},
	{Ticker: model.Ticker{Symbol: "NVDA", CompanyName: "Nvidia"}, Sector: "Technology"},
	{Ticker: model.Ticker{Symbol: "GOOGL", CompanyName: "Alphabet"}, Sector: "Technology"},
	{Ticker: model.Ticker{Symbol: "TSLA", CompanyName: "Tesla"}, Sector: "Consumer Discretionary"},
	{Ticker: model.Ticker{Symbol: "AMZN", CompanyName: "Amazon"}, Sector: "Consumer Discretionary"},
	{Ticker: model.Ticker{Symbol: "KO", CompanyName: "Coca-Cola"}, Sector: "Consumer Staples"},
	{Ticker: model.Ticker{Symbol: "JPM", CompanyName: "JPMorgan Chase"}, Sector: "Financials"},
	{Ticker: model.Ticker{Symbol: "XOM", CompanyName: "Exxon Mobil"}, Sector: "Energy"},
	{Ticker: model.Ticker{Symbol: "JNJ", CompanyName: "Johnson & Johnson"}, Sector: "Health Care"},
	{Ticker: model.Ticker{Symbol: "NEE", CompanyName: "NextEra Energy"}, Sector: "Utilities"},
	{Ticker: model.Ticker{Symbol: "PLD", CompanyName: "Prologis"}, Sector: "Real Estate"},
	// edge cases
	{Ticker: model.Ticker{Symbol: "BRK.B", CompanyName: "Berkshire Hathaway"}, Sector: "Financials", EdgeCase: true},
	{Ticker: model.Ticker{Symbol: "ZZZZ", CompanyName: "Delisted Test Co"}, Sector: "Unknown", EdgeCase: true},
	{Ticker: model.Ticker{Symbol: "IPOX", CompanyName: "Recent IPO Test Co"}, Sector: "Technology", EdgeCase: true},
}

// Sample draws n companies from fixture according to strategy.
func Sample(fixture []Company, strategy Strategy, n int, rng *rand.Rand) []Company {
	switch strategy {
	case StrategyEdgeCase:
		return sampleFrom(filterEdgeCase(fixture, true), n, rng)
	case StrategyStratified:
		return sampleStratified(fixture, n, rng)
	case StrategyMixed:
		half := n / 2
		out := sampleFrom(filterEdgeCase(fixture, true), half, rng)
		out = append(out, sampleFrom(filterEdgeCase(fixture, false), n-len(out), rng)...)
		return out
	default:
		return sampleFrom(fixture, n, rng)
	}
}

func filterEdgeCase(fixture []Company, edge bool) []Company {
	var out []Company
	for _, c := range fixture {
		if c.EdgeCase == edge {
			out = append(out, c)
		}
	}
	return out
}

// sampleStratified picks companies round-robin across sectors so every
// represented sector gets roughly equal weight in the sample.
func sampleStratified(fixture []Company, n int, rng *rand.Rand) []Company {
	bySector := map[string][]Company{}
	var sectors []string
	for _, c := range fixture {
		if _, ok := bySector[c.Sector]; !ok {
			sectors = append(sectors, c.Sector)
		}
		bySector[c.Sector] = append(bySector[c.Sector], c)
	}
	rng.Shuffle(len(sectors), func(i, j int) { sectors[i], sectors[j] = sectors[j], sectors[i] })

	var out []Company
	for len(out) < n && len(sectors) > 0 {
		for i := 0; i < len(sectors) && len(out) < n; i++ {
			pool := bySector[sectors[i]]
			if len(pool) == 0 {
				continue
			}
			idx := rng.Intn(len(pool))
			out = append(out, pool[idx])
			bySector[sectors[i]] = append(pool[:idx], pool[idx+1:]...)
		}
	}
	return out
}

func sampleFrom(fixture []Company, n int, rng *rand.Rand) []Company {
	if len(fixture) == 0 {
		return nil
	}
	shuffled := append([]Company(nil), fixture...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
