// Conflict resolution compares a basket's two named sources and records
// disagreements beyond a 0.5% relative tolerance (spec.md §4.2, §9's
// Open Question 3). The same tolerance applies to every metric of every
// basket; there are no per-basket or per-metric-family overrides.
package aggregator

import "github.com/vn6295337/Researcher-Agent/internal/model"

// primarySource names the source each multi-source basket trusts on
// conflict, per spec.md §4.2.
var primarySource = map[string]string{
	"fundamentals": "SEC EDGAR",
	"valuation":    "Yahoo",
	"macro":        "BEA/BLS",
	"volatility":   "Yahoo",
}

// secondarySource names the comparison source for each basket above.
var secondarySource = map[string]string{
	"fundamentals": "Yahoo",
	"valuation":    "Alpha Vantage",
	"macro":        "Reserve Bank",
	"volatility":   "Alpha Vantage",
}

const defaultTolerancePct = 0.5

// DetectConflicts compares the primary and secondary source envelopes of
// a single basket and returns one ConflictRecord per metric whose
// relative difference exceeds the tolerance.
func DetectConflicts(basketID string, result model.BasketResult) []model.ConflictRecord {
	primaryName, ok := primarySource[basketID]
	if !ok {
		return nil
	}
	secondaryName := secondarySource[basketID]

	primary, hasPrimary := result.Sources[primaryName]
	secondary, hasSecondary := result.Sources[secondaryName]
	if !hasPrimary || !hasSecondary {
		return nil
	}

	var conflicts []model.ConflictRecord
	for metric, pv := range primary.Data {
		sv, ok := secondary.Data[metric]
		if !ok {
			continue
		}
		pf, pOK := scalarOf(pv)
		sf, sOK := scalarOf(sv)
		if !pOK || !sOK {
			continue
		}
		if relativeDiffPct(pf, sf) > defaultTolerancePct {
			conflicts = append(conflicts, model.ConflictRecord{
				Metric: metric, PrimaryValue: pf, SecondaryValue: sf, Used: "primary",
			})
		}
	}
	return conflicts
}

func relativeDiffPct(a, b float64) float64 {
	base := a
	if base == 0 {
		base = b
	}
	if base == 0 {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if base < 0 {
		base = -base
	}
	return 100 * diff / base
}

func scalarOf(v any) (float64, bool) {
	switch t := v.(type) {
	case model.TemporalMetric:
		if t.Value == nil {
			return 0, false
		}
		return *t.Value, true
	case map[string]any:
		val, ok := t["value"]
		if !ok || val == nil {
			return 0, false
		}
		f, ok := val.(float64)
		return f, ok
	case float64:
		return t, true
	}
	return 0, false
}
