// Completeness consolidates the scattered per-site required-field lists
// into one declarative table, per spec.md §9's Open Question 4.
package aggregator

import "github.com/vn6295337/Researcher-Agent/internal/model"

// requiredFields enumerates the canonical metric keys each basket must
// contribute for a "complete" artifact (spec.md §4.2, §8).
var requiredFields = map[string][]string{
	"fundamentals": {"revenue", "net_income", "eps", "total_debt"},
	"valuation":    {"pe_ratio", "pb_ratio", "ps_ratio", "ev_ebitda"},
	"volatility":   {"beta", "hist_vol", "vix", "implied_vol"},
	"macro":        {"gdp_growth", "interest_rate", "inflation", "unemployment"},
	"news":         {"items", "total_items"},
	"sentiment":    {"items", "total_items"},
}

// ComputeCompleteness walks the normalized artifact metrics against
// requiredFields and returns the pct/found/total/missing tuple.
func ComputeCompleteness(metrics map[string]model.BasketResult) model.Completeness {
	found := 0
	total := 0
	missing := map[string][]string{}

	for basketID, fields := range requiredFields {
		result, ok := metrics[basketID]
		for _, field := range fields {
			total++
			if !ok {
				missing[basketID] = append(missing[basketID], field)
				continue
			}
			if fieldPresent(result, field) {
				found++
			} else {
				missing[basketID] = append(missing[basketID], field)
			}
		}
	}

	pct := 0.0
	if total > 0 {
		pct = 100 * float64(found) / float64(total)
	}
	return model.Completeness{Pct: pct, Found: found, Total: total, Missing: missing}
}

// fieldPresent resolves field across every source envelope in result and
// reports whether any of them carries a non-null value for it.
func fieldPresent(result model.BasketResult, field string) bool {
	for _, env := range result.Sources {
		v, ok := env.Data[field]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case model.TemporalMetric:
			if t.Value != nil {
				return true
			}
		case map[string]any:
			// decoded-from-JSON shape: TemporalMetric round-tripped through
			// the worker transport loses its concrete type.
			if val, ok := t["value"]; ok && val != nil {
				return true
			}
		case []model.ContentItem:
			return true
		case []any:
			if len(t) > 0 {
				return true
			}
		case float64:
			return true
		case int:
			return true
		case string:
			if t != "" {
				return true
			}
		}
	}
	return false
}
