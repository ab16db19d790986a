package aggregator

import "github.com/vn6295337/Researcher-Agent/internal/model"

// MergeSwot concatenates matching SWOT keys across every basket result
// that carries one, per spec.md §4.2.
func MergeSwot(results map[string]model.BasketResult) model.SwotSummary {
	var out model.SwotSummary
	for _, r := range results {
		if r.SwotSummary != nil {
			out.Merge(r.SwotSummary)
		}
	}
	return out
}
