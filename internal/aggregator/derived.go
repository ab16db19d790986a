// Derived metrics are computed ratios that inherit the provenance of
// their freshest numerator/denominator (spec.md §3's TemporalMetric
// invariant).
package aggregator

import "github.com/vn6295337/Researcher-Agent/internal/model"

// ApplyDerivedFundamentals injects net_margin and debt_to_equity into
// every source envelope of a fundamentals BasketResult that has enough
// raw fields to compute them.
func ApplyDerivedFundamentals(result model.BasketResult) model.BasketResult {
	for name, env := range result.Sources {
		revenue, hasRevenue := metricOf(env.Data, "revenue")
		netIncome, hasNetIncome := metricOf(env.Data, "net_income")
		if hasRevenue && hasNetIncome && revenue.Value != nil && *revenue.Value != 0 {
			margin := *netIncome.Value / *revenue.Value * 100
			env.Data["net_margin"] = freshest(revenue, netIncome, margin)
		}

		debt, hasDebt := metricOf(env.Data, "total_debt")
		equity, hasEquity := metricOf(env.Data, "stockholders_equity")
		if hasDebt && hasEquity && equity.Value != nil && *equity.Value != 0 {
			ratio := *debt.Value / *equity.Value
			env.Data["debt_to_equity"] = freshest(debt, equity, ratio)
		}
		result.Sources[name] = env
	}
	return result
}

func metricOf(data map[string]any, field string) (model.TemporalMetric, bool) {
	v, ok := data[field]
	if !ok {
		return model.TemporalMetric{}, false
	}
	switch t := v.(type) {
	case model.TemporalMetric:
		if t.Value == nil {
			return model.TemporalMetric{}, false
		}
		return t, true
	case map[string]any:
		return decodeTemporalMetric(t)
	}
	return model.TemporalMetric{}, false
}

// freshest returns a TemporalMetric carrying value but the provenance of
// whichever of a/b has the later EndDate.
func freshest(a, b model.TemporalMetric, value float64) model.TemporalMetric {
	src := a
	if b.EndDate > a.EndDate {
		src = b
	}
	src.Value = &value
	return src
}
