// Metric extraction selects the small set of user-visible metrics each
// basket contributes to the progress stream (spec.md §4.2).
package aggregator

import "github.com/vn6295337/Researcher-Agent/internal/model"

// projectionFields names the metrics a basket projects into progress
// events, in emission order.
var projectionFields = map[string][]string{
	"fundamentals": {"revenue", "net_margin", "eps", "debt_to_equity"},
	"valuation":    {"pe_ratio", "pb_ratio", "ps_ratio", "ev_ebitda"},
	"volatility":   {"vix", "beta", "hist_vol"},
	"macro":        {"gdp_growth", "interest_rate", "inflation", "unemployment"},
}

// contentBaskets project a single synthetic "items_found" metric instead
// of a field list (news/sentiment, spec.md §4.2).
var contentBaskets = map[string]bool{"news": true, "sentiment": true}

// ProjectEvents builds the MetricEvents a basket result should emit.
func ProjectEvents(basketID string, result model.BasketResult) []model.MetricEvent {
	if contentBaskets[basketID] {
		return projectContent(basketID, result)
	}

	fields := projectionFields[basketID]
	if len(fields) == 0 {
		return nil
	}

	var events []model.MetricEvent
	for _, field := range fields {
		tm, ok := findMetric(result, field)
		if !ok {
			continue
		}
		events = append(events, toEvent(basketID, field, tm))
	}
	return events
}

func projectContent(basketID string, result model.BasketResult) []model.MetricEvent {
	total := 0
	for _, env := range result.Sources {
		if v, ok := env.Data["total_items"]; ok {
			if n, ok := v.(int); ok {
				total += n
			} else if f, ok := v.(float64); ok {
				total += int(f)
			}
		}
	}
	var value any
	if total == 0 {
		label := "news"
		if basketID == "sentiment" {
			label = "sentiment"
		}
		value = "No recent " + label + " found"
	} else {
		value = total
	}
	return []model.MetricEvent{{Source: basketID, Metric: "items_found", Value: value}}
}

func findMetric(result model.BasketResult, field string) (model.TemporalMetric, bool) {
	for _, env := range result.Sources {
		v, ok := env.Data[field]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case model.TemporalMetric:
			if t.Value != nil {
				return t, true
			}
		case map[string]any:
			if tm, ok := decodeTemporalMetric(t); ok {
				return tm, true
			}
		}
	}
	return model.TemporalMetric{}, false
}

func decodeTemporalMetric(m map[string]any) (model.TemporalMetric, bool) {
	val, ok := m["value"].(float64)
	if !ok {
		return model.TemporalMetric{}, false
	}
	tm := model.TemporalMetric{Value: &val}
	if s, ok := m["data_type"].(string); ok {
		tm.DataType = s
	}
	if s, ok := m["end_date"].(string); ok {
		tm.EndDate = s
	}
	if s, ok := m["filed"].(string); ok {
		tm.Filed = s
	}
	if s, ok := m["form"].(string); ok {
		tm.Form = s
	}
	if fy, ok := m["fiscal_year"].(float64); ok {
		i := int(fy)
		tm.FiscalYear = &i
	}
	return tm, true
}

func toEvent(basketID, field string, tm model.TemporalMetric) model.MetricEvent {
	return model.MetricEvent{
		Source: basketID, Metric: field, Value: *tm.Value,
		EndDate: tm.EndDate, FiscalYear: tm.FiscalYear, Form: tm.Form,
	}
}
