package basket

import "github.com/vn6295337/Researcher-Agent/internal/model"

// F64 returns a pointer to v, for building TemporalMetric.Value literals.
func F64(v float64) *float64 { return &v }

// Metric is a small constructor for the common case of a scalar plus
// data type and end date, leaving filing metadata empty.
func Metric(value float64, dataType, endDate string) model.TemporalMetric {
	return model.TemporalMetric{Value: F64(value), DataType: dataType, EndDate: endDate}
}

// NullMetric represents a leaf whose provider payload did not carry the
// field, per spec.md §9's "fallback-to-null rule for every leaf read".
func NullMetric() model.TemporalMetric {
	return model.TemporalMetric{}
}
