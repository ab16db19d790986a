// Package model holds the canonical data shapes shared by every basket
// worker, the aggregator, and the task manager.
package model

import "time"

// Ticker identifies a company by its short exchange symbol plus an
// optional human-readable display name.
type Ticker struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name,omitempty"`
}

// TemporalMetric is a scalar value plus the provenance needed to judge
// how fresh and authoritative it is.
type TemporalMetric struct {
	Value      *float64 `json:"value"`
	DataType   string   `json:"data_type,omitempty"` // FY|Q|TTM|Point-in-time|Daily|Monthly|Quarterly|1Y|30D|Forward
	EndDate    string   `json:"end_date,omitempty"`  // yyyy-mm-dd
	Filed      string   `json:"filed,omitempty"`     // yyyy-mm-dd
	FiscalYear *int     `json:"fiscal_year,omitempty"`
	Form       string   `json:"form,omitempty"`
}

// Valid enforces the "no metric from the future" invariant.
func (m TemporalMetric) Valid(now time.Time) bool {
	if m.Value == nil || m.EndDate == "" {
		return true
	}
	end, err := time.Parse("2006-01-02", m.EndDate)
	if err != nil {
		return true
	}
	return !end.After(now)
}

// ContentItem is a single piece of qualitative content (news article or
// social post).
type ContentItem struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	DateTime  string `json:"datetime"` // yyyy-mm-dd
	Source    string `json:"source"`
	Subreddit string `json:"subreddit,omitempty"`
}

// SourceEnvelope is the per-provider slice of a BasketResult.
type SourceEnvelope struct {
	Source string         `json:"source"`
	AsOf   string         `json:"as_of"`
	Data   map[string]any `json:"data"` // value is TemporalMetric or []ContentItem
}

// BasketResult is the canonical per-category output every basket worker
// must return, even in complete failure (the always-respond invariant).
type BasketResult struct {
	Group       string                    `json:"group"` // source_comparison|raw_metrics|content_analysis
	Ticker      string                    `json:"ticker"`
	Sources     map[string]SourceEnvelope `json:"sources"`
	Source      string                    `json:"source"` // basket id
	AsOf        string                    `json:"as_of"`
	SwotSummary *SwotSummary              `json:"swot_summary,omitempty"`
	Error       string                    `json:"error,omitempty"`
	Retried     bool                      `json:"retried,omitempty"`
}

// SwotSummary is an optional strengths/weaknesses/opportunities/threats
// fragment a normalizer may attach.
type SwotSummary struct {
	Strengths     []string `json:"strengths,omitempty"`
	Weaknesses    []string `json:"weaknesses,omitempty"`
	Opportunities []string `json:"opportunities,omitempty"`
	Threats       []string `json:"threats,omitempty"`
}

// Merge concatenates matching SWOT fields from other into s.
func (s *SwotSummary) Merge(other *SwotSummary) {
	if other == nil {
		return
	}
	s.Strengths = append(s.Strengths, other.Strengths...)
	s.Weaknesses = append(s.Weaknesses, other.Weaknesses...)
	s.Opportunities = append(s.Opportunities, other.Opportunities...)
	s.Threats = append(s.Threats, other.Threats...)
}

// ConflictRecord documents a cross-source disagreement resolved in favor
// of the basket's declared primary source.
type ConflictRecord struct {
	Metric        string  `json:"metric"`
	PrimaryValue  float64 `json:"primary_value"`
	SecondaryValue float64 `json:"secondary_value"`
	Used          string  `json:"used"`
}

// Completeness is the artifact-level score described in spec.md §4.2.
type Completeness struct {
	Pct     float64             `json:"pct"`
	Found   int                 `json:"found"`
	Total   int                 `json:"total"`
	Missing map[string][]string `json:"missing"`
}

// ResearchArtifact is the aggregator's final, always-producible output.
type ResearchArtifact struct {
	Ticker            string                  `json:"ticker"`
	CompanyName       string                  `json:"company_name"`
	SourcesAvailable  []string                `json:"sources_available"`
	SourcesFailed     []string                `json:"sources_failed"`
	Metrics           map[string]BasketResult `json:"metrics"`
	MultiSource       map[string]BasketResult `json:"multi_source"`
	ConflictResolution map[string][]ConflictRecord `json:"conflict_resolution"`
	AggregatedSwot    SwotSummary             `json:"aggregated_swot"`
	Completeness      Completeness            `json:"completeness"`
	GeneratedAt       time.Time               `json:"generated_at"`
}

// MetricEvent is a single streamed progress record emitted while a task
// is being aggregated.
type MetricEvent struct {
	Source     string    `json:"source"` // basket id
	Metric     string    `json:"metric"`
	Value      any       `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
	EndDate    string    `json:"end_date,omitempty"`
	FiscalYear *int      `json:"fiscal_year,omitempty"`
	Form       string    `json:"form,omitempty"`
}

// TaskStatus enumerates the Task lifecycle (spec.md §3).
type TaskStatus string

const (
	StatusSubmitted TaskStatus = "SUBMITTED"
	StatusWorking   TaskStatus = "WORKING"
	StatusCompleted TaskStatus = "COMPLETED"
	StatusFailed    TaskStatus = "FAILED"
	StatusCanceled  TaskStatus = "CANCELED"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Artifact wraps a ResearchArtifact the way the JSON-RPC contract's
// `artifacts[0].data` field expects.
type Artifact struct {
	Data ResearchArtifact `json:"data"`
}

// Task is the unit of work tracked by the Task Manager.
type Task struct {
	ID             string        `json:"id"`
	Status         TaskStatus    `json:"status"`
	Message        string        `json:"message,omitempty"`
	Artifacts      []Artifact    `json:"artifacts,omitempty"`
	PartialMetrics []MetricEvent `json:"partial_metrics"`
	Error          string        `json:"error,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Snapshot returns a deep-enough copy safe to hand to a reader while the
// aggregator keeps mutating the original.
func (t *Task) Snapshot() Task {
	cp := *t
	cp.PartialMetrics = append([]MetricEvent(nil), t.PartialMetrics...)
	cp.Artifacts = append([]Artifact(nil), t.Artifacts...)
	return cp
}

// BasketIDs lists the six data categories in the fixed aggregation order
// required by spec.md §4.2.
var BasketIDs = []string{"fundamentals", "valuation", "volatility", "macro", "news", "sentiment"}
