package model

import (
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func TestTemporalMetricValidAcceptsPastEndDate(t *testing.T) {
	m := TemporalMetric{Value: f64(1), EndDate: "2024-01-01"}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !m.Valid(now) {
		t.Fatal("a metric dated in the past should be valid")
	}
}

func TestTemporalMetricValidRejectsFutureEndDate(t *testing.T) {
	m := TemporalMetric{Value: f64(1), EndDate: "2025-01-01"}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if m.Valid(now) {
		t.Fatal("a metric dated in the future should be invalid")
	}
}

func TestTemporalMetricValidAllowsNilValue(t *testing.T) {
	m := TemporalMetric{EndDate: "2099-01-01"}
	if !m.Valid(time.Now()) {
		t.Fatal("a metric with no value carries no date invariant to violate")
	}
}

func TestTemporalMetricValidAllowsUnparsableEndDate(t *testing.T) {
	m := TemporalMetric{Value: f64(1), EndDate: "not-a-date"}
	if !m.Valid(time.Now()) {
		t.Fatal("an unparsable end date should not fail the invariant check")
	}
}

func TestSwotSummaryMergeConcatenatesFields(t *testing.T) {
	s := &SwotSummary{Strengths: []string{"a"}}
	s.Merge(&SwotSummary{Strengths: []string{"b"}, Weaknesses: []string{"c"}})
	if len(s.Strengths) != 2 || s.Strengths[1] != "b" {
		t.Errorf("Strengths = %v, want [a b]", s.Strengths)
	}
	if len(s.Weaknesses) != 1 || s.Weaknesses[0] != "c" {
		t.Errorf("Weaknesses = %v, want [c]", s.Weaknesses)
	}
}

func TestSwotSummaryMergeNilIsNoOp(t *testing.T) {
	s := &SwotSummary{Strengths: []string{"a"}}
	s.Merge(nil)
	if len(s.Strengths) != 1 {
		t.Fatal("merging nil should not change the receiver")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	cases := map[TaskStatus]bool{
		StatusSubmitted: false,
		StatusWorking:   false,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCanceled:  true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestTaskSnapshotCopiesSlices(t *testing.T) {
	task := &Task{ID: "t1", PartialMetrics: []MetricEvent{{}}}
	snap := task.Snapshot()

	task.PartialMetrics = append(task.PartialMetrics, MetricEvent{})
	if len(snap.PartialMetrics) != 1 {
		t.Fatal("snapshot should not observe mutations to the original's slice")
	}
}

func TestBasketIDsHasSixFixedEntries(t *testing.T) {
	want := []string{"fundamentals", "valuation", "volatility", "macro", "news", "sentiment"}
	if len(BasketIDs) != len(want) {
		t.Fatalf("len(BasketIDs) = %d, want %d", len(BasketIDs), len(want))
	}
	for i, id := range want {
		if BasketIDs[i] != id {
			t.Errorf("BasketIDs[%d] = %q, want %q", i, BasketIDs[i], id)
		}
	}
}
