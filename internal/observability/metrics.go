// Package observability exports the Prometheus metrics surfaced on
// /metrics, following the promauto pattern in
// control_plane/observability/metrics.go.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksTotal counts task submissions by terminal status.
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_tasks_total",
		Help: "Total number of research tasks by terminal status",
	}, []string{"status"})

	// TasksInFlight tracks currently WORKING tasks.
	TasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "research_tasks_in_flight",
		Help: "Number of tasks currently being aggregated",
	})

	// BasketDuration tracks how long each basket worker invocation took.
	BasketDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "research_basket_duration_seconds",
		Help:    "Duration of a single basket worker invocation",
		Buckets: prometheus.DefBuckets,
	}, []string{"basket", "outcome"})

	// ProviderCalls counts upstream fetcher calls by provider and outcome.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_provider_calls_total",
		Help: "Total upstream provider calls by provider and outcome",
	}, []string{"provider", "outcome"})

	// CircuitBreakerState exports the current breaker state per provider
	// (0=closed, 1=half_open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "research_circuit_breaker_state",
		Help: "Current circuit breaker state per provider",
	}, []string{"provider"})

	// RateLimiterRejections counts admission-control rejections.
	RateLimiterRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_rate_limiter_rejections_total",
		Help: "Total rate limiter rejections by provider",
	}, []string{"provider"})

	// CacheOps counts cache hits and misses by basket namespace.
	CacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_cache_ops_total",
		Help: "Total cache operations by namespace and result",
	}, []string{"namespace", "result"})

	// CompletenessScore records the completeness percentage of every
	// artifact, observed once at artifact assembly time.
	CompletenessScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "research_completeness_pct",
		Help:    "Completeness percentage of completed research artifacts",
		Buckets: []float64{10, 25, 50, 75, 90, 100},
	})
)
