package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_firewall_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_firewall_requests_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_firewall_decisions_total",
			Help: "Total number of connection decisions, by verdict",
		},
		[]string{"decision"},
	)

	PolicyMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_firewall_policy_matches_total",
			Help: "Total number of connections matched against a policy, by policy_id",
		},
		[]string{"policy_id"},
	)

	PolicyCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_firewall_policy_count",
			Help: "Current number of configured policies",
		},
	)

	ScoreCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_firewall_score_cache_hits_total",
			Help: "Total number of anomaly score cache hits",
		},
	)

	ScoreCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_firewall_score_cache_misses_total",
			Help: "Total number of anomaly score cache misses",
		},
	)

	AIBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_firewall_ai_batch_size",
			Help:    "Size of batches dispatched to the anomaly scorer",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 50},
		},
	)

	AIBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_firewall_ai_batch_duration_seconds",
			Help:    "Duration of a single anomaly scorer batch call",
			Buckets: prometheus.DefBuckets,
		},
	)

	AIScorerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_firewall_ai_scorer_errors_total",
			Help: "Total number of anomaly scorer batch failures",
		},
	)

	ScorerHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_firewall_scorer_healthy",
			Help: "Whether the anomaly scorer is currently considered healthy (1) or not (0)",
		},
	)

	ScorerConsecutiveFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_firewall_scorer_consecutive_failures",
			Help: "Current count of consecutive anomaly scorer failures",
		},
	)

	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_firewall_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the per-client rate limiter",
		},
		[]string{"endpoint"},
	)
)

// Metrics is a thin, enable-gated wrapper around the package-level
// Prometheus collectors, grounded on the house pattern of a Metrics
// struct carrying only an `enabled` flag alongside global collector vars
// (package-level collectors are required for promauto registration, the
// wrapper exists purely so recording call sites can be no-ops when
// metrics are disabled in configuration).
type Metrics struct {
	enabled bool
}

// New creates a Metrics recorder. When enabled is false, every recording
// method is a no-op.
func New(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

func (m *Metrics) isEnabled() bool {
	return m.enabled
}

// RecordRequest records an HTTP request's outcome and latency.
func (m *Metrics) RecordRequest(endpoint, status string, duration time.Duration) {
	if !m.isEnabled() {
		return
	}
	RequestsTotal.WithLabelValues(endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordDecision records a connection decision by its final verdict.
func (m *Metrics) RecordDecision(decision string) {
	if !m.isEnabled() {
		return
	}
	DecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordPolicyMatch records that a connection matched the given policy.
// policyID is empty when no policy matched.
func (m *Metrics) RecordPolicyMatch(policyID string) {
	if !m.isEnabled() {
		return
	}
	if policyID == "" {
		policyID = "none"
	}
	PolicyMatchesTotal.WithLabelValues(policyID).Inc()
}

// SetPolicyCount updates the current configured policy count gauge.
func (m *Metrics) SetPolicyCount(n int) {
	if !m.isEnabled() {
		return
	}
	PolicyCount.Set(float64(n))
}

// RecordScoreCacheHit records a score cache lookup outcome.
func (m *Metrics) RecordScoreCacheHit(hit bool) {
	if !m.isEnabled() {
		return
	}
	if hit {
		ScoreCacheHits.Inc()
	} else {
		ScoreCacheMisses.Inc()
	}
}

// RecordRateLimitRejection records a client request rejected by the rate limiter.
func (m *Metrics) RecordRateLimitRejection(endpoint string) {
	if !m.isEnabled() {
		return
	}
	RateLimitRejectionsTotal.WithLabelValues(endpoint).Inc()
}

// SetScorerHealth records the anomaly scorer's current health and
// consecutive-failure count, used by scorerhealth.Tracker.
func (m *Metrics) SetScorerHealth(healthy bool, consecutiveFailures int) {
	if !m.isEnabled() {
		return
	}
	if healthy {
		ScorerHealthy.Set(1)
	} else {
		ScorerHealthy.Set(0)
	}
	ScorerConsecutiveFailures.Set(float64(consecutiveFailures))
}
