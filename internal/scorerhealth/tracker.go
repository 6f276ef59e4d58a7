// Package scorerhealth tracks the health of the downstream anomaly scorer,
// adapted from the house fail2ban package's failure-counting idiom:
// instead of banning a credential+model pair after N consecutive errors,
// it flags the single scorer unhealthy after a configurable number of
// consecutive batch failures and auto-recovers on the next success.
package scorerhealth

import (
	"sync"
	"time"

	"github.com/mixaill76/ai-firewall/internal/monitoring"
	"github.com/mixaill76/ai-firewall/internal/utils"
)

// Tracker records consecutive AnomalyScorer batch outcomes and exposes
// health as both a query method and, when wired with WithMetrics, Prometheus
// gauges gated by the recorder's enabled flag.
type Tracker struct {
	mu                  sync.RWMutex
	unhealthyThreshold  int
	consecutiveFailures int
	lastFailure         time.Time
	lastSuccess         time.Time
	metrics             *monitoring.Metrics
}

// New creates a Tracker that considers the scorer unhealthy once
// unhealthyThreshold consecutive failures have been recorded. A threshold
// of 1 means any single failure marks it unhealthy.
func New(unhealthyThreshold int) *Tracker {
	if unhealthyThreshold <= 0 {
		unhealthyThreshold = 3
	}
	return &Tracker{unhealthyThreshold: unhealthyThreshold}
}

// WithMetrics attaches a metrics recorder so health transitions are
// published as Prometheus gauges, gated by the recorder's enabled flag.
func (t *Tracker) WithMetrics(m *monitoring.Metrics) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = m
	if t.metrics != nil {
		t.metrics.SetScorerHealth(t.consecutiveFailures < t.unhealthyThreshold, t.consecutiveFailures)
	}
	return t
}

// RecordSuccess resets the consecutive failure count.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures = 0
	t.lastSuccess = utils.NowUTC()
	if t.metrics != nil {
		t.metrics.SetScorerHealth(true, 0)
	}
}

// RecordFailure increments the consecutive failure count.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures++
	t.lastFailure = utils.NowUTC()
	if t.metrics != nil {
		t.metrics.SetScorerHealth(t.consecutiveFailures < t.unhealthyThreshold, t.consecutiveFailures)
	}
}

// IsHealthy reports whether the scorer is currently considered healthy.
func (t *Tracker) IsHealthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.consecutiveFailures < t.unhealthyThreshold
}

// ConsecutiveFailures returns the current consecutive failure count.
func (t *Tracker) ConsecutiveFailures() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.consecutiveFailures
}

// LastFailure returns the time of the most recent recorded failure, or the
// zero time if none has been recorded.
func (t *Tracker) LastFailure() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastFailure
}
