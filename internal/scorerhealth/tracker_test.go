package scorerhealth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mixaill76/ai-firewall/internal/monitoring"
)

func TestTrackerHealthyByDefault(t *testing.T) {
	tr := New(3)
	assert.True(t, tr.IsHealthy())
	assert.Equal(t, 0, tr.ConsecutiveFailures())
}

func TestTrackerBecomesUnhealthyAtThreshold(t *testing.T) {
	tr := New(3)
	tr.RecordFailure()
	assert.True(t, tr.IsHealthy())
	tr.RecordFailure()
	assert.True(t, tr.IsHealthy())
	tr.RecordFailure()
	assert.False(t, tr.IsHealthy())
	assert.Equal(t, 3, tr.ConsecutiveFailures())
}

func TestTrackerRecoversOnSuccess(t *testing.T) {
	tr := New(2)
	tr.RecordFailure()
	tr.RecordFailure()
	assert.False(t, tr.IsHealthy())

	tr.RecordSuccess()
	assert.True(t, tr.IsHealthy())
	assert.Equal(t, 0, tr.ConsecutiveFailures())
}

func TestTrackerDefaultThreshold(t *testing.T) {
	tr := New(0)
	for i := 0; i < 2; i++ {
		tr.RecordFailure()
	}
	assert.True(t, tr.IsHealthy())
}

func TestTrackerLastFailureRecorded(t *testing.T) {
	tr := New(1)
	assert.True(t, tr.LastFailure().IsZero())
	tr.RecordFailure()
	assert.False(t, tr.LastFailure().IsZero())
}

// TestTrackerWithoutMetricsNeverTouchesGlobalCollectors asserts a Tracker
// with no metrics recorder attached (the zero value of the metrics field)
// does not panic or require Prometheus to be wired up. This is the
// disabled-metrics path a nil *monitoring.Metrics exercises elsewhere in
// the tree (see httpapi's middleware nil checks).
func TestTrackerWithoutMetricsNeverTouchesGlobalCollectors(t *testing.T) {
	tr := New(1)
	tr.RecordFailure()
	tr.RecordSuccess()
	assert.True(t, tr.IsHealthy())
}

// TestTrackerWithMetricsDisabledIsSafe exercises the enabled-gated path:
// a disabled Metrics recorder attached via WithMetrics must not panic and
// must leave Tracker's own bookkeeping (IsHealthy, ConsecutiveFailures)
// unaffected, matching every other component's Metrics gating.
func TestTrackerWithMetricsDisabledIsSafe(t *testing.T) {
	tr := New(1).WithMetrics(monitoring.New(false))
	tr.RecordFailure()
	assert.False(t, tr.IsHealthy())
	assert.Equal(t, 1, tr.ConsecutiveFailures())

	tr.RecordSuccess()
	assert.True(t, tr.IsHealthy())
}

// TestTrackerWithMetricsEnabledIsSafe exercises the enabled path: attaching
// an enabled Metrics recorder must not panic when recording transitions.
func TestTrackerWithMetricsEnabledIsSafe(t *testing.T) {
	tr := New(2).WithMetrics(monitoring.New(true))
	tr.RecordFailure()
	tr.RecordFailure()
	assert.False(t, tr.IsHealthy())

	tr.RecordSuccess()
	assert.True(t, tr.IsHealthy())
}
