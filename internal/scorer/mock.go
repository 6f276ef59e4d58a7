package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mixaill76/ai-firewall/internal/connection"
)

// Mock is a stand-in anomaly scorer for tests and local development. It
// simulates the latency and occasional failure rate of a real scoring
// service, grounded on the reference AIMockService: a fixed processing
// delay per batch and a configurable random error rate.
type Mock struct {
	ProcessingTime time.Duration
	ErrorRate      float64
	rng            *rand.Rand
	logger         *slog.Logger
}

// NewMock creates a mock scorer. processingTime simulates per-batch latency;
// errorRate is the probability (0..1) that a given batch fails outright.
func NewMock(processingTime time.Duration, errorRate float64, logger *slog.Logger) *Mock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mock{
		ProcessingTime: processingTime,
		ErrorRate:      errorRate,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:         logger,
	}
}

// Analyze implements AnomalyScorer.
func (m *Mock) Analyze(ctx context.Context, connections []connection.Connection) ([]float64, error) {
	if len(connections) == 0 {
		m.logger.Debug("mock scorer received empty batch")
		return []float64{}, nil
	}

	if m.ProcessingTime > 0 {
		select {
		case <-time.After(m.ProcessingTime):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.ErrorRate > 0 && m.rng.Float64() < m.ErrorRate {
		m.logger.Error("mock scorer simulated failure", "batch_size", len(connections))
		return nil, fmt.Errorf("scorer: simulated API unavailability or processing failure")
	}

	scores := make([]float64, len(connections))
	for i := range connections {
		raw := m.rng.Float64()
		scores[i] = roundTo3(raw)
	}
	return scores, nil
}

// roundTo3 rounds a score half up to 3 decimal places of precision, matching the
// reference implementation's round(score, 3).
func roundTo3(v float64) float64 {
	const factor = 1000.0
	return float64(int64(v*factor+0.5)) / factor
}
