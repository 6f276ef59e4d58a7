// Package scorer defines the AnomalyScorer contract used by the AI batching
// client and provides two implementations: an in-process mock for tests and
// local development, and an HTTP client for a real external scoring service.
package scorer

import (
	"context"

	"github.com/mixaill76/ai-firewall/internal/connection"
)

// AnomalyScorer synchronously scores a batch of connections, returning one
// float in [0, 1] per input connection in the same order. It may fail with
// a transient error; callers (the AI batching client) do not retry.
type AnomalyScorer interface {
	Analyze(ctx context.Context, connections []connection.Connection) ([]float64, error)
}
