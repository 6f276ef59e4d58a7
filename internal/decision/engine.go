// Package decision implements the decision engine: it memoizes anomaly
// scores by connection fingerprint, combines a policy match with the
// anomaly score into a final verdict under the firewall's override rules,
// and retains per-connection results for later lookup.
package decision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mixaill76/ai-firewall/internal/connection"
	"github.com/mixaill76/ai-firewall/internal/monitoring"
)

// anomalyThreshold is the strict lower bound above which a score is
// considered anomalous. Hard-coded per the firewall's override rule.
const anomalyThreshold = 0.8

// AnomalyScoreClient is the subset of the AI batching client the engine
// depends on, so tests can substitute a fake without spinning up the real
// batching goroutine.
type AnomalyScoreClient interface {
	GetAnomalyScore(ctx context.Context, conn connection.Connection) (float64, error)
}

// PolicyMatcher is the subset of the policy manager the engine depends on.
type PolicyMatcher interface {
	GetMatchingPolicy(conn connection.Connection) *connection.Policy
}

// Engine orchestrates fingerprint computation, score memoization, policy
// lookup, and verdict resolution, grounded on the reference
// DecisionEngine: a score cache keyed by fingerprint and a result store
// keyed by connection ID, both plain dictionary lookups with no scan.
type Engine struct {
	aiClient AnomalyScoreClient
	policies PolicyMatcher
	logger   *slog.Logger
	metrics  *monitoring.Metrics

	scoreCache  *lru.Cache[string, float64]
	scoreFlight singleflight.Group

	resultsMu sync.RWMutex
	results   map[string]connection.AnalyzedConnection
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine. scoreCacheSize bounds the number of distinct
// fingerprints whose scores are retained in an LRU cache; a value of 0 or
// less falls back to a bound of 100000 entries.
func New(aiClient AnomalyScoreClient, policies PolicyMatcher, scoreCacheSize int, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if scoreCacheSize <= 0 {
		scoreCacheSize = 100000
	}
	cache, err := lru.New[string, float64](scoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("decision: failed to create score cache: %w", err)
	}

	e := &Engine{
		aiClient:   aiClient,
		policies:   policies,
		logger:     logger,
		scoreCache: cache,
		results:    make(map[string]connection.AnalyzedConnection),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// fingerprint returns the SHA-256 hex digest of the connection's
// fingerprint string, grounded on the house token-hashing pattern: hash
// the stable identity, never the raw record, so the cache key is fixed
// size regardless of input length.
func fingerprint(c connection.Connection) string {
	sum := sha256.Sum256([]byte(c.Fingerprint()))
	return hex.EncodeToString(sum[:])
}

// EvaluateConnection computes and memoizes a verdict for conn. On a
// scorer failure, no score is cached, no result is stored, and the error
// is returned to the caller.
func (e *Engine) EvaluateConnection(ctx context.Context, conn connection.Connection) (connection.AnalyzedConnection, error) {
	fp := fingerprint(conn)

	score, ok := e.scoreCache.Get(fp)
	if e.metrics != nil {
		e.metrics.RecordScoreCacheHit(ok)
	}
	if !ok {
		// singleflight collapses concurrent cache misses for the same
		// fingerprint into one scorer call, so a burst of identical
		// connections never fans out past the AI batching client's
		// rate limit for a single round trip.
		v, err, _ := e.scoreFlight.Do(fp, func() (interface{}, error) {
			s, err := e.aiClient.GetAnomalyScore(ctx, conn)
			if err != nil {
				return nil, err
			}
			e.scoreCache.Add(fp, s)
			return s, nil
		})
		if err != nil {
			return connection.AnalyzedConnection{}, fmt.Errorf("decision: anomaly scoring failed: %w", err)
		}
		score = v.(float64)
	}

	matched := e.policies.GetMatchingPolicy(conn)
	decision, policyID := resolveVerdict(matched, score)

	if e.metrics != nil {
		e.metrics.RecordDecision(string(decision))
		if policyID != nil {
			e.metrics.RecordPolicyMatch(*policyID)
		} else {
			e.metrics.RecordPolicyMatch("")
		}
	}

	result := connection.AnalyzedConnection{
		ConnectionID:    conn.ConnectionID,
		SourceIP:        conn.SourceIP,
		DestinationIP:   conn.DestinationIP,
		DestinationPort: conn.DestinationPort,
		Protocol:        conn.Protocol,
		Timestamp:       conn.Timestamp,
		AnomalyScore:    score,
		Decision:        decision,
		PolicyID:        policyID,
	}

	e.resultsMu.Lock()
	e.results[conn.ConnectionID] = result
	e.resultsMu.Unlock()

	return result, nil
}

// resolveVerdict implements the firewall's verdict resolution table: an
// explicit block or alert from a matched policy always stands; an allow
// match is elevated to alert when the score is anomalous; no match drops
// the connection, or alerts if the score is anomalous.
func resolveVerdict(matched *connection.Policy, score float64) (connection.Decision, *string) {
	anomalous := score > anomalyThreshold

	if matched == nil {
		if anomalous {
			return connection.DecisionAlert, nil
		}
		return connection.DecisionDrop, nil
	}

	policyID := matched.PolicyID
	switch matched.Action {
	case connection.ActionBlock, connection.ActionAlert:
		return connection.Decision(matched.Action), &policyID
	case connection.ActionAllow:
		if anomalous {
			return connection.DecisionAlert, &policyID
		}
		return connection.DecisionAllow, &policyID
	default:
		return connection.DecisionDrop, &policyID
	}
}

// GetConnection returns the stored result for connectionID, or false if
// none exists.
func (e *Engine) GetConnection(connectionID string) (connection.AnalyzedConnection, bool) {
	e.resultsMu.RLock()
	defer e.resultsMu.RUnlock()
	result, ok := e.results[connectionID]
	return result, ok
}
