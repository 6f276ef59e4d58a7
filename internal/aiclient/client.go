// Package aiclient implements the AI batching client: it coalesces
// single-connection anomaly-score requests from many concurrent callers
// into size- and timeout-bounded batches, enforces a rate ceiling on the
// downstream AnomalyScorer, and demultiplexes results back to waiters.
//
// The design mirrors the house internal/worker single-purpose background
// goroutine idiom, but — unlike a generic worker pool — runs exactly one
// consumer so that FIFO batch composition and score delivery order are
// preserved (§5 of the specification this implements).
package aiclient

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mixaill76/ai-firewall/internal/connection"
	"github.com/mixaill76/ai-firewall/internal/monitoring"
	"github.com/mixaill76/ai-firewall/internal/ratelimit"
	"github.com/mixaill76/ai-firewall/internal/scorer"
	"github.com/mixaill76/ai-firewall/internal/scorerhealth"
)

// ErrShuttingDown is returned to waiters whose connection was still queued
// when the client finished draining at shutdown.
var ErrShuttingDown = errors.New("aiclient: client is shutting down")

// rateLimiterKey is the single key used against the shared
// TimeBasedRateLimiter — the client only ever rate-limits one logical
// downstream, so one key suffices.
const rateLimiterKey = "scorer"

// request couples a connection with the channel its eventual score (or
// error) is delivered on. The reply channel is buffered with capacity 1 so
// the processor's send never blocks even if the caller has abandoned it.
type request struct {
	conn  connection.Connection
	reply chan reply
}

type reply struct {
	score float64
	err   error
}

// state is the AIBatchingClient's background-processor lifecycle, per §4.1.
type state int32

const (
	stateStopped state = iota
	stateRunning
	stateDraining
)

// Config holds the AIBatchingClient's tunables.
type Config struct {
	MaxBatchSize int
	BatchTimeout time.Duration
	RateLimitRPS float64
}

// Client implements the AI batching client described in §4.1.
type Client struct {
	cfg    Config
	scorer scorer.AnomalyScorer
	logger *slog.Logger
	health *scorerhealth.Tracker

	minInterval time.Duration
	rateLimiter *ratelimit.TimeBasedRateLimiter

	mu      sync.Mutex
	state   state
	pending chan request
	done    chan struct{}
	cancel  context.CancelFunc
}

// New creates an AIBatchingClient. It does not start the background
// processor; call Start (or submit a request, which auto-starts it).
func New(cfg Config, s scorer.AnomalyScorer, logger *slog.Logger, health *scorerhealth.Tracker) *Client {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 10
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	var minInterval time.Duration
	if cfg.RateLimitRPS > 0 {
		minInterval = time.Duration(float64(time.Second) / cfg.RateLimitRPS)
	}

	return &Client{
		cfg:         cfg,
		scorer:      s,
		logger:      logger,
		health:      health,
		minInterval: minInterval,
		rateLimiter: ratelimit.NewTimeBasedRateLimiter(),
		state:       stateStopped,
	}
}

// Start idempotently starts the background processor. Safe to call
// repeatedly or concurrently.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked()
}

func (c *Client) startLocked() {
	if c.state == stateRunning {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.pending = make(chan request, 4096)
	c.done = make(chan struct{})
	c.state = stateRunning

	pending := c.pending
	done := c.done
	go c.run(ctx, pending, done)

	c.logger.Info("aiclient: background processor started",
		"max_batch_size", c.cfg.MaxBatchSize,
		"batch_timeout", c.cfg.BatchTimeout,
		"rate_limit_rps", c.cfg.RateLimitRPS,
	)
}

// Stop idempotently initiates graceful shutdown. It blocks until the
// processor exits or a 10-second safety timeout elapses, after which the
// processor is cancelled. Safe to call repeatedly or concurrently.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.state == stateStopped {
		c.mu.Unlock()
		return
	}
	c.state = stateDraining
	cancelOnTimeout := c.cancel
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		c.logger.Warn("aiclient: background processor did not stop gracefully within timeout, cancelling")
		cancelOnTimeout()
		<-done
	}

	c.mu.Lock()
	c.state = stateStopped
	c.mu.Unlock()
	c.logger.Info("aiclient: client stopped")
}

// GetAnomalyScore submits conn for scoring and blocks until its batch is
// dispatched and the result delivered, the client shuts down, or ctx is
// done — whichever happens first.
func (c *Client) GetAnomalyScore(ctx context.Context, conn connection.Connection) (float64, error) {
	c.mu.Lock()
	if c.state != stateRunning {
		c.startLocked()
	}
	pending := c.pending
	c.mu.Unlock()

	req := request{conn: conn, reply: make(chan reply, 1)}

	select {
	case pending <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.score, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// run is the single background processor goroutine.
func (c *Client) run(ctx context.Context, pending chan request, done chan struct{}) {
	defer close(done)

	var lastDispatch time.Time
	for {
		batch, shuttingDown := c.collectBatch(ctx, pending)
		if len(batch) > 0 {
			lastDispatch = c.dispatch(ctx, batch, lastDispatch)
		}
		if shuttingDown {
			c.drain(ctx, pending, lastDispatch)
			return
		}
	}
}

// collectBatch awaits the first item (blocking indefinitely, or until
// cancellation/shutdown), then keeps pulling items for up to batch_timeout
// from the first item's arrival, capped at max_batch_size.
func (c *Client) collectBatch(ctx context.Context, pending chan request) (batch []request, shuttingDown bool) {
	select {
	case req, ok := <-pending:
		if !ok {
			return nil, true
		}
		batch = append(batch, req)
	case <-ctx.Done():
		return nil, true
	}

	t0 := time.Now()
	for len(batch) < c.cfg.MaxBatchSize {
		remaining := c.cfg.BatchTimeout - time.Since(t0)
		if remaining < time.Millisecond {
			remaining = time.Millisecond
		}
		timer := time.NewTimer(remaining)
		select {
		case req, ok := <-pending:
			timer.Stop()
			if !ok {
				return batch, true
			}
			batch = append(batch, req)
		case <-timer.C:
			return batch, false
		case <-ctx.Done():
			timer.Stop()
			return batch, true
		}
	}
	return batch, false
}

// dispatch enforces the rate limit, invokes the scorer, and distributes
// results to waiters. Returns the dispatch time for the caller to track
// last_dispatch_time across loop iterations.
func (c *Client) dispatch(ctx context.Context, batch []request, _ time.Time) time.Time {
	if c.minInterval > 0 {
		if err := c.rateLimiter.Wait(ctx, rateLimiterKey, c.minInterval); err != nil {
			c.failBatch(batch, err)
			return time.Now()
		}
	}

	dispatchTime := time.Now()
	conns := make([]connection.Connection, len(batch))
	for i, req := range batch {
		conns[i] = req.conn
	}

	monitoring.AIBatchSize.Observe(float64(len(conns)))
	start := time.Now()
	scores, err := c.scorer.Analyze(ctx, conns)
	monitoring.AIBatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Error("aiclient: scorer batch failed", "batch_size", len(conns), "error", err)
		monitoring.AIScorerErrors.Inc()
		if c.health != nil {
			c.health.RecordFailure()
		}
		c.failBatch(batch, err)
		return dispatchTime
	}

	if c.health != nil {
		c.health.RecordSuccess()
	}

	for i, req := range batch {
		if i < len(scores) {
			req.reply <- reply{score: scores[i]}
		} else {
			req.reply <- reply{err: errors.New("aiclient: scorer returned fewer scores than requested")}
		}
	}
	return dispatchTime
}

func (c *Client) failBatch(batch []request, err error) {
	for _, req := range batch {
		req.reply <- reply{err: err}
	}
}

// drain processes any items left in the queue after shutdown is signalled,
// in final batches respecting max_batch_size but bypassing batch_timeout
// (taking what is immediately available), still honoring the rate limit.
// Stragglers left after the queue empties complete with ErrShuttingDown.
func (c *Client) drain(_ context.Context, pending chan request, lastDispatch time.Time) {
	drainCtx := context.Background()
	for {
		batch := drainAvailable(pending, c.cfg.MaxBatchSize)
		if len(batch) == 0 {
			break
		}
		lastDispatch = c.dispatch(drainCtx, batch, lastDispatch)
	}

	for {
		select {
		case req, ok := <-pending:
			if !ok {
				return
			}
			req.reply <- reply{err: ErrShuttingDown}
		default:
			return
		}
	}
}

// drainAvailable non-blockingly collects up to max items currently queued.
func drainAvailable(pending chan request, max int) []request {
	var batch []request
	for len(batch) < max {
		select {
		case req, ok := <-pending:
			if !ok {
				return batch
			}
			batch = append(batch, req)
		default:
			return batch
		}
	}
	return batch
}
