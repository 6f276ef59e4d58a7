// Package httpapi wires the firewall's decision engine and policy manager
// to an HTTP surface, grounded on the house router package: a hand-rolled
// path/method switch in ServeHTTP rather than a third-party mux, OpenAI-style
// JSON error envelopes, and a keyed rate-limit middleware guarding every
// route.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/mixaill76/ai-firewall/internal/decision"
	"github.com/mixaill76/ai-firewall/internal/monitoring"
	"github.com/mixaill76/ai-firewall/internal/policy"
	"github.com/mixaill76/ai-firewall/internal/ratelimit"
	"github.com/mixaill76/ai-firewall/internal/scorerhealth"
)

// Router dispatches the firewall's public HTTP surface.
type Router struct {
	engine   *decision.Engine
	policies *policy.Manager
	health   *scorerhealth.Tracker
	audit    *AuditLogger
	logger   *slog.Logger
	metrics  *monitoring.Metrics
	limiter  *ratelimit.KeyedWindowLimiter

	mux http.Handler
}

// Config bundles the collaborators a Router needs.
type Config struct {
	Engine       *decision.Engine
	Policies     *policy.Manager
	ScorerHealth *scorerhealth.Tracker
	Audit        *AuditLogger
	Logger       *slog.Logger
	Metrics      *monitoring.Metrics
	Limiter      *ratelimit.KeyedWindowLimiter
}

// New builds a Router and wraps it with the metrics and rate-limit
// middleware, in that order so rejected requests still count toward request
// metrics.
func New(cfg Config) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := &Router{
		engine:   cfg.Engine,
		policies: cfg.Policies,
		health:   cfg.ScorerHealth,
		audit:    cfg.Audit,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		limiter:  cfg.Limiter,
	}

	var handler http.Handler = http.HandlerFunc(r.route)
	handler = rateLimitMiddleware(cfg.Limiter, cfg.Metrics, handler)
	handler = metricsMiddleware(cfg.Metrics, handler)
	r.mux = handler
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) route(w http.ResponseWriter, req *http.Request) {
	switch {
	case req.URL.Path == "/healthz":
		r.handleHealthz(w, req)
	case req.URL.Path == "/connections" && req.Method == http.MethodPost:
		r.handleCreateConnection(w, req)
	case req.URL.Path == "/policies" && req.Method == http.MethodPost:
		r.handleCreatePolicy(w, req)
	case req.URL.Path == "/policies" && req.Method == http.MethodGet:
		r.handleListPolicies(w, req)
	case req.URL.Path == "/policies" && req.Method == http.MethodDelete:
		r.handleClearPolicies(w, req)
	case isConnectionLookup(req):
		r.handleGetConnection(w, req)
	default:
		http.NotFound(w, req)
	}
}

func isConnectionLookup(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	return len(req.URL.Path) > len("/connections/") && req.URL.Path[:len("/connections/")] == "/connections/"
}
