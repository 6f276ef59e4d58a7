package httpapi

import (
	"encoding/json"
	"net/http"
)

// healthzResponse reports liveness/readiness of the firewall's background
// dependencies, grounded on the house router package's /health handler:
// a single JSON status document with an overall status field plus detail.
type healthzResponse struct {
	Status              string `json:"status"`
	ScorerHealthy       bool   `json:"scorer_healthy"`
	ScorerFailureStreak int    `json:"scorer_consecutive_failures"`
	PolicyCount         int    `json:"policy_count"`
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	scorerHealthy := true
	failures := 0
	if r.health != nil {
		scorerHealthy = r.health.IsHealthy()
		failures = r.health.ConsecutiveFailures()
	}

	status := "healthy"
	code := http.StatusOK
	if !scorerHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	body := healthzResponse{
		Status:              status,
		ScorerHealthy:       scorerHealthy,
		ScorerFailureStreak: failures,
		PolicyCount:         r.policies.Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		r.logger.Error("failed to encode healthz response", "error", err.Error())
	}
}
