package startup

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mixaill76/ai-firewall/internal/config"
)

const scorerCheckTimeout = 5 * time.Second

// ValidateScorerAtStartup performs a connectivity check against an HTTP-mode
// anomaly scorer at startup. It attempts a GET against the scorer's base URL
// with a short timeout. Results are logged as WARN if unreachable, but
// startup continues: the AI batching client will keep trying the scorer at
// runtime and scorerhealth.Tracker will reflect its health over time.
func ValidateScorerAtStartup(cfg *config.Config, log *slog.Logger) {
	if cfg.Scorer.Mode != config.ScorerModeHTTP {
		return
	}

	log.Info("checking anomaly scorer accessibility at startup", "base_url", cfg.Scorer.HTTPBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), scorerCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Scorer.HTTPBaseURL, nil)
	if err != nil {
		log.Warn("anomaly scorer base_url is not a valid request target",
			"base_url", cfg.Scorer.HTTPBaseURL,
			"error", err.Error(),
		)
		return
	}

	client := &http.Client{Timeout: scorerCheckTimeout}
	resp, err := client.Do(req)
	if err != nil {
		log.Warn("anomaly scorer unreachable at startup",
			"base_url", cfg.Scorer.HTTPBaseURL,
			"error", err.Error(),
			"recommendation", "verify the scorer service is running and network accessible; the AI batching client will keep retrying at runtime",
		)
		return
	}
	_ = resp.Body.Close()

	log.Info("anomaly scorer reachable at startup", "base_url", cfg.Scorer.HTTPBaseURL, "status", resp.StatusCode)
}
