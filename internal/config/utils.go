package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// resolveEnvString resolves environment variable if value is in format "os.environ/VAR_NAME"
func resolveEnvString(value string) string {
	const prefix = "os.environ/"
	if strings.HasPrefix(value, prefix) {
		envVar := strings.TrimPrefix(value, prefix)
		if envValue := os.Getenv(envVar); envValue != "" {
			return envValue
		}
		slog.Warn("environment variable not set, returning empty string",
			"env_var", envVar,
			"pattern", value,
		)
		return ""
	}
	return value
}

// parseFunc is a function type that parses a string value into the desired type
type parseFunc[T any] func(string) (T, error)

// parseField resolves env variable and parses value with proper error context
func parseField[T any](tempValue string, defaultValue T, parser parseFunc[T], fieldPath string) (T, error) {
	if tempValue == "" {
		return defaultValue, nil
	}

	resolved := resolveEnvString(tempValue)
	parsed, err := parser(resolved)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", fieldPath, err)
	}
	return parsed, nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(s)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// validateBaseURL validates that a URL is properly formed with http/https scheme
func validateBaseURL(name, baseURL string) error {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%s: invalid base_url: %w", name, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s: base_url must use http or https scheme, got: %s", name, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s: base_url must have a host", name)
	}
	return nil
}

// PrintConfig outputs the configuration in a structured, readable format to the logger.
func PrintConfig(logger *slog.Logger, cfg *Config) {
	logger.Info("=== Configuration Loaded ===")

	logger.Info("server",
		"port", cfg.Server.Port,
		"max_body_size_mb", cfg.Server.MaxBodySizeMB,
		"request_timeout", cfg.Server.RequestTimeout.String(),
		"read_timeout", cfg.Server.ReadTimeout.String(),
		"write_timeout", cfg.Server.WriteTimeout.String(),
		"idle_timeout", cfg.Server.IdleTimeout.String(),
		"logging_level", cfg.Server.LoggingLevel,
		"logging_format", cfg.Server.LoggingFormat,
		"master_key", maskedMasterKey(cfg.Server.MasterKey),
	)

	logger.Info("ai_batch",
		"max_batch_size", cfg.AIBatch.MaxBatchSize,
		"batch_timeout", cfg.AIBatch.BatchTimeout.String(),
		"rate_limit_rps", cfg.AIBatch.RateLimitRPS,
		"score_cache_size", cfg.AIBatch.ScoreCacheSize,
	)

	logger.Info("scorer",
		"mode", cfg.Scorer.Mode,
		"mock_processing_time", cfg.Scorer.MockProcessingTime.String(),
		"mock_error_rate", cfg.Scorer.MockErrorRate,
		"http_base_url", cfg.Scorer.HTTPBaseURL,
	)

	logger.Info("rate_limit",
		"enabled", cfg.RateLimit.Enabled,
		"requests_per_second", cfg.RateLimit.RequestsPerSecond,
		"burst", cfg.RateLimit.Burst,
	)

	logger.Info("monitoring",
		"prometheus_enabled", cfg.Monitoring.PrometheusEnabled,
		"health_check_path", cfg.Monitoring.HealthCheckPath,
		"log_decisions_path", cfg.Monitoring.LogDecisionsPath,
	)

	logger.Info("scorer_health",
		"unhealthy_threshold", cfg.ScorerHealth.UnhealthyThreshold,
	)

	logger.Info("=== Configuration Ready ===")
}

func maskedMasterKey(key string) string {
	if key == "" {
		return ""
	}
	return "***REDACTED***"
}
