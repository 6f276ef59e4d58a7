// Package config loads and validates the firewall's YAML configuration,
// grounded on the house config package: per-section custom YAML
// unmarshaling that resolves "os.environ/VAR_NAME" values before parsing,
// so every field can be overridden at deploy time without templating the
// YAML file itself.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ScorerMode selects which AnomalyScorer backend the server wires up.
type ScorerMode string

const (
	ScorerModeMock ScorerMode = "mock"
	ScorerModeHTTP ScorerMode = "http"
)

func (m ScorerMode) IsValid() bool {
	switch m {
	case ScorerModeMock, ScorerModeHTTP:
		return true
	}
	return false
}

// Config is the top-level configuration document.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	AIBatch      AIBatchConfig      `yaml:"ai_batch"`
	Scorer       ScorerConfig       `yaml:"scorer"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	ScorerHealth ScorerHealthConfig `yaml:"scorer_health"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	MaxBodySizeMB  int           `yaml:"max_body_size_mb"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	LoggingLevel   string        `yaml:"logging_level"`
	LoggingFormat  string        `yaml:"logging_format"` // "pretty" or "json"
	MasterKey      string        `yaml:"master_key"`
}

// UnmarshalYAML resolves os.environ/VAR_NAME values before parsing each field.
func (s *ServerConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		Port           string `yaml:"port"`
		MaxBodySizeMB  string `yaml:"max_body_size_mb"`
		RequestTimeout string `yaml:"request_timeout"`
		ReadTimeout    string `yaml:"read_timeout"`
		WriteTimeout   string `yaml:"write_timeout"`
		IdleTimeout    string `yaml:"idle_timeout"`
		LoggingLevel   string `yaml:"logging_level"`
		LoggingFormat  string `yaml:"logging_format"`
		MasterKey      string `yaml:"master_key"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	var err error
	if s.Port, err = parseField(temp.Port, 8080, parseInt, "server.port"); err != nil {
		return err
	}
	if s.MaxBodySizeMB, err = parseField(temp.MaxBodySizeMB, 1, parseInt, "server.max_body_size_mb"); err != nil {
		return err
	}
	if s.RequestTimeout, err = parseField(temp.RequestTimeout, 10*time.Second, time.ParseDuration, "server.request_timeout"); err != nil {
		return err
	}
	if s.ReadTimeout, err = parseField(temp.ReadTimeout, 10*time.Second, time.ParseDuration, "server.read_timeout"); err != nil {
		return err
	}
	if s.WriteTimeout, err = parseField(temp.WriteTimeout, 10*time.Second, time.ParseDuration, "server.write_timeout"); err != nil {
		return err
	}
	if s.IdleTimeout, err = parseField(temp.IdleTimeout, 60*time.Second, time.ParseDuration, "server.idle_timeout"); err != nil {
		return err
	}
	s.LoggingLevel = resolveEnvString(temp.LoggingLevel)
	s.LoggingFormat = resolveEnvString(temp.LoggingFormat)
	s.MasterKey = resolveEnvString(temp.MasterKey)
	return nil
}

// AIBatchConfig configures the AI batching client's batching and rate-limit
// behavior.
type AIBatchConfig struct {
	MaxBatchSize   int           `yaml:"max_batch_size"`
	BatchTimeout   time.Duration `yaml:"batch_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	ScoreCacheSize int           `yaml:"score_cache_size"`
}

func (a *AIBatchConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		MaxBatchSize   string `yaml:"max_batch_size"`
		BatchTimeout   string `yaml:"batch_timeout"`
		RateLimitRPS   string `yaml:"rate_limit_rps"`
		ScoreCacheSize string `yaml:"score_cache_size"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	var err error
	if a.MaxBatchSize, err = parseField(temp.MaxBatchSize, 10, parseInt, "ai_batch.max_batch_size"); err != nil {
		return err
	}
	if a.BatchTimeout, err = parseField(temp.BatchTimeout, 50*time.Millisecond, time.ParseDuration, "ai_batch.batch_timeout"); err != nil {
		return err
	}
	if a.RateLimitRPS, err = parseField(temp.RateLimitRPS, 10.0, parseFloat, "ai_batch.rate_limit_rps"); err != nil {
		return err
	}
	if a.ScoreCacheSize, err = parseField(temp.ScoreCacheSize, 100000, parseInt, "ai_batch.score_cache_size"); err != nil {
		return err
	}
	return nil
}

// ScorerConfig selects and configures the AnomalyScorer backend.
type ScorerConfig struct {
	Mode ScorerMode `yaml:"mode"`

	// Mock mode.
	MockProcessingTime time.Duration `yaml:"mock_processing_time"`
	MockErrorRate      float64       `yaml:"mock_error_rate"`

	// HTTP mode.
	HTTPBaseURL string        `yaml:"http_base_url"`
	HTTPAPIKey  string        `yaml:"http_api_key"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

func (s *ScorerConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		Mode               string `yaml:"mode"`
		MockProcessingTime string `yaml:"mock_processing_time"`
		MockErrorRate      string `yaml:"mock_error_rate"`
		HTTPBaseURL        string `yaml:"http_base_url"`
		HTTPAPIKey         string `yaml:"http_api_key"`
		HTTPTimeout        string `yaml:"http_timeout"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	mode := resolveEnvString(temp.Mode)
	if mode == "" {
		mode = string(ScorerModeMock)
	}
	s.Mode = ScorerMode(mode)

	var err error
	if s.MockProcessingTime, err = parseField(temp.MockProcessingTime, 10*time.Millisecond, time.ParseDuration, "scorer.mock_processing_time"); err != nil {
		return err
	}
	if s.MockErrorRate, err = parseField(temp.MockErrorRate, 0.05, parseFloat, "scorer.mock_error_rate"); err != nil {
		return err
	}
	s.HTTPBaseURL = resolveEnvString(temp.HTTPBaseURL)
	s.HTTPAPIKey = resolveEnvString(temp.HTTPAPIKey)
	if s.HTTPTimeout, err = parseField(temp.HTTPTimeout, 5*time.Second, time.ParseDuration, "scorer.http_timeout"); err != nil {
		return err
	}
	return nil
}

// RateLimitConfig configures the per-client HTTP rate limit middleware.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

func (r *RateLimitConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		Enabled           string `yaml:"enabled"`
		RequestsPerSecond string `yaml:"requests_per_second"`
		Burst             string `yaml:"burst"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	var err error
	if r.Enabled, err = parseField(temp.Enabled, true, parseBool, "rate_limit.enabled"); err != nil {
		return err
	}
	if r.RequestsPerSecond, err = parseField(temp.RequestsPerSecond, 20.0, parseFloat, "rate_limit.requests_per_second"); err != nil {
		return err
	}
	if r.Burst, err = parseField(temp.Burst, 40, parseInt, "rate_limit.burst"); err != nil {
		return err
	}
	return nil
}

// MonitoringConfig configures observability endpoints.
type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	HealthCheckPath   string `yaml:"health_check_path"`
	LogDecisionsPath  string `yaml:"log_decisions_path,omitempty"`
}

func (m *MonitoringConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		PrometheusEnabled string `yaml:"prometheus_enabled"`
		HealthCheckPath   string `yaml:"health_check_path"`
		LogDecisionsPath  string `yaml:"log_decisions_path,omitempty"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	var err error
	if m.PrometheusEnabled, err = parseField(temp.PrometheusEnabled, true, parseBool, "monitoring.prometheus_enabled"); err != nil {
		return err
	}
	m.HealthCheckPath = resolveEnvString(temp.HealthCheckPath)
	if m.HealthCheckPath == "" {
		m.HealthCheckPath = "/healthz"
	}
	m.LogDecisionsPath = resolveEnvString(temp.LogDecisionsPath)
	return nil
}

// ScorerHealthConfig configures the consecutive-failure health tracker.
type ScorerHealthConfig struct {
	UnhealthyThreshold int `yaml:"unhealthy_threshold"`
}

func (s *ScorerHealthConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		UnhealthyThreshold string `yaml:"unhealthy_threshold"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	var err error
	s.UnhealthyThreshold, err = parseField(temp.UnhealthyThreshold, 3, parseInt, "scorer_health.unhealthy_threshold")
	return err
}

// Load reads, parses, and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for internal consistency and fills in
// defaults for some fields left at their zero value (e.g. by an absent
// top-level section): body size, logging level and format, batch size and
// timeout, score cache size, rate-limit burst, health check path and
// unhealthy threshold. Other fields are not defaulted here: a zero
// server.port or empty scorer.mode is an error, and boolean switches such
// as rate_limit.enabled and monitoring.prometheus_enabled stay false.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Server.MaxBodySizeMB <= 0 {
		c.Server.MaxBodySizeMB = 1
	}
	if c.Server.LoggingLevel == "" {
		c.Server.LoggingLevel = "info"
	}
	switch c.Server.LoggingLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid server.logging_level: %s", c.Server.LoggingLevel)
	}
	if c.Server.LoggingFormat == "" {
		c.Server.LoggingFormat = "pretty"
	}
	if c.Server.LoggingFormat != "pretty" && c.Server.LoggingFormat != "json" {
		return fmt.Errorf("invalid server.logging_format: %s", c.Server.LoggingFormat)
	}

	if c.AIBatch.MaxBatchSize <= 0 {
		c.AIBatch.MaxBatchSize = 10
	}
	if c.AIBatch.BatchTimeout <= 0 {
		c.AIBatch.BatchTimeout = 50 * time.Millisecond
	}
	if c.AIBatch.RateLimitRPS < 0 {
		return fmt.Errorf("invalid ai_batch.rate_limit_rps: %f", c.AIBatch.RateLimitRPS)
	}
	if c.AIBatch.ScoreCacheSize <= 0 {
		c.AIBatch.ScoreCacheSize = 100000
	}

	if !c.Scorer.Mode.IsValid() {
		return fmt.Errorf("invalid scorer.mode: %s (must be 'mock' or 'http')", c.Scorer.Mode)
	}
	if c.Scorer.Mode == ScorerModeHTTP {
		if c.Scorer.HTTPBaseURL == "" {
			return fmt.Errorf("scorer.http_base_url is required when scorer.mode is 'http'")
		}
		if err := validateBaseURL("scorer", c.Scorer.HTTPBaseURL); err != nil {
			return err
		}
	}
	if c.Scorer.MockErrorRate < 0 || c.Scorer.MockErrorRate > 1 {
		return fmt.Errorf("invalid scorer.mock_error_rate: %f (must be in [0, 1])", c.Scorer.MockErrorRate)
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid rate_limit.requests_per_second: %f", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 40
	}

	if c.Monitoring.HealthCheckPath == "" {
		c.Monitoring.HealthCheckPath = "/healthz"
	}

	if c.ScorerHealth.UnhealthyThreshold <= 0 {
		c.ScorerHealth.UnhealthyThreshold = 3
	}

	return nil
}
