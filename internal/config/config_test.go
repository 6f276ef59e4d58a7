package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			MaxBodySizeMB:  1,
			RequestTimeout: 10 * time.Second,
			MasterKey:      "test-key",
		},
		AIBatch: AIBatchConfig{
			MaxBatchSize: 10,
			BatchTimeout: 50 * time.Millisecond,
			RateLimitRPS: 10,
		},
		Scorer: ScorerConfig{
			Mode:          ScorerModeMock,
			MockErrorRate: 0.05,
		},
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8080
  max_body_size_mb: 2
  request_timeout: 30s
  logging_level: info
  master_key: "sk-test-master-key"

ai_batch:
  max_batch_size: 10
  batch_timeout: 50ms
  rate_limit_rps: 10

scorer:
  mode: mock
  mock_error_rate: 0.05

monitoring:
  prometheus_enabled: true
  health_check_path: "/healthz"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.MaxBodySizeMB)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "info", cfg.Server.LoggingLevel)
	assert.Equal(t, "sk-test-master-key", cfg.Server.MasterKey)

	assert.Equal(t, 10, cfg.AIBatch.MaxBatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.AIBatch.BatchTimeout)
	assert.Equal(t, 10.0, cfg.AIBatch.RateLimitRPS)

	assert.Equal(t, ScorerModeMock, cfg.Scorer.Mode)
	assert.True(t, cfg.Monitoring.PrometheusEnabled)
	assert.Equal(t, "/healthz", cfg.Monitoring.HealthCheckPath)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/non/existent/path.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidContent := `
server:
  port: 8080
  - this is not valid yaml
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidContent), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestConfig_Validate_InvalidPort(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"valid port", 8080, false},
		{"min valid port", 1, false},
		{"max valid port", 65535, false},
		{"port zero", 0, true},
		{"negative port", -1, true},
		{"port too high", 70000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Validate_LoggingLevel(t *testing.T) {
	tests := []struct {
		name         string
		loggingLevel string
		wantErr      bool
		expected     string
	}{
		{"valid info", "info", false, "info"},
		{"valid debug", "debug", false, "debug"},
		{"valid error", "error", false, "error"},
		{"invalid level", "verbose", true, ""},
		{"empty defaults to info", "", false, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.LoggingLevel = tt.loggingLevel
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, cfg.Server.LoggingLevel)
			}
		})
	}
}

func TestConfig_Validate_ScorerModeRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Scorer.Mode = ScorerMode("")
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scorer.mode")
}

func TestConfig_Validate_HTTPScorerRequiresBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Scorer.Mode = ScorerModeHTTP
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scorer.http_base_url is required")

	cfg.Scorer.HTTPBaseURL = "https://scorer.internal"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MockErrorRateRange(t *testing.T) {
	tests := []struct {
		rate    float64
		wantErr bool
	}{
		{0.0, false},
		{0.5, false},
		{1.0, false},
		{-0.1, true},
		{1.1, true},
	}
	for _, tt := range tests {
		cfg := validConfig()
		cfg.Scorer.MockErrorRate = tt.rate
		err := cfg.Validate()
		if tt.wantErr {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestConfig_Validate_DefaultsApplied(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080, MasterKey: "k"},
		Scorer: ScorerConfig{Mode: ScorerModeMock},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1, cfg.Server.MaxBodySizeMB)
	assert.Equal(t, "info", cfg.Server.LoggingLevel)
	assert.Equal(t, "pretty", cfg.Server.LoggingFormat)
	assert.Equal(t, 10, cfg.AIBatch.MaxBatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.AIBatch.BatchTimeout)
	assert.Equal(t, 100000, cfg.AIBatch.ScoreCacheSize)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
	assert.Equal(t, "/healthz", cfg.Monitoring.HealthCheckPath)
	assert.Equal(t, 3, cfg.ScorerHealth.UnhealthyThreshold)
}

func TestLoad_EnvVariables(t *testing.T) {
	require.NoError(t, os.Setenv("TEST_PORT", "9090"))
	require.NoError(t, os.Setenv("TEST_MASTER_KEY", "sk-env-master-key"))
	require.NoError(t, os.Setenv("TEST_RATE_LIMIT_RPS", "25.5"))
	defer func() {
		_ = os.Unsetenv("TEST_PORT")
		_ = os.Unsetenv("TEST_MASTER_KEY")
		_ = os.Unsetenv("TEST_RATE_LIMIT_RPS")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: os.environ/TEST_PORT
  master_key: os.environ/TEST_MASTER_KEY

ai_batch:
  rate_limit_rps: os.environ/TEST_RATE_LIMIT_RPS

scorer:
  mode: mock
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-env-master-key", cfg.Server.MasterKey)
	assert.Equal(t, 25.5, cfg.AIBatch.RateLimitRPS)
}

func TestLoad_EnvVariables_Mixed(t *testing.T) {
	require.NoError(t, os.Setenv("TEST_MASTER_KEY2", "sk-from-env"))
	defer func() { _ = os.Unsetenv("TEST_MASTER_KEY2") }()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8080
  master_key: os.environ/TEST_MASTER_KEY2

scorer:
  mode: mock
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sk-from-env", cfg.Server.MasterKey)
}

func TestScorerMode_IsValid(t *testing.T) {
	tests := []struct {
		mode  ScorerMode
		valid bool
	}{
		{ScorerModeMock, true},
		{ScorerModeHTTP, true},
		{ScorerMode("grpc"), false},
		{ScorerMode(""), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.mode.IsValid())
	}
}
