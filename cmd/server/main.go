package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mixaill76/ai-firewall/internal/aiclient"
	"github.com/mixaill76/ai-firewall/internal/config"
	"github.com/mixaill76/ai-firewall/internal/decision"
	"github.com/mixaill76/ai-firewall/internal/httpapi"
	"github.com/mixaill76/ai-firewall/internal/logger"
	"github.com/mixaill76/ai-firewall/internal/monitoring"
	"github.com/mixaill76/ai-firewall/internal/policy"
	"github.com/mixaill76/ai-firewall/internal/ratelimit"
	"github.com/mixaill76/ai-firewall/internal/scorer"
	"github.com/mixaill76/ai-firewall/internal/scorerhealth"
	"github.com/mixaill76/ai-firewall/internal/startup"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	var log *slog.Logger
	if cfg.Server.LoggingFormat == "json" {
		log = logger.NewJSON(cfg.Server.LoggingLevel)
	} else {
		log = logger.New(cfg.Server.LoggingLevel)
	}

	log.Info("Starting ai-firewall",
		"version", Version,
		"commit", Commit,
		"logging_level", cfg.Server.LoggingLevel,
		"port", cfg.Server.Port,
	)

	config.PrintConfig(log, cfg)

	startup.ValidateScorerAtStartup(cfg, log)

	metrics := monitoring.New(cfg.Monitoring.PrometheusEnabled)

	var anomalyScorer scorer.AnomalyScorer
	switch cfg.Scorer.Mode {
	case config.ScorerModeHTTP:
		anomalyScorer = scorer.NewHTTPScorer(cfg.Scorer.HTTPBaseURL, cfg.Scorer.HTTPAPIKey, cfg.Scorer.HTTPTimeout, log)
	default:
		anomalyScorer = scorer.NewMock(cfg.Scorer.MockProcessingTime, cfg.Scorer.MockErrorRate, log)
	}

	health := scorerhealth.New(cfg.ScorerHealth.UnhealthyThreshold).WithMetrics(metrics)

	aiClient := aiclient.New(aiclient.Config{
		MaxBatchSize: cfg.AIBatch.MaxBatchSize,
		BatchTimeout: cfg.AIBatch.BatchTimeout,
		RateLimitRPS: cfg.AIBatch.RateLimitRPS,
	}, anomalyScorer, log, health)
	aiClient.Start()

	policies := policy.New(metrics)

	engine, err := decision.New(aiClient, policies, cfg.AIBatch.ScoreCacheSize, log, decision.WithMetrics(metrics))
	if err != nil {
		log.Error("failed to build decision engine", "error", err)
		os.Exit(1)
	}

	audit, err := httpapi.NewAuditLogger(cfg.Monitoring.LogDecisionsPath)
	if err != nil {
		log.Error("failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := audit.Close(); err != nil {
			log.Error("failed to close audit log", "error", err)
		}
	}()

	var limiter *ratelimit.KeyedWindowLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewKeyedWindowLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	api := httpapi.New(httpapi.Config{
		Engine:       engine,
		Policies:     policies,
		ScorerHealth: health,
		Audit:        audit,
		Logger:       log,
		Metrics:      metrics,
		Limiter:      limiter,
	})

	mux := http.NewServeMux()
	mux.Handle("/", api)

	if cfg.Monitoring.PrometheusEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		log.Info("Prometheus metrics enabled", "path", "/metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	aiClient.Stop()

	log.Info("Server shutdown complete")
}
