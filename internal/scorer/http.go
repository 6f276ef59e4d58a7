package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mixaill76/ai-firewall/internal/connection"
	"github.com/mixaill76/ai-firewall/internal/security"
)

const (
	defaultHTTPTimeout  = 5 * time.Second
	maxResponseSizeBytes = 1 * 1024 * 1024
)

// HTTPScorer calls an external anomaly-detection service over HTTP,
// grounded on the house proxy-fetch client: a bounded-size, timed-out GET
// client generalized here into a POST-based batch scoring call with an
// optional bearer API key.
type HTTPScorer struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPScorer creates an HTTP-backed anomaly scorer against baseURL,
// expected to expose POST /analyze.
func NewHTTPScorer(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPScorer {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPScorer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type analyzeRequest struct {
	Connections []connection.Connection `json:"connections"`
}

type analyzeResponse struct {
	Scores []float64 `json:"scores"`
}

// Analyze implements AnomalyScorer by POSTing the batch as JSON and
// decoding a parallel score list from the response.
func (h *HTTPScorer) Analyze(ctx context.Context, connections []connection.Connection) ([]float64, error) {
	if len(connections) == 0 {
		return []float64{}, nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(analyzeRequest{Connections: connections})
	if err != nil {
		return nil, fmt.Errorf("scorer: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("scorer: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("scorer: request failed",
			"url", h.baseURL,
			"headers", security.MaskSensitiveHeaders(req.Header),
			"error", err,
		)
		return nil, fmt.Errorf("scorer: request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			h.logger.Debug("scorer: failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("scorer: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scorer: upstream returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("scorer: failed to parse response: %w", err)
	}

	if len(parsed.Scores) != len(connections) {
		return nil, fmt.Errorf("scorer: expected %d scores, got %d", len(connections), len(parsed.Scores))
	}

	return parsed.Scores, nil
}
