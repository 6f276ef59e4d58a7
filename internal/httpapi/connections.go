package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mixaill76/ai-firewall/internal/aiclient"
	"github.com/mixaill76/ai-firewall/internal/connection"
	"github.com/mixaill76/ai-firewall/internal/logger"
)

// createConnectionRequest is the wire shape accepted by POST /connections.
// connection_id is never read from the caller: the server assigns it,
// mirroring the reference implementation's uuid4() assignment at the HTTP
// boundary.
type createConnectionRequest struct {
	SourceIP        string `json:"source_ip"`
	DestinationIP   string `json:"destination_ip"`
	DestinationPort int    `json:"destination_port"`
	Protocol        string `json:"protocol"`
	Timestamp       string `json:"timestamp"`
}

func (r *Router) handleCreateConnection(w http.ResponseWriter, req *http.Request) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorValidation(w, "failed to read request body", "")
		return
	}

	var body createConnectionRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		r.logger.Warn("connection request body is not valid JSON",
			"raw_body", logger.PreviewRawBody(string(raw), 200))
		writeErrorValidation(w, "request body is not valid JSON", "")
		return
	}

	srcIP, err := connection.NormalizeIP(body.SourceIP)
	if err != nil {
		writeErrorValidation(w, err.Error(), "source_ip")
		return
	}
	dstIP, err := connection.NormalizeIP(body.DestinationIP)
	if err != nil {
		writeErrorValidation(w, err.Error(), "destination_ip")
		return
	}
	if err := connection.ValidatePort(body.DestinationPort); err != nil {
		writeErrorValidation(w, err.Error(), "destination_port")
		return
	}
	proto, err := connection.NormalizeProtocol(body.Protocol)
	if err != nil {
		writeErrorValidation(w, err.Error(), "protocol")
		return
	}

	ts := time.Now().UTC()
	if body.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, body.Timestamp)
		if err != nil {
			writeErrorValidation(w, "timestamp must be ISO-8601", "timestamp")
			return
		}
		ts = parsed
	}

	conn := connection.Connection{
		ConnectionID:    uuid.NewString(),
		SourceIP:        srcIP,
		DestinationIP:   dstIP,
		DestinationPort: body.DestinationPort,
		Protocol:        proto,
		Timestamp:       ts,
	}

	result, err := r.engine.EvaluateConnection(req.Context(), conn)
	if err != nil {
		r.logger.Error("connection evaluation failed", "connection_id", conn.ConnectionID, "error", err.Error())
		if errors.Is(err, aiclient.ErrShuttingDown) {
			writeErrorServiceUnavailable(w, "firewall is shutting down")
			return
		}
		writeErrorInternal(w, "failed to evaluate connection")
		return
	}

	policyID := "none"
	if result.PolicyID != nil {
		policyID = *result.PolicyID
	}
	r.logger.Debug("connection evaluated",
		"connection_id", result.ConnectionID,
		"decision", string(result.Decision),
		"policy_id", policyID,
		"anomaly_score", result.AnomalyScore,
	)

	r.audit.Log(result)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

func (r *Router) handleGetConnection(w http.ResponseWriter, req *http.Request) {
	connectionID := req.URL.Path[len("/connections/"):]
	if connectionID == "" {
		writeErrorNotFound(w, "connection not found")
		return
	}

	result, ok := r.engine.GetConnection(connectionID)
	if !ok {
		writeErrorNotFound(w, "connection not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}
