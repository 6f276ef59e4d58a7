package httpapi

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/mixaill76/ai-firewall/internal/connection"
)

// AuditLogger appends block and alert decisions to a JSON-lines file,
// grounded on the house router package's cached-file-handle error logger:
// a single append-only handle reused across writes rather than reopened
// per entry.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens (creating if needed) the JSON-lines audit log at
// path. An empty path disables auditing; Log becomes a no-op.
func NewAuditLogger(path string) (*AuditLogger, error) {
	if path == "" {
		return &AuditLogger{}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{file: f}, nil
}

type auditEntry struct {
	Timestamp    string  `json:"timestamp"`
	ConnectionID string  `json:"connection_id"`
	SourceIP     string  `json:"source_ip"`
	DestIP       string  `json:"destination_ip"`
	DestPort     int     `json:"destination_port"`
	Protocol     string  `json:"protocol"`
	AnomalyScore float64 `json:"anomaly_score"`
	Decision     string  `json:"decision"`
	PolicyID     *string `json:"policy_id"`
}

// Log records a connection's final decision if it is block or alert; allow
// and drop verdicts are not audited. A nil or disabled logger is a safe
// no-op, and write failures are swallowed: audit logging must never fail
// the request it is observing.
func (a *AuditLogger) Log(result connection.AnalyzedConnection) {
	if a == nil || a.file == nil {
		return
	}
	if result.Decision != connection.DecisionBlock && result.Decision != connection.DecisionAlert {
		return
	}

	entry := auditEntry{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		ConnectionID: result.ConnectionID,
		SourceIP:     result.SourceIP,
		DestIP:       result.DestinationIP,
		DestPort:     result.DestinationPort,
		Protocol:     string(result.Protocol),
		AnomalyScore: result.AnomalyScore,
		Decision:     string(result.Decision),
		PolicyID:     result.PolicyID,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = a.file.Write(line)
}

// Close closes the underlying file handle, if any.
func (a *AuditLogger) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}
