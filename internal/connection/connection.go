// Package connection defines the firewall's core data model: the network
// connection records submitted by callers, the policies that match against
// them, and the analyzed results the decision engine produces.
package connection

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Protocol is a transport-layer protocol recognized by the firewall.
type Protocol string

const (
	ProtocolTCP Protocol = "TCP"
	ProtocolUDP Protocol = "UDP"
)

// Field names the Connection attributes a PolicyCondition may reference.
// Only these four are indexed by the policy manager. Field is a plain
// string type, so other values can be constructed; ValidField rejects them
// at the HTTP boundary.
type Field string

const (
	FieldSourceIP        Field = "source_ip"
	FieldDestinationIP   Field = "destination_ip"
	FieldDestinationPort Field = "destination_port"
	FieldProtocol        Field = "protocol"
)

// Action is the verdict a matched Policy assigns. Decision additionally
// allows "drop", which only the decision engine may produce.
type Action string

const (
	ActionAllow Action = "allow"
	ActionBlock Action = "block"
	ActionAlert Action = "alert"
)

// Decision is the final verdict produced for a connection.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionBlock Decision = "block"
	DecisionAlert Decision = "alert"
	DecisionDrop  Decision = "drop"
)

// Connection is a single observed network flow, already validated and
// normalized at the HTTP boundary. It is immutable once constructed.
type Connection struct {
	ConnectionID    string    `json:"connection_id"`
	SourceIP        string    `json:"source_ip"`
	DestinationIP   string    `json:"destination_ip"`
	DestinationPort int       `json:"destination_port"`
	Protocol        Protocol  `json:"protocol"`
	Timestamp       time.Time `json:"timestamp"`
}

// FieldValue returns the connection's value for an indexed field, boxed as
// an any for use as a map key. The returned value's dynamic type always
// matches what PolicyCondition.Value holds for that field.
func (c Connection) FieldValue(field Field) any {
	switch field {
	case FieldSourceIP:
		return c.SourceIP
	case FieldDestinationIP:
		return c.DestinationIP
	case FieldDestinationPort:
		return c.DestinationPort
	case FieldProtocol:
		return string(c.Protocol)
	default:
		return nil
	}
}

// Fingerprint is the equivalence class used for anomaly-score memoization:
// it is fully determined by (source_ip, destination_ip, destination_port,
// protocol) and ignores timestamp and connection_id.
func (c Connection) Fingerprint() string {
	return fmt.Sprintf("%s-%s-%d-%s", c.SourceIP, c.DestinationIP, c.DestinationPort, c.Protocol)
}

// PolicyCondition is a single conjunctive equality test against a
// Connection field.
type PolicyCondition struct {
	Field    Field  `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Matches reports whether the condition holds for the given connection.
func (cond PolicyCondition) Matches(c Connection) bool {
	return c.FieldValue(cond.Field) == cond.Value
}

// Policy is an ordered, conjunctive rule over Connection fields. Conditions
// are ANDed together; an empty condition list matches every connection.
// InsertionOrder is assigned by the policy manager at admission and is the
// sole tie-breaker for priority.
type Policy struct {
	PolicyID       string            `json:"policy_id"`
	Conditions     []PolicyCondition `json:"conditions"`
	Action         Action            `json:"action"`
	InsertionOrder int               `json:"-"`
}

// Matches reports whether every condition on the policy holds for c. A
// policy with no conditions matches unconditionally.
func (p Policy) Matches(c Connection) bool {
	for _, cond := range p.Conditions {
		if !cond.Matches(c) {
			return false
		}
	}
	return true
}

// AnalyzedConnection is the stored result of evaluating a Connection: the
// original fields plus the anomaly score, final decision, and the policy
// that produced it (if any).
type AnalyzedConnection struct {
	ConnectionID    string    `json:"connection_id"`
	SourceIP        string    `json:"source_ip"`
	DestinationIP   string    `json:"destination_ip"`
	DestinationPort int       `json:"destination_port"`
	Protocol        Protocol  `json:"protocol"`
	Timestamp       time.Time `json:"timestamp"`
	AnomalyScore    float64   `json:"anomaly_score"`
	Decision        Decision  `json:"decision"`
	PolicyID        *string   `json:"policy_id"`
}

// ValidPolicyID reports whether id matches ^[A-Za-z0-9_-]{1,64}$.
func ValidPolicyID(id string) bool {
	if len(id) < 1 || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// NormalizeProtocol upper-cases and validates a protocol string.
func NormalizeProtocol(s string) (Protocol, error) {
	p := Protocol(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case ProtocolTCP, ProtocolUDP:
		return p, nil
	default:
		return "", fmt.Errorf("connection: unsupported protocol %q", s)
	}
}

// NormalizeIP validates and canonicalizes an IPv4 or IPv6 literal, mirroring
// the normalization the HTTP boundary performs before core components ever
// see a Connection.
func NormalizeIP(s string) (string, error) {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return "", fmt.Errorf("connection: invalid IP address %q", s)
	}
	return ip.String(), nil
}

// ValidatePort reports whether port is in the inclusive range 0..65535.
func ValidatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("connection: destination_port %d out of range [0, 65535]", port)
	}
	return nil
}

// ValidAction reports whether a matches one of the policy actions.
func ValidAction(a Action) bool {
	switch a {
	case ActionAllow, ActionBlock, ActionAlert:
		return true
	default:
		return false
	}
}

// ValidField reports whether f is one of the four indexed connection fields.
func ValidField(f Field) bool {
	switch f {
	case FieldSourceIP, FieldDestinationIP, FieldDestinationPort, FieldProtocol:
		return true
	default:
		return false
	}
}

// NormalizeConditionValue coerces a JSON-decoded condition value (numbers
// decode as float64, everything else as string) into the concrete type
// FieldValue produces for that field, so that equality comparisons in
// Matches and the policy manager's indexes behave consistently regardless
// of how the value arrived over the wire.
func NormalizeConditionValue(field Field, value any) (any, error) {
	switch field {
	case FieldDestinationPort:
		switch v := value.(type) {
		case float64:
			port := int(v)
			if float64(port) != v {
				return nil, fmt.Errorf("connection: destination_port condition value %v is not an integer", v)
			}
			return port, nil
		case int:
			return v, nil
		default:
			return nil, fmt.Errorf("connection: destination_port condition value must be numeric, got %T", value)
		}
	case FieldProtocol:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("connection: protocol condition value must be a string, got %T", value)
		}
		proto, err := NormalizeProtocol(s)
		if err != nil {
			return nil, err
		}
		return string(proto), nil
	case FieldSourceIP, FieldDestinationIP:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("connection: %s condition value must be a string, got %T", field, value)
		}
		return NormalizeIP(s)
	default:
		return nil, fmt.Errorf("connection: unsupported condition field %q", field)
	}
}
