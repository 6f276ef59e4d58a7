package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mixaill76/ai-firewall/internal/connection"
	"github.com/mixaill76/ai-firewall/internal/logger"
)

// createPolicyRequest mirrors connection.Policy for decoding, before field
// values are normalized and validated against the four supported fields.
type createPolicyRequest struct {
	PolicyID   string                     `json:"policy_id"`
	Conditions []createPolicyConditionReq `json:"conditions"`
	Action     string                     `json:"action"`
}

type createPolicyConditionReq struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

func (r *Router) handleCreatePolicy(w http.ResponseWriter, req *http.Request) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorValidation(w, "failed to read request body", "")
		return
	}

	var body createPolicyRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		r.logger.Warn("policy request body is not valid JSON",
			"raw_body", logger.PreviewRawBody(string(raw), 200))
		writeErrorValidation(w, "request body is not valid JSON", "")
		return
	}

	if !connection.ValidPolicyID(body.PolicyID) {
		writeErrorValidation(w, "policy_id must match ^[A-Za-z0-9_-]{1,64}$", "policy_id")
		return
	}

	action := connection.Action(body.Action)
	if !connection.ValidAction(action) {
		writeErrorValidation(w, fmt.Sprintf("unsupported action %q", body.Action), "action")
		return
	}

	conditions := make([]connection.PolicyCondition, 0, len(body.Conditions))
	for i, c := range body.Conditions {
		field := connection.Field(c.Field)
		if !connection.ValidField(field) {
			r.logger.Warn("policy request rejected: unsupported condition field",
				"policy_id", body.PolicyID,
				"raw_body", logger.TruncateLongFields(string(raw), 200))
			writeErrorValidation(w, fmt.Sprintf("unsupported field %q", c.Field), fmt.Sprintf("conditions[%d].field", i))
			return
		}
		if c.Operator != "==" {
			writeErrorValidation(w, fmt.Sprintf("unsupported operator %q", c.Operator), fmt.Sprintf("conditions[%d].operator", i))
			return
		}
		value, err := connection.NormalizeConditionValue(field, c.Value)
		if err != nil {
			writeErrorValidation(w, err.Error(), fmt.Sprintf("conditions[%d].value", i))
			return
		}
		conditions = append(conditions, connection.PolicyCondition{
			Field:    field,
			Operator: c.Operator,
			Value:    value,
		})
	}

	p := connection.Policy{
		PolicyID:   body.PolicyID,
		Conditions: conditions,
		Action:     action,
	}

	if err := r.policies.AddPolicy(p); err != nil {
		writeErrorConflict(w, err.Error())
		return
	}

	if r.metrics != nil {
		r.metrics.SetPolicyCount(r.policies.Count())
	}

	stored, _ := findPolicy(r.policies.ListPolicies(), body.PolicyID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(stored)
}

func findPolicy(policies []connection.Policy, id string) (connection.Policy, bool) {
	for _, p := range policies {
		if p.PolicyID == id {
			return p, true
		}
	}
	return connection.Policy{}, false
}

func (r *Router) handleListPolicies(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(r.policies.ListPolicies())
}

func (r *Router) handleClearPolicies(w http.ResponseWriter, req *http.Request) {
	r.policies.ClearPolicies()
	if r.metrics != nil {
		r.metrics.SetPolicyCount(0)
	}
	w.WriteHeader(http.StatusNoContent)
}
