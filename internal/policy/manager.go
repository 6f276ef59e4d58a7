// Package policy implements the ordered policy store and matching engine.
// Policies are matched against a connection in insertion order: the first
// policy (by insertion, not by any priority field) whose conditions all
// match wins. A per-field inverted index keeps matching sublinear in the
// common case where most policies don't reference a given field value.
package policy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mixaill76/ai-firewall/internal/connection"
	"github.com/mixaill76/ai-firewall/internal/monitoring"
)

// Manager stores policies and resolves the matching policy for a
// connection, grounded on the reference PolicyManager: an ordered list
// plus per-field inverted indexes from condition value to the set of
// insertion orders of policies that reference it.
//
// InsertionOrder is always exactly the index a policy was appended at
// (policies are never deleted individually, only all at once via
// ClearPolicies), so policies also serves as the order->policy lookup
// with no separate index to maintain.
type Manager struct {
	mu sync.RWMutex

	policies    []connection.Policy
	byID        map[string]int   // policy ID -> index into policies
	nextOrder   int
	withoutCond map[int]struct{} // insertion order of policies with no conditions

	// indexes[field][value] -> set of insertion orders referencing it
	indexes map[connection.Field]map[any]map[int]struct{}

	metrics *monitoring.Metrics
}

// New creates an empty Manager.
func New(metrics *monitoring.Metrics) *Manager {
	return &Manager{
		byID:        make(map[string]int),
		withoutCond: make(map[int]struct{}),
		indexes:     make(map[connection.Field]map[any]map[int]struct{}),
		metrics:     metrics,
	}
}

// AddPolicy appends a new policy, assigning it the next insertion order.
// It returns an error if a policy with the same ID already exists.
func (m *Manager) AddPolicy(p connection.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[p.PolicyID]; exists {
		return fmt.Errorf("policy: duplicate policy id %q", p.PolicyID)
	}

	p.InsertionOrder = m.nextOrder
	m.nextOrder++

	if len(p.Conditions) == 0 {
		m.withoutCond[p.InsertionOrder] = struct{}{}
	} else {
		for _, cond := range p.Conditions {
			m.indexField(cond.Field, cond.Value, p.InsertionOrder)
		}
	}

	m.byID[p.PolicyID] = len(m.policies)
	m.policies = append(m.policies, p)

	if m.metrics != nil {
		m.metrics.SetPolicyCount(len(m.policies))
	}
	return nil
}

func (m *Manager) indexField(field connection.Field, value any, order int) {
	byValue, ok := m.indexes[field]
	if !ok {
		byValue = make(map[any]map[int]struct{})
		m.indexes[field] = byValue
	}
	orders, ok := byValue[value]
	if !ok {
		orders = make(map[int]struct{})
		byValue[value] = orders
	}
	orders[order] = struct{}{}
}

// GetMatchingPolicy returns the first (by insertion order) policy whose
// conditions all match conn, or nil if none match.
//
// Candidate selection is a superset-filter: collect the union of
// insertion orders indexed under each of the connection's field values,
// plus policies with no conditions (which always match), then verify
// candidates in ascending insertion order and return the first true
// match. This avoids evaluating policies that reference a field value the
// connection doesn't have, at the cost of evaluating some that share a
// value on one field but differ on another — those are rejected by the
// verification step.
func (m *Manager) GetMatchingPolicy(conn connection.Connection) *connection.Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make(map[int]struct{})
	for order := range m.withoutCond {
		candidates[order] = struct{}{}
	}

	for _, field := range []connection.Field{
		connection.FieldSourceIP,
		connection.FieldDestinationIP,
		connection.FieldDestinationPort,
		connection.FieldProtocol,
	} {
		byValue, ok := m.indexes[field]
		if !ok {
			continue
		}
		value := conn.FieldValue(field)
		if orders, ok := byValue[value]; ok {
			for order := range orders {
				candidates[order] = struct{}{}
			}
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	ordered := make([]int, 0, len(candidates))
	for order := range candidates {
		ordered = append(ordered, order)
	}
	sort.Ints(ordered)

	for _, order := range ordered {
		if order < 0 || order >= len(m.policies) {
			continue
		}
		p := &m.policies[order]
		if p.Matches(conn) {
			return p
		}
	}
	return nil
}

// ListPolicies returns a copy of all policies in insertion order.
func (m *Manager) ListPolicies() []connection.Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]connection.Policy, len(m.policies))
	copy(out, m.policies)
	return out
}

// Count returns the number of configured policies.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.policies)
}

// ClearPolicies removes all policies and resets insertion ordering.
func (m *Manager) ClearPolicies() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies = nil
	m.byID = make(map[string]int)
	m.withoutCond = make(map[int]struct{})
	m.indexes = make(map[connection.Field]map[any]map[int]struct{})
	m.nextOrder = 0
	if m.metrics != nil {
		m.metrics.SetPolicyCount(0)
	}
}
