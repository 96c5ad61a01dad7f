// Package lifecycle holds the pure state machines of contracts, approvals,
// renewals, amendments and invitations.
package lifecycle

import (
	"tprmgrc/internal/apperrors"
)

// Rule allows one transition
type Rule[S ~string] struct {
	From S
	To   S
}

// Machine validates transitions against a fixed rule set
type Machine[S ~string] struct {
	entity string
	rules  map[S]map[S]bool
	states []S
}

// NewMachine builds a machine. states lists every known state in a stable order.
func NewMachine[S ~string](entity string, states []S, rules []Rule[S]) *Machine[S] {
	m := &Machine[S]{entity: entity, rules: map[S]map[S]bool{}, states: states}
	for _, r := range rules {
		if m.rules[r.From] == nil {
			m.rules[r.From] = map[S]bool{}
		}
		m.rules[r.From][r.To] = true
	}
	return m
}

// Allowed reports whether from -> to is a legal transition. Staying put is allowed.
func (m *Machine[S]) Allowed(from, to S) bool {
	if from == to {
		return true
	}
	return m.rules[from][to]
}

// Validate returns IllegalTransition when from -> to is not legal
func (m *Machine[S]) Validate(from, to S) error {
	if m.Allowed(from, to) {
		return nil
	}
	return apperrors.IllegalTransition(m.entity, string(from), string(to))
}

// Targets lists the legal targets of from in declaration order
func (m *Machine[S]) Targets(from S) []S {
	var out []S
	for _, s := range m.states {
		if s != from && m.rules[from][s] {
			out = append(out, s)
		}
	}
	return out
}

// Terminal reports whether from admits no transition at all
func (m *Machine[S]) Terminal(from S) bool {
	return len(m.rules[from]) == 0
}

// States lists every known state
func (m *Machine[S]) States() []S {
	return append([]S(nil), m.states...)
}

// Known reports whether s is one of the machine's states
func (m *Machine[S]) Known(s S) bool {
	for _, k := range m.states {
		if k == s {
			return true
		}
	}
	return false
}
