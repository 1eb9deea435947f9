// Package scheduler implements the deterministic cadence/override decision
// of spec §4.2: whether interaction n of a session triggers injection.
package scheduler

import "github.com/constraintmcp/constraint-mcp/internal/session"

// Config configures the scheduler: inject every EveryN interactions, or
// unconditionally while the session's current workflow state name is in
// PhaseOverrides.
type Config struct {
	EveryN         int
	PhaseOverrides map[string]struct{}
}

// NewConfig builds a Config from an interval and a set of override phase
// names.
func NewConfig(everyN int, phaseOverrides []string) Config {
	overrides := make(map[string]struct{}, len(phaseOverrides))
	for _, name := range phaseOverrides {
		overrides[name] = struct{}{}
	}
	return Config{EveryN: everyN, PhaseOverrides: overrides}
}

// Decision is the scheduler's pure output for one interaction.
type Decision int

const (
	// Pass means the tool call is returned unchanged.
	Pass Decision = iota
	// Inject means the injection pipeline should run.
	Inject
)

// Schedule is pure of time: identical (n, state, config) always yields the
// same decision (spec §4.2's "Guarantees"). n is the 1-indexed interaction
// number after the session counter has been incremented.
func Schedule(n int, state session.WorkflowState, cfg Config) Decision {
	if _, overridden := cfg.PhaseOverrides[state.Name]; overridden {
		return Inject
	}
	everyN := cfg.EveryN
	if everyN <= 0 {
		everyN = 1
	}
	if n%everyN == 1 || everyN == 1 {
		return Inject
	}
	return Pass
}
