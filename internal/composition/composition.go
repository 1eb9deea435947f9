// Package composition implements the four closed composition strategies of
// spec §4.6: Sequential, Hierarchical, Progressive, Layered. Each shares the
// common operational shape next(state, universe, context) and
// advance(state, activation, context), modelled here as methods on
// strategy-specific state types rather than an open interface (spec §9).
package composition

import (
	"time"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/trigger"
)

// Outcome is the closed result of a composition strategy's Next call.
type Outcome int

const (
	// OutcomeActivation means Activation is populated.
	OutcomeActivation Outcome = iota
	// OutcomeNone means nothing is currently due.
	OutcomeNone
	// OutcomeComplete means the strategy's universe has been fully
	// traversed.
	OutcomeComplete
)

// Result is returned by every strategy's Next method.
type Result struct {
	Outcome    Outcome
	Activation trigger.Activation
}

func activationResult(id constraint.Id, reason trigger.Reason, layerOrStep, guidance string, now time.Time) Result {
	return Result{
		Outcome: OutcomeActivation,
		Activation: trigger.Activation{
			ConstraintID: id,
			Score:        1,
			Reason:       reason,
			LayerOrStep:  layerOrStep,
			Guidance:     guidance,
			Timestamp:    now,
		},
	}
}
