package composition

import (
	"fmt"
	"time"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/errs"
	"github.com/constraintmcp/constraint-mcp/internal/trigger"
	"github.com/constraintmcp/constraint-mcp/internal/triggerctx"
)

// SequentialState is the per-session state of a Sequential composition: an
// ordered list of expected constraint ids and the set already completed.
type SequentialState struct {
	Universe  []constraint.Id
	Completed map[constraint.Id]struct{}
}

// NewSequentialState builds a fresh state over the given ordered universe.
func NewSequentialState(universe []constraint.Id) SequentialState {
	return SequentialState{Universe: universe, Completed: make(map[constraint.Id]struct{})}
}

// Next returns an activation for the first id not yet completed, guided by
// "Step k of n, context: cat=val". When every id is completed it returns
// OutcomeComplete.
func (s SequentialState) Next(ctx triggerctx.Context, now time.Time) Result {
	for i, id := range s.Universe {
		if _, done := s.Completed[id]; done {
			continue
		}
		guidance := fmt.Sprintf("Step %d of %d, context: %s=%s", i+1, len(s.Universe), ctx.ContextType, ctx.FilePath)
		return activationResult(id, trigger.CompositionNext, fmt.Sprintf("step-%d", i+1), guidance, now)
	}
	return Result{Outcome: OutcomeComplete}
}

// Advance marks a completed activation's constraint as done. Advancing the
// same activation twice is idempotent since Completed is a set.
func (s SequentialState) Advance(completed trigger.Activation) SequentialState {
	next := SequentialState{Universe: s.Universe, Completed: make(map[constraint.Id]struct{}, len(s.Completed)+1)}
	for id := range s.Completed {
		next.Completed[id] = struct{}{}
	}
	next.Completed[completed.ConstraintID] = struct{}{}
	return next
}

// ValidateTransition enforces that entering `to` from `from` is an allowed
// workflow transition, given the set of allowed transitions for the
// composition's methodology (e.g. a TDD pack forbidding "green" while
// status is "not-run"). Callers must not silently skip states (spec
// §4.6); an invalid transition is surfaced as an InvalidWorkflowTransition
// error and the state is left unchanged by the caller.
func ValidateTransition(from, to string, allowed map[string][]string) error {
	next, ok := allowed[from]
	if !ok {
		return errs.WorkflowTransition(from, to)
	}
	for _, n := range next {
		if n == to {
			return nil
		}
	}
	return errs.WorkflowTransition(from, to)
}
