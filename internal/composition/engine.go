package composition

import (
	"fmt"
	"time"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/trigger"
	"github.com/constraintmcp/constraint-mcp/internal/triggerctx"
)

// State is the per-session, per-composite progression record threaded
// through a session's composition state (spec §3). Exactly one field is
// populated, chosen by the owning composite's CompositionType;
// Hierarchical carries none since Order is stateless (spec §9 Open
// Question 3).
type State struct {
	Sequential  *SequentialState
	Progressive *ProgressiveState
	Layered     *LayeredState
}

// Universe is what the engine needs from a composite to drive its
// strategy: the reference list straight off the CompositeConstraint, plus
// each reference's priority, resolved by the caller (the dispatcher, via
// the constraint resolver) since composition has no library access of its
// own.
type Universe struct {
	References []constraint.ConstraintReference
	Priority   map[constraint.Id]constraint.Priority
}

// Next drives a composite's strategy one step: it bootstraps a fresh state
// from universe on first use, produces the single activation currently due
// (or OutcomeNone/OutcomeComplete), and returns the state to persist for
// the session's next call. This is the composition step of spec §2's
// control flow: "composition engine, consulting the current workflow
// state, reorders/filters activations" before the top-K selector sees
// them.
func Next(compType constraint.CompositionType, universe Universe, deps []Dependency, state State, ctx triggerctx.Context, now time.Time) (Result, State) {
	switch compType {
	case constraint.Sequential:
		return nextSequential(universe, state, ctx, now)
	case constraint.Progressive:
		return nextProgressive(universe, state, ctx, now)
	case constraint.Layered:
		return nextLayered(universe, deps, state, ctx, now)
	case constraint.Hierarchical:
		return nextHierarchical(universe, now), state
	default:
		return Result{Outcome: OutcomeNone}, state
	}
}

func referenceIDs(refs []constraint.ConstraintReference) []constraint.Id {
	ids := make([]constraint.Id, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}

func nextSequential(universe Universe, state State, ctx triggerctx.Context, now time.Time) (Result, State) {
	s := state.Sequential
	if s == nil {
		fresh := NewSequentialState(referenceIDs(universe.References))
		s = &fresh
	}
	result := s.Next(ctx, now)
	if result.Outcome != OutcomeActivation {
		return result, State{Sequential: s}
	}
	advanced := s.Advance(result.Activation)
	return result, State{Sequential: &advanced}
}

func nextProgressive(universe Universe, state State, ctx triggerctx.Context, now time.Time) (Result, State) {
	s := state.Progressive
	if s == nil {
		levels := make(map[int]constraint.Id, len(universe.References))
		for _, r := range universe.References {
			levels[r.Level] = r.ID
		}
		fresh := NewProgressiveState(levels)
		s = &fresh
	}
	result := s.Next(ctx, now)
	if result.Outcome != OutcomeActivation {
		return result, State{Progressive: s}
	}
	advanced := s.Complete(s.CurrentLevel)
	return result, State{Progressive: &advanced}
}

func nextLayered(universe Universe, deps []Dependency, state State, ctx triggerctx.Context, now time.Time) (Result, State) {
	s := state.Layered
	if s == nil {
		layers := make([]Layer, len(universe.References))
		for i, r := range universe.References {
			var allowed map[int]struct{}
			if len(r.AllowedDependencyLevels) > 0 {
				allowed = make(map[int]struct{}, len(r.AllowedDependencyLevels))
				for _, lvl := range r.AllowedDependencyLevels {
					allowed[lvl] = struct{}{}
				}
			}
			layers[i] = Layer{
				ID:                      r.ID,
				Level:                   r.Level,
				Name:                    r.Name,
				AllowedDependencyLevels: allowed,
				NamespacePatterns:       r.NamespacePatterns,
			}
		}
		fresh := NewLayeredState(layers)
		s = &fresh
	}
	result := s.Next(ctx, deps, now)
	if result.Outcome != OutcomeActivation || result.Activation.Reason == trigger.ArchitecturalViolation {
		return result, State{Layered: s}
	}
	advanced := s.Advance(levelForID(s.Layers, result.Activation.ConstraintID), nil)
	return result, State{Layered: &advanced}
}

func levelForID(layers []Layer, id constraint.Id) int {
	for _, l := range layers {
		if l.ID == id {
			return l.Level
		}
	}
	return 0
}

func nextHierarchical(universe Universe, now time.Time) Result {
	entries := make([]HierarchicalEntry, len(universe.References))
	for i, r := range universe.References {
		entries[i] = HierarchicalEntry{ID: r.ID, Level: r.Level, Priority: universe.Priority[r.ID]}
	}
	ordered := Order(entries)
	if len(ordered) == 0 {
		return Result{Outcome: OutcomeNone}
	}
	top := ordered[0]
	guidance := fmt.Sprintf("Highest-priority component at level %d", top.Level)
	return activationResult(top.ID, trigger.CompositionNext, fmt.Sprintf("level-%d", top.Level), guidance, now)
}
