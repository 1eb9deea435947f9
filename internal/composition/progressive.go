package composition

import (
	"fmt"
	"time"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/errs"
	"github.com/constraintmcp/constraint-mcp/internal/trigger"
	"github.com/constraintmcp/constraint-mcp/internal/triggerctx"
)

// MinLevel and MaxLevel bound the fixed progressive refactoring levels
// (spec §4.6).
const (
	MinLevel = 1
	MaxLevel = 6
)

// barrierLevels are the levels that yield additional, more elaborate
// guidance without altering the ordering.
var barrierLevels = map[int]bool{3: true, 5: true}

// ProgressiveState tracks the current level, completed levels, and
// readiness flags of a Progressive composition.
type ProgressiveState struct {
	CurrentLevel      int
	Completed         map[int]struct{}
	TestsPassing      bool
	ReadyForRefactor  bool
	// LevelConstraint maps each level 1..6 to the constraint id that
	// represents it; supplied by the caller since the universe is fixed
	// in shape but the ids are pack-specific.
	LevelConstraint map[int]constraint.Id
}

// NewProgressiveState builds a state starting at MinLevel.
func NewProgressiveState(levelConstraint map[int]constraint.Id) ProgressiveState {
	return ProgressiveState{
		CurrentLevel:    MinLevel,
		Completed:       make(map[int]struct{}),
		LevelConstraint: levelConstraint,
	}
}

// Next yields the constraint for CurrentLevel, with elaborated guidance at
// barrier levels 3 and 5.
func (s ProgressiveState) Next(_ triggerctx.Context, now time.Time) Result {
	id, ok := s.LevelConstraint[s.CurrentLevel]
	if !ok {
		return Result{Outcome: OutcomeNone}
	}
	guidance := fmt.Sprintf("Refactoring level %d of %d", s.CurrentLevel, MaxLevel)
	if barrierLevels[s.CurrentLevel] {
		guidance = fmt.Sprintf("%s — barrier level: confirm tests pass and the design is ready before proceeding", guidance)
	}
	return activationResult(id, trigger.CompositionNext, fmt.Sprintf("level-%d", s.CurrentLevel), guidance, now)
}

// Complete advances CurrentLevel to min(level+1, MaxLevel) and marks level
// completed.
func (s ProgressiveState) Complete(level int) ProgressiveState {
	next := s.clone()
	next.Completed[level] = struct{}{}
	next.CurrentLevel = level + 1
	if next.CurrentLevel > MaxLevel {
		next.CurrentLevel = MaxLevel
	}
	return next
}

// TrySkip succeeds only if target is ahead of current, every intervening
// level is completed or equal to current, and target is exactly
// current+1; no multi-step skipping is ever allowed (spec §4.6).
func (s ProgressiveState) TrySkip(target int) (ProgressiveState, error) {
	if target <= s.CurrentLevel || target < MinLevel || target > MaxLevel {
		return s, errs.Skip(errs.InvalidTargetLevel)
	}
	if target != s.CurrentLevel+1 {
		return s, errs.Skip(errs.SystematicProgressionRequired)
	}
	for level := MinLevel; level < target; level++ {
		if level == s.CurrentLevel {
			continue
		}
		if _, done := s.Completed[level]; !done {
			return s, errs.Skip(errs.MissingPrerequisites)
		}
	}
	next := s.clone()
	next.CurrentLevel = target
	return next, nil
}

func (s ProgressiveState) clone() ProgressiveState {
	completed := make(map[int]struct{}, len(s.Completed))
	for k := range s.Completed {
		completed[k] = struct{}{}
	}
	return ProgressiveState{
		CurrentLevel:     s.CurrentLevel,
		Completed:        completed,
		TestsPassing:     s.TestsPassing,
		ReadyForRefactor: s.ReadyForRefactor,
		LevelConstraint:  s.LevelConstraint,
	}
}
