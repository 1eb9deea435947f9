package composition

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/trigger"
	"github.com/constraintmcp/constraint-mcp/internal/triggerctx"
)

// Layer is one entry in a user-defined layer hierarchy (spec §4.6).
type Layer struct {
	ID                      constraint.Id
	Level                   int
	Name                    string
	AllowedDependencyLevels map[int]struct{}
	NamespacePatterns       []string
}

// Dependency is one (source, target) namespace pair observed in the
// context's code-analysis dependencies.
type Dependency struct {
	SourceNamespace string
	TargetNamespace string
}

// Violation records a single disallowed layer dependency.
type Violation struct {
	SourceNamespace string
	TargetNamespace string
	SourceLevel     int
	TargetLevel     int
}

// LayeredState tracks completed layers, the current layer, and accumulated
// violations.
type LayeredState struct {
	Layers       []Layer
	Completed    map[int]struct{}
	CurrentLayer int
	Violations   []Violation
}

// NewLayeredState builds a state over the given layer hierarchy, starting
// at the lowest layer level.
func NewLayeredState(layers []Layer) LayeredState {
	lowest := 0
	if len(layers) > 0 {
		lowest = layers[0].Level
		for _, l := range layers {
			if l.Level < lowest {
				lowest = l.Level
			}
		}
	}
	return LayeredState{Layers: layers, Completed: make(map[int]struct{}), CurrentLayer: lowest}
}

// layerForNamespace finds the layer whose namespace pattern is the
// longest-prefix match for ns.
func layerForNamespace(layers []Layer, ns string) (Layer, bool) {
	var best Layer
	bestLen := -1
	found := false
	for _, l := range layers {
		for _, pattern := range l.NamespacePatterns {
			prefix := strings.TrimSuffix(pattern, "*")
			if strings.HasPrefix(ns, prefix) && len(prefix) > bestLen {
				best = l
				bestLen = len(prefix)
				found = true
			}
		}
	}
	return best, found
}

// detectViolations scans ctx's dependencies for any that the source layer's
// AllowedDependencyLevels does not permit.
func detectViolations(layers []Layer, deps []Dependency) []Violation {
	var violations []Violation
	for _, dep := range deps {
		src, ok := layerForNamespace(layers, dep.SourceNamespace)
		if !ok {
			continue
		}
		tgt, ok := layerForNamespace(layers, dep.TargetNamespace)
		if !ok {
			continue
		}
		if _, allowed := src.AllowedDependencyLevels[tgt.Level]; allowed {
			continue
		}
		violations = append(violations, Violation{
			SourceNamespace: dep.SourceNamespace,
			TargetNamespace: dep.TargetNamespace,
			SourceLevel:     src.Level,
			TargetLevel:     tgt.Level,
		})
	}
	return violations
}

// Next scans the context's dependencies first: if any violation is found,
// it returns a synthetic activation for the first one (deterministically,
// by source then target namespace), naming both namespaces. Otherwise it
// returns the lowest-level not-yet-completed layer constraint.
func (s LayeredState) Next(ctx triggerctx.Context, deps []Dependency, now time.Time) Result {
	violations := detectViolations(s.Layers, deps)
	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool {
			if violations[i].SourceNamespace != violations[j].SourceNamespace {
				return violations[i].SourceNamespace < violations[j].SourceNamespace
			}
			return violations[i].TargetNamespace < violations[j].TargetNamespace
		})
		v := violations[0]
		id := constraint.Id(fmt.Sprintf("arch.violation.layer-%d-to-%d", v.SourceLevel, v.TargetLevel))
		guidance := fmt.Sprintf("Disallowed dependency: %s depends on %s", v.SourceNamespace, v.TargetNamespace)
		return Result{
			Outcome: OutcomeActivation,
			Activation: trigger.Activation{
				ConstraintID: id,
				Score:        1,
				Reason:       trigger.ArchitecturalViolation,
				LayerOrStep:  fmt.Sprintf("layer-%d-to-%d", v.SourceLevel, v.TargetLevel),
				Guidance:     guidance,
				Timestamp:    now,
			},
		}
	}

	sorted := make([]Layer, len(s.Layers))
	copy(sorted, s.Layers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })
	for _, l := range sorted {
		if _, done := s.Completed[l.Level]; done {
			continue
		}
		guidance := fmt.Sprintf("Layer %s (level %d): keep dependencies flowing toward lower levels", l.Name, l.Level)
		_ = ctx
		return activationResult(l.ID, trigger.CompositionNext, fmt.Sprintf("layer-%d", l.Level), guidance, now)
	}
	return Result{Outcome: OutcomeComplete}
}

// Advance records the completed layer and the (possibly empty) violation
// list observed while producing that activation.
func (s LayeredState) Advance(layerLevel int, violations []Violation) LayeredState {
	completed := make(map[int]struct{}, len(s.Completed)+1)
	for k := range s.Completed {
		completed[k] = struct{}{}
	}
	completed[layerLevel] = struct{}{}
	return LayeredState{
		Layers:       s.Layers,
		Completed:    completed,
		CurrentLayer: layerLevel,
		Violations:   append(append([]Violation{}, s.Violations...), violations...),
	}
}
