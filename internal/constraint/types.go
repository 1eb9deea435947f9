// Package constraint implements the constraint data model (spec §3): atomic
// and composite constraints, the trigger configuration they carry, and the
// library + resolver that admit and materialise them (spec §4.3).
package constraint

import (
	"fmt"
	"strings"

	"github.com/constraintmcp/constraint-mcp/internal/errs"
)

// Id is an opaque, non-empty, immutable identifier used as an equality/hash
// key across the system.
type Id string

// Validate reports whether the id is non-empty.
func (id Id) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return errs.New(errs.Validation, "constraint id must not be empty")
	}
	return nil
}

// Priority is a real number in the closed interval [0.0, 1.0].
type Priority float64

// Validate reports whether the priority is within [0, 1].
func (p Priority) Validate() error {
	if p < 0 || p > 1 {
		return errs.New(errs.Validation, "priority %v out of range [0,1]", float64(p))
	}
	return nil
}

// UserDefinedContext is one cell of the user's workflow taxonomy, e.g.
// category="workflow", value="red". Two contexts are equal when both
// strings match case-sensitively.
type UserDefinedContext struct {
	Category string
	Value    string
	Priority Priority
}

// Validate checks the non-empty-string invariants.
func (c UserDefinedContext) Validate() error {
	if strings.TrimSpace(c.Category) == "" || strings.TrimSpace(c.Value) == "" {
		return errs.New(errs.Validation, "user-defined context requires non-empty category and value")
	}
	return c.Priority.Validate()
}

// Equal reports whether two contexts denote the same taxonomy cell.
func (c UserDefinedContext) Equal(other UserDefinedContext) bool {
	return c.Category == other.Category && c.Value == other.Value
}

// TriggerConfiguration is the per-constraint bundle describing when a
// constraint is relevant (spec §3). All collections may be empty; an empty
// collection means "no constraint along this axis".
type TriggerConfiguration struct {
	Keywords        []string
	FilePatterns    []string
	ContextPatterns []string
	AntiPatterns    []string
	// Phases matches against the session's current workflow state name
	// (e.g. a pack's "red"/"green"/"refactor" labels), a distinct axis
	// from ContextPatterns, which matches the auto-classified
	// TriggerContext.ContextType ("testing"/"refactoring"/
	// "feature_development"/"unknown"). A phase name is never one of
	// those four labels, so phase-bound constraints need their own axis
	// to ever activate (spec §6).
	Phases              []string
	ConfidenceThreshold float64
}

// Validate checks the confidence threshold range.
func (t TriggerConfiguration) Validate() error {
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold > 1 {
		return errs.New(errs.Validation, "confidence threshold %v out of range [0,1]", t.ConfidenceThreshold)
	}
	return nil
}

// AtomicConstraint is a leaf constraint: a title, priority, trigger
// configuration, an ordered non-empty list of reminders, and optional
// metadata.
type AtomicConstraint struct {
	ID        Id
	Title     string
	Priority  Priority
	Trigger   TriggerConfiguration
	Reminders []string
	Metadata  map[string]string
}

// Validate enforces non-blank title, in-range priority, non-blank reminders.
func (a AtomicConstraint) Validate() error {
	if err := a.ID.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Title) == "" {
		return errs.New(errs.Validation, "constraint %s: title must not be blank", a.ID)
	}
	if err := a.Priority.Validate(); err != nil {
		return err
	}
	if err := a.Trigger.Validate(); err != nil {
		return err
	}
	if len(a.Reminders) == 0 {
		return errs.New(errs.Validation, "constraint %s: reminders must not be empty", a.ID)
	}
	for i, r := range a.Reminders {
		if strings.TrimSpace(r) == "" {
			return errs.New(errs.Validation, "constraint %s: reminder %d is blank", a.ID, i)
		}
	}
	return nil
}

// CompositionType is the closed sum of composition strategies a composite
// constraint can use.
type CompositionType int

const (
	// Sequential orders component constraints as successive workflow steps.
	Sequential CompositionType = iota
	// Hierarchical orders component constraints by level then priority.
	Hierarchical
	// Progressive walks fixed 1..6 refactoring levels.
	Progressive
	// Layered enforces a user-defined layer dependency hierarchy.
	Layered
)

func (c CompositionType) String() string {
	switch c {
	case Sequential:
		return "sequential"
	case Hierarchical:
		return "hierarchical"
	case Progressive:
		return "progressive"
	case Layered:
		return "layered"
	default:
		return "unknown"
	}
}

// ConstraintReference holds a ConstraintId plus whatever composition
// metadata the owning composite's Type needs to drive its strategy;
// resolving the id into a concrete component is the resolver's job (spec
// §3). Sequential uses only ID, in declared order. Hierarchical and
// Layered use Level (and, for Layered, Name/AllowedDependencyLevels/
// NamespacePatterns). Progressive uses Level as the fixed 1..6 refactoring
// level the reference represents.
type ConstraintReference struct {
	ID Id
	// Level is the Hierarchical ordering level, the Progressive
	// refactoring level (1..6), or the Layered layer level, depending on
	// the owning composite's CompositionType.
	Level int
	// Name is the Layered layer's display name.
	Name string
	// AllowedDependencyLevels lists the layer levels this reference may
	// depend on (Layered only).
	AllowedDependencyLevels []int
	// NamespacePatterns are the namespace prefixes this layer owns,
	// e.g. "MyApp.Domain.*" (Layered only).
	NamespacePatterns []string
}

// CompositeConstraint coordinates several component constraints under one
// CompositionType.
type CompositeConstraint struct {
	ID         Id
	Title      string
	Priority   Priority
	Trigger    TriggerConfiguration
	Type       CompositionType
	References []ConstraintReference
}

// Validate enforces non-blank title, in-range priority, and a non-empty
// reference list. Reference resolvability is checked at library admission
// time, not here, since it depends on the library's current contents.
func (c CompositeConstraint) Validate() error {
	if err := c.ID.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Title) == "" {
		return errs.New(errs.Validation, "composite %s: title must not be blank", c.ID)
	}
	if err := c.Priority.Validate(); err != nil {
		return err
	}
	if err := c.Trigger.Validate(); err != nil {
		return err
	}
	if len(c.References) == 0 {
		return errs.New(errs.Validation, "composite %s: references must not be empty", c.ID)
	}
	return nil
}

// Constraint is the tagged variant over atomic and composite constraints
// (spec §9's re-architecture note): callers that need "any constraint"
// pattern-match on Kind rather than relying on an interface hierarchy.
type Constraint struct {
	Kind      ConstraintKind
	Atomic    *AtomicConstraint
	Composite *CompositeConstraint
}

// ConstraintKind discriminates the Constraint tagged variant.
type ConstraintKind int

const (
	// KindAtomic marks Constraint.Atomic as populated.
	KindAtomic ConstraintKind = iota
	// KindComposite marks Constraint.Composite as populated.
	KindComposite
)

// ID returns the identifier regardless of which variant is populated.
func (c Constraint) ID() Id {
	switch c.Kind {
	case KindAtomic:
		return c.Atomic.ID
	case KindComposite:
		return c.Composite.ID
	default:
		return ""
	}
}

// PriorityValue returns the priority regardless of which variant is populated.
func (c Constraint) PriorityValue() Priority {
	switch c.Kind {
	case KindAtomic:
		return c.Atomic.Priority
	case KindComposite:
		return c.Composite.Priority
	default:
		return 0
	}
}

// TriggerConfig returns the trigger configuration regardless of variant.
func (c Constraint) TriggerConfig() TriggerConfiguration {
	switch c.Kind {
	case KindAtomic:
		return c.Atomic.Trigger
	case KindComposite:
		return c.Composite.Trigger
	default:
		return TriggerConfiguration{}
	}
}

func (c Constraint) String() string {
	return fmt.Sprintf("Constraint(%s)", c.ID())
}
