// Package packfile loads a versioned constraint pack from YAML (spec §6)
// and admits it into a constraint.Library.
package packfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/injector"
)

// phasePriority is the hard-coded priority used when mapping a pack
// constraint's phases to UserDefinedContext values (spec §6, left as a
// fixed value per spec §9 Open Question 2).
const phasePriority = 0.8

// defaultPrologue and defaultEpilogue are used when a pack omits its own
// anchor text (SPEC_FULL.md supplement: spec §4.7 requires the anchors to
// exist but leaves their source to the pack).
const (
	defaultPrologue = "the constraint below applies to this step."
	defaultEpilogue = "confirm every reminder has been honored."
)

// Pack is the on-disk schema: a version string, the anchor prologue and
// epilogue framing every injection (spec §4.7), and a flat list of atomic
// constraints, each bound to one or more workflow phases.
type Pack struct {
	Version        string           `yaml:"version"`
	AnchorPrologue string           `yaml:"anchor_prologue"`
	AnchorEpilogue string           `yaml:"anchor_epilogue"`
	Constraints    []PackConstraint `yaml:"constraints"`
}

// Anchors returns the pack's anchor text, falling back to the walking-
// skeleton defaults when the pack leaves a field blank.
func (p Pack) Anchors() injector.Anchors {
	prologue, epilogue := p.AnchorPrologue, p.AnchorEpilogue
	if prologue == "" {
		prologue = defaultPrologue
	}
	if epilogue == "" {
		epilogue = defaultEpilogue
	}
	return injector.Anchors{Prologue: prologue, Epilogue: epilogue}
}

// PackConstraint is one entry of Pack.Constraints.
type PackConstraint struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Priority float64  `yaml:"priority"`
	Phases   []string `yaml:"phases"`
	// NextPhase, when set, is the workflow state name the session
	// transitions to after this constraint is injected (SPEC_FULL.md
	// supplement: the worked TDD red->green->refactor example needs some
	// mechanism to ever leave "red", and the pack is the natural owner
	// of what each of its own phases leads to).
	NextPhase string   `yaml:"next_phase"`
	Reminders []string `yaml:"reminders"`
}

// Load reads and parses a pack file. It does not validate or admit the
// constraints; call Admit for that.
func Load(path string) (Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, fmt.Errorf("read pack file: %w", err)
	}
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return Pack{}, fmt.Errorf("parse pack file: %w", err)
	}
	return pack, nil
}

// Admit validates every entry of pack and admits it into lib as an atomic
// constraint. Each phase becomes a Phases entry on the constraint's
// TriggerConfiguration: a dedicated axis the trigger matcher matches
// against the session's current workflow state name, distinct from the
// context-pattern axis (which matches the auto-classified ContextType).
// Duplicate ids are rejected by the library and Admit stops at the first
// failure, leaving lib exactly as admitted so far.
func Admit(lib *constraint.Library, pack Pack) error {
	for _, pc := range pack.Constraints {
		if pc.ID == "" {
			return fmt.Errorf("pack %s: constraint with blank id", pack.Version)
		}
		if len(pc.Phases) == 0 {
			return fmt.Errorf("pack %s: constraint %s: phases must not be empty", pack.Version, pc.ID)
		}
		if len(pc.Reminders) == 0 {
			return fmt.Errorf("pack %s: constraint %s: reminders must not be empty", pack.Version, pc.ID)
		}
		var metadata map[string]string
		if pc.NextPhase != "" {
			metadata = map[string]string{"next_phase": pc.NextPhase}
		}
		atomic := constraint.AtomicConstraint{
			ID:       constraint.Id(pc.ID),
			Title:    pc.Title,
			Priority: constraint.Priority(pc.Priority),
			Trigger: constraint.TriggerConfiguration{
				Phases: pc.Phases,
			},
			Reminders: pc.Reminders,
			Metadata:  metadata,
		}
		if err := lib.AddAtomic(atomic); err != nil {
			return fmt.Errorf("pack %s: constraint %s: %w", pack.Version, pc.ID, err)
		}
	}
	return nil
}

// PhaseContext builds the UserDefinedContext spec §6 describes for a
// workflow phase: category "workflow", the phase name as value, and the
// fixed priority 0.8.
func PhaseContext(phase string) constraint.UserDefinedContext {
	return constraint.UserDefinedContext{Category: "workflow", Value: phase, Priority: phasePriority}
}
