package constraint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
)

func TestIDValidateRejectsBlank(t *testing.T) {
	t.Parallel()
	assert.Error(t, constraint.Id("  ").Validate())
	assert.NoError(t, constraint.Id("ok").Validate())
}

func TestPriorityValidateRange(t *testing.T) {
	t.Parallel()
	cases := []struct {
		p    constraint.Priority
		want bool
	}{
		{-0.01, false},
		{0, true},
		{0.5, true},
		{1, true},
		{1.01, false},
	}
	for _, tc := range cases {
		err := tc.p.Validate()
		if tc.want {
			assert.NoError(t, err, "priority %v", tc.p)
		} else {
			assert.Error(t, err, "priority %v", tc.p)
		}
	}
}

func TestAtomicConstraintValidate(t *testing.T) {
	t.Parallel()

	valid := constraint.AtomicConstraint{
		ID: "a", Title: "A title", Priority: 0.5, Reminders: []string{"do it"},
	}
	assert.NoError(t, valid.Validate())

	blankTitle := valid
	blankTitle.Title = "  "
	assert.Error(t, blankTitle.Validate())

	noReminders := valid
	noReminders.Reminders = nil
	assert.Error(t, noReminders.Validate())

	blankReminder := valid
	blankReminder.Reminders = []string{" "}
	assert.Error(t, blankReminder.Validate())
}

func TestCompositeConstraintValidateRequiresReferences(t *testing.T) {
	t.Parallel()
	c := constraint.CompositeConstraint{ID: "c", Title: "C", Priority: 0.5, Type: constraint.Sequential}
	assert.Error(t, c.Validate())

	c.References = []constraint.ConstraintReference{{ID: "x"}}
	assert.NoError(t, c.Validate())
}

func TestConstraintVariantAccessors(t *testing.T) {
	t.Parallel()

	atomic := constraint.AtomicConstraint{ID: "a", Title: "A", Priority: 0.7, Reminders: []string{"r"}}
	c := constraint.Constraint{Kind: constraint.KindAtomic, Atomic: &atomic}
	assert.Equal(t, constraint.Id("a"), c.ID())
	assert.Equal(t, constraint.Priority(0.7), c.PriorityValue())

	composite := constraint.CompositeConstraint{ID: "c", Title: "C", Priority: 0.3, References: []constraint.ConstraintReference{{ID: "a"}}}
	cc := constraint.Constraint{Kind: constraint.KindComposite, Composite: &composite}
	assert.Equal(t, constraint.Id("c"), cc.ID())
	assert.Equal(t, constraint.Priority(0.3), cc.PriorityValue())
}

func TestCompositionTypeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "sequential", constraint.Sequential.String())
	assert.Equal(t, "hierarchical", constraint.Hierarchical.String())
	assert.Equal(t, "progressive", constraint.Progressive.String())
	assert.Equal(t, "layered", constraint.Layered.String())
}
