package errs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraintmcp/constraint-mcp/internal/errs"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	t.Run("NotFound", func(t *testing.T) {
		t.Parallel()
		err := errs.NotFound("missing.id")
		require.True(t, errs.Is(err, errs.ConstraintNotFound))
		assert.Equal(t, "missing.id", err.Detail)
	})

	t.Run("Circular", func(t *testing.T) {
		t.Parallel()
		chain := []string{"a", "b", "a"}
		err := errs.Circular(chain)
		require.True(t, errs.Is(err, errs.CircularReference))
		assert.Equal(t, chain, err.Detail)
	})

	t.Run("DanglingReferences", func(t *testing.T) {
		t.Parallel()
		err := errs.DanglingReferences([]string{"missing"})
		assert.True(t, errs.Is(err, errs.ConstraintReferenceValidation))
	})

	t.Run("InUse", func(t *testing.T) {
		t.Parallel()
		err := errs.InUse("x", []string{"y"})
		assert.True(t, errs.Is(err, errs.ConstraintInUse))
	})

	t.Run("WorkflowTransition", func(t *testing.T) {
		t.Parallel()
		err := errs.WorkflowTransition("green", "not-run")
		assert.True(t, errs.Is(err, errs.InvalidWorkflowTransition))
	})

	t.Run("Skip", func(t *testing.T) {
		t.Parallel()
		err := errs.Skip(errs.SystematicProgressionRequired)
		require.True(t, errs.Is(err, errs.SkipFailure))
		assert.Equal(t, errs.SystematicProgressionRequired, err.Detail)
	})
}

func TestIsFalseForNilAndForeignErrors(t *testing.T) {
	t.Parallel()

	assert.False(t, errs.Is(nil, errs.Validation))
	assert.False(t, errs.Is(assertError{}, errs.Validation))
}

type assertError struct{}

func (assertError) Error() string { return "not an errs.Error" }

func TestKindStringCoversEveryKind(t *testing.T) {
	t.Parallel()

	kinds := []errs.Kind{
		errs.Validation,
		errs.ConstraintNotFound,
		errs.CircularReference,
		errs.ConstraintReferenceValidation,
		errs.ConstraintInUse,
		errs.InvalidWorkflowTransition,
		errs.SkipFailure,
		errs.DeadlineExceeded,
		errs.ParseError,
		errs.MethodNotFound,
		errs.InternalError,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		assert.NotEqual(t, "Unknown", s)
		assert.False(t, seen[s], "duplicate String() for %v", k)
		seen[s] = true
	}
}

func TestErrorMessageFormatting(t *testing.T) {
	t.Parallel()

	withMsg := errs.New(errs.Validation, "field %s blank", "title")
	assert.Equal(t, "Validation: field title blank", withMsg.Error())

	bare := &errs.Error{Kind: errs.InternalError}
	assert.Equal(t, "InternalError", bare.Error())
}
