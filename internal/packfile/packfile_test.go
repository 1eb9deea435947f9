package packfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/packfile"
)

func writeTempPack(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const validPackYAML = `
version: "1.0.0"
anchor_prologue: "write the failing test first"
anchor_epilogue: "all tests are green"
constraints:
  - id: tdd.red-first
    title: Red before green
    priority: 0.9
    phases: ["red"]
    reminders:
      - write the smallest failing test
  - id: tdd.green-minimal
    title: Minimal to pass
    priority: 0.8
    phases: ["green"]
    reminders:
      - write only enough code to pass
`

func TestLoadParsesValidPack(t *testing.T) {
	t.Parallel()
	path := writeTempPack(t, validPackYAML)

	pack, err := packfile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", pack.Version)
	require.Len(t, pack.Constraints, 2)
	assert.Equal(t, "tdd.red-first", pack.Constraints[0].ID)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	t.Parallel()
	_, err := packfile.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	t.Parallel()
	path := writeTempPack(t, "version: [unterminated")
	_, err := packfile.Load(path)
	assert.Error(t, err)
}

func TestAdmitLoadsConstraintsIntoLibrary(t *testing.T) {
	t.Parallel()
	path := writeTempPack(t, validPackYAML)
	pack, err := packfile.Load(path)
	require.NoError(t, err)

	lib := constraint.NewLibrary(pack.Version, "test pack")
	require.NoError(t, packfile.Admit(lib, pack))
	assert.Len(t, lib.All(), 2)
}

func TestAdmitRejectsDuplicateID(t *testing.T) {
	t.Parallel()
	pack := packfile.Pack{
		Version: "1.0.0",
		Constraints: []packfile.PackConstraint{
			{ID: "dup", Title: "A", Phases: []string{"red"}, Reminders: []string{"r"}},
			{ID: "dup", Title: "B", Phases: []string{"green"}, Reminders: []string{"r"}},
		},
	}
	lib := constraint.NewLibrary(pack.Version, "test pack")
	err := packfile.Admit(lib, pack)
	assert.Error(t, err)
}

func TestAdmitRejectsBlankID(t *testing.T) {
	t.Parallel()
	pack := packfile.Pack{
		Version:     "1.0.0",
		Constraints: []packfile.PackConstraint{{ID: "", Phases: []string{"red"}, Reminders: []string{"r"}}},
	}
	lib := constraint.NewLibrary(pack.Version, "test pack")
	assert.Error(t, packfile.Admit(lib, pack))
}

func TestAdmitRejectsEmptyPhases(t *testing.T) {
	t.Parallel()
	pack := packfile.Pack{
		Version:     "1.0.0",
		Constraints: []packfile.PackConstraint{{ID: "x", Phases: nil, Reminders: []string{"r"}}},
	}
	lib := constraint.NewLibrary(pack.Version, "test pack")
	assert.Error(t, packfile.Admit(lib, pack))
}

func TestAdmitRejectsEmptyReminders(t *testing.T) {
	t.Parallel()
	pack := packfile.Pack{
		Version:     "1.0.0",
		Constraints: []packfile.PackConstraint{{ID: "x", Phases: []string{"red"}, Reminders: nil}},
	}
	lib := constraint.NewLibrary(pack.Version, "test pack")
	assert.Error(t, packfile.Admit(lib, pack))
}

func TestAnchorsFallsBackToDefaultsWhenBlank(t *testing.T) {
	t.Parallel()
	pack := packfile.Pack{Version: "1.0.0"}
	anchors := pack.Anchors()
	assert.NotEmpty(t, anchors.Prologue)
	assert.NotEmpty(t, anchors.Epilogue)
}

func TestAnchorsUsesPackSuppliedText(t *testing.T) {
	t.Parallel()
	pack := packfile.Pack{Version: "1.0.0", AnchorPrologue: "custom prologue", AnchorEpilogue: "custom epilogue"}
	anchors := pack.Anchors()
	assert.Equal(t, "custom prologue", anchors.Prologue)
	assert.Equal(t, "custom epilogue", anchors.Epilogue)
}

func TestPhaseContextBuildsWorkflowCategory(t *testing.T) {
	t.Parallel()
	ctx := packfile.PhaseContext("red")
	assert.Equal(t, "workflow", ctx.Category)
	assert.Equal(t, "red", ctx.Value)
	assert.InDelta(t, 0.8, ctx.Priority, 1e-9)
}
