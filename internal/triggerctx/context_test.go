package triggerctx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/constraintmcp/constraint-mcp/internal/triggerctx"
)

func TestExtractKeywordsLowercasesSplitsDedupes(t *testing.T) {
	t.Parallel()
	got := triggerctx.ExtractKeywords("Create_NewFile.go/path-Test test")
	assert.Equal(t, []string{"create", "newfile", "path", "test"}, got)
}

func TestExtractKeywordsDropsShortTokens(t *testing.T) {
	t.Parallel()
	got := triggerctx.ExtractKeywords("a ab abc")
	assert.Equal(t, []string{"abc"}, got)
}

func TestFromToolCallMethodShortcut(t *testing.T) {
	t.Parallel()
	now := time.Unix(0, 0)
	ctx := triggerctx.FromToolCall("tools/implement_feature", nil, "sess-1", now)
	assert.Equal(t, "implement", ctx.Keywords[0])
}

func TestFromToolCallFallsBackToFinalSegment(t *testing.T) {
	t.Parallel()
	now := time.Unix(0, 0)
	ctx := triggerctx.FromToolCall("resources/list", nil, "sess-1", now)
	assert.Equal(t, "list", ctx.Keywords[0])
}

func TestFromToolCallExcludesSessionParams(t *testing.T) {
	t.Parallel()
	now := time.Unix(0, 0)
	ctx := triggerctx.FromToolCall("tools/call", []string{"session-42", "src/foo.go"}, "sess-1", now)
	assert.Equal(t, "src/foo.go", ctx.FilePath)
	assert.NotContains(t, ctx.Keywords, "session")
	assert.NotContains(t, ctx.Keywords, "42")
}

func TestClassifyPrecedence(t *testing.T) {
	t.Parallel()
	now := time.Unix(0, 0)

	cases := []struct {
		name   string
		method string
		params []string
		want   string
	}{
		{"refactor keyword wins first", "refactor_clean_test_create", nil, "refactoring"},
		{"writing+test co-occurrence", "writing_unit_tests", nil, "testing"},
		{"file path test excluding utils", "tools/call", []string{"src/test_helpers.go"}, "testing"},
		{"file path test but utils excluded", "tools/call", []string{"utils/latest_build.go"}, "unknown"},
		{"implement keyword", "implement_widget", nil, "feature_development"},
		{"src path", "tools/call", []string{"src/widget.go"}, "feature_development"},
		{"bare test keyword", "validate_schema", nil, "testing"},
		{"improve keyword", "improve_perf", nil, "refactoring"},
		{"no signal", "noop", nil, "unknown"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := triggerctx.FromToolCall(tc.method, tc.params, "sess", now)
			assert.Equal(t, tc.want, ctx.ContextType, "method=%s params=%v", tc.method, tc.params)
		})
	}
}

func TestJoinedKeywords(t *testing.T) {
	t.Parallel()
	ctx := triggerctx.Context{Keywords: []string{"Foo", "Bar"}}
	assert.Equal(t, "foo bar", ctx.JoinedKeywords())
}

func TestFromTextEmptyYieldsNoKeywords(t *testing.T) {
	t.Parallel()
	ctx := triggerctx.FromText("", "sess", time.Unix(0, 0))
	assert.Empty(t, ctx.Keywords)
	assert.Equal(t, "unknown", ctx.ContextType)
}
