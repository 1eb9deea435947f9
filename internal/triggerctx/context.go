// Package triggerctx builds a TriggerContext from an MCP tools/call
// invocation or free-form user text (spec §4.4).
package triggerctx

import (
	"strings"
	"time"
)

// Context is the immutable, per-request TriggerContext of spec §3.
type Context struct {
	Keywords    []string
	FilePath    string
	ContextType string
	Metadata    map[string]any
	Timestamp   time.Time
	SessionID   string
	// WorkflowState is the owning session's current phase name (e.g.
	// "red"/"green"/"refactor"), set by the dispatcher after
	// construction; it is the axis phase-bound constraints match
	// against (spec §6), distinct from the auto-classified ContextType.
	WorkflowState string
}

var splitChars = []rune{' ', '_', '.', '/', '\\', '-'}

func isSplitChar(r rune) bool {
	for _, c := range splitChars {
		if r == c {
			return true
		}
	}
	return false
}

// ExtractKeywords lower-cases the input, splits on the configured
// separator set, keeps tokens longer than 2 characters, and deduplicates
// while preserving first-seen order.
func ExtractKeywords(input string) []string {
	lower := strings.ToLower(input)
	fields := strings.FieldsFunc(lower, isSplitChar)
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

var methodShortcutKeywords = []string{"test", "create", "implement"}

// keywordsFromMethod applies the method-name heuristic: a recognised
// substring becomes the first keyword, otherwise the final slash segment is
// used, followed by the regular keyword extraction over the whole method
// name.
func keywordsFromMethod(method string) []string {
	lower := strings.ToLower(method)
	var first string
	for _, shortcut := range methodShortcutKeywords {
		if strings.Contains(lower, shortcut) {
			first = shortcut
			break
		}
	}
	if first == "" {
		segments := strings.Split(method, "/")
		first = strings.ToLower(segments[len(segments)-1])
	}
	rest := ExtractKeywords(method)
	out := make([]string, 0, len(rest)+1)
	out = append(out, first)
	seen := map[string]struct{}{first: {}}
	for _, k := range rest {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// containsSession reports whether s contains "session", case-insensitive.
func containsSession(s string) bool {
	return strings.Contains(strings.ToLower(s), "session")
}

// FromToolCall builds a Context from an MCP tools/call method name and its
// positional string parameters. Parameters containing "session"
// (case-insensitive) are excluded from keyword extraction per spec §4.4.
func FromToolCall(method string, params []string, sessionID string, now time.Time) Context {
	keywords := keywordsFromMethod(method)

	var filePath string
	for _, p := range params {
		if containsSession(p) {
			continue
		}
		if filePath == "" {
			filePath = p
		}
		keywords = appendUnique(keywords, ExtractKeywords(p)...)
	}

	ctx := Context{
		Keywords:  keywords,
		FilePath:  filePath,
		Timestamp: now,
		SessionID: sessionID,
	}
	ctx.ContextType = classify(ctx)
	return ctx
}

// FromText builds a Context from free-form user text.
func FromText(text string, sessionID string, now time.Time) Context {
	ctx := Context{
		Keywords:  ExtractKeywords(text),
		Timestamp: now,
		SessionID: sessionID,
	}
	ctx.ContextType = classify(ctx)
	return ctx
}

func appendUnique(existing []string, more ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[e] = struct{}{}
	}
	out := existing
	for _, m := range more {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func hasKeyword(keywords []string, want ...string) bool {
	for _, k := range keywords {
		for _, w := range want {
			if k == w {
				return true
			}
		}
	}
	return false
}

func pathContains(path, substr string) bool {
	return path != "" && strings.Contains(strings.ToLower(path), substr)
}

// classify applies the first-rule-wins context-type classification of spec
// §4.4.
func classify(ctx Context) string {
	switch {
	case hasKeyword(ctx.Keywords, "refactor", "clean"):
		return "refactoring"
	case hasKeyword(ctx.Keywords, "writing", "creating") && hasKeyword(ctx.Keywords, "test", "tests", "unit"):
		return "testing"
	case pathContains(ctx.FilePath, "test") && !pathContains(ctx.FilePath, "utils"):
		return "testing"
	case hasKeyword(ctx.Keywords, "implement", "feature", "develop") ||
		(pathContains(ctx.FilePath, "src/") && !pathContains(ctx.FilePath, "utils")):
		return "feature_development"
	case hasKeyword(ctx.Keywords, "test", "tests", "unit", "validate"):
		return "testing"
	case hasKeyword(ctx.Keywords, "improve"):
		return "refactoring"
	default:
		return "unknown"
	}
}

// JoinedKeywords returns the context's keywords joined with spaces,
// lower-cased, for substring-based matching by the trigger matcher.
func (c Context) JoinedKeywords() string {
	return strings.ToLower(strings.Join(c.Keywords, " "))
}
