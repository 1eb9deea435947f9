package constraint

import "strings"

// MatchFilePattern matches path against one of the glob shapes the
// trigger configuration supports (spec §3): a leading "*prefix", a trailing
// "suffix*", or a single embedded "*" splitting the pattern into a prefix
// and suffix that must both match. A pattern that both starts and ends with
// its only two stars ("*infix*") matches any path containing the infix. A
// pattern with no "*" requires an exact match.
//
// This is intentionally not routed through a directory-aware glob matcher:
// the grammar treats the file path as a flat string, and a "*" is expected
// to match across "/" (e.g. "*test*" must match "src/test_foo.go"). A
// path-separator-aware matcher would reject that, so a direct
// prefix/suffix implementation is used instead.
func MatchFilePattern(pattern, path string) bool {
	if len(pattern) >= 2 && strings.Count(pattern, "*") == 2 &&
		strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") {
		return strings.Contains(path, pattern[1:len(pattern)-1])
	}
	star := strings.IndexByte(pattern, '*')
	if star < 0 {
		return pattern == path
	}
	prefix := pattern[:star]
	suffix := pattern[star+1:]
	if len(path) < len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
}

// MatchAnyFilePattern reports whether any pattern matches path.
func MatchAnyFilePattern(patterns []string, path string) bool {
	for _, p := range patterns {
		if MatchFilePattern(p, path) {
			return true
		}
	}
	return false
}
