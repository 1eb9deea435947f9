package constraint

import "testing"

func TestMatchFilePattern(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"exact match", "src/main.go", "src/main.go", true},
		{"exact mismatch", "src/main.go", "src/other.go", false},
		{"trailing star", "src/*", "src/main.go", true},
		{"trailing star mismatch prefix", "src/*", "test/main.go", false},
		{"leading star", "*_test.go", "pkg/foo_test.go", true},
		{"embedded star crosses separator", "*test*", "src/test_foo.go", true},
		{"embedded star no match", "*test*", "src/foo.go", false},
		{"star matches empty", "src/*.go", "src/.go", true},
		{"too short for prefix+suffix", "ab*cd", "ac", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := MatchFilePattern(tc.pattern, tc.path); got != tc.want {
				t.Errorf("MatchFilePattern(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
			}
		})
	}
}

func TestMatchAnyFilePattern(t *testing.T) {
	t.Parallel()

	patterns := []string{"*.md", "src/*_test.go"}
	if !MatchAnyFilePattern(patterns, "src/foo_test.go") {
		t.Error("expected a match against the second pattern")
	}
	if MatchAnyFilePattern(patterns, "src/foo.go") {
		t.Error("expected no match")
	}
	if MatchAnyFilePattern(nil, "anything") {
		t.Error("empty pattern list should never match")
	}
}
