package composition

import (
	"sort"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
)

// HierarchicalEntry is one member of a Hierarchical composition's universe.
type HierarchicalEntry struct {
	ID       constraint.Id
	Level    int
	Priority constraint.Priority
}

// Order returns entries sorted first by ascending level, then by
// descending priority within each level (spec §4.6). The strategy is
// stateless (spec §9 Open Question 3): there is no per-session state to
// advance, only an ordering over the universe.
func Order(entries []HierarchicalEntry) []HierarchicalEntry {
	out := make([]HierarchicalEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Priority > out[j].Priority
	})
	return out
}
