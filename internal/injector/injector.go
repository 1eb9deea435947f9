// Package injector formats the reminder payload spliced into a tool call's
// response (spec §4.7).
package injector

import (
	"fmt"
	"strings"
)

// Anchors are the pack-supplied prologue/epilogue constants framing the
// reminder bullets.
type Anchors struct {
	Prologue string
	Epilogue string
}

// Format renders the constraint payload for interaction number n. If
// reminders is empty, the bullet block and its surrounding blank line are
// omitted. Trailing whitespace is trimmed before returning.
func Format(n int, anchors Anchors, reminders []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tool call %d processed. CONSTRAINT:\n\n", n)
	fmt.Fprintf(&b, "Remember: %s\n", anchors.Prologue)
	if len(reminders) > 0 {
		b.WriteString("\n")
		for _, r := range reminders {
			fmt.Fprintf(&b, "• %s\n", r)
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Before commit: %s", anchors.Epilogue)
	return strings.TrimRight(b.String(), " \t\n")
}
