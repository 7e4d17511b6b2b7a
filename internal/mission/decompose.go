package mission

import (
	"regexp"
	"strings"
	"time"
)

// fragmentSeparator splits a line into sentence-like fragments: periods,
// semicolons and the whole words then/and/after/next.
var fragmentSeparator = regexp.MustCompile(`(?i)[.;]|\b(?:then|and|after|next)\b`)

// Fragments returns the ordered, trimmed, de-duplicated fragments of a
// normalized goal. Duplicates are compared on the exact trimmed text and the
// first occurrence wins. A goal that yields no fragment falls back to itself.
func Fragments(normalized string) []string {
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(normalized, "\n") {
		for _, part := range fragmentSeparator.Split(line, -1) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}

	if len(out) == 0 {
		return []string{normalized}
	}
	return out
}

// Decompose builds one pending subgoal per fragment of the normalized goal, in
// goal order. Empty input yields no subgoals.
func Decompose(normalized string, newID IDFunc, now time.Time) []Subgoal {
	fragments := Fragments(normalized)
	if len(fragments) == 0 {
		return nil
	}

	subgoals := make([]Subgoal, 0, len(fragments))
	for _, description := range fragments {
		subgoals = append(subgoals, Subgoal{
			ID:          newID(),
			Description: description,
			Status:      StatusPending,
			LastUpdated: now,
		})
	}
	return subgoals
}
