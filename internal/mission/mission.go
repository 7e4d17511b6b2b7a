// Package mission turns a free-text mission statement into subgoals and
// operating assumptions.
package mission

import (
	"regexp"
	"strings"
	"time"
)

// Status is the lifecycle state of a subgoal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusBlocked   Status = "blocked"
)

// IsDone reports whether the subgoal can no longer be worked on.
func (s Status) IsDone() bool {
	return s == StatusCompleted || s == StatusBlocked
}

// Subgoal is one decomposed unit of the mission.
type Subgoal struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Progress    float64   `json:"progress"`     // 0..1, never decreases
	Attempts    int       `json:"attempts"`     // never decreases
	IdleCounter int       `json:"idle_counter"` // consecutive attempts below the noise floor
	Notes       string    `json:"notes,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// Goal is a mission statement and its normalized form.
type Goal struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

// NewGoal normalizes raw into a Goal.
func NewGoal(raw string) Goal {
	return Goal{Raw: raw, Normalized: Normalize(raw)}
}

// IsEmpty reports whether nothing is left after normalization.
func (g Goal) IsEmpty() bool {
	return g.Normalized == ""
}

// IDFunc generates identifiers that are unique within a run.
type IDFunc func() string

var horizontalSpace = regexp.MustCompile(`[ \t\f\v\r]+`)

// Normalize collapses runs of horizontal whitespace, trims every line, drops
// blank lines and trims the result. Line breaks are kept so that Decompose can
// split on them.
func Normalize(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
