// Package controller owns the pursuit state machine: a pure reducer over run
// state plus the Agent that holds the single mutable copy.
package controller

import (
	"time"

	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/mission"
	"github.com/vinayprograms/pursuit/internal/supervision"
)

// Status is the run status.
type Status = supervision.Status

const (
	StatusIdle    = supervision.StatusIdle
	StatusRunning = supervision.StatusRunning
	StatusPaused  = supervision.StatusPaused
	StatusSuccess = supervision.StatusSuccess
	StatusStopped = supervision.StatusStopped
)

// LogType classifies a log entry.
type LogType string

const (
	LogAnalysis    LogType = "analysis"
	LogPlan        LogType = "plan"
	LogAction      LogType = "action"
	LogObservation LogType = "observation"
	LogEvaluation  LogType = "evaluation"
	LogDecision    LogType = "decision"
)

// StepLogTypes is the fixed order of the entries a full step appends.
var StepLogTypes = []LogType{LogAnalysis, LogPlan, LogAction, LogObservation, LogEvaluation, LogDecision}

// LogEntry is one line of the run's reasoning trail.
type LogEntry struct {
	ID        string    `json:"id"`
	Type      LogType   `json:"type"`
	Iteration int       `json:"iteration"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SubgoalID string    `json:"subgoal_id,omitempty"`
}

// Reasons recorded when a run ends.
const (
	ReasonIterationCeiling = "iteration_ceiling"
	ReasonNoActiveSubgoal  = "no_active_subgoal"
)

// State is the aggregate root of a run.
type State struct {
	RunID             string            `json:"run_id,omitempty"`
	Goal              string            `json:"goal"`
	NormalizedGoal    string            `json:"normalized_goal"`
	Status            Status            `json:"status"`
	Iteration         int               `json:"iteration"`
	Subgoals          []mission.Subgoal `json:"subgoals"`
	Logs              []LogEntry        `json:"logs"`
	Assumptions       []string          `json:"assumptions"`
	Config            config.Loop       `json:"config"`
	StartedAt         *time.Time        `json:"started_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	StagnationCounter int               `json:"stagnation_counter"`
	// Reason names the rule that ended the run; empty while it is live.
	Reason string `json:"reason,omitempty"`
}

// Clone returns a deep copy that shares no slices or pointers with s.
func (s State) Clone() State {
	c := s
	if s.Subgoals != nil {
		c.Subgoals = append([]mission.Subgoal(nil), s.Subgoals...)
	}
	if s.Logs != nil {
		c.Logs = append([]LogEntry(nil), s.Logs...)
	}
	if s.Assumptions != nil {
		c.Assumptions = append([]string(nil), s.Assumptions...)
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// IsTerminal reports whether the run has ended.
func (s State) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// AllCompleted reports whether there is at least one subgoal and all are completed.
func (s State) AllCompleted() bool {
	if len(s.Subgoals) == 0 {
		return false
	}
	for _, sg := range s.Subgoals {
		if sg.Status != mission.StatusCompleted {
			return false
		}
	}
	return true
}

// ActiveIndex returns the subgoal to work on next: the first active one,
// else the first pending one, else -1.
func (s State) ActiveIndex() int {
	for i, sg := range s.Subgoals {
		if sg.Status == mission.StatusActive {
			return i
		}
	}
	for i, sg := range s.Subgoals {
		if sg.Status == mission.StatusPending {
			return i
		}
	}
	return -1
}

// Progress is the mean subgoal progress.
func (s State) Progress() float64 {
	if len(s.Subgoals) == 0 {
		return 0
	}
	var total float64
	for _, sg := range s.Subgoals {
		total += sg.Progress
	}
	return total / float64(len(s.Subgoals))
}

// Counts returns the number of subgoals per status.
func (s State) Counts() map[mission.Status]int {
	counts := make(map[mission.Status]int, 4)
	for _, sg := range s.Subgoals {
		counts[sg.Status]++
	}
	return counts
}
