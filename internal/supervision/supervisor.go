// Package supervision decides the run status after a step has been applied.
package supervision

// Status is the run-level status of a pursuit.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusSuccess Status = "success"
	StatusStopped Status = "stopped"
)

// IsTerminal reports whether no further step can change the run.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusStopped
}

// Trigger names the rule that produced a verdict.
type Trigger string

const (
	TriggerNone        Trigger = "none"
	TriggerEscalation  Trigger = "escalation"
	TriggerAllComplete Trigger = "all_complete"
	TriggerStagnation  Trigger = "stagnation"
)

// Input is everything the resolver looks at after a step.
type Input struct {
	Current Status
	// ThroughPause is set for a manual step taken while the run was paused.
	ThroughPause bool
	// Escalated is the simulator's stop signal for a blocked subgoal.
	Escalated         bool
	AllCompleted      bool
	Stagnation        int
	MaxIdleIterations int
}

// Verdict is the resolved status and the trigger that decided it.
type Verdict struct {
	Status  Status
	Trigger Trigger
}

// Terminal reports whether the verdict ends the run.
func (v Verdict) Terminal() bool {
	return v.Status.IsTerminal()
}

// Resolve applies the status rules in order. Later rules override earlier
// ones except that stagnation only applies while the run is still running.
func Resolve(in Input) Verdict {
	v := Verdict{Status: in.Current, Trigger: TriggerNone}

	if in.ThroughPause && v.Status == StatusPaused {
		v.Status = StatusRunning
	}

	if in.Escalated {
		v = Verdict{Status: StatusStopped, Trigger: TriggerEscalation}
	}

	if in.AllCompleted {
		v = Verdict{Status: StatusSuccess, Trigger: TriggerAllComplete}
	} else if v.Status == StatusRunning && in.Stagnation > 2*in.MaxIdleIterations {
		v = Verdict{Status: StatusStopped, Trigger: TriggerStagnation}
	}

	// A manual step through a pause leaves the run paused.
	if in.ThroughPause && v.Status == StatusRunning && v.Trigger == TriggerNone {
		v.Status = StatusPaused
	}

	return v
}
