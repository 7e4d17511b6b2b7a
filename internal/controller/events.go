package controller

import "github.com/vinayprograms/pursuit/internal/config"

// Source says who asked for a step.
type Source string

const (
	SourceScheduled Source = "scheduled"
	// SourceManual steps may also run while the run is paused.
	SourceManual Source = "manual"
)

// Event is an input to Reduce.
type Event interface {
	Name() string
}

// Initialize starts a fresh run for Goal. An empty goal yields an idle state.
type Initialize struct{ Goal string }

// Start launches an idle run that already has a goal.
type Start struct{}

// Pause moves running to paused.
type Pause struct{}

// Resume moves paused to running.
type Resume struct{}

// Reset discards the run. A non-empty Goal seeds a fresh idle run.
type Reset struct{ Goal string }

// Step advances the run by one iteration.
type Step struct{ Source Source }

// UpdateConfig merges Patch into the run configuration.
type UpdateConfig struct{ Patch config.LoopPatch }

func (Initialize) Name() string   { return "initialize" }
func (Start) Name() string        { return "start" }
func (Pause) Name() string        { return "pause" }
func (Resume) Name() string       { return "resume" }
func (Reset) Name() string        { return "reset" }
func (Step) Name() string         { return "step" }
func (UpdateConfig) Name() string { return "update_config" }
