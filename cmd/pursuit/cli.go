package main

import (
	"time"

	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `short:"c" help:"Config file path (default: ./pursuit.toml)" type:"path"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Init     InitCmd     `cmd:"" help:"Create or edit pursuit.toml"`
	Run      RunCmd      `cmd:"" help:"Pursue a mission until it succeeds or stops"`
	Plan     PlanCmd     `cmd:"" help:"Show the decomposition and strategies without running"`
	Step     StepCmd     `cmd:"" help:"Perform manual steps on a checkpointed run"`
	Pause    PauseCmd    `cmd:"" help:"Pause a checkpointed run"`
	Resume   ResumeCmd   `cmd:"" help:"Resume a paused run"`
	Continue ContinueCmd `cmd:"" help:"Keep driving a checkpointed run"`
	Replay   ReplayCmd   `cmd:"" help:"Replay run transcripts"`
	Search   SearchCmd   `cmd:"" help:"Search archived log entries"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// InitCmd writes a config file.
type InitCmd struct {
	Defaults bool `help:"Write the defaults without prompting"`
}

// RunCmd drives a new run to a terminal state.
type RunCmd struct {
	Mission       []string      `arg:"" optional:"" help:"Mission statement"`
	File          string        `short:"f" name:"mission" help:"YAML mission file" type:"path"`
	MaxIterations int           `help:"Iteration ceiling (overrides config)"`
	MaxIdle       int           `default:"-1" help:"Idle attempts tolerated before escalation (overrides config)"`
	NoAssumptions bool          `help:"Do not surface operating assumptions in plans"`
	Seed          uint64        `help:"Random seed (0 = time-derived)"`
	Interval      time.Duration `help:"Delay between scheduled steps (overrides config)"`
	Manual        bool          `help:"Step on Enter instead of on a timer"`
	Verbose       int           `short:"v" type:"counter" help:"Verbosity level (-v, -vv)"`
}

// PlanCmd previews a mission.
type PlanCmd struct {
	Mission       []string `arg:"" optional:"" help:"Mission statement"`
	File          string   `short:"f" name:"mission" help:"YAML mission file" type:"path"`
	NoAssumptions bool     `help:"Do not surface operating assumptions"`
}

// StepCmd performs manual steps.
type StepCmd struct {
	RunID string `arg:"" help:"Run ID"`
	Count int    `short:"n" default:"1" help:"Number of steps"`
}

// PauseCmd pauses a run.
type PauseCmd struct {
	RunID string `arg:"" help:"Run ID"`
}

// ResumeCmd resumes a run.
type ResumeCmd struct {
	RunID string `arg:"" help:"Run ID"`
}

// ContinueCmd restores and drives a run.
type ContinueCmd struct {
	RunID    string        `arg:"" help:"Run ID"`
	Interval time.Duration `help:"Delay between scheduled steps (overrides config)"`
	Verbose  int           `short:"v" type:"counter" help:"Verbosity level (-v, -vv)"`
}

// ReplayCmd renders transcripts.
type ReplayCmd struct {
	Sessions []string `arg:"" help:"Transcript file(s) or run IDs (supports glob patterns)"`
	Verbose  int      `short:"v" type:"counter" help:"Verbosity level (-v, -vv)"`
	NoPager  bool     `help:"Disable pager for output"`
	Follow   bool     `short:"F" help:"Re-render as the transcript grows"`
}

// SearchCmd searches the archive.
type SearchCmd struct {
	Query []string `arg:"" optional:"" help:"Search text (empty lists entries)"`
	RunID string   `name:"run" help:"Only entries of this run"`
	Type  string   `help:"Only entries of this log type (analysis, plan, action, observation, evaluation, decision)"`
	Limit int      `short:"n" default:"10" help:"Maximum results"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
