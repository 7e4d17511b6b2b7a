package controller

import (
	"github.com/vinayprograms/agentkit/logging"

	"github.com/vinayprograms/pursuit/internal/config"
)

// Agent holds the single mutable copy of a run. It is not safe for
// concurrent use; the driver serializes access.
type Agent struct {
	state  State
	env    Env
	logger *logging.Logger
}

// NewAgent creates an idle agent with the given run configuration.
func NewAgent(cfg config.Loop, env Env) *Agent {
	return &Agent{
		state:  State{Status: StatusIdle, Config: cfg},
		env:    env.complete(),
		logger: logging.New().WithComponent("controller"),
	}
}

// Initialize starts a fresh run. An empty goal leaves the agent idle.
func (a *Agent) Initialize(goal string) State { return a.apply(Initialize{Goal: goal}) }

// Start launches a seeded idle run.
func (a *Agent) Start() State { return a.apply(Start{}) }

// Pause pauses a running run.
func (a *Agent) Pause() State { return a.apply(Pause{}) }

// Resume resumes a paused run.
func (a *Agent) Resume() State { return a.apply(Resume{}) }

// Reset discards the run and optionally seeds a new idle one.
func (a *Agent) Reset(goal string) State { return a.apply(Reset{Goal: goal}) }

// Step advances the run by one iteration.
func (a *Agent) Step(src Source) State { return a.apply(Step{Source: src}) }

// UpdateConfig merges patch into the run configuration.
func (a *Agent) UpdateConfig(patch config.LoopPatch) State {
	return a.apply(UpdateConfig{Patch: patch})
}

// Dispatch applies an arbitrary event.
func (a *Agent) Dispatch(ev Event) State { return a.apply(ev) }

// State returns a copy of the current state.
func (a *Agent) State() State {
	return a.state.Clone()
}

// Restore replaces the current state, typically with a checkpoint.
func (a *Agent) Restore(s State) {
	a.state = s.Clone()
	a.logger.Info("run restored", map[string]interface{}{
		"run_id":    s.RunID,
		"status":    string(s.Status),
		"iteration": s.Iteration,
	})
}

func (a *Agent) apply(ev Event) State {
	prev := a.state
	a.state = Reduce(prev, ev, a.env)
	a.logTransition(ev, prev, a.state)
	return a.state.Clone()
}

func (a *Agent) logTransition(ev Event, prev, next State) {
	if prev.Status != next.Status {
		fields := map[string]interface{}{
			"run_id":    next.RunID,
			"event":     ev.Name(),
			"from":      string(prev.Status),
			"to":        string(next.Status),
			"iteration": next.Iteration,
		}
		if next.Reason != "" {
			fields["reason"] = next.Reason
		}
		if next.IsTerminal() {
			a.logger.Info("run_finished", fields)
		} else {
			a.logger.Info("status_changed", fields)
		}
	}

	if len(next.Logs) > len(prev.Logs) && next.RunID == prev.RunID {
		a.logger.Debug("log entries appended", map[string]interface{}{
			"run_id":    next.RunID,
			"iteration": next.Iteration,
			"count":     len(next.Logs) - len(prev.Logs),
		})
	}
}
