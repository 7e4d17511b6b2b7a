package controller

import (
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/pursuit/internal/executor"
	"github.com/vinayprograms/pursuit/internal/mission"
	"github.com/vinayprograms/pursuit/internal/strategy"
	"github.com/vinayprograms/pursuit/internal/supervision"
)

// Reduce applies ev to s and returns the next state. It never modifies s and
// the result shares no memory with it. Events that do not apply to the
// current status return an unchanged copy.
func Reduce(s State, ev Event, env Env) State {
	env = env.complete()
	next := s.Clone()

	switch e := ev.(type) {
	case Initialize:
		return initialize(next, e.Goal, env)
	case Start:
		return start(next, env)
	case Pause:
		if next.Status == StatusRunning {
			next.Status = StatusPaused
		}
	case Resume:
		if next.Status == StatusPaused {
			next.Status = StatusRunning
		}
	case Reset:
		return reset(next, e.Goal, env)
	case Step:
		return step(next, e.Source, env)
	case UpdateConfig:
		next.Config = next.Config.Merge(e.Patch)
	}
	return next
}

// seed builds a fresh idle run for goal, keeping only the configuration.
func seed(prev State, goal string, env Env) State {
	g := mission.NewGoal(goal)
	s := State{Status: StatusIdle, Config: prev.Config}
	if g.IsEmpty() {
		return s
	}
	now := env.Now()
	s.RunID = env.NewID()
	s.Goal = g.Raw
	s.NormalizedGoal = g.Normalized
	s.Subgoals = mission.Decompose(g.Normalized, env.NewID, now)
	s.Assumptions = mission.DeriveAssumptions(g.Normalized)
	return s
}

func initialize(prev State, goal string, env Env) State {
	s := seed(prev, goal, env)
	if s.NormalizedGoal == "" {
		return s
	}
	return launch(s, env)
}

func reset(prev State, goal string, env Env) State {
	return seed(prev, goal, env)
}

func start(s State, env Env) State {
	if s.Status != StatusIdle || s.NormalizedGoal == "" || len(s.Subgoals) == 0 {
		return s
	}
	return launch(s, env)
}

// launch moves a seeded idle run to running and emits the kickoff entries.
func launch(s State, env Env) State {
	now := env.Now()
	s.Status = StatusRunning
	s.StartedAt = &now

	descriptions := make([]string, len(s.Subgoals))
	for i, sg := range s.Subgoals {
		descriptions[i] = fmt.Sprintf("%d) %s", i+1, sg.Description)
	}
	s.appendLog(env, now, LogAnalysis, "", fmt.Sprintf(
		"Mission accepted: %q. Decomposed into %d subgoal(s): %s.",
		s.NormalizedGoal, len(s.Subgoals), strings.Join(descriptions, "; ")))

	if len(s.Assumptions) > 0 {
		s.appendLog(env, now, LogDecision, "", "Operating assumptions: "+strings.Join(s.Assumptions, " | "))
	}
	return s
}

func step(s State, src Source, env Env) State {
	throughPause := s.Status == StatusPaused && src == SourceManual
	if s.Status != StatusRunning && !throughPause {
		return s
	}
	if s.NormalizedGoal == "" {
		return s
	}

	now := env.Now()
	s.Iteration++

	if s.Iteration > s.Config.MaxIterations {
		status := StatusStopped
		content := fmt.Sprintf("Iteration ceiling reached (%d > %d) with work outstanding. Stopping.", s.Iteration, s.Config.MaxIterations)
		if s.AllCompleted() {
			status = StatusSuccess
			content = fmt.Sprintf("Iteration ceiling reached (%d > %d); every subgoal is complete.", s.Iteration, s.Config.MaxIterations)
		}
		s.appendLog(env, now, LogDecision, "", content)
		return finish(s, status, ReasonIterationCeiling, now)
	}

	idx := s.ActiveIndex()
	if idx < 0 {
		s.appendLog(env, now, LogDecision, "", "No pending or active subgoals remain. Closing the run as successful.")
		return finish(s, StatusSuccess, ReasonNoActiveSubgoal, now)
	}

	sg := s.Subgoals[idx]
	if sg.Status == mission.StatusPending {
		sg.Status = mission.StatusActive
	}

	plan := strategy.Synthesize(env.Strategies, sg, s.Assumptions, s.Config.AllowAssumptions)
	out := executor.New(env.Rand).Attempt(sg, plan, s.Config, now)

	s.appendLog(env, now, LogAnalysis, sg.ID, analysisText(s, idx, sg))
	s.appendLog(env, now, LogPlan, sg.ID, planText(plan))
	s.appendLog(env, now, LogAction, sg.ID, out.Action)
	s.appendLog(env, now, LogObservation, sg.ID, out.Observation)
	s.appendLog(env, now, LogEvaluation, sg.ID, out.Evaluation)
	s.appendLog(env, now, LogDecision, sg.ID, out.Decision)

	s.Subgoals[idx] = out.Subgoal

	if out.Delta > 0 {
		s.StagnationCounter = 0
	} else {
		s.StagnationCounter++
	}

	verdict := supervision.Resolve(supervision.Input{
		Current:           s.Status,
		ThroughPause:      throughPause,
		Escalated:         out.Escalated,
		AllCompleted:      s.AllCompleted(),
		Stagnation:        s.StagnationCounter,
		MaxIdleIterations: s.Config.MaxIdleIterations,
	})
	if verdict.Terminal() {
		return finish(s, verdict.Status, string(verdict.Trigger), now)
	}
	s.Status = verdict.Status
	return s
}

func finish(s State, status Status, reason string, now time.Time) State {
	s.Status = status
	s.Reason = reason
	s.CompletedAt = &now
	return s
}

func (s *State) appendLog(env Env, now time.Time, typ LogType, subgoalID, content string) {
	s.Logs = append(s.Logs, LogEntry{
		ID:        env.NewID(),
		Type:      typ,
		Iteration: s.Iteration,
		Content:   content,
		Timestamp: now,
		SubgoalID: subgoalID,
	})
}

func analysisText(s State, idx int, sg mission.Subgoal) string {
	return fmt.Sprintf("Iteration %d: focusing on subgoal %d/%d %q (progress %.0f%%, %d prior attempt(s), %d idle).",
		s.Iteration, idx+1, len(s.Subgoals), sg.Description, sg.Progress*100, sg.Attempts, sg.IdleCounter)
}

func planText(p strategy.Plan) string {
	if p.HasAssumption() {
		return p.Summary + ". Assumption: " + p.Assumption
	}
	return p.Summary + "."
}
