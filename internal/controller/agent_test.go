package controller

import (
	"testing"

	"github.com/vinayprograms/pursuit/internal/config"
)

func TestAgent_Lifecycle(t *testing.T) {
	a := NewAgent(config.DefaultLoop(), testEnv(completingDraw))

	if s := a.State(); s.Status != StatusIdle || s.Config != config.DefaultLoop() {
		t.Fatalf("unexpected initial state %+v", s)
	}

	s := a.Initialize("Write a blog post.")
	if s.Status != StatusRunning {
		t.Fatalf("expected running, got %s", s.Status)
	}

	if s = a.Pause(); s.Status != StatusPaused {
		t.Errorf("expected paused, got %s", s.Status)
	}
	if s = a.Step(SourceScheduled); s.Iteration != 0 {
		t.Error("scheduled step must not run while paused")
	}
	if s = a.Step(SourceManual); s.Iteration != 1 || s.Status != StatusPaused {
		t.Errorf("manual step: iteration %d status %s", s.Iteration, s.Status)
	}
	if s = a.Resume(); s.Status != StatusRunning {
		t.Errorf("expected running, got %s", s.Status)
	}

	for i := 0; i < 20 && !s.IsTerminal(); i++ {
		s = a.Step(SourceScheduled)
	}
	if s.Status != StatusSuccess {
		t.Errorf("expected success, got %s", s.Status)
	}

	if s = a.Reset(""); s.Status != StatusIdle || len(s.Subgoals) != 0 {
		t.Errorf("expected bare idle state, got %+v", s)
	}
}

func TestAgent_StateIsACopy(t *testing.T) {
	a := NewAgent(config.DefaultLoop(), testEnv(0.5))
	a.Initialize("Write a blog post")

	s := a.State()
	s.Subgoals[0].Description = "changed"
	s.Logs = append(s.Logs, LogEntry{ID: "extra"})

	got := a.State()
	if got.Subgoals[0].Description == "changed" {
		t.Error("caller mutated agent subgoals")
	}
	if len(got.Logs) == len(s.Logs) {
		t.Error("caller mutated agent logs")
	}
}

func TestAgent_Restore(t *testing.T) {
	src := NewAgent(config.DefaultLoop(), testEnv(0.5))
	src.Initialize("Research the market then launch a campaign")
	src.Step(SourceScheduled)
	snapshot := src.Pause()

	dst := NewAgent(config.Loop{MaxIterations: 1}, testEnv(0.5))
	dst.Restore(snapshot)

	got := dst.State()
	if got.RunID != snapshot.RunID || got.Iteration != 1 || got.Status != StatusPaused {
		t.Errorf("restore lost state: %+v", got)
	}
	if got.Config != snapshot.Config {
		t.Error("restore should carry the run configuration")
	}

	dst.Resume()
	s := dst.Step(SourceScheduled)
	if s.Iteration != 2 {
		t.Errorf("expected to continue from iteration 1, got %d", s.Iteration)
	}
}

func TestAgent_UpdateConfigAndDispatch(t *testing.T) {
	a := NewAgent(config.DefaultLoop(), testEnv(0.5))
	a.Initialize("Plan the quarter")

	s := a.UpdateConfig(config.LoopPatch{MaxIterations: intPtr(1)})
	if s.Config.MaxIterations != 1 {
		t.Fatalf("expected max iterations 1, got %d", s.Config.MaxIterations)
	}
	a.Dispatch(Step{Source: SourceScheduled})
	s = a.Dispatch(Step{Source: SourceScheduled})
	if s.Status != StatusStopped || s.Reason != ReasonIterationCeiling {
		t.Errorf("expected ceiling stop, got %s (%s)", s.Status, s.Reason)
	}
}

func TestDefaultEnv(t *testing.T) {
	env := DefaultEnv(99)
	if env.Now == nil || env.Rand == nil || env.NewID == nil || env.Strategies == nil {
		t.Fatal("DefaultEnv left fields unset")
	}
	if env.NewID() == env.NewID() {
		t.Error("ids should be unique")
	}
	if a, b := DefaultEnv(5).Rand.Float64(), DefaultEnv(5).Rand.Float64(); a != b {
		t.Error("same seed should give the same draws")
	}
}
