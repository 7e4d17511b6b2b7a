package controller

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/executor"
	"github.com/vinayprograms/pursuit/internal/mission"
	"github.com/vinayprograms/pursuit/internal/strategy"
)

var baseTime = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// testEnv returns an Env with a ticking clock, counter IDs and a fixed
// random sequence.
// completingDraw lifts a fresh subgoal to completion in seven attempts:
// 0.228, 0.419, 0.579, 0.713, 0.825, 0.923, 1. Draws near 1 overshoot into
// [0.95, 0.999), where no gain can clear the noise floor.
const completingDraw = 0.904

func testEnv(draws ...float64) Env {
	n := 0
	tick := 0
	return Env{
		Now: func() time.Time {
			tick++
			return baseTime.Add(time.Duration(tick) * time.Second)
		},
		Rand: executor.FixedSource(draws...),
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

func idle(cfg config.Loop) State {
	return State{Status: StatusIdle, Config: cfg}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestInitialize_NonEmpty(t *testing.T) {
	env := testEnv(0.5)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "  Write a blog post.  "}, env)

	if s.Status != StatusRunning {
		t.Errorf("expected running, got %s", s.Status)
	}
	if s.Iteration != 0 {
		t.Errorf("expected iteration 0, got %d", s.Iteration)
	}
	if len(s.Subgoals) != 1 {
		t.Fatalf("expected 1 subgoal, got %d", len(s.Subgoals))
	}
	if s.Subgoals[0].Description != "Write a blog post" {
		t.Errorf("unexpected description %q", s.Subgoals[0].Description)
	}
	if s.NormalizedGoal != "Write a blog post." {
		t.Errorf("unexpected normalized goal %q", s.NormalizedGoal)
	}
	if s.StartedAt == nil {
		t.Error("StartedAt should be set")
	}
	if s.RunID == "" {
		t.Error("RunID should be set")
	}

	// One analysis entry, plus one decision because the adaptive assumption fires.
	if len(s.Assumptions) != 1 || s.Assumptions[0] != mission.AssumptionAdaptive {
		t.Fatalf("unexpected assumptions %q", s.Assumptions)
	}
	if len(s.Logs) != 2 || s.Logs[0].Type != LogAnalysis || s.Logs[1].Type != LogDecision {
		t.Fatalf("unexpected kickoff logs %+v", s.Logs)
	}
	for _, l := range s.Logs {
		if l.Iteration != 0 || l.SubgoalID != "" {
			t.Errorf("kickoff entry should be untagged at iteration 0: %+v", l)
		}
	}
}

func TestInitialize_Empty(t *testing.T) {
	cfg := config.Loop{MaxIterations: 7, MaxIdleIterations: 1}
	for _, goal := range []string{"", "   ", "\n\t \n"} {
		s := Reduce(idle(cfg), Initialize{Goal: goal}, testEnv())
		if s.Status != StatusIdle {
			t.Errorf("%q: expected idle, got %s", goal, s.Status)
		}
		if len(s.Subgoals) != 0 || len(s.Logs) != 0 {
			t.Errorf("%q: expected no subgoals or logs", goal)
		}
		if s.Config != cfg {
			t.Errorf("%q: config should survive", goal)
		}
	}
}

func TestInitialize_DiscardsPreviousRun(t *testing.T) {
	env := testEnv(0.5)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Plan the quarter"}, env)
	s = Reduce(s, Step{Source: SourceScheduled}, env)
	s = Reduce(s, Initialize{Goal: "Write a blog post"}, env)

	if s.Iteration != 0 || len(s.Subgoals) != 1 || s.Subgoals[0].Attempts != 0 {
		t.Errorf("expected fresh run, got %+v", s)
	}
	if len(s.Logs) != 2 {
		t.Errorf("expected only kickoff logs, got %d", len(s.Logs))
	}
}

func TestPause_Idempotent(t *testing.T) {
	env := testEnv(0.5)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post"}, env)

	once := Reduce(s, Pause{}, env)
	twice := Reduce(once, Pause{}, env)

	if once.Status != StatusPaused {
		t.Fatalf("expected paused, got %s", once.Status)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Error("second pause changed the state")
	}
}

func TestPauseResume_MismatchedSource(t *testing.T) {
	env := testEnv(0.5)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post"}, env)

	if got := Reduce(s, Resume{}, env); got.Status != StatusRunning {
		t.Errorf("resume on running should be a no-op, got %s", got.Status)
	}
	if got := Reduce(idle(config.DefaultLoop()), Pause{}, env); got.Status != StatusIdle {
		t.Errorf("pause on idle should be a no-op, got %s", got.Status)
	}

	paused := Reduce(s, Pause{}, env)
	if got := Reduce(paused, Resume{}, env); got.Status != StatusRunning {
		t.Errorf("expected running after resume, got %s", got.Status)
	}
}

func TestStep_AppendsSixOrderedEntries(t *testing.T) {
	env := testEnv(0.5)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post."}, env)
	before := len(s.Logs)

	s = Reduce(s, Step{Source: SourceScheduled}, env)

	if s.Iteration != 1 {
		t.Errorf("expected iteration 1, got %d", s.Iteration)
	}
	added := s.Logs[before:]
	if len(added) != len(StepLogTypes) {
		t.Fatalf("expected %d entries, got %d", len(StepLogTypes), len(added))
	}
	for i, l := range added {
		if l.Type != StepLogTypes[i] {
			t.Errorf("entry %d: expected %s, got %s", i, StepLogTypes[i], l.Type)
		}
		if l.SubgoalID != s.Subgoals[0].ID {
			t.Errorf("entry %d not tagged with the subgoal", i)
		}
		if l.Iteration != 1 {
			t.Errorf("entry %d: expected iteration 1, got %d", i, l.Iteration)
		}
	}
	if !strings.HasPrefix(added[1].Content, strategy.Content.Label) {
		t.Errorf("plan entry should use the content strategy: %q", added[1].Content)
	}
	if s.Subgoals[0].Status != mission.StatusActive {
		t.Errorf("expected subgoal active, got %s", s.Subgoals[0].Status)
	}
	if s.Subgoals[0].Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", s.Subgoals[0].Attempts)
	}
}

func TestStep_ResearchThenLaunch(t *testing.T) {
	env := testEnv(completingDraw)
	cfg := config.Loop{MaxIterations: 50, AllowAssumptions: true, MaxIdleIterations: 3}
	s := Reduce(idle(cfg), Initialize{Goal: "Research the market then launch a campaign."}, env)

	if len(s.Subgoals) != 2 {
		t.Fatalf("expected 2 subgoals, got %d", len(s.Subgoals))
	}

	labels := map[string]string{}
	for i := 0; i < 50 && !s.IsTerminal(); i++ {
		s = Reduce(s, Step{Source: SourceScheduled}, env)
		for _, l := range s.Logs {
			if l.Type == LogPlan {
				if _, seen := labels[l.SubgoalID]; !seen {
					labels[l.SubgoalID] = l.Content
				}
			}
		}
	}

	if s.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", s.Status, s.Reason)
	}
	if !strings.HasPrefix(labels[s.Subgoals[0].ID], strategy.Research.Label) {
		t.Errorf("first subgoal plan %q should use research", labels[s.Subgoals[0].ID])
	}
	if !strings.HasPrefix(labels[s.Subgoals[1].ID], strategy.Execution.Label) {
		t.Errorf("second subgoal plan %q should use execution", labels[s.Subgoals[1].ID])
	}
}

func TestStep_NoopWhenNotRunning(t *testing.T) {
	env := testEnv(0.5)
	running := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post"}, env)
	paused := Reduce(running, Pause{}, env)
	seeded := Reduce(running, Reset{Goal: "Write a blog post"}, env)

	tests := []struct {
		name  string
		state State
		src   Source
	}{
		{"idle empty", idle(config.DefaultLoop()), SourceManual},
		{"idle seeded scheduled", seeded, SourceScheduled},
		{"idle seeded manual", seeded, SourceManual},
		{"paused scheduled", paused, SourceScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(tt.state, Step{Source: tt.src}, env)
			if !reflect.DeepEqual(got, tt.state) {
				t.Error("step should not change the state")
			}
		})
	}
}

func TestStep_ManualWhilePaused(t *testing.T) {
	env := testEnv(0.5)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post"}, env)
	s = Reduce(s, Pause{}, env)
	before := len(s.Logs)

	s = Reduce(s, Step{Source: SourceManual}, env)

	if s.Status != StatusPaused {
		t.Errorf("expected paused after manual step, got %s", s.Status)
	}
	if s.Iteration != 1 {
		t.Errorf("expected exactly one transformation, iteration %d", s.Iteration)
	}
	if len(s.Logs)-before != 6 {
		t.Errorf("expected 6 new entries, got %d", len(s.Logs)-before)
	}
	if s.CompletedAt != nil {
		t.Error("paused run should not have CompletedAt")
	}
}

func TestStep_ManualWhilePausedCanComplete(t *testing.T) {
	env := testEnv(completingDraw)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post"}, env)
	s = Reduce(s, Pause{}, env)
	for i := 0; i < 20 && !s.IsTerminal(); i++ {
		s = Reduce(s, Step{Source: SourceManual}, env)
		if !s.IsTerminal() && s.Status != StatusPaused {
			t.Fatalf("manual step unpaused the run: %s", s.Status)
		}
	}
	if s.Status != StatusSuccess {
		t.Errorf("expected success, got %s", s.Status)
	}
}

func TestStep_IterationCeiling(t *testing.T) {
	const n = 3
	env := testEnv(0)
	s := Reduce(idle(config.Loop{MaxIterations: n, MaxIdleIterations: 3}), Initialize{Goal: "Write a blog post"}, env)
	kickoff := len(s.Logs)

	for i := 0; i < n; i++ {
		s = Reduce(s, Step{Source: SourceScheduled}, env)
		if s.IsTerminal() {
			t.Fatalf("terminated early at step %d: %s", i+1, s.Reason)
		}
	}
	s = Reduce(s, Step{Source: SourceScheduled}, env)

	if s.Status != StatusStopped {
		t.Fatalf("expected stopped at the ceiling, got %s", s.Status)
	}
	if s.Reason != ReasonIterationCeiling {
		t.Errorf("expected ceiling reason, got %q", s.Reason)
	}
	if want := kickoff + n*6 + 1; len(s.Logs) != want {
		t.Errorf("expected %d logs, got %d", want, len(s.Logs))
	}
	if last := s.Logs[len(s.Logs)-1]; last.Type != LogDecision {
		t.Errorf("ceiling should append a decision, got %s", last.Type)
	}
	if s.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}

	after := Reduce(s, Step{Source: SourceScheduled}, env)
	if len(after.Logs) != len(s.Logs) || after.Iteration != s.Iteration {
		t.Error("step at a terminal state must not change the run")
	}
	after = Reduce(s, Step{Source: SourceManual}, env)
	if !reflect.DeepEqual(after, s) {
		t.Error("manual step at a terminal state must not change the run")
	}
}

func TestStep_CeilingWithAllCompleteIsSuccess(t *testing.T) {
	env := testEnv(0.5)
	s := State{
		RunID:          "r",
		Goal:           "x",
		NormalizedGoal: "x",
		Status:         StatusRunning,
		Iteration:      2,
		Subgoals:       []mission.Subgoal{{ID: "a", Status: mission.StatusCompleted, Progress: 1}},
		Config:         config.Loop{MaxIterations: 2},
	}
	s = Reduce(s, Step{Source: SourceScheduled}, env)
	if s.Status != StatusSuccess || s.Reason != ReasonIterationCeiling {
		t.Errorf("expected success at ceiling, got %s (%s)", s.Status, s.Reason)
	}
}

func TestStep_NoActiveSubgoal(t *testing.T) {
	env := testEnv(0.5)
	s := State{
		RunID:          "r",
		Goal:           "x",
		NormalizedGoal: "x",
		Status:         StatusRunning,
		Subgoals: []mission.Subgoal{
			{ID: "a", Status: mission.StatusCompleted, Progress: 1},
			{ID: "b", Status: mission.StatusBlocked, Progress: 0.4},
		},
		Config: config.DefaultLoop(),
	}
	s = Reduce(s, Step{Source: SourceScheduled}, env)
	if s.Status != StatusSuccess || s.Reason != ReasonNoActiveSubgoal {
		t.Errorf("expected success, got %s (%s)", s.Status, s.Reason)
	}
	if len(s.Logs) != 1 || s.Logs[0].Type != LogDecision {
		t.Errorf("expected a single decision entry, got %+v", s.Logs)
	}
}

func TestStep_Completion(t *testing.T) {
	env := testEnv(completingDraw)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post."}, env)

	for i := 0; i < 20 && !s.IsTerminal(); i++ {
		s = Reduce(s, Step{Source: SourceScheduled}, env)
	}

	if s.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", s.Status)
	}
	if s.Subgoals[0].Status != mission.StatusCompleted || s.Subgoals[0].Progress < 0.999 {
		t.Errorf("subgoal not completed: %+v", s.Subgoals[0])
	}
	if s.Subgoals[0].Notes != executor.NoteValidated {
		t.Errorf("expected validation note, got %q", s.Subgoals[0].Notes)
	}
	if s.Reason != "all_complete" {
		t.Errorf("expected all_complete, got %q", s.Reason)
	}
	if s.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
	if s.Iteration != 7 {
		t.Errorf("expected completion on iteration 7, got %d", s.Iteration)
	}
}

func TestStep_OvershootStallsAndEscalates(t *testing.T) {
	// 0.999 draws reach 0.969 after six attempts. From there the clamped gain
	// never exceeds the noise floor, so the run escalates instead of completing.
	env := testEnv(0.999)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post."}, env)

	for i := 0; i < 20 && !s.IsTerminal(); i++ {
		s = Reduce(s, Step{Source: SourceScheduled}, env)
	}

	if s.Status != StatusStopped || s.Reason != "escalation" {
		t.Fatalf("expected stopped by escalation, got %s (%s)", s.Status, s.Reason)
	}
	sg := s.Subgoals[0]
	if math.Abs(sg.Progress-0.969) > 1e-9 {
		t.Errorf("expected progress to stall at 0.969, got %v", sg.Progress)
	}
	if sg.Status != mission.StatusBlocked {
		t.Errorf("expected blocked, got %s", sg.Status)
	}
	if s.Iteration != 10 {
		t.Errorf("expected escalation on iteration 10, got %d", s.Iteration)
	}
}

func TestStep_IdleEscalation(t *testing.T) {
	// Two strong draws lift progress to 0.447, after which a zero draw
	// (gain 0.048) can no longer clear the noise floor.
	env := testEnv(0.999, 0.999, 0, 0, 0, 0, 0, 0)
	cfg := config.Loop{MaxIterations: 20, AllowAssumptions: true, MaxIdleIterations: 2}
	s := Reduce(idle(cfg), Initialize{Goal: "Write a blog post"}, env)

	for i := 0; i < 20 && !s.IsTerminal(); i++ {
		s = Reduce(s, Step{Source: SourceScheduled}, env)
	}

	if s.Status != StatusStopped {
		t.Fatalf("expected stopped, got %s", s.Status)
	}
	if s.Reason != "escalation" {
		t.Errorf("expected escalation, got %q", s.Reason)
	}
	sg := s.Subgoals[0]
	if sg.Status != mission.StatusBlocked {
		t.Errorf("expected blocked, got %s", sg.Status)
	}
	if sg.IdleCounter != cfg.MaxIdleIterations+1 {
		t.Errorf("expected idle %d, got %d", cfg.MaxIdleIterations+1, sg.IdleCounter)
	}
	if s.Iteration != 5 {
		t.Errorf("expected escalation on iteration 5, got %d", s.Iteration)
	}
	if s.StagnationCounter != 3 {
		t.Errorf("expected stagnation 3, got %d", s.StagnationCounter)
	}
}

func TestStep_AssumptionSurfacing(t *testing.T) {
	goal := "Launch the new onboarding flow"

	env := testEnv(0.5)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: goal}, env)
	s = Reduce(s, Step{Source: SourceScheduled}, env)
	if plan := findLast(s.Logs, LogPlan); !strings.Contains(plan.Content, mission.AssumptionTimeline) {
		t.Errorf("plan should surface the timeline assumption: %q", plan.Content)
	}

	env = testEnv(0.5)
	s = Reduce(idle(config.DefaultLoop()), Initialize{Goal: goal}, env)
	s = Reduce(s, UpdateConfig{Patch: config.LoopPatch{AllowAssumptions: boolPtr(false)}}, env)
	s = Reduce(s, Step{Source: SourceScheduled}, env)
	if plan := findLast(s.Logs, LogPlan); strings.Contains(plan.Content, "Assumption:") {
		t.Errorf("plan should not surface assumptions: %q", plan.Content)
	}
}

func TestReset(t *testing.T) {
	env := testEnv(0.5)
	cfg := config.Loop{MaxIterations: 9, AllowAssumptions: true, MaxIdleIterations: 2}
	running := Reduce(idle(cfg), Initialize{Goal: "Write a blog post"}, env)
	running = Reduce(running, Step{Source: SourceScheduled}, env)

	cleared := Reduce(running, Reset{}, env)
	if !reflect.DeepEqual(cleared, idle(cfg)) {
		t.Errorf("reset without goal should yield a bare idle state, got %+v", cleared)
	}

	seeded := Reduce(running, Reset{Goal: "Research competitors and email partners"}, env)
	if seeded.Status != StatusIdle || seeded.Iteration != 0 || seeded.StartedAt != nil {
		t.Errorf("unexpected seeded state %+v", seeded)
	}
	if len(seeded.Subgoals) != 2 || len(seeded.Logs) != 0 || len(seeded.Assumptions) == 0 {
		t.Errorf("seeded run should have subgoals and assumptions but no logs: %+v", seeded)
	}
	if seeded.RunID == running.RunID {
		t.Error("reset should start a new run id")
	}

	started := Reduce(seeded, Start{}, env)
	if started.Status != StatusRunning || started.StartedAt == nil || len(started.Logs) == 0 {
		t.Errorf("start should launch the seeded run: %+v", started)
	}
	if again := Reduce(started, Start{}, env); !reflect.DeepEqual(again, started) {
		t.Error("start on a running run should be a no-op")
	}
	if got := Reduce(idle(cfg), Start{}, env); got.Status != StatusIdle {
		t.Error("start without a goal should be a no-op")
	}
}

func TestUpdateConfig(t *testing.T) {
	env := testEnv(0.5)
	s := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post"}, env)
	s = Reduce(s, Pause{}, env)

	s = Reduce(s, UpdateConfig{Patch: config.LoopPatch{MaxIterations: intPtr(4)}}, env)
	if s.Config.MaxIterations != 4 || s.Status != StatusPaused {
		t.Errorf("unexpected state after update: %+v", s.Config)
	}
	if !s.Config.AllowAssumptions || s.Config.MaxIdleIterations != 3 {
		t.Error("unset fields must be preserved")
	}
}

func TestReduce_DoesNotShareMemory(t *testing.T) {
	env := testEnv(0.5)
	s1 := Reduce(idle(config.DefaultLoop()), Initialize{Goal: "Write a blog post then email partners"}, env)
	s2 := Reduce(s1, Step{Source: SourceScheduled}, env)

	s2.Subgoals[0].Progress = 42
	s2.Logs[0].Content = "mutated"
	*s2.StartedAt = time.Time{}

	if s1.Subgoals[0].Progress == 42 || s1.Logs[0].Content == "mutated" || s1.StartedAt.IsZero() {
		t.Error("states share memory")
	}
}

func TestReduce_Invariants(t *testing.T) {
	goals := []string{
		"Write a blog post.",
		"Research the market then launch a campaign.",
		"Grow our user base; analyze churn and email top customers\nPlan next quarter",
	}
	for seed := uint64(1); seed <= 12; seed++ {
		for _, goal := range goals {
			env := testEnv()
			env.Rand = executor.NewSeededSource(seed)
			cfg := config.Loop{MaxIterations: 30, AllowAssumptions: true, MaxIdleIterations: 2}

			s := Reduce(idle(cfg), Initialize{Goal: goal}, env)
			for i := 0; i < 35; i++ {
				next := Reduce(s, Step{Source: SourceScheduled}, env)
				checkStepInvariants(t, s, next)
				s = next
			}
			if !s.IsTerminal() {
				t.Errorf("seed %d %q: run did not terminate", seed, goal)
			}
		}
	}
}

func checkStepInvariants(t *testing.T, prev, next State) {
	t.Helper()
	if prev.IsTerminal() {
		if !reflect.DeepEqual(prev, next) {
			t.Fatal("terminal state changed")
		}
		return
	}
	if next.Iteration != prev.Iteration+1 {
		t.Fatalf("iteration moved from %d to %d", prev.Iteration, next.Iteration)
	}
	if len(next.Logs) < len(prev.Logs) || !reflect.DeepEqual(next.Logs[:len(prev.Logs)], prev.Logs) {
		t.Fatal("logs are not append-only")
	}
	if added := len(next.Logs) - len(prev.Logs); added != 6 && added != 1 {
		t.Fatalf("step appended %d entries", added)
	}
	active := 0
	for i, sg := range next.Subgoals {
		old := prev.Subgoals[i]
		if sg.ID != old.ID {
			t.Fatal("subgoal order changed")
		}
		if sg.Progress < old.Progress || sg.Attempts < old.Attempts {
			t.Fatalf("subgoal %s regressed: %+v -> %+v", sg.ID, old, sg)
		}
		if sg.Progress < 0 || sg.Progress > 1 {
			t.Fatalf("progress out of range: %v", sg.Progress)
		}
		if sg.Status == mission.StatusActive {
			active++
		}
	}
	if active > 1 {
		t.Fatalf("%d active subgoals", active)
	}
	if next.IsTerminal() != (next.CompletedAt != nil) {
		t.Fatal("CompletedAt must be set exactly on terminal states")
	}
}

func findLast(logs []LogEntry, typ LogType) LogEntry {
	for i := len(logs) - 1; i >= 0; i-- {
		if logs[i].Type == typ {
			return logs[i]
		}
	}
	return LogEntry{}
}
