package replay

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/executor"
	"github.com/vinayprograms/pursuit/internal/mission"
	"github.com/vinayprograms/pursuit/internal/session"
)

// completingDraw finishes each subgoal in seven steps.
const completingDraw = 0.904

// recordRun drives a run to completion and returns its transcript path.
func recordRun(t *testing.T, dir, goal string, draws ...float64) string {
	t.Helper()
	store, err := session.NewFileStore(dir)
	if err != nil {
		t.Fatalf("store error: %v", err)
	}
	rec := session.NewRecorder(session.NewManager(store))

	n := 0
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := controller.NewAgent(config.DefaultLoop(), controller.Env{
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		Rand: executor.FixedSource(draws...),
		NewID: func() string {
			n++
			return fmt.Sprintf("%s-%d", goal[:4], n)
		},
	})

	ctx := context.Background()
	prev := a.State()
	next := a.Initialize(goal)
	if err := rec.Observe(ctx, prev, next); err != nil {
		t.Fatalf("observe error: %v", err)
	}
	for !next.IsTerminal() {
		prev, next = next, a.Step(controller.SourceScheduled)
		if err := rec.Observe(ctx, prev, next); err != nil {
			t.Fatalf("observe error: %v", err)
		}
	}
	return store.Path(next.RunID)
}

func subgoal(desc string, status mission.Status, progress float64, attempts int) mission.Subgoal {
	return mission.Subgoal{ID: desc, Description: desc, Status: status, Progress: progress, Attempts: attempts}
}

func TestReplayFile(t *testing.T) {
	path := recordRun(t, t.TempDir(), "Write a blog post then email partners", completingDraw)

	var buf bytes.Buffer
	if err := New(&buf, 0).ReplayFile(path); err != nil {
		t.Fatalf("replay error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"RUN", "TIMELINE", "SUBGOALS", "RUN STATISTICS",
		"ITERATION 0", "ITERATION 1",
		"ANALYSIS", "PLAN", "ACTION", "OBSERVATION", "EVALUATION", "DECISION",
		"STATUS", "running -> success",
		"SUCCESS", "Completed:", "2/2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestReplayFile_Missing(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, 0).ReplayFile(filepath.Join(t.TempDir(), "none.jsonl")); err == nil {
		t.Error("expected error for missing transcript")
	}
}

func TestReplay_VerbosityAndTruncation(t *testing.T) {
	sess := &session.Session{
		ID:             "run-1",
		NormalizedGoal: "Ship it",
		Status:         "stopped",
		Reason:         "escalation",
		Assumptions:    []string{"Budget is fixed"},
		Events: []session.Event{
			{SeqID: 1, Type: "analysis", Iteration: 1, LogID: "log-1", Content: "first line\nsecond line"},
		},
	}

	var normal bytes.Buffer
	New(&normal, 0).Replay(sess)
	if !strings.Contains(normal.String(), "first line / second line") {
		t.Errorf("normal verbosity should fold lines:\n%s", normal.String())
	}
	if strings.Contains(normal.String(), "Budget is fixed") {
		t.Error("assumptions should only show when verbose")
	}
	if !strings.Contains(normal.String(), "STOPPED:") {
		t.Error("expected stopped summary")
	}

	var verbose bytes.Buffer
	New(&verbose, 2).Replay(sess)
	out := verbose.String()
	if !strings.Contains(out, "│   second line") {
		t.Errorf("verbose output should continue lines:\n%s", out)
	}
	if !strings.Contains(out, "Budget is fixed") || !strings.Contains(out, "id: log-1") {
		t.Error("very verbose output should include assumptions and log ids")
	}
}

func TestLoadSession_TruncatesContent(t *testing.T) {
	dir := t.TempDir()
	store, _ := session.NewFileStore(dir)
	sess := &session.Session{ID: "big", Events: []session.Event{}}
	sess.AddEvent(session.Event{Type: "observation", Content: strings.Repeat("x", 500)})
	if err := store.Save(sess); err != nil {
		t.Fatalf("save error: %v", err)
	}

	r := New(&bytes.Buffer{}, 0, WithMaxContentSize(100))
	loaded, err := r.loadSession(store.Path("big"))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if !strings.Contains(loaded.Events[0].Content, "[truncated, 500 bytes total]") {
		t.Errorf("expected truncation marker, got %q", loaded.Events[0].Content)
	}
}

func TestComputeStats(t *testing.T) {
	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)
	sess := &session.Session{
		Iterations: 4,
		StartedAt:  &started,
		Events: []session.Event{
			{Type: "analysis"}, {Type: "plan"}, {Type: "decision"}, {Type: "decision"},
			{Type: session.EventStatus},
		},
	}
	sess.CompletedAt = &completed
	sess.Subgoals = append(sess.Subgoals,
		subgoal("a", "completed", 1, 2),
		subgoal("b", "blocked", 0.5, 5),
	)

	stats := ComputeStats(sess)
	if stats.TotalDurationMs != 90000 {
		t.Errorf("expected 90s, got %d", stats.TotalDurationMs)
	}
	if stats.Completed != 1 || stats.Blocked != 1 || stats.Attempts != 7 {
		t.Errorf("unexpected subgoal stats %+v", stats)
	}
	if stats.MeanProgress != 0.75 {
		t.Errorf("expected mean 0.75, got %v", stats.MeanProgress)
	}
	if stats.MaxAttempts != 5 || stats.MaxAttemptsGoal != "b" {
		t.Errorf("unexpected max attempts %d %q", stats.MaxAttempts, stats.MaxAttemptsGoal)
	}
	if stats.EntriesByType[controller.LogDecision] != 2 || stats.StatusChanges != 1 {
		t.Errorf("unexpected entry counts %+v", stats.EntriesByType)
	}

	var buf bytes.Buffer
	PrintStats(&buf, stats)
	if !strings.Contains(buf.String(), "1m30s") || !strings.Contains(buf.String(), "75.0%") {
		t.Errorf("unexpected stats output:\n%s", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{250, "250ms"},
		{1500, "1.50s"},
		{125000, "2m5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.ms); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(0.5, 10); got != "█████░░░░░  50%" {
		t.Errorf("unexpected bar %q", got)
	}
	if got := progressBar(2, 4); got != "████ 100%" {
		t.Errorf("bar should clamp, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello world", 8); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
}

func TestWrapContent_KeepsTimelineColumn(t *testing.T) {
	line := "    1 │ 09:00:01 │ " + strings.Repeat("word ", 30)
	wrapped := strings.Split(wrapContent(line, 60), "\n")
	if len(wrapped) < 2 {
		t.Fatalf("expected wrapping, got %d lines", len(wrapped))
	}
	indent := strings.Index(wrapped[0], "word")
	for _, l := range wrapped[1:] {
		if !strings.HasPrefix(l, strings.Repeat(" ", len([]rune(wrapped[0][:indent])))) {
			t.Errorf("continuation not aligned: %q", l)
		}
	}
}

func TestMultiReplayer_OrdersByCreation(t *testing.T) {
	dir := t.TempDir()
	first := recordRun(t, dir, "Plan the offsite", completingDraw)
	second := recordRun(t, dir, "Draft the newsletter", completingDraw)

	// Make the second transcript look older.
	sess, err := session.LoadFile(second)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	sess.CreatedAt = sess.CreatedAt.Add(-time.Hour)
	store, _ := session.NewFileStore(dir)
	if err := store.Save(sess); err != nil {
		t.Fatalf("save error: %v", err)
	}

	var buf bytes.Buffer
	if err := NewMulti(&buf, 0).ReplayFiles([]string{first, second}); err != nil {
		t.Fatalf("replay error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "[1/2]") || !strings.Contains(out, "[2/2]") {
		t.Fatal("expected numbered headers")
	}
	if strings.Index(out, "Draft the newsletter") > strings.Index(out, "Plan the offsite") {
		t.Error("older transcript should come first")
	}

	if err := NewMulti(&buf, 0).ReplayFiles([]string{filepath.Join(dir, "nope.jsonl")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLive_PrintsNewEntriesAndStatus(t *testing.T) {
	var buf bytes.Buffer
	live := NewLive(&buf, 0)
	ctx := context.Background()

	n := 0
	a := controller.NewAgent(config.DefaultLoop(), controller.Env{
		Now:  func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
		Rand: executor.FixedSource(completingDraw),
		NewID: func() string {
			n++
			return fmt.Sprintf("live-%d", n)
		},
	})

	prev := a.State()
	next := a.Initialize("Write a blog post")
	live.Observe(ctx, prev, next)
	for !next.IsTerminal() {
		prev, next = next, a.Step(controller.SourceScheduled)
		live.Observe(ctx, prev, next)
	}

	out := buf.String()
	if strings.Count(out, "RUN ") != 1 {
		t.Errorf("expected a single run banner:\n%s", out)
	}
	if got := strings.Count(out, "\n"); got != len(next.Logs)+2 {
		t.Errorf("expected banner, %d entries and one status line, got %d lines", len(next.Logs), got)
	}
	if !strings.Contains(out, "running -> success") {
		t.Errorf("missing status change:\n%s", out)
	}
	if !strings.Contains(out, "#1") {
		t.Error("entries should reference their subgoal")
	}

	buf.Reset()
	live.Observe(ctx, controller.State{}, controller.State{Status: controller.StatusIdle})
	if buf.Len() != 0 {
		t.Error("idle state without run id should print nothing")
	}
}
