package replay

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/mission"
	"github.com/vinayprograms/pursuit/internal/session"
)

// Stats holds aggregate statistics for a run transcript.
type Stats struct {
	// Wall time from start to completion, or first to last event.
	TotalDurationMs int64

	Iterations    int
	Attempts      int // subgoal attempts, one per executed step
	StatusChanges int

	EntriesByType map[controller.LogType]int

	Subgoals        int
	Completed       int
	Blocked         int
	MeanProgress    float64
	MaxAttempts     int
	MaxAttemptsGoal string
}

// ComputeStats calculates aggregate statistics from a transcript.
func ComputeStats(sess *session.Session) *Stats {
	stats := &Stats{
		Iterations:    sess.Iterations,
		EntriesByType: make(map[controller.LogType]int),
		Subgoals:      len(sess.Subgoals),
	}

	var firstEvent, lastEvent time.Time
	for _, event := range sess.Events {
		if firstEvent.IsZero() || event.Timestamp.Before(firstEvent) {
			firstEvent = event.Timestamp
		}
		if lastEvent.IsZero() || event.Timestamp.After(lastEvent) {
			lastEvent = event.Timestamp
		}

		if !event.IsLog() {
			stats.StatusChanges++
			continue
		}
		stats.EntriesByType[controller.LogType(event.Type)]++
	}

	switch {
	case sess.StartedAt != nil && sess.CompletedAt != nil:
		stats.TotalDurationMs = sess.CompletedAt.Sub(*sess.StartedAt).Milliseconds()
	case !firstEvent.IsZero():
		stats.TotalDurationMs = lastEvent.Sub(firstEvent).Milliseconds()
	}

	var total float64
	for _, sg := range sess.Subgoals {
		total += sg.Progress
		stats.Attempts += sg.Attempts
		switch sg.Status {
		case mission.StatusCompleted:
			stats.Completed++
		case mission.StatusBlocked:
			stats.Blocked++
		}
		if sg.Attempts > stats.MaxAttempts {
			stats.MaxAttempts = sg.Attempts
			stats.MaxAttemptsGoal = oneLine(sg.Description)
		}
	}
	if stats.Subgoals > 0 {
		stats.MeanProgress = total / float64(stats.Subgoals)
	}

	return stats
}

// PrintStats outputs the statistics to the writer.
func PrintStats(w io.Writer, stats *Stats) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("═══════════════════════════════════════════════════════════════════"))
	fmt.Fprintln(w, headerStyle.Render("                           RUN STATISTICS                           "))
	fmt.Fprintln(w, headerStyle.Render("═══════════════════════════════════════════════════════════════════"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s %s\n",
		labelStyle.Render("Total Duration:"),
		valueStyle.Render(formatDuration(stats.TotalDurationMs)))
	fmt.Fprintf(w, "%s %s\n",
		labelStyle.Render("Iterations:"),
		valueStyle.Render(fmt.Sprintf("%d", stats.Iterations)))
	fmt.Fprintf(w, "%s %s\n",
		labelStyle.Render("Attempts:"),
		valueStyle.Render(fmt.Sprintf("%d", stats.Attempts)))
	if stats.StatusChanges > 0 {
		fmt.Fprintf(w, "%s %s\n",
			labelStyle.Render("Status Changes:"),
			valueStyle.Render(fmt.Sprintf("%d", stats.StatusChanges)))
	}
	fmt.Fprintln(w)

	if stats.Subgoals > 0 {
		fmt.Fprintln(w, headerStyle.Render("Subgoals:"))
		fmt.Fprintf(w, "  %s %s\n",
			labelStyle.Render("Completed:"),
			valueStyle.Render(fmt.Sprintf("%d/%d", stats.Completed, stats.Subgoals)))
		if stats.Blocked > 0 {
			fmt.Fprintf(w, "  %s %s\n",
				labelStyle.Render("Blocked:"),
				valueStyle.Render(fmt.Sprintf("%d", stats.Blocked)))
		}
		fmt.Fprintf(w, "  %s %s\n",
			labelStyle.Render("Mean Progress:"),
			valueStyle.Render(fmt.Sprintf("%.1f%%", stats.MeanProgress*100)))
		if stats.MaxAttempts > 0 {
			fmt.Fprintf(w, "  %s %s %s\n",
				labelStyle.Render("Most Attempts:"),
				valueStyle.Render(fmt.Sprintf("%d", stats.MaxAttempts)),
				labelStyle.Render("("+truncate(stats.MaxAttemptsGoal, 48)+")"))
		}
		fmt.Fprintln(w)
	}

	if len(stats.EntriesByType) > 0 {
		fmt.Fprintln(w, headerStyle.Render("Log Entries:"))
		for _, t := range controller.StepLogTypes {
			if n := stats.EntriesByType[t]; n > 0 {
				fmt.Fprintf(w, "  %s %s\n",
					labelStyle.Render(string(t)+":"),
					valueStyle.Render(fmt.Sprintf("%d", n)))
			}
		}
		fmt.Fprintln(w)
	}
}

// formatDuration formats milliseconds as human-readable duration.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.2fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm%ds", mins, secs)
}
