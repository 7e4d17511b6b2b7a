package replay

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/pursuit/internal/mission"
	"github.com/vinayprograms/pursuit/internal/session"
)

// printContent prints continuation lines with timeline indentation.
func (r *Replayer) printContent(lines []string) {
	for _, line := range lines {
		fmt.Fprintf(r.output, "      │          │   %s\n", line)
	}
}

// printSubgoals prints one row per subgoal with a progress bar.
func (r *Replayer) printSubgoals(sess *session.Session) {
	if len(sess.Subgoals) == 0 {
		return
	}
	fmt.Fprintln(r.output)
	fmt.Fprintln(r.output, titleStyle.Render("SUBGOALS"))
	fmt.Fprintln(r.output, divider)

	for i, sg := range sess.Subgoals {
		fmt.Fprintf(r.output, "%2d. %s %s %s\n",
			i+1,
			subgoalStatusStyle(sg.Status).Render(fmt.Sprintf("%-9s", sg.Status)),
			progressBar(sg.Progress, 20),
			valueStyle.Render(oneLine(sg.Description)))
		if r.verbosity >= 1 {
			meta := fmt.Sprintf("attempts=%d idle=%d", sg.Attempts, sg.IdleCounter)
			if sg.Notes != "" {
				meta += " notes=" + sg.Notes
			}
			fmt.Fprintf(r.output, "    %s\n", dimStyle.Render(meta))
		}
	}
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "success":
		return successStyle
	case "stopped":
		return errorStyle
	case "paused":
		return warnStyle
	default:
		return valueStyle
	}
}

func subgoalStatusStyle(s mission.Status) lipgloss.Style {
	switch s {
	case mission.StatusCompleted:
		return successStyle
	case mission.StatusBlocked:
		return errorStyle
	case mission.StatusActive:
		return warnStyle
	default:
		return dimStyle
	}
}

// progressBar renders p (0..1) as a fixed width bar followed by a percentage.
func progressBar(p float64, width int) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p*float64(width) + 0.5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %3.0f%%", bar, p*100)
}

// subgoalNames maps subgoal IDs to their position, e.g. "#2".
func subgoalNames(sess *session.Session) map[string]string {
	names := make(map[string]string, len(sess.Subgoals))
	for i, sg := range sess.Subgoals {
		names[sg.ID] = fmt.Sprintf("#%d", i+1)
	}
	return names
}

// oneLine joins multi-line text with " / ".
func oneLine(s string) string {
	return strings.Join(strings.Split(strings.TrimSpace(s), "\n"), " / ")
}

// truncate shortens s to max runes, adding an ellipsis when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
