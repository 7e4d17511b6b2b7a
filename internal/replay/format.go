package replay

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/session"
)

// contentWidth bounds single-line content at normal verbosity.
const contentWidth = 110

// formatEvent formats a single event for display.
func (r *Replayer) formatEvent(event *session.Event, names map[string]string, lastIteration *int) {
	if event.IsLog() && event.Iteration != *lastIteration {
		fmt.Fprintln(r.output)
		fmt.Fprintln(r.output, iterStyle.Render(fmt.Sprintf("ITERATION %d", event.Iteration)))
		*lastIteration = event.Iteration
	}

	ts := timeStyle.Render(event.Timestamp.Format("15:04:05"))
	seqNum := seqStyle.Render(fmt.Sprintf("%d", event.SeqID))

	if !event.IsLog() {
		fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
			statusEventStyle.Render("STATUS"), valueStyle.Render(event.Content))
		return
	}

	label := logStyle(controller.LogType(event.Type)).Render(fmt.Sprintf("%-11s", strings.ToUpper(event.Type)))
	if name, ok := names[event.SubgoalID]; ok {
		label += " " + dimStyle.Render(name)
	}

	lines := strings.Split(event.Content, "\n")
	if r.verbosity == 0 {
		fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts, label, truncate(oneLine(event.Content), contentWidth))
		return
	}
	fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts, label, lines[0])
	r.printContent(lines[1:])
	if r.verbosity >= 2 && event.LogID != "" {
		fmt.Fprintf(r.output, "      │          │   %s\n", dimStyle.Render("id: "+event.LogID))
	}
}

func logStyle(t controller.LogType) lipgloss.Style {
	switch t {
	case controller.LogAnalysis:
		return analysisStyle
	case controller.LogPlan:
		return planStyle
	case controller.LogAction:
		return actionStyle
	case controller.LogObservation:
		return observationStyle
	case controller.LogEvaluation:
		return evaluationStyle
	case controller.LogDecision:
		return decisionStyle
	default:
		return dimStyle
	}
}
