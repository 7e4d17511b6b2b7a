package replay

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/driver"
)

// Live prints log entries and status changes as a run produces them. It is
// a driver.Observer.
type Live struct {
	mu        sync.Mutex
	output    io.Writer
	verbosity int
	names     map[string]string
}

// NewLive creates a live printer writing to w.
func NewLive(w io.Writer, verbosity int) *Live {
	return &Live{output: w, verbosity: verbosity}
}

// Observe implements driver.Observer.
func (l *Live) Observe(_ context.Context, prev, next controller.State) error {
	if next.RunID == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev.RunID != next.RunID || l.names == nil {
		l.names = make(map[string]string, len(next.Subgoals))
		for i, sg := range next.Subgoals {
			l.names[sg.ID] = fmt.Sprintf("#%d", i+1)
		}
		fmt.Fprintf(l.output, "%s %s %s\n",
			titleStyle.Render("RUN"), valueStyle.Render(next.RunID),
			dimStyle.Render(fmt.Sprintf("(%d subgoals)", len(next.Subgoals))))
	}

	for _, entry := range driver.NewLogs(prev, next) {
		l.printEntry(entry)
	}
	if prev.Status != next.Status && prev.RunID == next.RunID {
		fmt.Fprintf(l.output, "%s %s -> %s\n", statusEventStyle.Render("STATUS"),
			prev.Status, l.statusText(next))
	}
	return nil
}

func (l *Live) printEntry(entry controller.LogEntry) {
	label := logStyle(entry.Type).Render(fmt.Sprintf("%-11s", strings.ToUpper(string(entry.Type))))
	ref := fmt.Sprintf("%3d", entry.Iteration)
	if name, ok := l.names[entry.SubgoalID]; ok {
		ref += " " + name
	} else {
		ref += "   "
	}

	content := entry.Content
	if l.verbosity == 0 {
		content = truncate(oneLine(content), contentWidth)
	}
	fmt.Fprintf(l.output, "%s │ %s %s\n", timeStyle.Render(entry.Timestamp.Format("15:04:05")), dimStyle.Render(ref), label+" "+content)
}

func (l *Live) statusText(st controller.State) string {
	text := string(st.Status)
	if st.Reason != "" {
		text += " (" + st.Reason + ")"
	}
	return statusStyle(string(st.Status)).Render(text)
}
