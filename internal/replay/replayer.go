package replay

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vinayprograms/pursuit/internal/session"
)

// Replayer formats run transcripts.
type Replayer struct {
	output         io.Writer
	verbosity      int // 0=normal, 1=verbose (-v), 2=very verbose (-vv)
	maxContentSize int // 0 = unlimited
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithMaxContentSize truncates long entry contents.
func WithMaxContentSize(size int) ReplayerOption {
	return func(r *Replayer) {
		r.maxContentSize = size
	}
}

// New creates a new Replayer.
func New(output io.Writer, verbosity int, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		output:         output,
		verbosity:      verbosity,
		maxContentSize: 16 * 1024,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReplayFile loads and replays a transcript.
func (r *Replayer) ReplayFile(path string) error {
	sess, err := r.loadSession(path)
	if err != nil {
		return err
	}
	return r.Replay(sess)
}

// ReplayFileInteractive loads a transcript and shows it in the pager.
func (r *Replayer) ReplayFileInteractive(path string) error {
	sess, err := r.loadSession(path)
	if err != nil {
		return err
	}
	content, err := r.Render(sess)
	if err != nil {
		return err
	}
	p := NewPager(fmt.Sprintf("Run: %s", sess.ID))
	return p.Run(content)
}

// ReplayFileLive shows a transcript in the pager and re-renders it whenever
// the file changes.
func (r *Replayer) ReplayFileLive(path string) error {
	sess, err := r.loadSession(path)
	if err != nil {
		return err
	}

	renderFunc := func() (string, error) {
		sess, err := r.loadSession(path)
		if err != nil {
			return "", err
		}
		return r.Render(sess)
	}

	p := NewPager(fmt.Sprintf("Run: %s (LIVE)", sess.ID))
	return p.RunLive(path, renderFunc)
}

// Render returns the formatted transcript as a string.
func (r *Replayer) Render(sess *session.Session) (string, error) {
	var buf strings.Builder
	old := r.output
	r.output = &buf
	err := r.Replay(sess)
	r.output = old
	return buf.String(), err
}

// Replay writes the header, timeline, subgoal table and statistics.
func (r *Replayer) Replay(sess *session.Session) error {
	r.printHeader(sess)
	r.printTimeline(sess)
	r.printSubgoals(sess)
	r.printSummary(sess)
	return nil
}

func (r *Replayer) printHeader(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("RUN"), valueStyle.Render(sess.ID))
	fmt.Fprintln(r.output, divider)
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Goal:    "), valueStyle.Render(oneLine(sess.NormalizedGoal)))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Status:  "), statusStyle(sess.Status).Render(sess.Status))
	if sess.Reason != "" {
		fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Reason:  "), valueStyle.Render(sess.Reason))
	}
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Created: "), valueStyle.Render(sess.CreatedAt.Format(time.RFC3339)))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Config:  "), valueStyle.Render(fmt.Sprintf(
		"max_iterations=%d max_idle_iterations=%d allow_assumptions=%v",
		sess.Config.MaxIterations, sess.Config.MaxIdleIterations, sess.Config.AllowAssumptions)))
	if r.verbosity >= 1 {
		for _, a := range sess.Assumptions {
			fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Assumes: "), dimStyle.Render(a))
		}
	}
	fmt.Fprintln(r.output)
}

func (r *Replayer) printTimeline(sess *session.Session) {
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("TIMELINE"), dimStyle.Render(fmt.Sprintf("(%d events)", len(sess.Events))))
	fmt.Fprintln(r.output, divider)

	names := subgoalNames(sess)
	lastIteration := -1
	for i := range sess.Events {
		r.formatEvent(&sess.Events[i], names, &lastIteration)
	}
}

func (r *Replayer) printSummary(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintln(r.output, divider)

	switch sess.Status {
	case "success":
		fmt.Fprintln(r.output, successStyle.Render("SUCCESS"))
	case "stopped":
		fmt.Fprintf(r.output, "%s %s\n", errorStyle.Render("STOPPED:"), valueStyle.Render(sess.Reason))
	default:
		fmt.Fprintln(r.output, warnStyle.Render(strings.ToUpper(sess.Status)))
	}

	PrintStats(r.output, ComputeStats(sess))
}
