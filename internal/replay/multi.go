package replay

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/pursuit/internal/session"
)

// MultiReplayer renders several transcripts one after another.
type MultiReplayer struct {
	output    io.Writer
	verbosity int
}

// NewMulti creates a new MultiReplayer.
func NewMulti(output io.Writer, verbosity int) *MultiReplayer {
	return &MultiReplayer{
		output:    output,
		verbosity: verbosity,
	}
}

type sessionInfo struct {
	Session *session.Session
	Source  string
}

// ReplayFiles outputs multiple transcripts to the writer, oldest first.
func (m *MultiReplayer) ReplayFiles(paths []string) error {
	sessions, err := m.loadSessions(paths)
	if err != nil {
		return err
	}
	return m.replayAll(sessions)
}

// ReplayFilesInteractive shows multiple transcripts in the pager.
func (m *MultiReplayer) ReplayFilesInteractive(paths []string) error {
	sessions, err := m.loadSessions(paths)
	if err != nil {
		return err
	}

	var buf strings.Builder
	oldOutput := m.output
	m.output = &buf
	err = m.replayAll(sessions)
	m.output = oldOutput
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%d run(s)", len(sessions))
	if len(sessions) == 1 {
		title = "Run: " + sessions[0].Session.ID
	}
	return NewPager(title).Run(buf.String())
}

func (m *MultiReplayer) loadSessions(paths []string) ([]sessionInfo, error) {
	var sessions []sessionInfo
	for _, path := range paths {
		sess, err := session.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		sessions = append(sessions, sessionInfo{Session: sess, Source: path})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Session.CreatedAt.Before(sessions[j].Session.CreatedAt)
	})
	return sessions, nil
}

func (m *MultiReplayer) replayAll(sessions []sessionInfo) error {
	r := New(m.output, m.verbosity)

	for i, info := range sessions {
		if len(sessions) > 1 {
			m.printSessionHeader(info, i+1, len(sessions))
		}
		if err := r.Replay(info.Session); err != nil {
			return fmt.Errorf("failed to replay %s: %w", info.Source, err)
		}
		if i < len(sessions)-1 {
			fmt.Fprintln(m.output)
		}
	}
	return nil
}

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("6")) // Cyan background

	sessionDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6"))
)

// printSessionHeader prints a banner separating transcripts.
func (m *MultiReplayer) printSessionHeader(info sessionInfo, num, total int) {
	shortID := info.Session.ID
	if len(shortID) > 12 {
		shortID = shortID[:12]
	}

	header := fmt.Sprintf(" [%d/%d] %s │ %s │ %s ",
		num, total,
		truncate(oneLine(info.Session.NormalizedGoal), 40),
		shortID,
		info.Session.CreatedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(m.output)
	fmt.Fprintln(m.output, sessionDividerStyle.Render(strings.Repeat("━", 70)))
	fmt.Fprintln(m.output, sessionHeaderStyle.Render(header))
	fmt.Fprintln(m.output, sessionDividerStyle.Render(strings.Repeat("━", 70)))
}
