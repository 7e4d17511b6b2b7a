package replay

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/wordwrap"
)

// settleDelay lets a burst of transcript writes finish before re-rendering.
const settleDelay = 100 * time.Millisecond

var (
	pagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	pagerInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	pagerMatchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	pagerMissStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	pagerLiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))
)

// Pager is a scrollable, searchable terminal view of rendered transcripts.
type Pager struct {
	title string
}

// NewPager creates a pager with the given title bar text.
func NewPager(title string) *Pager {
	return &Pager{title: title}
}

// Run shows static content until the user quits.
func (p *Pager) Run(content string) error {
	return runProgram(&pagerModel{title: p.title, content: content})
}

// RunLive shows the output of render and refreshes it whenever path is
// written.
func (p *Pager) RunLive(path string, render func() (string, error)) error {
	content, err := render()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	return runProgram(&pagerModel{
		title:   p.title,
		content: content,
		live:    &liveSource{watcher: watcher, render: render},
	})
}

func runProgram(m *pagerModel) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

// liveSource re-renders a transcript when its file changes.
type liveSource struct {
	watcher *fsnotify.Watcher
	render  func() (string, error)
}

type transcriptChangedMsg struct{}

func (l *liveSource) wait() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-l.watcher.Events:
				if !ok {
					return nil
				}
				// Transcripts are replaced by rename, so Create counts too.
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					time.Sleep(settleDelay)
					return transcriptChangedMsg{}
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					// Re-arm on the new inode.
					_ = l.watcher.Add(ev.Name)
				}
			case _, ok := <-l.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

// search tracks matches of a query against the wrapped lines.
type search struct {
	input  textinput.Model
	typing bool
	query  string
	lines  []int
	index  int
	missed bool
}

func (s *search) begin() tea.Cmd {
	s.typing = true
	s.input = textinput.New()
	s.input.Placeholder = "Search..."
	s.input.CharLimit = 100
	s.input.Width = 40
	s.input.SetValue(s.query)
	s.input.Focus()
	return textinput.Blink
}

func (s *search) clear() {
	s.query = ""
	s.lines = nil
	s.missed = false
}

func (s *search) run(wrapped string) {
	s.lines = nil
	s.index = 0
	s.missed = false
	if s.query == "" {
		return
	}
	q := strings.ToLower(s.query)
	for i, line := range strings.Split(wrapped, "\n") {
		if strings.Contains(strings.ToLower(line), q) {
			s.lines = append(s.lines, i)
		}
	}
	s.missed = len(s.lines) == 0
}

func (s *search) step(delta int) (int, bool) {
	if len(s.lines) == 0 {
		return 0, false
	}
	s.index = (s.index + delta + len(s.lines)) % len(s.lines)
	return s.lines[s.index], true
}

type pagerModel struct {
	viewport viewport.Model
	title    string
	content  string
	wrapped  string
	ready    bool
	live     *liveSource
	search   search
}

func (m *pagerModel) Init() tea.Cmd {
	if m.live != nil {
		return m.live.wait()
	}
	return nil
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.search.typing {
		return m.updateSearchInput(msg)
	}

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case transcriptChangedMsg:
		if content, err := m.live.render(); err == nil {
			offset := m.viewport.YOffset
			m.content = content
			m.rewrap()
			m.viewport.SetYOffset(offset)
		}
		cmds = append(cmds, m.live.wait())

	case tea.KeyMsg:
		if quit, cmd := m.handleKey(msg.String()); quit {
			return m, tea.Quit
		} else if cmd != nil {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		height := msg.Height - 2 // title and footer
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.YPosition = 1
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.rewrap()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *pagerModel) updateSearchInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.search.typing = false
			m.search.query = m.search.input.Value()
			m.search.run(m.wrapped)
			if line, ok := m.search.step(0); ok {
				m.center(line)
			}
			return m, nil
		case "esc", "ctrl+c":
			m.search.typing = false
			m.search.clear()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	return m, cmd
}

// handleKey applies a key press and reports whether the pager should quit.
func (m *pagerModel) handleKey(key string) (bool, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		return true, nil
	case "esc":
		if m.search.query == "" {
			return true, nil
		}
		m.search.clear()
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	case "f", "F":
		if m.live != nil {
			m.viewport.GotoBottom()
		}
	case "/":
		return false, m.search.begin()
	case "n":
		if line, ok := m.search.step(1); ok {
			m.center(line)
		}
	case "N":
		if line, ok := m.search.step(-1); ok {
			m.center(line)
		}
	}
	return false, nil
}

func (m *pagerModel) rewrap() {
	m.wrapped = wrapContent(m.content, m.viewport.Width)
	m.viewport.SetContent(m.wrapped)
	if m.search.query != "" {
		m.search.run(m.wrapped)
	}
}

// center scrolls so that line sits mid-screen where possible.
func (m *pagerModel) center(line int) {
	m.viewport.SetYOffset(line - m.viewport.Height/2)
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	title := pagerTitleStyle.Render(m.title)
	header := title + pagerInfoStyle.Render(strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title))))

	if m.search.typing {
		return header + "\n" + m.viewport.View() + "\n" + pagerMatchStyle.Render("/") + m.search.input.View()
	}

	var help string
	switch {
	case m.search.missed:
		help = fmt.Sprintf(" %s │ /: search ", pagerMissStyle.Render("Pattern not found"))
	case len(m.search.lines) > 0:
		help = fmt.Sprintf(" %s │ n/N: next/prev │ /: search │ esc: clear ",
			pagerMatchStyle.Render(fmt.Sprintf("[%d/%d]", m.search.index+1, len(m.search.lines))))
	case m.live != nil:
		help = fmt.Sprintf(" %s │ q: quit │ /: search │ f: follow │ g/G: top/bottom ", pagerLiveStyle.Render("● LIVE"))
	default:
		help = " q: quit │ /: search │ n/N: next/prev │ g/G: top/bottom "
	}
	info := fmt.Sprintf(" %3.0f%% ", m.viewport.ScrollPercent()*100)
	fill := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(help)-lipgloss.Width(info)))
	footer := pagerInfoStyle.Render(help + fill + info)

	return header + "\n" + m.viewport.View() + "\n" + footer
}

// wrapContent wraps lines to width. Timeline rows ("seq │ time │ text")
// continue under the text column so the table stays aligned.
func wrapContent(content string, width int) string {
	if width <= 0 {
		return content
	}

	var out []string
	for _, line := range strings.Split(content, "\n") {
		if lipgloss.Width(line) <= width {
			out = append(out, line)
			continue
		}

		pipe := strings.LastIndex(line, "│")
		if pipe <= 0 || pipe >= len(line)-len("│") {
			out = append(out, strings.Split(wordwrap.String(line, width), "\n")...)
			continue
		}

		start := pipe + len("│")
		for start < len(line) && line[start] == ' ' {
			start++
		}
		indent := lipgloss.Width(line[:start])
		textWidth := max(20, width-indent)

		parts := strings.Split(wordwrap.String(line[start:], textWidth), "\n")
		out = append(out, line[:start]+parts[0])
		for _, part := range parts[1:] {
			out = append(out, strings.Repeat(" ", indent)+part)
		}
	}
	return strings.Join(out, "\n")
}
