// Package setup provides the interactive wizard that writes pursuit.toml.
package setup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/pursuit/internal/config"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

// Step represents a wizard step.
type Step int

const (
	StepWelcome Step = iota
	StepMaxIterations
	StepMaxIdle
	StepAssumptions
	StepInterval
	StepStorage
	StepTelemetry
	StepEndpoint
	StepConfirm
	StepComplete
)

var telemetryProtocols = []string{"noop", "grpc", "http"}

// Model is the bubbletea model for the setup wizard.
type Model struct {
	step      Step
	path      string
	config    *config.Config
	cursor    int
	textInput textinput.Model
	inputErr  string
	err       error
	editMode  bool
	written   bool
}

// New creates a wizard writing to path. An existing file pre-fills the
// answers.
func New(path string) Model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	m := Model{
		step:      StepWelcome,
		path:      path,
		config:    config.Default(),
		textInput: ti,
	}
	if cfg, err := config.LoadFile(path); err == nil {
		m.config = cfg
		m.editMode = true
	}
	return m
}

// Config returns the configuration collected so far.
func (m Model) Config() *config.Config {
	return m.config
}

// Written reports whether the wizard wrote the file.
func (m Model) Written() bool {
	return m.written
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

type fileWrittenMsg struct{}

type errMsg struct{ error }

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fileWrittenMsg:
		m.written = true
		m.step = StepComplete
		return m, nil

	case errMsg:
		m.err = msg.error
		m.step = StepComplete
		return m, nil

	case tea.KeyMsg:
		if m.isTextInputStep() {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter":
				return m.handleEnter()
			case "esc":
				m.step = m.previousStep()
				m.prepareStep()
				return m, nil
			default:
				var cmd tea.Cmd
				m.textInput, cmd = m.textInput.Update(msg)
				return m, cmd
			}
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.step == StepWelcome || m.step == StepComplete {
				return m, tea.Quit
			}
			m.step = m.previousStep()
			m.prepareStep()
			return m, nil
		case "enter":
			return m.handleEnter()
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < m.maxCursorForStep() {
				m.cursor++
			}
		}
	}
	return m, nil
}

func (m Model) isTextInputStep() bool {
	switch m.step {
	case StepMaxIterations, StepMaxIdle, StepInterval, StepStorage, StepEndpoint:
		return true
	}
	return false
}

func (m Model) maxCursorForStep() int {
	switch m.step {
	case StepAssumptions, StepConfirm:
		return 1
	case StepTelemetry:
		return len(telemetryProtocols) - 1
	}
	return 0
}

func (m Model) previousStep() Step {
	prev := m.step - 1
	if prev == StepEndpoint && !m.config.Telemetry.Enabled {
		prev--
	}
	if prev < StepWelcome {
		prev = StepWelcome
	}
	return prev
}

func (m Model) nextStep() Step {
	next := m.step + 1
	if next == StepEndpoint && !m.config.Telemetry.Enabled {
		next++
	}
	return next
}

// prepareStep pre-fills the input or cursor with the current value.
func (m *Model) prepareStep() {
	m.cursor = 0
	m.inputErr = ""
	switch m.step {
	case StepMaxIterations:
		m.textInput.SetValue(strconv.Itoa(m.config.Loop.MaxIterations))
	case StepMaxIdle:
		m.textInput.SetValue(strconv.Itoa(m.config.Loop.MaxIdleIterations))
	case StepInterval:
		m.textInput.SetValue(m.config.Driver.Interval)
	case StepStorage:
		m.textInput.SetValue(m.config.Storage.Path)
	case StepEndpoint:
		m.textInput.SetValue(m.config.Telemetry.Endpoint)
	case StepAssumptions:
		if !m.config.Loop.AllowAssumptions {
			m.cursor = 1
		}
	case StepTelemetry:
		for i, p := range telemetryProtocols {
			if p == m.config.Telemetry.Protocol {
				m.cursor = i
			}
		}
	}
	m.textInput.CursorEnd()
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.textInput.Value())

	switch m.step {
	case StepMaxIterations:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			m.inputErr = "enter a whole number of at least 1"
			return m, nil
		}
		m.config.Loop.MaxIterations = n

	case StepMaxIdle:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			m.inputErr = "enter a whole number of at least 0"
			return m, nil
		}
		m.config.Loop.MaxIdleIterations = n

	case StepAssumptions:
		m.config.Loop.AllowAssumptions = m.cursor == 0

	case StepInterval:
		prev := m.config.Driver.Interval
		m.config.Driver.Interval = value
		if _, err := m.config.Interval(); err != nil {
			m.config.Driver.Interval = prev
			m.inputErr = err.Error()
			return m, nil
		}

	case StepStorage:
		if value == "" {
			m.inputErr = "storage path is required"
			return m, nil
		}
		m.config.Storage.Path = value

	case StepTelemetry:
		m.config.Telemetry.Protocol = telemetryProtocols[m.cursor]
		m.config.Telemetry.Enabled = m.cursor > 0

	case StepEndpoint:
		m.config.Telemetry.Endpoint = value

	case StepConfirm:
		if m.cursor == 1 {
			m.step = StepWelcome
			m.cursor = 0
			return m, nil
		}
		return m, m.writeFile()

	case StepComplete:
		return m, tea.Quit
	}

	m.step = m.nextStep()
	m.prepareStep()
	return m, nil
}

func (m Model) writeFile() tea.Cmd {
	cfg, path := m.config, m.path
	return func() tea.Msg {
		if err := WriteConfig(path, cfg); err != nil {
			return errMsg{err}
		}
		return fileWrittenMsg{}
	}
}

// WriteConfig validates cfg and writes it to path as TOML.
func WriteConfig(path string, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# Pursuit configuration\n")
	buf.WriteString("# Generated by: pursuit init\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// View renders the current step.
func (m Model) View() string {
	switch m.step {
	case StepWelcome:
		return m.viewWelcome()
	case StepMaxIterations:
		return m.viewInput("Iteration ceiling", "Steps a run may take before it is stopped.")
	case StepMaxIdle:
		return m.viewInput("Idle limit", "Consecutive attempts without progress before a subgoal is blocked.")
	case StepAssumptions:
		return m.viewSelect("Operating assumptions", "May plans lean on assumptions derived from the mission?",
			[]string{"Allow assumptions", "Plan without assumptions"})
	case StepInterval:
		return m.viewInput("Scheduler interval", "Delay between scheduled steps (e.g. 750ms, 2s).")
	case StepStorage:
		return m.viewInput("Storage path", "Directory for transcripts, checkpoints and the search archive.")
	case StepTelemetry:
		return m.viewSelect("Telemetry", "Export run events over OTLP?", telemetryProtocols)
	case StepEndpoint:
		return m.viewInput("Telemetry endpoint", "OTLP endpoint (e.g. localhost:4317).")
	case StepConfirm:
		return m.viewConfirm()
	case StepComplete:
		return m.viewComplete()
	}
	return ""
}

func (m Model) viewWelcome() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Pursuit Setup"))
	s.WriteString("\n\n")
	if m.editMode {
		s.WriteString(infoStyle.Render("Found existing configuration: " + m.path))
		s.WriteString("\n")
		s.WriteString(normalStyle.Render("Current values will be pre-filled."))
	} else {
		s.WriteString(normalStyle.Render("This wizard writes " + m.path + "."))
	}
	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("Press Enter to continue, q to quit"))
	return s.String()
}

func (m Model) viewInput(title, help string) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(title) + "\n")
	s.WriteString(dimStyle.Render(help) + "\n\n")
	s.WriteString(m.textInput.View() + "\n")
	if m.inputErr != "" {
		s.WriteString("\n" + errorStyle.Render(m.inputErr) + "\n")
	}
	s.WriteString("\n" + dimStyle.Render("Enter to confirm, esc to go back"))
	return s.String()
}

func (m Model) viewSelect(title, help string, options []string) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(title) + "\n")
	s.WriteString(dimStyle.Render(help) + "\n\n")
	for i, opt := range options {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		s.WriteString(cursor + style.Render(opt) + "\n")
	}
	s.WriteString("\n" + dimStyle.Render("↑/↓ to move, Enter to select, q to go back"))
	return s.String()
}

func (m Model) viewConfirm() string {
	c := m.config
	var s strings.Builder
	s.WriteString(titleStyle.Render("Configuration Summary") + "\n\n")
	row := func(k, v string) {
		s.WriteString(normalStyle.Render(k+": ") + selectedStyle.Render(v) + "\n")
	}
	row("Max iterations", strconv.Itoa(c.Loop.MaxIterations))
	row("Max idle iterations", strconv.Itoa(c.Loop.MaxIdleIterations))
	row("Allow assumptions", strconv.FormatBool(c.Loop.AllowAssumptions))
	row("Interval", c.Driver.Interval)
	row("Storage", c.Storage.Path)
	row("Telemetry", c.Telemetry.Protocol)
	if c.Telemetry.Enabled && c.Telemetry.Endpoint != "" {
		row("Endpoint", c.Telemetry.Endpoint)
	}

	s.WriteString("\n")
	for i, opt := range []string{"Write " + m.path, "Start over"} {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		s.WriteString(cursor + style.Render(opt) + "\n")
	}
	return s.String()
}

func (m Model) viewComplete() string {
	if m.err != nil {
		return errorStyle.Render("Error") + "\n\n" +
			normalStyle.Render(m.err.Error()) + "\n\n" +
			dimStyle.Render("Press q to exit")
	}
	var s strings.Builder
	s.WriteString(successStyle.Render("✓ Setup Complete!") + "\n\n")
	s.WriteString(normalStyle.Render("Wrote "+m.path) + "\n\n")
	s.WriteString(normalStyle.Render("Next steps:") + "\n")
	s.WriteString(dimStyle.Render("  1. Preview a mission: pursuit plan \"your mission\"") + "\n")
	s.WriteString(dimStyle.Render("  2. Run it: pursuit run \"your mission\"") + "\n")
	s.WriteString("\n" + dimStyle.Render("Press q to exit"))
	return s.String()
}

// Run starts the setup wizard for path.
func Run(path string) error {
	final, err := tea.NewProgram(New(path)).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
