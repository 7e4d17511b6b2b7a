// Package replay renders run transcripts for review.
package replay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Each log type has its own consistent color.
var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - timestamps, metadata

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	analysisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")) // Cyan

	planStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")) // Blue

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	observationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("13")) // Magenta

	evaluationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")) // Orange

	decisionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11")) // Yellow

	statusEventStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	seqStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(5).
			Align(lipgloss.Right)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	iterStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	divider = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Render(strings.Repeat("━", 60))
)
