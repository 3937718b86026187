package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#00AEEF")
	green   = lipgloss.Color("#39D353")
	yellow  = lipgloss.Color("#F5C542")
	red     = lipgloss.Color("#FF5555")
	dimGrey = lipgloss.Color("#8A8A8A")

	titleStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			PaddingBottom(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(yellow)

	successStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(yellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimGrey)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimGrey).
			PaddingTop(1)
)

// levelStyle picks the style of a log line
func levelStyle(level string) lipgloss.Style {
	switch level {
	case levelSuccess:
		return successStyle
	case levelWarn:
		return warningStyle
	case levelError:
		return errorStyle
	default:
		return dimStyle
	}
}
