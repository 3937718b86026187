package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	accent  = lipgloss.Color("#00AEEF")
	green   = lipgloss.Color("#39D353")
	yellow  = lipgloss.Color("#F5C542")
	red     = lipgloss.Color("#FF5555")
	dimGrey = lipgloss.Color("#8A8A8A")
)

// Styles is the palette used for terminal narration
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
}

// NewRenderer returns a lipgloss renderer for w. With noColor, or when w
// is not a terminal, styles render as plain text.
func NewRenderer(w io.Writer, noColor bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// NewStyles builds the palette on r
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Foreground(accent).Bold(true),
		Label:   r.NewStyle().Foreground(accent),
		Value:   r.NewStyle().Foreground(yellow),
		Success: r.NewStyle().Foreground(green).Bold(true),
		Warning: r.NewStyle().Foreground(yellow),
		Error:   r.NewStyle().Foreground(red).Bold(true),
		Dim:     r.NewStyle().Foreground(dimGrey),
	}
}
