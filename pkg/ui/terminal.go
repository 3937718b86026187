package ui

import (
	"fmt"
	"io"
)

// Banner is printed when an interactive export starts
const Banner = "Welcome to Garmin Connect Exporter!"

// Terminal prints styled one-line messages
type Terminal struct {
	out    io.Writer
	styles Styles
}

// NewTerminal creates a terminal printer on w
func NewTerminal(w io.Writer, noColor bool) *Terminal {
	return &Terminal{out: w, styles: NewStyles(NewRenderer(w, noColor))}
}

// Styles returns the palette in use
func (t *Terminal) Styles() Styles {
	return t.styles
}

// Writer returns the underlying writer
func (t *Terminal) Writer() io.Writer {
	return t.out
}

// PrintBanner prints the welcome line
func (t *Terminal) PrintBanner() {
	fmt.Fprintln(t.out, t.styles.Title.Render(Banner))
}

// PrintError prints an error message, followed by err when given
func (t *Terminal) PrintError(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(t.out, t.styles.Error.Render(msg))
}

// PrintSuccess prints a success message
func (t *Terminal) PrintSuccess(msg string) {
	fmt.Fprintln(t.out, t.styles.Success.Render(msg))
}

// PrintInfo prints a label and value pair
func (t *Terminal) PrintInfo(label, value string) {
	fmt.Fprintf(t.out, "%s: %s\n", t.styles.Label.Render(label), t.styles.Value.Render(value))
}

// PrintWarning prints a warning message
func (t *Terminal) PrintWarning(msg string) {
	fmt.Fprintln(t.out, t.styles.Warning.Render("Warning: "+msg))
}
