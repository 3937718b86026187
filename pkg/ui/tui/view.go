package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"gcexport/pkg/models"
)

// View renders the run: progress, current activity, tallies and recent log lines
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render("Garmin Connect Exporter"))
	sections = append(sections, m.renderProgress())
	sections = append(sections, m.renderCurrent())
	sections = append(sections, panelStyle.Render(m.renderTallies()))

	if len(m.logs) > 0 {
		sections = append(sections, m.renderLogs())
	}

	if m.done {
		sections = append(sections, m.renderStatus())
	} else {
		sections = append(sections, helpStyle.Render("q: cancel"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) renderProgress() string {
	total := "?"
	if m.total > 0 {
		total = fmt.Sprint(m.total)
	}
	counter := valueStyle.Render(fmt.Sprintf("%d/%s", m.processed, total))
	return fmt.Sprintf("%s %s", m.progress.ViewAs(m.Percent()), counter)
}

func (m Model) renderCurrent() string {
	if m.current == nil {
		if m.done {
			return ""
		}
		return m.spinner.View() + " " + dimStyle.Render("waiting for the activity list")
	}
	name := m.current.Name
	if name == "" {
		name = "(untitled)"
	}
	return fmt.Sprintf("%s %s %s %s",
		m.spinner.View(),
		labelStyle.Render("["+m.current.ID+"]"),
		name,
		dimStyle.Render(m.step),
	)
}

func (m Model) renderTallies() string {
	var lines []string
	for _, o := range models.Outcomes {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-26s", string(o)+":")), valueStyle.Render(fmt.Sprint(m.outcomes[o]))))
	}
	lines = append(lines,
		fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-26s", "pages:")), valueStyle.Render(fmt.Sprint(m.pages))),
		fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-26s", "written:")), valueStyle.Render(FormatBytes(m.bytes))),
	)
	return strings.Join(lines, "\n")
}

func (m Model) renderLogs() string {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		lines = append(lines, fmt.Sprintf("%s %s", dimStyle.Render(l.Time.Format("15:04:05")), levelStyle(l.Level).Render(l.Message)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("Export failed: " + m.err.Error())
	}
	elapsed := time.Since(m.startedAt)
	if m.result != nil {
		elapsed = m.result.Duration
	}
	msg := fmt.Sprintf("Done! %d activities processed in %s.", m.processed, elapsed.Round(time.Millisecond))
	if m.stopped {
		msg += " Stopped at the first already exported activity."
	}
	return successStyle.Render(msg)
}
