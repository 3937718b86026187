package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"gcexport/pkg/export"
)

// EventMsg carries one export event into the program
type EventMsg export.Event

// DoneMsg ends the program once the run has returned
type DoneMsg struct {
	Err error
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done {
				m.addLog(levelWarn, "Cancelled by user")
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-20))
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(export.Event(msg))
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		if msg.Err != nil {
			m.addLog(levelError, msg.Err.Error())
		}
		return m, tea.Quit
	}

	return m, nil
}
