package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"gcexport/pkg/export"
)

// TUI is an interactive progress view of an export run. It implements
// export.EventSink, so it can be handed to the exporter directly.
type TUI struct {
	program *tea.Program
}

// New creates the program. cancel is invoked when the user quits before
// the run finishes.
func New(cancel func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(cancel)
	return &TUI{program: tea.NewProgram(model, opts...)}
}

// Run blocks until the run is finished or the user quits
func (t *TUI) Run() (Model, error) {
	final, err := t.program.Run()
	if m, ok := final.(Model); ok {
		return m, err
	}
	return Model{}, err
}

// Emit implements export.EventSink. It is a no-op once the program has exited.
func (t *TUI) Emit(e export.Event) {
	t.program.Send(EventMsg(e))
}

// Finish reports the end of the run and lets the program exit
func (t *TUI) Finish(err error) {
	t.program.Send(DoneMsg{Err: err})
}
