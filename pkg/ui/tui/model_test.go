package tui

import (
	"errors"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcexport/pkg/export"
	"gcexport/pkg/models"
)

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func TestModelAppliesEvents(t *testing.T) {
	a := &models.ActivitySummary{ID: "42", Name: "Lunch Ride"}
	m := send(t, NewModel(nil),
		EventMsg{Kind: export.EventTotalResolved, Total: 4},
		EventMsg{Kind: export.EventPageFetched, Size: 4},
		EventMsg{Kind: export.EventActivityStarted, Activity: a},
		EventMsg{Kind: export.EventDownloading, Activity: a, Path: "activity_42.gpx"},
	)

	assert.Equal(t, 4, m.total)
	assert.Equal(t, 1, m.pages)
	assert.Equal(t, "downloading activity_42.gpx", m.step)
	assert.Contains(t, m.View(), "[42]")
	assert.Contains(t, m.View(), "Lunch Ride")

	m = send(t, m,
		EventMsg{Kind: export.EventActivityFinished, Activity: a, Outcome: models.OutcomeWritten, Bytes: 2048, Path: "activity_42.gpx"},
		EventMsg{Kind: export.EventActivityFinished, Activity: a, Outcome: models.OutcomeSkippedExisting},
	)

	assert.Equal(t, 2, m.processed)
	assert.Equal(t, 1, m.outcomes[models.OutcomeWritten])
	assert.Equal(t, 1, m.outcomes[models.OutcomeSkippedExisting])
	assert.Equal(t, int64(2048), m.bytes)
	assert.InDelta(t, 0.5, m.Percent(), 1e-9)
	assert.Contains(t, m.View(), "2/4")
	assert.Contains(t, m.View(), "2.0 KB")
}

func TestModelPercentWithoutTotal(t *testing.T) {
	m := NewModel(nil)
	assert.Equal(t, 0.0, m.Percent())
	assert.Contains(t, m.View(), "0/?")
}

func TestModelLogIsBounded(t *testing.T) {
	m := NewModel(nil)
	for range 20 {
		m.addLog(levelInfo, "line")
	}
	assert.Len(t, m.logs, m.maxLogs)
}

func TestModelQuitCancelsRun(t *testing.T) {
	cancelled := false
	m := NewModel(func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, cancelled)
	assert.Equal(t, levelWarn, next.(Model).logs[0].Level)
}

func TestModelDone(t *testing.T) {
	m := send(t, NewModel(nil),
		EventMsg{Kind: export.EventStoppedEarly},
		EventMsg{Kind: export.EventRunFinished, Result: &export.Result{Duration: 1500 * time.Millisecond}},
	)
	next, cmd := m.Update(DoneMsg{})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "Done! 0 activities processed in 1.5s.")
	assert.Contains(t, m.View(), "Stopped at the first already exported activity.")

	m = send(t, NewModel(nil), DoneMsg{Err: errors.New("auth error: no ticket")})
	assert.Contains(t, m.View(), "Export failed: auth error: no ticket")
}

func TestProgramFollowsRun(t *testing.T) {
	ui := New(nil, tea.WithInput(nil), tea.WithOutput(io.Discard))

	go func() {
		a := &models.ActivitySummary{ID: "7"}
		ui.Emit(export.Event{Kind: export.EventTotalResolved, Total: 1})
		ui.Emit(export.Event{Kind: export.EventActivityStarted, Activity: a})
		ui.Emit(export.Event{Kind: export.EventActivityFinished, Activity: a, Outcome: models.OutcomeWritten})
		ui.Finish(nil)
	}()

	final, err := ui.Run()
	require.NoError(t, err)
	assert.True(t, final.done)
	assert.Equal(t, 1, final.processed)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{500, "500 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, FormatBytes(test.bytes))
	}
}
