package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gcexport/pkg/export"
	"gcexport/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00"},
		{59.6, "0:01:00"},
		{12.5, "0:00:13"},
		{1800, "0:30:00"},
		{3723.4, "1:02:03"},
		{90000, "25:00:00"},
		{-5, "0:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestActivityDetails(t *testing.T) {
	full := models.ActivitySummary{
		ID:        "1",
		StartTime: ptr("2024-05-01 07:00:00"),
		Duration:  ptr(1830.0),
		Distance:  ptr(5230.0),
	}
	assert.Equal(t, "Start time: 2024-05-01 07:00:00, Duration: 0:30:30, Distance: 5.23 km", ActivityDetails(full))

	bare := models.ActivitySummary{ID: "2"}
	assert.Equal(t, "Start time: ??:??:??, Duration: ??:??:??, Distance: ? km", ActivityDetails(bare))
}

func TestPresenterNarration(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(NewTerminal(&buf, true))

	a := models.ActivitySummary{ID: "12345", Name: "Morning Run"}
	for _, e := range []export.Event{
		{Kind: export.EventDirectoryExists, Message: "output directory already exists"},
		{Kind: export.EventActivityStarted, Activity: &a},
		{Kind: export.EventDownloading, Activity: &a, Path: "activity_12345.tcx"},
		{Kind: export.EventPlaceholder, Activity: &a, Format: models.FormatTCX, Status: 500},
		{Kind: export.EventActivityFinished, Activity: &a, Format: models.FormatTCX, Outcome: models.OutcomeWrittenPlaceholder},
		{Kind: export.EventActivityFinished, Activity: &a, Format: models.FormatOriginal, Outcome: models.OutcomeSkippedExisting, Path: "12345.fit"},
		{Kind: export.EventTrackPoints, HasTrackPoints: false},
	} {
		p.Emit(e)
	}

	out := buf.String()
	assert.Contains(t, out, "Warning: output directory already exists")
	assert.Contains(t, out, "Garmin Connect activity: [12345] Morning Run")
	assert.Contains(t, out, "\tStart time: ??:??:??")
	assert.Contains(t, out, "did not generate a TCX file")
	assert.Contains(t, out, "\tDone.\n")
	assert.Contains(t, out, "FIT data file already exists; skipping...")
	assert.Contains(t, out, "No track points found.")
	assert.NotContains(t, out, "\x1b[", "no escape codes without color")
}

func TestSummary(t *testing.T) {
	r := &export.Result{
		Outcomes: map[models.Outcome]int{
			models.OutcomeWritten:         3,
			models.OutcomeSkippedExisting: 2,
		},
		Duration: 1500 * time.Millisecond,
	}
	assert.Equal(t, "Done! 3 written, 2 skipped-existing in 1.5s.", Summary(r))

	empty := &export.Result{Outcomes: map[models.Outcome]int{}}
	assert.True(t, strings.HasPrefix(Summary(empty), "Done! nothing to do"))
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, true)

	term.PrintError("Export failed", errors.New("auth error: no ticket"))
	term.PrintInfo("Directory", "./exports")
	term.PrintWarning("careful")
	term.PrintSuccess("ok")

	assert.Equal(t, "Export failed: auth error: no ticket\nDirectory: ./exports\nWarning: careful\nok\n", buf.String())
}

type fakeSender struct {
	title, message string
	err            error
}

func (f *fakeSender) Send(title, message string) error {
	f.title, f.message = title, message
	return f.err
}

func TestNotifier(t *testing.T) {
	s := &fakeSender{}
	n := NewNotifierWithSender(s)
	assert.NoError(t, n.Notify("gcexport", "3 activities exported"))
	assert.Equal(t, "gcexport", s.title)
	assert.Equal(t, "3 activities exported", s.message)

	s.err = errors.New("no display")
	assert.Error(t, n.Notify("a", "b"))

	assert.NoError(t, NewNotifier(false).Notify("a", "b"), "disabled notifier never sends")
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"say \"hi\""`, appleScriptQuote(`say "hi"`))
	assert.Equal(t, `'it''s'`, powerShellQuote("it's"))
}
