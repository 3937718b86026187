package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcexport/pkg/export"
	"gcexport/pkg/models"
)

func TestRecorderCountsEvents(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)
	r.Prime(models.FormatTCX)

	events := []export.Event{
		{Kind: export.EventTotalResolved, Total: 3},
		{Kind: export.EventPageFetched},
		{Kind: export.EventActivityFinished, Format: models.FormatTCX, Outcome: models.OutcomeWritten, Bytes: 120},
		{Kind: export.EventPlaceholder, Format: models.FormatTCX, Status: 500},
		{Kind: export.EventActivityFinished, Format: models.FormatTCX, Outcome: models.OutcomeWrittenPlaceholder},
		{Kind: export.EventActivityFinished, Format: models.FormatTCX, Outcome: models.OutcomeSkippedExisting},
		{Kind: export.EventRunFinished, Result: &export.Result{Duration: 1500 * time.Millisecond, StoppedEarly: true}},
	}
	for _, e := range events {
		r.Emit(e)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(r.total))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pages))
	assert.Equal(t, 120.0, testutil.ToFloat64(r.bytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.activities.WithLabelValues("written", "tcx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.activities.WithLabelValues("written-empty-placeholder", "tcx")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.activities.WithLabelValues("skipped-empty-by-policy", "tcx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.placeholders.WithLabelValues("tcx", "500")))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stoppedEarly))
}

func TestWriteTextfile(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)
	r.Prime(models.FormatGPX)
	r.Emit(export.Event{Kind: export.EventActivityFinished, Format: models.FormatGPX, Outcome: models.OutcomeWritten, Bytes: 10})

	path := filepath.Join(t.TempDir(), "gcexport.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `gcexport_activities_total{format="gpx",outcome="written"} 1`), out)
	assert.Contains(t, out, `gcexport_activities_total{format="gpx",outcome="skipped-existing"} 0`)
	assert.Contains(t, out, "gcexport_bytes_written_total 10")
}

func TestWriteTextfileBadPath(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)
	assert.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")))
}
