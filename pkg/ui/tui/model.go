package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"gcexport/pkg/export"
	"gcexport/pkg/models"
)

const (
	levelInfo    = "INFO"
	levelSuccess = "SUCCESS"
	levelWarn    = "WARN"
	levelError   = "ERROR"
)

// LogLine is one entry of the activity log panel
type LogLine struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the bubbletea model of an export run
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	total     int
	processed int
	pages     int
	bytes     int64
	outcomes  map[models.Outcome]int

	current *models.ActivitySummary
	step    string

	logs    []LogLine
	maxLogs int

	startedAt time.Time
	done      bool
	stopped   bool
	result    *export.Result
	err       error

	width  int
	cancel func()
}

// NewModel creates the model. cancel is called when the user quits early.
func NewModel(cancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = labelStyle

	if cancel == nil {
		cancel = func() {}
	}

	outcomes := make(map[models.Outcome]int, len(models.Outcomes))
	for _, o := range models.Outcomes {
		outcomes[o] = 0
	}

	return Model{
		spinner:   s,
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		outcomes:  outcomes,
		maxLogs:   8,
		startedAt: time.Now(),
		cancel:    cancel,
	}
}

// Percent is the share of requested activities processed so far
func (m Model) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return min(1, float64(m.processed)/float64(m.total))
}

// apply folds one export event into the model
func (m *Model) apply(e export.Event) {
	switch e.Kind {
	case export.EventDirectoryExists:
		m.addLog(levelWarn, e.Message)

	case export.EventAuthenticated:
		m.addLog(levelInfo, "Logged in as "+e.Message)

	case export.EventTotalResolved:
		m.total = e.Total
		m.addLog(levelInfo, fmt.Sprintf("%d activities to export", e.Total))

	case export.EventPageFetched:
		m.pages++

	case export.EventActivityStarted:
		m.current = e.Activity
		m.step = "checking"

	case export.EventDownloading:
		m.step = "downloading " + e.Path

	case export.EventPlaceholder:
		m.addLog(levelWarn, fmt.Sprintf("%s: no %s data (HTTP %d)", activityID(e), e.Format, e.Status))

	case export.EventTrackPoints:
		if !e.HasTrackPoints {
			m.addLog(levelInfo, activityID(e)+": no track points")
		}

	case export.EventUnzipped:
		m.step = fmt.Sprintf("unzipped %d file(s)", len(e.Files))

	case export.EventActivityFinished:
		m.processed++
		m.outcomes[e.Outcome]++
		m.bytes += int64(e.Bytes)
		m.step = string(e.Outcome)
		if e.Outcome == models.OutcomeWritten {
			m.addLog(levelSuccess, activityID(e)+": "+e.Path)
		}

	case export.EventStoppedEarly:
		m.stopped = true
		m.addLog(levelInfo, "Reached an activity exported by an earlier run")

	case export.EventRunFinished:
		m.result = e.Result
		m.current = nil
	}
}

func (m *Model) addLog(level, message string) {
	m.logs = append(m.logs, LogLine{Time: time.Now(), Level: level, Message: message})
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}

func activityID(e export.Event) string {
	if e.Activity == nil {
		return "activity"
	}
	return "activity " + e.Activity.ID
}

// FormatBytes formats bytes to human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
