package ui

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"gcexport/pkg/export"
	"gcexport/pkg/models"
)

// Presenter renders export events as per-activity narration
type Presenter struct {
	out    io.Writer
	styles Styles
}

// NewPresenter creates a presenter writing through t
func NewPresenter(t *Terminal) *Presenter {
	return &Presenter{out: t.Writer(), styles: t.Styles()}
}

// Emit implements export.EventSink
func (p *Presenter) Emit(e export.Event) {
	s := p.styles
	switch e.Kind {
	case export.EventDirectoryExists:
		p.line(s.Warning.Render("Warning: " + e.Message))

	case export.EventAuthenticated:
		p.line(s.Dim.Render("Logged in as " + e.Message))

	case export.EventTotalResolved:
		p.line(fmt.Sprintf("%s %s", s.Label.Render("Activities to export:"), s.Value.Render(fmt.Sprint(e.Total))))

	case export.EventActivityStarted:
		a := e.Activity
		p.line(fmt.Sprintf("%s %s", s.Title.Render("Garmin Connect activity: ["+a.ID+"]"), a.Name))
		p.line("\t" + ActivityDetails(*a))

	case export.EventDownloading:
		p.line("\t" + s.Dim.Render("Downloading " + e.Path + "..."))

	case export.EventPlaceholder:
		p.line("\t" + s.Warning.Render(placeholderReason(e.Format)))

	case export.EventTrackPoints:
		if e.HasTrackPoints {
			p.line("\t" + s.Success.Render("Done. GPX data saved."))
		} else {
			p.line("\t" + s.Success.Render("Done. No track points found."))
		}

	case export.EventUnzipped:
		p.line("\t" + s.Dim.Render(fmt.Sprintf("Unzipped %d file(s) and removed the archive.", len(e.Files))))

	case export.EventActivityFinished:
		switch e.Outcome {
		case models.OutcomeSkippedExisting:
			if filepath.Ext(e.Path) == ".fit" {
				p.line("\t" + s.Dim.Render("FIT data file already exists; skipping..."))
			} else {
				p.line("\t" + s.Dim.Render("Data file already exists; skipping..."))
			}
		case models.OutcomeSkippedEmpty:
			p.line("\t" + s.Dim.Render("Nothing written; the activity will be tried again next run."))
		default:
			if e.Format != models.FormatGPX {
				p.line("\t" + s.Success.Render("Done."))
			}
		}

	case export.EventStoppedEarly:
		p.line(s.Dim.Render("Reached an activity exported by an earlier run; stopping."))

	case export.EventRunFinished:
		if e.Result != nil {
			p.line(s.Success.Render(Summary(e.Result)))
		}
	}
}

func (p *Presenter) line(text string) {
	fmt.Fprintln(p.out, text)
}

func placeholderReason(format models.Format) string {
	if format == models.FormatTCX {
		return "Writing empty file since Garmin did not generate a TCX file for this activity..."
	}
	return "Writing empty file since there was no original activity data..."
}

// ActivityDetails formats start time, duration and distance, with
// placeholders for fields the service did not report
func ActivityDetails(a models.ActivitySummary) string {
	start := "??:??:??"
	if a.StartTime != nil {
		start = *a.StartTime
	}
	duration := "??:??:??"
	if a.Duration != nil {
		duration = FormatDuration(*a.Duration)
	}
	distance := "? km"
	if a.Distance != nil {
		distance = fmt.Sprintf("%.2f km", *a.Distance/1000)
	}
	return fmt.Sprintf("Start time: %s, Duration: %s, Distance: %s", start, duration, distance)
}

// FormatDuration renders seconds as H:MM:SS, rounded to the nearest second
func FormatDuration(seconds float64) string {
	d := time.Duration(math.Round(seconds)) * time.Second
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}

// Summary is the closing line of a run
func Summary(r *export.Result) string {
	var parts []string
	for _, o := range models.Outcomes {
		if n := r.Outcomes[o]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, o))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "nothing to do")
	}
	return fmt.Sprintf("Done! %s in %s.", strings.Join(parts, ", "), r.Duration.Round(time.Millisecond))
}
