// Package metrics turns export events into Prometheus series that are
// written once, at the end of a run, in the node exporter textfile format.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"gcexport/pkg/export"
	"gcexport/pkg/models"
)

// Recorder is an export.EventSink that accumulates run metrics
type Recorder struct {
	registry     *prometheus.Registry
	activities   *prometheus.CounterVec
	placeholders *prometheus.CounterVec
	pages        prometheus.Counter
	bytes        prometheus.Counter
	total        prometheus.Gauge
	duration     prometheus.Gauge
	stoppedEarly prometheus.Gauge
	lastRun      prometheus.Gauge
}

// NewRecorder constructs a recorder with its own registry
func NewRecorder() (*Recorder, error) {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		activities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcexport",
			Name:      "activities_total",
			Help:      "Activities processed, by outcome and format.",
		}, []string{"outcome", "format"}),
		placeholders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcexport",
			Name:      "placeholder_responses_total",
			Help:      "Downloads answered with a tolerated error status.",
		}, []string{"format", "status"}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gcexport",
			Name:      "pages_fetched_total",
			Help:      "Activity search pages processed.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gcexport",
			Name:      "bytes_written_total",
			Help:      "Bytes of activity data written to disk.",
		}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gcexport",
			Name:      "activities_requested",
			Help:      "Activities the run set out to process.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gcexport",
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		stoppedEarly: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gcexport",
			Name:      "run_stopped_early",
			Help:      "1 when the last run stopped at an already downloaded activity.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gcexport",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.activities, r.placeholders, r.pages, r.bytes,
		r.total, r.duration, r.stoppedEarly, r.lastRun,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Emit implements export.EventSink
func (r *Recorder) Emit(e export.Event) {
	switch e.Kind {
	case export.EventTotalResolved:
		r.total.Set(float64(e.Total))
	case export.EventPageFetched:
		r.pages.Inc()
	case export.EventPlaceholder:
		r.placeholders.WithLabelValues(string(e.Format), strconv.Itoa(e.Status)).Inc()
	case export.EventActivityFinished:
		r.activities.WithLabelValues(string(e.Outcome), string(e.Format)).Inc()
		r.bytes.Add(float64(e.Bytes))
	case export.EventRunFinished:
		if e.Result == nil {
			return
		}
		r.duration.Set(e.Result.Duration.Seconds())
		if e.Result.StoppedEarly {
			r.stoppedEarly.Set(1)
		}
		r.lastRun.SetToCurrentTime()
	}
}

// Prime creates the per-outcome series for format so that zero counts are
// written too
func (r *Recorder) Prime(format models.Format) {
	for _, o := range models.Outcomes {
		r.activities.WithLabelValues(string(o), string(format))
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all series to path atomically
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
