package export

import (
	"gcexport/pkg/models"
)

// EventKind names a step of an export run worth telling the user about
type EventKind string

const (
	EventDirectoryExists  EventKind = "directory-exists"
	EventAuthenticated    EventKind = "authenticated"
	EventTotalResolved    EventKind = "total-resolved"
	EventPageFetched      EventKind = "page-fetched"
	EventActivityStarted  EventKind = "activity-started"
	EventDownloading      EventKind = "downloading"
	EventPlaceholder      EventKind = "placeholder"
	EventTrackPoints      EventKind = "track-points"
	EventUnzipped         EventKind = "unzipped"
	EventActivityFinished EventKind = "activity-finished"
	EventStoppedEarly     EventKind = "stopped-early"
	EventRunFinished      EventKind = "run-finished"
)

// Event is one narration item. Only the fields relevant to Kind are set.
type Event struct {
	Kind     EventKind
	RunID    string
	Activity *models.ActivitySummary
	Format   models.Format

	// activity-finished
	Outcome models.Outcome
	Path    string
	Bytes   int

	// placeholder
	Status int

	// track-points
	HasTrackPoints bool

	// unzipped
	Files []string

	// total-resolved, page-fetched
	Total  int
	Offset int
	Size   int

	// run-finished
	Result *Result

	Message string
}

// EventSink receives events in the order they happen
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(e Event) { f(e) }

// Discard drops every event
var Discard EventSink = EventSinkFunc(func(Event) {})

type multiSink []EventSink

func (m multiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// MultiSink fans events out to every non-nil sink
func MultiSink(sinks ...EventSink) EventSink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return Discard
	}
	return out
}

// Recorder keeps every event, for tests and end of run summaries
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// Kinds returns the kinds of the recorded events in order
func (r *Recorder) Kinds() []EventKind {
	kinds := make([]EventKind, len(r.Events))
	for i, e := range r.Events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Of returns the recorded events of one kind
func (r *Recorder) Of(kind EventKind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
