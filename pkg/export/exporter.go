package export

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"gcexport/pkg/garmin"
	"gcexport/pkg/logger"
	"gcexport/pkg/models"
	"gcexport/pkg/session"
	"gcexport/pkg/storage"
)

// Credentials are the account the run logs in with
type Credentials struct {
	Username string
	Password string
}

// Options tunes an Exporter
type Options struct {
	// WritePlaceholders stores an empty file for activities the service has
	// no TCX or original for, so later runs skip them. When false those
	// activities are reported as skipped-empty-by-policy and retried next time.
	WritePlaceholders bool
	Sink              EventSink
}

// Result summarizes one run
type Result struct {
	RunID        string
	Total        int
	Outcomes     map[models.Outcome]int
	Processed    int
	Pages        int
	Bytes        int64
	StoppedEarly bool
	Duration     time.Duration
}

func newResult(runID string) *Result {
	r := &Result{RunID: runID, Outcomes: make(map[models.Outcome]int, len(models.Outcomes))}
	for _, o := range models.Outcomes {
		r.Outcomes[o] = 0
	}
	return r
}

// snapshot copies r so sinks on other goroutines never share the live value
func (r *Result) snapshot() *Result {
	c := *r
	c.Outcomes = maps.Clone(r.Outcomes)
	return &c
}

// Exporter drives one export run: login, total resolution, then pages of
// activities in server order, one download at a time.
//
// A "new" run stops at the first activity already on disk. That is only
// correct while the service lists activities newest first and nothing older
// is added, deleted or reordered between runs.
type Exporter struct {
	session  session.Session
	protocol garmin.Protocol
	auth     *garmin.Authenticator
	catalog  *garmin.Catalog
	logger   logger.Logger
	opts     Options
}

// NewExporter wires the login, catalog and download steps over one session
func NewExporter(s session.Session, p garmin.Protocol, log logger.Logger, opts Options) *Exporter {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.Sink == nil {
		opts.Sink = Discard
	}
	return &Exporter{
		session:  s,
		protocol: p,
		auth:     garmin.NewAuthenticator(s, p, log),
		catalog:  garmin.NewCatalog(s, p, log),
		logger:   log,
		opts:     opts,
	}
}

// Run exports the activities req asks for. The returned Result is non-nil
// even on error and reflects the work done before the failure.
func (e *Exporter) Run(ctx context.Context, req models.ExportRequest, creds Credentials) (*Result, error) {
	start := time.Now()
	result := newResult(uuid.NewString())
	log := e.logger.WithField("run_id", result.RunID)
	emit := func(ev Event) {
		ev.RunID = result.RunID
		e.opts.Sink.Emit(ev)
	}
	finished := false
	defer func() {
		if !finished {
			result.Duration = time.Since(start)
		}
	}()

	exists := storage.DirExists(req.Directory)
	switch {
	case req.Count.IsNew() && !exists:
		return result, fmt.Errorf("directory %s does not exist: count=new needs the directory of a previous export", req.Directory)
	case exists && !req.Count.IsNew():
		emit(Event{Kind: EventDirectoryExists, Path: req.Directory, Message: "output directory already exists, already-downloaded files will be skipped"})
	}

	store, err := storage.NewManager(req.Directory)
	if err != nil {
		return result, err
	}

	if !e.session.Authenticated() {
		if err := e.auth.Login(ctx, creds.Username, creds.Password); err != nil {
			return result, err
		}
		emit(Event{Kind: EventAuthenticated, Message: creds.Username})
		log.WithField("protocol", e.protocol.Name()).Info("Logged in")
	}

	total, first, err := e.catalog.ResolveTotal(ctx, req.Count)
	if err != nil {
		return result, err
	}
	result.Total = total
	emit(Event{Kind: EventTotalResolved, Total: total})

	dl := &Downloader{
		session:           e.session,
		protocol:          e.protocol,
		store:             store,
		sink:              e.opts.Sink,
		logger:            log,
		writePlaceholders: e.opts.WritePlaceholders,
		runID:             result.RunID,
	}

	for offset := 0; offset < total; {
		page := first
		first = nil
		if page == nil {
			size := min(garmin.MaxPageSize, total-offset)
			page, err = e.catalog.FetchPage(ctx, offset, size)
			if err != nil {
				return result, err
			}
		}
		result.Pages++
		emit(Event{Kind: EventPageFetched, Offset: page.Offset, Size: page.Size, Total: len(page.Activities)})

		for _, a := range page.Activities {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			outcome, err := dl.Process(ctx, a, req)
			if err != nil {
				return result, err
			}
			result.Processed++
			result.Outcomes[outcome]++
			result.Bytes = dl.written

			if req.Count.IsNew() && outcome == models.OutcomeSkippedExisting {
				result.StoppedEarly = true
				emit(Event{Kind: EventStoppedEarly, Activity: &a})
				log.WithField("activity_id", a.ID).Info("Reached an already downloaded activity, stopping")
				finished = true
				e.finish(emit, result, start)
				return result, nil
			}
		}

		if len(page.Activities) == 0 {
			log.WithField("offset", offset).Warn("Catalog ended before the requested count")
			break
		}
		offset += page.Size
	}

	finished = true
	e.finish(emit, result, start)
	return result, nil
}

func (e *Exporter) finish(emit func(Event), result *Result, start time.Time) {
	result.Duration = time.Since(start)
	emit(Event{Kind: EventRunFinished, Result: result.snapshot()})
}
