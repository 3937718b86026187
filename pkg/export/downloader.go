package export

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"gcexport/pkg/errors"
	"gcexport/pkg/garmin"
	"gcexport/pkg/gpx"
	"gcexport/pkg/logger"
	"gcexport/pkg/models"
	"gcexport/pkg/session"
	"gcexport/pkg/storage"
)

// DestinationNames returns the file an activity is saved as, followed by
// any legacy names whose presence also counts as already downloaded.
func DestinationNames(activityID string, format models.Format) ([]string, error) {
	switch format {
	case models.FormatGPX:
		return []string{"activity_" + activityID + ".gpx"}, nil
	case models.FormatTCX:
		return []string{"activity_" + activityID + ".tcx"}, nil
	case models.FormatOriginal:
		// earlier runs with unzip kept only the extracted <id>.fit
		return []string{"activity_" + activityID + ".zip", activityID + ".fit"}, nil
	default:
		return nil, errors.UnrecognizedFormat(string(format))
	}
}

// placeholderStatus reports whether a failed download of format with code is
// a known service gap rather than an error: no TCX is generated for manual
// GPX uploads (500) and manually entered activities have no original (404).
func placeholderStatus(format models.Format, code int) bool {
	switch {
	case format == models.FormatTCX && code == http.StatusInternalServerError:
		return true
	case format == models.FormatOriginal && code == http.StatusNotFound:
		return true
	}
	return false
}

// Downloader fetches and persists one activity at a time
type Downloader struct {
	session           session.Session
	protocol          garmin.Protocol
	store             *storage.Manager
	sink              EventSink
	logger            logger.Logger
	writePlaceholders bool
	runID             string
	written           int64
}

// Process downloads one activity in the requested format. Existing files
// short-circuit without any request. Errors are fatal to the run.
func (d *Downloader) Process(ctx context.Context, a models.ActivitySummary, req models.ExportRequest) (models.Outcome, error) {
	log := d.logger.WithFields(map[string]interface{}{
		"activity_id": a.ID,
		"format":      string(req.Format),
	})

	names, err := DestinationNames(a.ID, req.Format)
	if err != nil {
		return "", err
	}
	primary := names[0]

	d.emit(Event{Kind: EventActivityStarted, Activity: &a, Format: req.Format})

	for _, name := range names {
		if d.store.Exists(name) {
			d.finish(a, req.Format, models.OutcomeSkippedExisting, name, 0)
			log.WithField("path", name).Debug("Already downloaded")
			return models.OutcomeSkippedExisting, nil
		}
	}

	downloadURL, err := d.protocol.DownloadURL(a.ID, req.Format)
	if err != nil {
		return "", err
	}

	d.emit(Event{Kind: EventDownloading, Activity: &a, Format: req.Format, Path: primary})

	outcome := models.OutcomeWritten
	data, err := d.session.Get(ctx, downloadURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		code := errors.StatusCode(err)
		if !errors.IsType(err, errors.ErrorTypeTransport) || !placeholderStatus(req.Format, code) {
			logger.LogActivity(log, a.ID, string(req.Format), "failed", err)
			return "", errors.Download(a.ID, err)
		}

		d.emit(Event{Kind: EventPlaceholder, Activity: &a, Format: req.Format, Status: code, Path: primary})
		if !d.writePlaceholders {
			d.finish(a, req.Format, models.OutcomeSkippedEmpty, primary, 0)
			logger.LogActivity(log, a.ID, string(req.Format), string(models.OutcomeSkippedEmpty), nil)
			return models.OutcomeSkippedEmpty, nil
		}
		data = nil
		outcome = models.OutcomeWrittenPlaceholder
	}

	if err := d.store.Save(primary, data); err != nil {
		return "", fmt.Errorf("saving activity %s: %w", a.ID, err)
	}

	switch req.Format {
	case models.FormatGPX:
		has, err := gpx.HasTrackPoints(data)
		if err != nil {
			log.WithError(err).Warn("Saved GPX is not well formed")
		}
		d.emit(Event{Kind: EventTrackPoints, Activity: &a, Format: req.Format, HasTrackPoints: has, Path: primary})
	case models.FormatOriginal:
		if len(data) > 0 && req.Unzip && strings.EqualFold(filepath.Ext(primary), ".zip") {
			files, err := d.store.Unzip(primary)
			if err != nil {
				return "", fmt.Errorf("unpacking activity %s: %w", a.ID, err)
			}
			d.emit(Event{Kind: EventUnzipped, Activity: &a, Format: req.Format, Files: files, Path: primary})
		}
	}

	d.finish(a, req.Format, outcome, primary, len(data))
	logger.LogActivity(log, a.ID, string(req.Format), string(outcome), nil)
	return outcome, nil
}

func (d *Downloader) finish(a models.ActivitySummary, format models.Format, outcome models.Outcome, path string, n int) {
	d.written += int64(n)
	d.emit(Event{
		Kind:     EventActivityFinished,
		Activity: &a,
		Format:   format,
		Outcome:  outcome,
		Path:     path,
		Bytes:    n,
	})
}

func (d *Downloader) emit(e Event) {
	e.RunID = d.runID
	d.sink.Emit(e)
}
