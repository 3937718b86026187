// Package logger wraps zerolog behind a small structured logging interface.
//
// Diagnostics go to stderr through a console writer; setting a log file adds
// a JSON sink next to it. There is no package level logger: callers build one
// with New and pass it down.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("activity_id", id).Debug("Downloading")
//
// NewTestLogger captures messages for assertions in tests.
package logger
