package logger

import (
	"net/url"
	"time"
)

// LogRequest logs one HTTP exchange with the remote service.
// Query strings are dropped so that tickets never reach the log.
func LogRequest(l Logger, method, rawURL string, statusCode int, elapsed time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         redactURL(rawURL),
		"status_code": statusCode,
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	}

	switch {
	case statusCode >= 500:
		l.WarnWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogActivity logs the outcome of one activity
func LogActivity(l Logger, activityID, format, outcome string, err error) {
	fields := map[string]interface{}{
		"activity_id": activityID,
		"format":      format,
		"outcome":     outcome,
	}
	if err != nil {
		l.WithError(err).ErrorWithFields("Activity failed", fields)
		return
	}
	l.InfoWithFields("Activity processed", fields)
}

// LogRateLimit logs a pacing delay
func LogRateLimit(l Logger, endpoint string, wait time.Duration) {
	l.DebugWithFields("Rate limit reached, waiting", map[string]interface{}{
		"endpoint": redactURL(endpoint),
		"wait":     wait,
	})
}

func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
