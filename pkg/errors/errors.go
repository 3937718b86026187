package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures of the export pipeline
type ErrorType string

const (
	ErrorTypeTransport          ErrorType = "transport"
	ErrorTypeAuth               ErrorType = "auth"
	ErrorTypeDownload           ErrorType = "download"
	ErrorTypeUnrecognizedFormat ErrorType = "unrecognized_format"
	ErrorTypeParsing            ErrorType = "parsing"
)

// Error is the typed error shared by every layer of the exporter
type Error struct {
	Type    ErrorType
	Message string
	Code    int // HTTP status, 0 when the request never got a response
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport reports a network failure (code 0) or a non-2xx response
func Transport(url string, code int, err error) *Error {
	msg := fmt.Sprintf("request to %s failed", url)
	if code != 0 {
		msg = fmt.Sprintf("bad return code for %s", url)
	}
	return &Error{Type: ErrorTypeTransport, Message: msg, Code: code, URL: url, Err: err}
}

// Auth reports a failed login handshake
func Auth(message string, err error) *Error {
	return &Error{Type: ErrorTypeAuth, Message: message, Code: StatusCode(err), Err: err}
}

// Download reports an unexpected status while fetching an activity
func Download(activityID string, err error) *Error {
	code := StatusCode(err)
	return &Error{
		Type:    ErrorTypeDownload,
		Message: fmt.Sprintf("unexpected HTTP error (%d) for activity %s", code, activityID),
		Code:    code,
		Err:     err,
	}
}

// UnrecognizedFormat reports a format string outside gpx, tcx and original
func UnrecognizedFormat(format string) *Error {
	return &Error{
		Type:    ErrorTypeUnrecognizedFormat,
		Message: fmt.Sprintf("unrecognized file format %q", format),
	}
}

// Parsing reports a response payload that could not be understood
func Parsing(url string, err error) *Error {
	return &Error{Type: ErrorTypeParsing, Message: fmt.Sprintf("failed to parse response from %s", url), URL: url, Err: err}
}

// IsType reports whether any error in err's chain is an *Error of the given type
func IsType(err error, errorType ErrorType) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == errorType {
			return true
		}
		err = e.Err
	}
	return false
}

// StatusCode returns the HTTP status carried by the first *Error in err's chain
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}
