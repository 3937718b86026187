package models

import (
	"fmt"
	"strconv"
	"strings"

	"gcexport/pkg/errors"
)

// Format is the download format of an activity
type Format string

const (
	FormatGPX      Format = "gpx"
	FormatTCX      Format = "tcx"
	FormatOriginal Format = "original"
)

// Formats lists the accepted formats in display order
var Formats = []Format{FormatGPX, FormatTCX, FormatOriginal}

// ParseFormat validates a user supplied format string
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatGPX, FormatTCX, FormatOriginal:
		return f, nil
	}
	return "", errors.UnrecognizedFormat(s)
}

// CountKind distinguishes a literal count from the all/new sentinels
type CountKind int

const (
	CountNumber CountKind = iota
	CountAll
	CountNew
)

// Count is the number of activities requested for one export run
type Count struct {
	Kind CountKind
	N    int
}

// ParseCount accepts a positive integer, "all" or "new"
func ParseCount(s string) (Count, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return Count{Kind: CountAll}, nil
	case "new":
		return Count{Kind: CountNew}, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return Count{}, fmt.Errorf("invalid count %q: must be a positive integer, 'all' or 'new'", s)
	}
	return Count{Kind: CountNumber, N: n}, nil
}

// IsNew reports whether the run stops at the first already downloaded activity
func (c Count) IsNew() bool {
	return c.Kind == CountNew
}

func (c Count) String() string {
	switch c.Kind {
	case CountAll:
		return "all"
	case CountNew:
		return "new"
	default:
		return strconv.Itoa(c.N)
	}
}

// ExportRequest is the immutable configuration of one export run
type ExportRequest struct {
	Directory string
	Format    Format
	Count     Count
	Unzip     bool
}

// ActivitySummary is one entry of the remote activity catalog
type ActivitySummary struct {
	ID        string
	Name      string
	StartTime *string  // service local time, as reported
	Duration  *float64 // seconds
	Distance  *float64 // meters
}

// Outcome is the result of processing a single activity
type Outcome string

const (
	OutcomeWritten            Outcome = "written"
	OutcomeSkippedExisting    Outcome = "skipped-existing"
	OutcomeSkippedEmpty       Outcome = "skipped-empty-by-policy"
	OutcomeWrittenPlaceholder Outcome = "written-empty-placeholder"
)

// Outcomes lists every outcome, used to pre-populate tallies and metrics
var Outcomes = []Outcome{OutcomeWritten, OutcomeSkippedExisting, OutcomeSkippedEmpty, OutcomeWrittenPlaceholder}
