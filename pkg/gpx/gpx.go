// Package gpx inspects downloaded GPX documents.
package gpx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// HasTrackPoints reports whether data contains at least one trkpt element.
// It stops at the first one found. Activities recorded indoors are exported
// without track points, so false is not an error.
func HasTrackPoints(data []byte) (bool, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("parsing gpx: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "trkpt" {
			return true, nil
		}
	}
}
