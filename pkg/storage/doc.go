// Package storage manages the export directory.
//
// Files are written atomically (temporary file plus rename), so a file that
// exists is a finished download; the exporter relies on that to skip work on
// later runs. Original uploads arrive as zip archives which Unzip extracts in
// place, refusing entries that point outside the directory.
//
//	manager, err := storage.NewManager("exports")
//	if !manager.Exists("activity_12345.gpx") {
//	    err = manager.Save("activity_12345.gpx", data)
//	}
package storage
