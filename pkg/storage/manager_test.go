package storage

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func makeZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry: %v", err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func TestManager(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "exports")

	if DirExists(tempDir) {
		t.Fatal("Expected directory to be absent before NewManager")
	}

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if !DirExists(tempDir) {
		t.Fatal("Expected NewManager to create the directory")
	}

	if manager.Exists("activity_1.gpx") {
		t.Error("Expected Exists to return false for non-existent file")
	}

	testData := []byte("<gpx/>")
	if err := manager.Save("activity_1.gpx", testData); err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tempDir, "activity_1.gpx"))
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}
	if !manager.Exists("activity_1.gpx") {
		t.Error("Expected Exists to return true for saved file")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "activity_1.gpx.tmp")); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be cleaned up")
	}
}

func TestSaveEmptyPlaceholder(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := manager.Save("activity_2.tcx", nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(manager.Path("activity_2.tcx"))
	if err != nil {
		t.Fatalf("placeholder missing: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("placeholder size = %d, want 0", info.Size())
	}
}

func TestUnzip(t *testing.T) {
	dir := t.TempDir()
	manager, _ := NewManager(dir)

	data := makeZip(t, map[string]string{"12345.fit": "FIT", "extra/notes.txt": "hi"})
	if err := manager.Save("activity_12345.zip", data); err != nil {
		t.Fatal(err)
	}

	names, err := manager.Unzip("activity_12345.zip")
	if err != nil {
		t.Fatalf("Unzip() error = %v", err)
	}
	if len(names) != 2 {
		t.Errorf("extracted %v, want 2 entries", names)
	}
	if !manager.Exists("12345.fit") || !manager.Exists(filepath.Join("extra", "notes.txt")) {
		t.Error("Expected entries to be extracted")
	}
	if manager.Exists("activity_12345.zip") {
		t.Error("Expected archive to be removed")
	}
}

func TestUnzipRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	manager, _ := NewManager(filepath.Join(dir, "exports"))

	data := makeZip(t, map[string]string{"ok.fit": "FIT", "../evil.sh": "boom"})
	if err := manager.Save("activity_9.zip", data); err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Unzip("activity_9.zip"); err == nil {
		t.Fatal("Expected an error for an entry escaping the directory")
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.sh")); !os.IsNotExist(err) {
		t.Error("Escaping entry was written")
	}
	if manager.Exists("ok.fit") {
		t.Error("No entry should be extracted from a rejected archive")
	}
	if !manager.Exists("activity_9.zip") {
		t.Error("Rejected archive should be kept")
	}
}

func TestUnzipInvalidArchive(t *testing.T) {
	manager, _ := NewManager(t.TempDir())
	manager.Save("activity_3.zip", []byte("not a zip"))

	if _, err := manager.Unzip("activity_3.zip"); err == nil {
		t.Error("Expected an error for a corrupt archive")
	}
}
