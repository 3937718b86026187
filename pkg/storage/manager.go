package storage

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Manager owns the export directory. Presence of a file is the only record
// of a finished download, so nothing is cached in memory.
type Manager struct {
	outputDir string
}

// DirExists reports whether path exists and is a directory
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// NewManager creates the output directory if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir}, nil
}

// Path joins name onto the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// Exists reports whether name is present in the output directory
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// Save writes data to name through a temporary file and rename, so an
// interrupted run never leaves a partial file that would be skipped later.
func (m *Manager) Save(name string, data []byte) error {
	filename := m.Path(name)
	tempFile := filename + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = out.Write(data)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Unzip extracts the archive name into the output directory and removes
// the archive. Entries that would land outside the directory are rejected
// before anything is written.
func (m *Manager) Unzip(name string) ([]string, error) {
	archive := m.Path(name)
	data, err := os.ReadFile(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", name, err)
	}

	root, err := filepath.Abs(m.outputDir)
	if err != nil {
		return nil, err
	}
	targets := make([]string, len(zr.File))
	for i, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive %s: entry %q escapes the export directory", name, f.Name)
		}
		targets[i] = target
	}

	var extracted []string
	for i, f := range zr.File {
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targets[i], 0755); err != nil {
				return extracted, err
			}
			continue
		}
		if err := extractFile(f, targets[i]); err != nil {
			return extracted, fmt.Errorf("archive %s: %w", name, err)
		}
		extracted = append(extracted, f.Name)
	}

	if err := os.Remove(archive); err != nil {
		return extracted, fmt.Errorf("failed to remove archive: %w", err)
	}
	return extracted, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return out.Close()
}
