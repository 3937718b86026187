package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gcexport/pkg/models"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Service.Protocol != "modern" {
		t.Errorf("Expected default protocol to be modern, got %s", config.Service.Protocol)
	}

	if config.Export.Format != "gpx" {
		t.Errorf("Expected default format to be gpx, got %s", config.Export.Format)
	}

	if config.Export.Count != "1" {
		t.Errorf("Expected default count to be 1, got %s", config.Export.Count)
	}

	if config.Export.Directory != "./" {
		t.Errorf("Expected default directory to be ./, got %s", config.Export.Directory)
	}

	if !config.Export.WritePlaceholders {
		t.Error("Expected placeholders to be written by default")
	}

	if config.Service.Timeout != 0 {
		t.Errorf("Expected no default timeout, got %v", config.Service.Timeout)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GCEXPORT_USERNAME", "runner@example.com")
	t.Setenv("GCEXPORT_PASSWORD", "secret")
	t.Setenv("GCEXPORT_PROTOCOL", "legacy")
	t.Setenv("GCEXPORT_DIRECTORY", "/tmp/garmin")
	t.Setenv("GCEXPORT_FORMAT", "tcx")
	t.Setenv("GCEXPORT_COUNT", "all")
	t.Setenv("GCEXPORT_UNZIP", "true")
	t.Setenv("GCEXPORT_TIMEOUT", "45s")
	t.Setenv("GCEXPORT_REQUESTS_PER_MINUTE", "30")
	t.Setenv("GCEXPORT_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Service.Username != "runner@example.com" {
		t.Errorf("Expected username from env, got %s", config.Service.Username)
	}
	if config.Service.Password != "secret" {
		t.Errorf("Expected password from env, got %s", config.Service.Password)
	}
	if config.Service.Protocol != "legacy" {
		t.Errorf("Expected protocol legacy, got %s", config.Service.Protocol)
	}
	if config.Export.Directory != "/tmp/garmin" {
		t.Errorf("Expected directory /tmp/garmin, got %s", config.Export.Directory)
	}
	if config.Export.Format != "tcx" || config.Export.Count != "all" || !config.Export.Unzip {
		t.Errorf("Unexpected export config: %+v", config.Export)
	}
	if config.Service.Timeout != 45*time.Second {
		t.Errorf("Expected timeout 45s, got %v", config.Service.Timeout)
	}
	if config.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("Expected requests per minute to be 30, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("GCEXPORT_TIMEOUT", "soon")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected error for invalid timeout")
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "gcexport.yaml")

	content := `
service:
  protocol: legacy
  timeout: 10s
export:
  directory: ./exports
  format: original
  count: new
  unzip: true
logging:
  level: info
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Service.Protocol != "legacy" {
		t.Errorf("Expected protocol legacy, got %s", config.Service.Protocol)
	}
	if config.Service.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", config.Service.Timeout)
	}
	// Values absent from the file keep their defaults
	if config.Service.SSOURL != "https://sso.garmin.com" {
		t.Errorf("Expected default SSO URL to survive, got %s", config.Service.SSOURL)
	}

	req, err := config.Request()
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if req.Format != models.FormatOriginal || !req.Count.IsNew() || !req.Unzip || req.Directory != "./exports" {
		t.Errorf("Unexpected request: %+v", req)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for explicit missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown protocol", func(c *Config) { c.Service.Protocol = "v3" }, "unknown protocol"},
		{"bad format", func(c *Config) { c.Export.Format = "fit" }, "unrecognized file format"},
		{"bad count", func(c *Config) { c.Export.Count = "zero" }, "invalid count"},
		{"empty directory", func(c *Config) { c.Export.Directory = "" }, "directory is required"},
		{"negative rate", func(c *Config) { c.RateLimit.RequestsPerMinute = -1 }, "requests per minute"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"count":        "250",
		"format":       "tcx",
		"directory":    "/data/garmin",
		"unzip":        true,
		"log":          true,
		"metrics-file": "/tmp/gcexport.prom",
		"rate-limit":   30,

		"write-placeholders": false,
	})

	if config.Export.Count != "250" || config.Export.Format != "tcx" || config.Export.Directory != "/data/garmin" {
		t.Errorf("Flags not merged: %+v", config.Export)
	}
	if !config.Export.Unzip {
		t.Error("Expected unzip flag to be merged")
	}
	if config.Logging.File != DefaultLogFile {
		t.Errorf("Expected --log to enable %s, got %q", DefaultLogFile, config.Logging.File)
	}
	if config.Metrics.TextfilePath != "/tmp/gcexport.prom" {
		t.Errorf("Expected metrics file to be merged, got %q", config.Metrics.TextfilePath)
	}
	if config.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("Expected rate limit 30, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Export.WritePlaceholders {
		t.Error("Expected placeholders to be switched off")
	}
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	configPath := filepath.Join(tempDir, "gcexport.yaml")
	if err := os.WriteFile(configPath, []byte("export:\n  format: tcx\n  count: \"5\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("GCEXPORT_COUNT", "10")

	config, err := Load(configPath, map[string]interface{}{"format": "original"})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Export.Format != "original" {
		t.Errorf("Expected flag to win over file, got %s", config.Export.Format)
	}
	if config.Export.Count != "10" {
		t.Errorf("Expected env to win over file, got %s", config.Export.Count)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.Export.Format = "tcx"
	if err := config.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded.Export.Format != "tcx" {
		t.Errorf("Expected saved format tcx, got %s", loaded.Export.Format)
	}
}
