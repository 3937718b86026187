package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gcexport/pkg/models"
)

// Config holds all configuration options for the exporter
type Config struct {
	// Remote service endpoints and identity
	Service ServiceConfig `yaml:"service" json:"service"`

	// What to export and where
	Export ExportConfig `yaml:"export" json:"export"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// End of run notification
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Run metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// ServiceConfig describes the remote service
type ServiceConfig struct {
	Protocol   string        `yaml:"protocol" json:"protocol"`
	SSOURL     string        `yaml:"sso_url" json:"sso_url"`
	ConnectURL string        `yaml:"connect_url" json:"connect_url"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	Username   string        `yaml:"username" json:"username"`
	Password   string        `yaml:"password" json:"-"`
}

// ExportConfig holds the defaults of an export request
type ExportConfig struct {
	Directory         string `yaml:"directory" json:"directory"`
	Format            string `yaml:"format" json:"format"`
	Count             string `yaml:"count" json:"count"`
	Unzip             bool   `yaml:"unzip" json:"unzip"`
	WritePlaceholders bool   `yaml:"write_placeholders" json:"write_placeholders"`
}

// RateLimitConfig paces outgoing requests; zero disables pacing
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// MetricsConfig holds the optional metrics textfile destination
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"`
}

// DefaultLogFile is used when file logging is switched on without a path
const DefaultLogFile = "gcexport.log"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Protocol:   "modern",
			SSOURL:     "https://sso.garmin.com",
			ConnectURL: "https://connect.garmin.com",
			UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/1337 Safari/537.36",
		},
		Export: ExportConfig{
			Directory:         "./",
			Format:            string(models.FormatGPX),
			Count:             "1",
			WritePlaceholders: true,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("GCEXPORT_USERNAME"); v != "" {
		c.Service.Username = v
	}
	if v := os.Getenv("GCEXPORT_PASSWORD"); v != "" {
		c.Service.Password = v
	}
	if v := os.Getenv("GCEXPORT_PROTOCOL"); v != "" {
		c.Service.Protocol = v
	}
	if v := os.Getenv("GCEXPORT_SSO_URL"); v != "" {
		c.Service.SSOURL = v
	}
	if v := os.Getenv("GCEXPORT_CONNECT_URL"); v != "" {
		c.Service.ConnectURL = v
	}
	if v := os.Getenv("GCEXPORT_USER_AGENT"); v != "" {
		c.Service.UserAgent = v
	}
	if v := os.Getenv("GCEXPORT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GCEXPORT_TIMEOUT: %w", err)
		}
		c.Service.Timeout = d
	}

	if v := os.Getenv("GCEXPORT_DIRECTORY"); v != "" {
		c.Export.Directory = v
	}
	if v := os.Getenv("GCEXPORT_FORMAT"); v != "" {
		c.Export.Format = v
	}
	if v := os.Getenv("GCEXPORT_COUNT"); v != "" {
		c.Export.Count = v
	}
	if v := os.Getenv("GCEXPORT_UNZIP"); v != "" {
		c.Export.Unzip = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("GCEXPORT_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GCEXPORT_REQUESTS_PER_MINUTE: %w", err)
		}
		c.RateLimit.RequestsPerMinute = n
	}

	if v := os.Getenv("GCEXPORT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GCEXPORT_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("GCEXPORT_METRICS_FILE"); v != "" {
		c.Metrics.TextfilePath = v
	}
	if v := os.Getenv("GCEXPORT_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".gcexport.yaml",
		".gcexport.yml",
		filepath.Join(home, ".config", "gcexport", "config.yaml"),
		filepath.Join(home, ".config", "gcexport", "config.yml"),
		filepath.Join(home, ".gcexport.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Service.Protocol) {
	case "modern", "legacy":
	default:
		errs = append(errs, fmt.Errorf("unknown protocol %q (want modern or legacy)", c.Service.Protocol))
	}
	if c.Service.SSOURL == "" || c.Service.ConnectURL == "" {
		errs = append(errs, errors.New("service URLs are required"))
	}
	if c.Service.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Service.Timeout < 0 {
		errs = append(errs, errors.New("timeout cannot be negative"))
	}

	if c.Export.Directory == "" {
		errs = append(errs, errors.New("export directory is required"))
	}
	if _, err := models.ParseFormat(c.Export.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := models.ParseCount(c.Export.Count); err != nil {
		errs = append(errs, err)
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "warning": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Request builds the export request described by the configuration
func (c *Config) Request() (models.ExportRequest, error) {
	format, err := models.ParseFormat(c.Export.Format)
	if err != nil {
		return models.ExportRequest{}, err
	}
	count, err := models.ParseCount(c.Export.Count)
	if err != nil {
		return models.ExportRequest{}, err
	}
	return models.ExportRequest{
		Directory: c.Export.Directory,
		Format:    format,
		Count:     count,
		Unzip:     c.Export.Unzip,
	}, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override, so unset flags keep lower layers.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["username"].(string); ok && v != "" {
		c.Service.Username = v
	}
	if v, ok := flags["password"].(string); ok && v != "" {
		c.Service.Password = v
	}
	if v, ok := flags["protocol"].(string); ok && v != "" {
		c.Service.Protocol = v
	}
	if v, ok := flags["directory"].(string); ok && v != "" {
		c.Export.Directory = v
	}
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Export.Format = v
	}
	if v, ok := flags["count"].(string); ok && v != "" {
		c.Export.Count = v
	}
	if v, ok := flags["unzip"].(bool); ok {
		c.Export.Unzip = v
	}
	if v, ok := flags["write-placeholders"].(bool); ok {
		c.Export.WritePlaceholders = v
	}
	if v, ok := flags["rate-limit"].(int); ok {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log"].(bool); ok && v && c.Logging.File == "" {
		c.Logging.File = DefaultLogFile
	}
	if v, ok := flags["no-color"].(bool); ok {
		c.Logging.NoColor = v
	}
	if v, ok := flags["metrics-file"].(string); ok && v != "" {
		c.Metrics.TextfilePath = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".gcexport.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
