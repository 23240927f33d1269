package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Dir is the per-workspace state directory.
const Dir = ".logcontract"

// Config holds all logcontract configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Spec parsing
	Spec SpecConfig `yaml:"spec"`

	// Report rendering and output
	Report ReportConfig `yaml:"report"`

	// Run history database
	History HistoryConfig `yaml:"history"`

	// Prometheus textfile export
	Metrics MetricsConfig `yaml:"metrics"`

	// Mangle fact export and queries
	Facts FactsConfig `yaml:"facts"`

	// Suite runner
	Suite SuiteConfig `yaml:"suite"`

	// Watch trigger
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "logcontract",
		Version: "0.3.0",

		Spec: SpecConfig{
			ChecklistHeader: "## Evidence Checklist",
			HintMinLength:   3,
		},

		Report: ReportConfig{
			Format:    "md",
			OutputDir: filepath.Join(Dir, "reports"),
			Width:     100,
		},

		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: filepath.Join(Dir, "history.db"),
		},

		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "logcontract",
		},

		Facts: FactsConfig{
			FactLimit:    100000,
			QueryTimeout: "30s",
		},

		Suite: SuiteConfig{
			Concurrency: 4,
		},

		Watch: WatchConfig{
			Debounce: "500ms",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the config path inside a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, Dir, "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("LOGCONTRACT_HISTORY_DB"); path != "" {
		c.History.DatabasePath = path
		c.History.Enabled = true
	}
	if dir := os.Getenv("LOGCONTRACT_REPORT_DIR"); dir != "" {
		c.Report.OutputDir = dir
	}
	if path := os.Getenv("LOGCONTRACT_METRICS_FILE"); path != "" {
		c.Metrics.TextfilePath = path
		c.Metrics.Enabled = true
	}
	if v := os.Getenv("LOGCONTRACT_DEBUG"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

// ValidFormats lists the accepted report formats.
var ValidFormats = []string{"md", "markdown", "json"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validFormat := false
	for _, f := range ValidFormats {
		if strings.EqualFold(c.Report.Format, f) {
			validFormat = true
			break
		}
	}
	if !validFormat {
		return fmt.Errorf("invalid report format: %s (valid: %v)", c.Report.Format, ValidFormats)
	}
	if strings.TrimSpace(c.Spec.ChecklistHeader) == "" {
		return fmt.Errorf("spec.checklist_header must not be empty")
	}
	if c.Spec.HintMinLength < 1 {
		return fmt.Errorf("spec.hint_min_length must be at least 1, got %d", c.Spec.HintMinLength)
	}
	if c.Suite.Concurrency < 1 {
		return fmt.Errorf("suite.concurrency must be at least 1, got %d", c.Suite.Concurrency)
	}
	if c.History.Enabled && c.History.DatabasePath == "" {
		return fmt.Errorf("history.database_path required when history is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.TextfilePath == "" {
		return fmt.Errorf("metrics.textfile_path required when metrics are enabled")
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
	}
	return nil
}

// GetWatchDebounce returns the watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetQueryTimeout returns the Mangle query timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Facts.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ResolvePath makes a relative path absolute against the workspace.
func ResolvePath(workspace, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}
