package config

// SpecConfig configures spec parsing.
type SpecConfig struct {
	// Literal section header that selects the checklist dialect
	ChecklistHeader string `yaml:"checklist_header"`

	// Shortest word used as a missing-evidence hint
	HintMinLength int `yaml:"hint_min_length"`
}

// ReportConfig configures report output.
type ReportConfig struct {
	Format    string `yaml:"format"`     // md, json
	OutputDir string `yaml:"output_dir"` // used when --out is a bare file name
	Style     string `yaml:"style"`      // glamour style for --pretty; empty = auto
	Width     int    `yaml:"width"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TextfilePath string `yaml:"textfile_path"`
	Namespace    string `yaml:"namespace"`
}

// FactsConfig configures Mangle evaluation.
type FactsConfig struct {
	FactLimit    int    `yaml:"fact_limit"`
	QueryTimeout string `yaml:"query_timeout"`
}

// SuiteConfig configures the suite runner.
type SuiteConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// WatchConfig configures the watch trigger.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}
