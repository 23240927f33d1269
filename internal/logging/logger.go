// Package logging provides config-driven categorized file logging for logcontract.
// Logs are written to .logcontract/logs/ with separate files per category.
// Logging is controlled by debug_mode in .logcontract/config.yaml - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config resolution
	CategorySpec     Category = "spec"     // Spec document parsing
	CategoryLog      Category = "log"      // Log loading and normalization
	CategoryEvaluate Category = "evaluate" // Evidence, order and token checks
	CategoryReport   Category = "report"   // Report rendering and writing
	CategoryStore    Category = "store"    // Run history database
	CategoryWatch    Category = "watch"    // File watch trigger
	CategorySuite    Category = "suite"    // Suite runner
	CategoryFacts    Category = "facts"    // Mangle fact export and queries
)

// AllCategories lists every category in declaration order.
var AllCategories = []Category{
	CategoryBoot, CategorySpec, CategoryLog, CategoryEvaluate, CategoryReport,
	CategoryStore, CategoryWatch, CategorySuite, CategoryFacts,
}

// loggingConfig mirrors config.LoggingConfig to avoid circular imports
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// configFile structure for reading .logcontract/config.yaml
type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// Logger wraps a zap sugared logger bound to one category file.
// The zero value (nil sugar) is a no-op logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	workspace string
	config    loggingConfig
	configMu  sync.RWMutex
	level     = zapcore.InfoLevel
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".logcontract", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		configMu.Lock()
		config.DebugMode = false
		configMu.Unlock()
	}

	if !IsDebugMode() {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== logcontract logging initialized ===")
	boot.Info("Workspace: %s", workspace)
	boot.Info("Log level: %s", level)
	return nil
}

// loadConfig reads the logging section of .logcontract/config.yaml.
// LOGCONTRACT_DEBUG=1 forces debug mode on regardless of the file.
func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	config = loggingConfig{}
	path := filepath.Join(workspace, ".logcontract", "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var cf configFile
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		config = cf.Logging
	case !os.IsNotExist(err):
		return err
	}

	if v := os.Getenv("LOGCONTRACT_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		config.DebugMode = true
	}
	level = parseLevel(config.Level)
	return nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	core := zapcore.NewCore(newEncoder(), zapcore.AddSync(file), level)
	l := &Logger{
		category: category,
		file:     file,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

func newEncoder() zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	configMu.RLock()
	defer configMu.RUnlock()
	if config.JSONFormat {
		return zapcore.NewJSONEncoder(encCfg)
	}
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encCfg)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// StructuredLog writes a message with key-value fields at the given level.
func (l *Logger) StructuredLog(lvl string, msg string, fields map[string]interface{}) {
	if l.sugar == nil {
		return
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	switch parseLevel(lvl) {
	case zapcore.DebugLevel:
		l.sugar.Debugw(msg, kv...)
	case zapcore.WarnLevel:
		l.sugar.Warnw(msg, kv...)
	case zapcore.ErrorLevel:
		l.sugar.Errorw(msg, kv...)
	default:
		l.sugar.Infow(msg, kv...)
	}
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

// Spec logs to the spec category
func Spec(format string, args ...interface{}) { Get(CategorySpec).Info(format, args...) }

// SpecDebug logs debug to the spec category
func SpecDebug(format string, args ...interface{}) { Get(CategorySpec).Debug(format, args...) }

// SpecWarn logs a warning to the spec category
func SpecWarn(format string, args ...interface{}) { Get(CategorySpec).Warn(format, args...) }

// Log logs to the log category
func Log(format string, args ...interface{}) { Get(CategoryLog).Info(format, args...) }

// LogWarn logs a warning to the log category
func LogWarn(format string, args ...interface{}) { Get(CategoryLog).Warn(format, args...) }

// Evaluate logs to the evaluate category
func Evaluate(format string, args ...interface{}) { Get(CategoryEvaluate).Info(format, args...) }

// EvaluateDebug logs debug to the evaluate category
func EvaluateDebug(format string, args ...interface{}) {
	Get(CategoryEvaluate).Debug(format, args...)
}

// Report logs to the report category
func Report(format string, args ...interface{}) { Get(CategoryReport).Info(format, args...) }

// ReportError logs an error to the report category
func ReportError(format string, args ...interface{}) { Get(CategoryReport).Error(format, args...) }

// Store logs to the store category
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// StoreError logs an error to the store category
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

// Watch logs to the watch category
func Watch(format string, args ...interface{}) { Get(CategoryWatch).Info(format, args...) }

// WatchWarn logs a warning to the watch category
func WatchWarn(format string, args ...interface{}) { Get(CategoryWatch).Warn(format, args...) }

// Suite logs to the suite category
func Suite(format string, args ...interface{}) { Get(CategorySuite).Info(format, args...) }

// Facts logs to the facts category
func Facts(format string, args ...interface{}) { Get(CategoryFacts).Info(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
