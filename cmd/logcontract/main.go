package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"logcontract/internal/config"
	"logcontract/internal/logging"
)

// Exit codes of the verify trigger.
const (
	exitPass         = 0
	exitFail         = 1
	exitInconclusive = 2
	exitError        = 3
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Logger
	logger *zap.Logger

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// exitCodeError carries a process exit code through cobra.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error { return e.err }

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "logcontract",
	Short: "Verify captured runtime logs against Markdown behavioral contracts",
	Long: `logcontract reads a Markdown spec document and a captured log, checks that
every required piece of evidence appears, that ordered pairs are balanced and
that acquire/release tokens match, and writes a verdict report.

The verdict is pass, fail or inconclusive. A missing input or a spec with no
rules is never reported as pass.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws, err := resolveWorkspace()
		if err != nil {
			return err
		}
		if err := logging.Initialize(ws); err != nil {
			logger.Warn("Category logging disabled", zap.Error(err))
		}
		logging.Boot("%s invoked in %s", cmd.CommandPath(), ws)

		path := configPath
		if path == "" {
			path = config.DefaultPath(ws)
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}
		logger.Debug("Configuration loaded", zap.String("path", path), zap.String("workspace", ws))
		logging.BootDebug("config %s: history=%v metrics=%v format=%s", path, cfg.History.Enabled, cfg.Metrics.Enabled, cfg.Report.Format)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.logcontract/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(suiteCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(patternCmd)
}

func main() {
	os.Exit(run())
}

func run() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitPass
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		if ec.err != nil {
			fmt.Fprintln(os.Stderr, ec.err)
		}
		return ec.code
	}
	fmt.Fprintln(os.Stderr, err)
	return exitError
}

func resolveWorkspace() (string, error) {
	ws := workspace
	if ws == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve workspace: %w", err)
		}
		ws = cwd
	}
	abs, err := filepath.Abs(ws)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return abs, nil
}

// currentConfig returns the loaded config, or defaults when a command is
// invoked directly from a test.
func currentConfig() *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}

// workspacePath resolves p against the workspace.
func workspacePath(p string) string {
	ws, err := resolveWorkspace()
	if err != nil {
		return p
	}
	return config.ResolvePath(ws, p)
}
