package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"logcontract/internal/metrics"
	"logcontract/internal/report"
	"logcontract/internal/store"
	"logcontract/internal/verify"
)

var (
	specPath     string
	logPath      string
	outPath      string
	reportFormat string
	pretty       bool
)

// verifyCmd runs one verification invocation
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify one captured log against a spec document",
	Long: `Runs the full check (evidence, order rules, token balance) once and
writes the report to --out.

Exit codes:
  0  pass
  1  fail
  2  inconclusive (missing input, no rules)
  3  runtime error

Example:
  logcontract verify --spec docs/scene_flow.md --log captures/run.log --out run.report.md`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&specPath, "spec", "", "Spec document (required)")
	verifyCmd.Flags().StringVar(&logPath, "log", "", "Captured log (required)")
	verifyCmd.Flags().StringVar(&outPath, "out", "", "Report path; a bare file name goes to report.output_dir")
	verifyCmd.Flags().StringVar(&reportFormat, "format", "", "Report format when the extension does not decide: md or json")
	verifyCmd.Flags().BoolVar(&pretty, "pretty", false, "Render the report to the terminal")
	verifyCmd.MarkFlagRequired("spec")
	verifyCmd.MarkFlagRequired("log")
}

// newVerifier builds a Verifier from the loaded config.
func newVerifier(format string) (*verify.Verifier, error) {
	c := currentConfig()
	if format == "" {
		format = c.Report.Format
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return verify.New(
		verify.WithChecklistHeader(c.Spec.ChecklistHeader),
		verify.WithHintMinLength(c.Spec.HintMinLength),
		verify.WithReportWriter(report.Writer{Format: f}),
	), nil
}

// resolveOut places bare file names in the configured report directory.
func resolveOut(out string) string {
	if out == "" {
		return ""
	}
	if filepath.Base(out) == out {
		return workspacePath(filepath.Join(currentConfig().Report.OutputDir, out))
	}
	return workspacePath(out)
}

func runVerify(cmd *cobra.Command, args []string) error {
	v, err := newVerifier(reportFormat)
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}

	spec, log, out := workspacePath(specPath), workspacePath(logPath), resolveOut(outPath)
	logger.Info("Verifying", zap.String("spec", spec), zap.String("log", log), zap.String("out", out))

	res, written := v.Invoke(spec, log, out)
	recordRun(res, !written)

	if pretty {
		c := currentConfig()
		text, err := report.Pretty(res, c.Report.Style, c.Report.Width)
		if err != nil {
			logger.Warn("Pretty rendering failed", zap.Error(err))
			fmt.Fprintln(cmd.OutOrStdout(), report.Banner(res))
		} else {
			fmt.Fprint(cmd.OutOrStdout(), text)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), report.Banner(res))
	}
	if out != "" {
		if written {
			fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", out)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "%v: %s\n", verify.ErrReportWrite, out)
		}
	}

	if code := exitCodeFor(res.Status); code != exitPass {
		return &exitCodeError{code: code}
	}
	return nil
}

func exitCodeFor(s verify.Status) int {
	switch s {
	case verify.StatusPass:
		return exitPass
	case verify.StatusFail:
		return exitFail
	default:
		return exitInconclusive
	}
}

// recordRun stores the result in the history database and the metrics
// textfile when they are enabled. Failures are logged, never fatal.
func recordRun(res *verify.Result, writeFailed bool) {
	c := currentConfig()

	if c.History.Enabled {
		hs, err := store.Open(workspacePath(c.History.DatabasePath))
		if err != nil {
			logger.Warn("History unavailable", zap.Error(err))
		} else {
			if err := hs.RecordResult(res); err != nil {
				logger.Warn("Failed to record run", zap.Error(err))
			}
			hs.Close()
		}
	}

	if c.Metrics.Enabled {
		m := metrics.New(c.Metrics.Namespace)
		m.Observe(res)
		if writeFailed {
			m.RecordWriteFailure()
		}
		if err := m.WriteTextfile(workspacePath(c.Metrics.TextfilePath)); err != nil {
			logger.Warn("Failed to write metrics", zap.Error(err))
		}
	}
}
