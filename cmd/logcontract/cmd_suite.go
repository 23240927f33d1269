package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"logcontract/internal/suite"
)

var suiteConcurrency int

// suiteCmd runs a batch of invocations from a YAML suite
var suiteCmd = &cobra.Command{
	Use:   "suite [suite.yaml]",
	Short: "Run a YAML batch of verifications",
	Long: `Runs every case of a suite file. A case's log may be a ** glob, in which
case every matched log is verified independently and its out field names a
report directory.

Example suite:
  version: 1
  cases:
    - id: scene-flow
      spec: docs/scene_flow.md
      log: captures/**/*.log
      out: reports/scene-flow
      expect: pass

Without an argument, <workspace>/.logcontract/suite.yaml is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSuite,
}

func init() {
	suiteCmd.Flags().IntVar(&suiteConcurrency, "concurrency", 0, "Concurrent invocations (default: suite.concurrency)")
}

func runSuite(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = workspacePath(args[0])
	} else {
		ws, err := resolveWorkspace()
		if err != nil {
			return err
		}
		path = suite.DefaultSuitePath(ws)
	}

	s, err := suite.LoadSuite(path)
	if err != nil {
		return fmt.Errorf("failed to load suite: %w", err)
	}

	v, err := newVerifier("")
	if err != nil {
		return err
	}

	n := suiteConcurrency
	if n <= 0 {
		n = currentConfig().Suite.Concurrency
	}

	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(baseCtx, timeout)
	defer cancel()

	logger.Info("Running suite", zap.String("path", path), zap.Int("cases", len(s.Cases)), zap.Int("concurrency", n))
	results, err := suite.Run(ctx, s, v, n)
	if err != nil {
		return fmt.Errorf("suite interrupted: %w", err)
	}

	var rows [][]string
	passed := 0
	for _, r := range results {
		verdict := "ok"
		if r.Passed {
			passed++
		} else {
			verdict = "MISMATCH"
		}
		if r.Error != "" {
			verdict += " (" + r.Error + ")"
		}
		rows = append(rows, []string{r.CaseID, r.LogPath, string(r.Expected), string(r.Status), verdict})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"CASE", "LOG", "EXPECT", "STATUS", "RESULT"}, rows))
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d invocations matched expectations\n", passed, len(results))

	if !suite.Passed(results) {
		return &exitCodeError{code: exitFail}
	}
	return nil
}
