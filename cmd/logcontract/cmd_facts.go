package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"logcontract/internal/atomicfile"
	"logcontract/internal/facts"
	"logcontract/internal/logdoc"
	"logcontract/internal/verify"
)

var (
	factsOut       string
	rulesPath      string
	queryPredicate string
	listPredicates bool
)

// factsCmd exports a run as Mangle facts
var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Export a verification run as Mangle facts",
	Long: `Verifies --log against --spec and prints the run as Mangle facts
(log_line, block_status, evidence, order_result, order_violation,
token_balance, run_status). With --out the facts are written to a file.`,
	RunE: runFacts,
}

// queryCmd evaluates Mangle rules over a run
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Evaluate Mangle rules over a verification run",
	Long: `Exports the run as facts, evaluates the built-in schema plus any rules
from --rules, and prints every fact of --predicate.

Built-in derived predicates: missing_hard/2, missing_soft/2, found_at/3,
failed_block/1, unexercised_rule/2, leaked_token/3.

Example:
  logcontract query --spec spec.md --log run.log --predicate missing_hard
  logcontract query --spec spec.md --log run.log --rules extra.mg --predicate late_ready`,
	RunE: runQuery,
}

func init() {
	for _, c := range []*cobra.Command{factsCmd, queryCmd} {
		c.Flags().StringVar(&specPath, "spec", "", "Spec document (required)")
		c.Flags().StringVar(&logPath, "log", "", "Captured log (required)")
		c.MarkFlagRequired("spec")
		c.MarkFlagRequired("log")
	}
	factsCmd.Flags().StringVar(&factsOut, "out", "", "Write facts to this file")
	queryCmd.Flags().StringVar(&rulesPath, "rules", "", "Additional Mangle rules file")
	queryCmd.Flags().StringVar(&queryPredicate, "predicate", "", "Predicate to print")
	queryCmd.Flags().BoolVar(&listPredicates, "list", false, "List the declared predicates")
}

// exportRun verifies and exports the run with its log lines.
func exportRun() ([]facts.Fact, *verify.Result, error) {
	v, err := newVerifier("")
	if err != nil {
		return nil, nil, err
	}
	spec, log := workspacePath(specPath), workspacePath(logPath)
	res := v.Run(spec, log)

	lines, err := logdoc.Load(log)
	if err != nil {
		logger.Warn("Exporting without log lines", zap.Error(err))
	}
	return facts.Export(res, lines), res, nil
}

func runFacts(cmd *cobra.Command, args []string) error {
	fs, res, err := exportRun()
	if err != nil {
		return err
	}
	text := facts.Render(fs)
	logger.Info("Exported facts", zap.Int("facts", len(fs)), zap.String("status", string(res.Status)))

	if factsOut == "" {
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	}
	out := workspacePath(factsOut)
	if err := atomicfile.WriteFile(out, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write facts: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d facts to %s\n", len(fs), out)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryPredicate == "" && !listPredicates {
		return fmt.Errorf("--predicate or --list is required")
	}

	var rules string
	if rulesPath != "" {
		data, err := os.ReadFile(workspacePath(rulesPath))
		if err != nil {
			return fmt.Errorf("failed to read rules: %w", err)
		}
		rules = string(data)
	}

	fs, _, err := exportRun()
	if err != nil {
		return err
	}

	c := currentConfig()
	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(baseCtx, c.GetQueryTimeout())
	defer cancel()

	prog, err := facts.Evaluate(ctx, fs, rules, c.Facts.FactLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listPredicates {
		fmt.Fprintln(out, strings.Join(prog.Predicates(), "\n"))
		if queryPredicate == "" {
			return nil
		}
	}

	results, err := prog.Query(queryPredicate)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(out, "No facts found for %s\n", queryPredicate)
		return nil
	}
	for _, f := range results {
		fmt.Fprintln(out, f.String())
	}
	return nil
}
