package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"logcontract/internal/store"
	"logcontract/internal/verify"
)

var (
	historyLimit  int
	historyStatus string
	historyJSON   bool
)

// historyCmd lists recorded runs
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded verification runs",
	Long: `Lists runs recorded in the history database, newest first. With a run id,
shows the summary and diagnostics of that run.

Examples:
  logcontract history --limit 20
  logcontract history --status fail
  logcontract history 0b6c2f5e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list (0 = all)")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Only list runs with this status")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print JSON")
}

func openHistory() (*store.HistoryStore, error) {
	c := currentConfig()
	if !c.History.Enabled {
		return nil, fmt.Errorf("history is disabled (history.enabled: false)")
	}
	return store.Open(workspacePath(c.History.DatabasePath))
}

func runHistory(cmd *cobra.Command, args []string) error {
	hs, err := openHistory()
	if err != nil {
		return err
	}
	defer hs.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := hs.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %q not found", args[0])
		}
		if historyJSON {
			return printJSON(cmd, run)
		}
		fmt.Fprintf(out, "Run:      %s\n", run.ID)
		fmt.Fprintf(out, "Started:  %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05"), run.Duration)
		fmt.Fprintf(out, "Spec:     %s\n", run.SpecPath)
		fmt.Fprintf(out, "Log:      %s\n", run.LogPath)
		fmt.Fprintf(out, "Status:   %s\n", run.Status)
		fmt.Fprintf(out, "Summary:  %s\n", run.Summary)
		for i, d := range run.Diagnostics {
			fmt.Fprintf(out, "%3d. %s\n", i+1, d)
		}
		return nil
	}

	var status verify.Status
	if historyStatus != "" {
		if status, err = verify.ParseStatus(historyStatus); err != nil {
			return err
		}
	}

	runs, err := hs.ListRuns(historyLimit, status)
	if err != nil {
		return err
	}
	logger.Debug("Listed history", zap.Int("runs", len(runs)))

	if historyJSON {
		return printJSON(cmd, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.StartedAt.Format("2006-01-02 15:04:05"),
			string(r.Status),
			strconv.Itoa(r.MissingHard),
			strconv.Itoa(r.OrderViolations),
			strconv.Itoa(r.ImbalancedTokens),
			r.LogPath,
			r.ID,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"STARTED", "STATUS", "MISSING", "VIOLATIONS", "TOKENS", "LOG", "RUN"}, rows))

	counts, err := hs.CountByStatus()
	if err == nil {
		fmt.Fprintf(out, "pass=%d fail=%d inconclusive=%d\n",
			counts[verify.StatusPass], counts[verify.StatusFail], counts[verify.StatusInconclusive])
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
