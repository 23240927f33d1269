package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"logcontract/internal/report"
	"logcontract/internal/verify"
	"logcontract/internal/watch"
)

// watchCmd re-runs verification when the captured log is rewritten
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-verify whenever the captured log file is rewritten",
	Long: `Watches --log and runs a complete verification each time it settles after
a write. Every run reads the whole file; nothing is analyzed incrementally.
Press Ctrl+C to stop.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&specPath, "spec", "", "Spec document (required)")
	watchCmd.Flags().StringVar(&logPath, "log", "", "Captured log to watch (required)")
	watchCmd.Flags().StringVar(&outPath, "out", "", "Report path rewritten on every run")
	watchCmd.MarkFlagRequired("spec")
	watchCmd.MarkFlagRequired("log")
}

// watchHandler returns the callback run for each settled write.
func watchHandler(cmd *cobra.Command, v *verify.Verifier, spec, out string) watch.Callback {
	return func(ctx context.Context, path string) {
		res, written := v.Invoke(spec, path, out)
		recordRun(res, !written)
		fmt.Fprintln(cmd.OutOrStdout(), report.Banner(res))
		if !written {
			fmt.Fprintf(cmd.ErrOrStderr(), "%v: %s\n", verify.ErrReportWrite, out)
		}
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	v, err := newVerifier("")
	if err != nil {
		return err
	}
	spec, log, out := workspacePath(specPath), workspacePath(logPath), resolveOut(outPath)
	onChange := watchHandler(cmd, v, spec, out)

	w, err := watch.New([]string{log}, onChange, watch.WithDebounce(currentConfig().GetWatchDebounce()))
	if err != nil {
		return err
	}

	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Existing content gets one run up front.
	if _, err := os.Stat(log); err == nil {
		onChange(ctx, log)
	}

	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	logger.Info("Watching", zap.String("log", log), zap.String("spec", spec))
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", log)

	<-w.Done()
	return nil
}
