package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"logcontract/internal/logdoc"
	"logcontract/internal/pattern"
)

var patternLines []string

// patternCmd shows how raw patterns compile
var patternCmd = &cobra.Command{
	Use:   "pattern [raw]...",
	Short: "Show what a raw pattern compiles to",
	Long: `Prints the expression each raw pattern compiles to. With --line, also
reports whether the pattern matches each given log line after normalization.

Example:
  logcontract pattern "Acquire token='flow'" --line "[Scene] Acquire token=\"flow\""`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPattern,
}

func init() {
	patternCmd.Flags().StringArrayVar(&patternLines, "line", nil, "Log line to test (repeatable)")
}

func runPattern(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, raw := range args {
		m, err := pattern.Compile(raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%q => %s\n", raw, m)
		for _, line := range patternLines {
			verdict := "no match"
			if m.Match(logdoc.Normalize(line)) {
				verdict = "match"
			}
			fmt.Fprintf(out, "  %-8s %q\n", verdict, line)
		}
	}
	return nil
}
