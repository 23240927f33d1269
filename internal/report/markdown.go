// Package report renders verification results as Markdown or JSON and
// writes them atomically.
package report

import (
	"fmt"
	"strings"

	"logcontract/internal/verify"
)

// Markdown renders r as a Markdown document.
func Markdown(r *verify.Result) string {
	var sb strings.Builder

	sb.WriteString("# Log Evidence Report\n\n")
	fmt.Fprintf(&sb, "**Status:** %s\n\n", strings.ToUpper(string(r.Status)))
	fmt.Fprintf(&sb, "%s\n\n", r.Summary)

	sb.WriteString("| Field | Value |\n|---|---|\n")
	row(&sb, "Run", r.RunID)
	row(&sb, "Spec", r.SpecPath)
	row(&sb, "Log", r.LogPath)
	row(&sb, "Dialect", dialect(r))
	if !r.StartedAt.IsZero() {
		row(&sb, "Started", r.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	row(&sb, "Duration", r.Duration.String())
	row(&sb, "Log lines", fmt.Sprint(r.LogLineCount))
	row(&sb, "Rules", fmt.Sprint(r.RuleCount))
	row(&sb, "Missing hard evidence", fmt.Sprint(r.MissingHardCount()))
	row(&sb, "Order violations", fmt.Sprint(r.ViolationCount()))
	row(&sb, "Imbalanced tokens", fmt.Sprint(len(r.ImbalancedTokens())))
	sb.WriteString("\n")

	if len(r.Blocks) > 0 {
		sb.WriteString("## Blocks\n\n| Block | Status | Evidence | Missing hard | Missing soft | Violations |\n|---|---|---|---|---|---|\n")
		for _, b := range r.AllBlocks() {
			fmt.Fprintf(&sb, "| %s | %s | %d | %d | %d | %d |\n",
				cell(b.Name), statusMark(b.Status), len(b.Evidence),
				len(b.MissingHard()), len(b.MissingSoft()), len(b.Violations))
		}
		sb.WriteString("\n")
	}

	for _, b := range r.AllBlocks() {
		writeBlock(&sb, b)
	}

	if len(r.Tokens) > 0 {
		sb.WriteString("## Token Balance\n\n| Token | Acquire | Release | Balanced |\n|---|---|---|---|\n")
		for _, c := range r.Tokens {
			balanced := "yes"
			if !c.Balanced() {
				balanced = "**NO**"
			}
			fmt.Fprintf(&sb, "| `%s` | %d | %d | %s |\n", c.Name, c.Acquire, c.Release, balanced)
		}
		sb.WriteString("\n")
	}

	if len(r.Diagnostics) > 0 {
		sb.WriteString("## Diagnostics\n\n")
		for i, d := range r.Diagnostics {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, d)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeBlock(sb *strings.Builder, b *verify.BlockResult) {
	hard, soft, unexercised := b.MissingHard(), b.MissingSoft(), b.Unexercised()
	if len(hard)+len(soft)+len(b.Violations)+len(unexercised) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s (%s)\n\n", b.Name, strings.ToUpper(string(b.Status)))

	if len(hard) > 0 {
		sb.WriteString("### Missing hard evidence\n\n")
		for _, m := range hard {
			fmt.Fprintf(sb, "- `%s`: `%s`\n", m.Assertion.Key, m.Assertion.Raw)
			if m.Hint != nil {
				fmt.Fprintf(sb, "  - hint (low confidence): line %d mentions `%s`: %s\n", m.Hint.LineNumber, m.Hint.Word, m.Hint.Snippet)
			}
		}
		sb.WriteString("\n")
	}
	if len(soft) > 0 {
		sb.WriteString("### Missing soft evidence\n\n")
		for _, m := range soft {
			fmt.Fprintf(sb, "- `%s`: `%s`\n", m.Assertion.Key, m.Assertion.Raw)
		}
		sb.WriteString("\n")
	}
	if len(b.Violations) > 0 {
		sb.WriteString("### Order violations\n\n")
		for _, v := range b.Violations {
			fmt.Fprintf(sb, "- %s\n", v)
		}
		sb.WriteString("\n")
	}
	if len(unexercised) > 0 {
		sb.WriteString("### Order rules not exercised\n\n")
		for _, o := range unexercised {
			fmt.Fprintf(sb, "- `%s`: `%s` -> `%s`\n", o.Rule.Key, o.Rule.Before, o.Rule.After)
		}
		sb.WriteString("\n")
	}
}

func row(sb *strings.Builder, k, v string) {
	if v == "" {
		v = "-"
	}
	fmt.Fprintf(sb, "| %s | %s |\n", k, cell(v))
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func statusMark(s verify.Status) string {
	if s == verify.StatusPass {
		return "PASS"
	}
	return "**" + strings.ToUpper(string(s)) + "**"
}

func dialect(r *verify.Result) string {
	if r.Dialect == "" {
		return "unrecognized"
	}
	return string(r.Dialect)
}
