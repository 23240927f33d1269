package verify

import (
	"fmt"
	"strings"

	"logcontract/internal/contract"
	"logcontract/internal/evidence"
	"logcontract/internal/logdoc"
	"logcontract/internal/logging"
	"logcontract/internal/order"
	"logcontract/internal/tokens"
)

// Input is everything the aggregator consumes. LogErr is set when the log
// could not be loaded; Lines is then ignored.
type Input struct {
	Doc     *contract.Document
	Lines   []logdoc.Line
	LogErr  error
	HintMin int
}

// Aggregate runs every check and combines the outcomes. It never returns an
// error: every problem becomes a diagnostic, and every check contributes even
// when an earlier one already decided the verdict.
func Aggregate(in Input) *Result {
	doc := in.Doc
	if doc == nil {
		doc = &contract.Document{Missing: true}
	}

	res := &Result{
		SpecPath:  doc.Path,
		Dialect:   doc.Dialect,
		RuleCount: doc.RuleCount(),
		Blocks:    []BlockResult{},
	}
	diag := func(format string, args ...interface{}) {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf(format, args...))
	}

	for _, d := range doc.Diagnostics {
		diag("spec: %s", d)
	}

	inconclusive := false
	switch {
	case doc.Missing:
		inconclusive = true
		res.addReason(ErrInputMissing)
	case doc.Empty():
		inconclusive = true
		res.addReason(ErrNoRules)
	}
	if doc.Dropped > 0 {
		res.addReason(ErrSpecMalformed)
	}

	if in.LogErr != nil {
		inconclusive = true
		res.addReason(ErrInputMissing)
		diag("log: %v", in.LogErr)
	} else {
		res.LogLineCount = len(in.Lines)
		ev := evidence.New(in.Lines,
			evidence.WithHints(doc.Dialect == contract.DialectContract),
			evidence.WithHintMinLength(in.HintMin))

		for i := range doc.Blocks {
			br := evaluateBlock(&doc.Blocks[i], ev, in.Lines, diag)
			res.Blocks = append(res.Blocks, br)
		}
		if doc.Global.RuleCount() > 0 {
			g := doc.Global
			if g.Name == "" {
				g.Name = contract.GlobalName
			}
			br := evaluateBlock(&g, ev, in.Lines, diag)
			res.Global = &br
		}

		res.Tokens = tokens.Check(in.Lines)
		for _, c := range tokens.Imbalanced(res.Tokens) {
			diag("%s", c)
			res.addReason(ErrResourceLeak)
		}
	}
	if res.Tokens == nil {
		res.Tokens = []tokens.Count{}
	}

	failed := false
	for _, b := range res.AllBlocks() {
		if len(b.MissingHard()) > 0 {
			res.addReason(ErrEvidenceMissing)
		}
		if len(b.Violations) > 0 {
			res.addReason(ErrOrderViolation)
		}
		if b.Status == StatusFail {
			failed = true
		}
	}

	switch {
	case inconclusive:
		res.Status = StatusInconclusive
	case failed || len(res.ImbalancedTokens()) > 0:
		res.Status = StatusFail
	default:
		res.Status = StatusPass
	}
	res.Summary = summarize(res)

	logging.Evaluate("%s", res.Summary)
	return res
}

func evaluateBlock(blk *contract.Block, ev *evidence.Evaluator, lines []logdoc.Line, diag func(string, ...interface{})) BlockResult {
	br := BlockResult{
		Name:     blk.Name,
		Status:   StatusPass,
		Evidence: ev.EvaluateAll(blk.Assertions()),
		Order:    order.ValidateAll(blk.Order, lines),
	}

	for _, r := range br.Evidence {
		if r.Found {
			continue
		}
		msg := fmt.Sprintf("[%s] missing %s evidence %q (`%s`)", blk.Name, r.Assertion.Category, r.Assertion.Key, r.Assertion.Raw)
		if r.Assertion.Category == contract.Soft {
			msg += " (diagnostic only)"
		} else {
			br.Status = StatusFail
		}
		if r.Hint != nil {
			msg += fmt.Sprintf("; low-confidence hint: %q appears at line %d: %s", r.Hint.Word, r.Hint.LineNumber, r.Hint.Snippet)
		}
		diag("%s", msg)
	}

	for _, r := range br.Order {
		switch r.Outcome {
		case order.Violated:
			br.Status = StatusFail
			for _, m := range r.Messages() {
				br.Violations = append(br.Violations, m)
				diag("[%s] %s", blk.Name, m)
			}
		case order.NotExercised:
			diag("[%s] order rule %q (%q -> %q) not exercised: neither side observed", blk.Name, r.Rule.Key, r.Rule.Before, r.Rule.After)
		}
	}
	return br
}

func summarize(r *Result) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(string(r.Status)))
	fmt.Fprintf(&sb, ": %d/%d blocks passed", r.PassedBlocks(), len(r.Blocks))
	if r.Global != nil {
		fmt.Fprintf(&sb, ", global invariants %s", r.Global.Status)
	}
	fmt.Fprintf(&sb, ", %d missing hard evidence, %d order violations, %d imbalanced tokens, %d log lines",
		r.MissingHardCount(), r.ViolationCount(), len(r.ImbalancedTokens()), r.LogLineCount)
	return sb.String()
}
