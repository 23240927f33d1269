// Package order validates Before/After pairing of order rules with a nested
// open/close count, in the manner of balanced parentheses.
package order

import (
	"fmt"

	"logcontract/internal/contract"
	"logcontract/internal/logdoc"
	"logcontract/internal/logging"
)

// Outcome classifies one rule after the scan.
type Outcome string

const (
	// Validated: both sides were observed and every pair balanced.
	Validated Outcome = "validated"
	// Violated: at least one unpaired Before or After.
	Violated Outcome = "violated"
	// NotExercised: neither side appeared in the log. Not a pass.
	NotExercised Outcome = "not_exercised"
)

// Violation messages.
const (
	MsgAfterWithoutBefore = "After observed without a preceding unmatched Before"
	MsgBeforeWithoutAfter = "Before observed without a matching After"
)

// Violation is one ordering defect.
type Violation struct {
	// LineNumber is the offending After line, or 0 for an unclosed Before
	// detected at end of log.
	LineNumber int    `json:"line_number"`
	Message    string `json:"message"`
}

// Result is the outcome of one rule.
type Result struct {
	Rule        contract.OrderRule `json:"rule"`
	Outcome     Outcome            `json:"outcome"`
	BeforeCount int                `json:"before_count"`
	AfterCount  int                `json:"after_count"`
	Open        int                `json:"open"`
	Violations  []Violation        `json:"violations,omitempty"`
}

// Exercised reports whether either side of the rule appeared in the log.
func (r Result) Exercised() bool { return r.Outcome != NotExercised }

// Describe renders a violation with the rule key and both patterns.
func (r Result) Describe(v Violation) string {
	where := "at end of log"
	if v.LineNumber > 0 {
		where = fmt.Sprintf("at line %d", v.LineNumber)
	}
	return fmt.Sprintf("order rule %q (%q -> %q): %s %s",
		r.Rule.Key, r.Rule.Before, r.Rule.After, v.Message, where)
}

// Messages renders every violation of r.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, r.Describe(v))
	}
	return out
}

// Validate runs one linear pass of rule over lines. A line matching both
// sides counts as Before first, then After.
func Validate(rule contract.OrderRule, lines []logdoc.Line) Result {
	res := Result{Rule: rule}
	open := 0
	sawBefore := false

	for _, line := range lines {
		if rule.BeforeM != nil && rule.BeforeM.Match(line.Normalized) {
			open++
			sawBefore = true
			res.BeforeCount++
		}
		if rule.AfterM != nil && rule.AfterM.Match(line.Normalized) {
			res.AfterCount++
			if open == 0 {
				res.Violations = append(res.Violations, Violation{
					LineNumber: line.Number,
					Message:    MsgAfterWithoutBefore,
				})
				continue
			}
			open--
		}
	}
	res.Open = open

	if open > 0 || (sawBefore && res.AfterCount == 0) {
		res.Violations = append(res.Violations, Violation{Message: MsgBeforeWithoutAfter})
	}

	switch {
	case res.BeforeCount == 0 && res.AfterCount == 0:
		res.Outcome = NotExercised
	case len(res.Violations) > 0:
		res.Outcome = Violated
	default:
		res.Outcome = Validated
	}
	logging.EvaluateDebug("order rule %q: %s (before=%d after=%d open=%d)",
		rule.Key, res.Outcome, res.BeforeCount, res.AfterCount, open)
	return res
}

// ValidateAll validates every rule, preserving order.
func ValidateAll(rules []contract.OrderRule, lines []logdoc.Line) []Result {
	out := make([]Result, 0, len(rules))
	for _, r := range rules {
		out = append(out, Validate(r, lines))
	}
	return out
}
