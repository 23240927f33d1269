// Package evidence scans normalized log lines for the first match of each
// assertion.
package evidence

import (
	"strings"
	"unicode"

	"logcontract/internal/contract"
	"logcontract/internal/logdoc"
	"logcontract/internal/logging"
)

// DefaultHintMinLength is the shortest word accepted as a hint.
const DefaultHintMinLength = 3

// Hint is a low-confidence pointer to a line that shares a word with a
// missing assertion. It is never treated as a match.
type Hint struct {
	Word       string `json:"word"`
	LineNumber int    `json:"line_number"`
	Snippet    string `json:"snippet"`
}

// Result is the outcome of one assertion.
type Result struct {
	Assertion  contract.Assertion `json:"assertion"`
	Found      bool               `json:"found"`
	LineNumber int                `json:"line_number"`
	Snippet    string             `json:"snippet,omitempty"`
	Hint       *Hint              `json:"hint,omitempty"`
}

// Missing reports whether the assertion was not found.
func (r Result) Missing() bool { return !r.Found }

// Evaluator evaluates assertions against a fixed set of lines.
type Evaluator struct {
	lines   []logdoc.Line
	hints   bool
	minHint int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithHints enables missing-evidence hints.
func WithHints(enabled bool) Option {
	return func(e *Evaluator) { e.hints = enabled }
}

// WithHintMinLength sets the minimum hint word length.
func WithHintMinLength(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.minHint = n
		}
	}
}

// New returns an evaluator over lines.
func New(lines []logdoc.Line, opts ...Option) *Evaluator {
	e := &Evaluator{lines: lines, minHint: DefaultHintMinLength}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the first line matching a.
func (e *Evaluator) Evaluate(a contract.Assertion) Result {
	res := Result{Assertion: a}
	if a.Matcher != nil {
		for _, line := range e.lines {
			if a.Matcher.Match(line.Normalized) {
				res.Found = true
				res.LineNumber = line.Number
				res.Snippet = line.Original
				return res
			}
		}
	}
	if e.hints {
		res.Hint = e.hint(a.Raw)
	}
	logging.EvaluateDebug("evidence %q not found (hint: %v)", a.Key, res.Hint != nil)
	return res
}

// EvaluateAll evaluates every assertion, preserving order.
func (e *Evaluator) EvaluateAll(as []contract.Assertion) []Result {
	out := make([]Result, 0, len(as))
	for _, a := range as {
		out = append(out, e.Evaluate(a))
	}
	return out
}

func (e *Evaluator) hint(raw string) *Hint {
	word := HintWord(raw, e.minHint)
	if word == "" {
		return nil
	}
	lower := strings.ToLower(word)
	for _, line := range e.lines {
		if strings.Contains(strings.ToLower(line.Normalized), lower) {
			return &Hint{Word: word, LineNumber: line.Number, Snippet: line.Original}
		}
	}
	return nil
}

// HintWord extracts the longest word of at least minLen letters, digits or
// underscores from the part of raw before the first '/', ':' or space.
// Ties go to the earliest word.
func HintWord(raw string, minLen int) string {
	if i := strings.IndexAny(raw, "/: "); i >= 0 {
		raw = raw[:i]
	}
	words := strings.FieldsFunc(raw, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	best := ""
	for _, w := range words {
		if len([]rune(w)) >= minLen && len([]rune(w)) > len([]rune(best)) {
			best = w
		}
	}
	return best
}
