// Package verify aggregates evidence, order and token checks into one verdict
// and exposes the invocation boundary used by every trigger.
package verify

import (
	"errors"
	"fmt"
	"time"

	"logcontract/internal/contract"
	"logcontract/internal/evidence"
	"logcontract/internal/order"
	"logcontract/internal/tokens"
)

// Status is a verdict.
type Status string

const (
	StatusPass         Status = "pass"
	StatusFail         Status = "fail"
	StatusInconclusive Status = "inconclusive"
)

// ParseStatus accepts the lower-case status names.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPass, StatusFail, StatusInconclusive:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q (want pass, fail or inconclusive)", s)
}

// Reason codes. Result.Err wraps the ones that apply to a run.
var (
	ErrInputMissing    = errors.New("input missing")
	ErrNoRules         = errors.New("spec yielded no rules")
	ErrSpecMalformed   = errors.New("spec malformed")
	ErrEvidenceMissing = errors.New("hard evidence missing")
	ErrOrderViolation  = errors.New("order violation")
	ErrResourceLeak    = errors.New("token imbalance")
	ErrReportWrite     = errors.New("report write failed")
)

// BlockResult is the outcome of one block, or of the global invariants.
type BlockResult struct {
	Name     string            `json:"name"`
	Status   Status            `json:"status"`
	Evidence []evidence.Result `json:"evidence"`
	Order    []order.Result    `json:"order,omitempty"`
	// Violations holds the rendered order violations.
	Violations []string `json:"violations,omitempty"`
}

// MissingHard returns the hard assertions that were not found.
func (b *BlockResult) MissingHard() []evidence.Result {
	return b.missing(contract.Hard)
}

// MissingSoft returns the soft assertions that were not found.
func (b *BlockResult) MissingSoft() []evidence.Result {
	return b.missing(contract.Soft)
}

func (b *BlockResult) missing(cat contract.Category) []evidence.Result {
	var out []evidence.Result
	for _, r := range b.Evidence {
		if !r.Found && r.Assertion.Category == cat {
			out = append(out, r)
		}
	}
	return out
}

// Unexercised returns order rules whose sides never appeared.
func (b *BlockResult) Unexercised() []order.Result {
	var out []order.Result
	for _, r := range b.Order {
		if !r.Exercised() {
			out = append(out, r)
		}
	}
	return out
}

// Result is the outcome of one verification invocation.
type Result struct {
	RunID      string           `json:"run_id"`
	SpecPath   string           `json:"spec_path"`
	LogPath    string           `json:"log_path"`
	OutputPath string           `json:"output_path,omitempty"`
	Dialect    contract.Dialect `json:"dialect"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration_ns"`

	Status       Status         `json:"status"`
	Blocks       []BlockResult  `json:"blocks"`
	Global       *BlockResult   `json:"global,omitempty"`
	Tokens       []tokens.Count `json:"tokens"`
	Diagnostics  []string       `json:"diagnostics"`
	LogLineCount int            `json:"log_line_count"`
	RuleCount    int            `json:"rule_count"`
	Summary      string         `json:"summary"`

	reasons []error
}

// AllBlocks returns the block results followed by the global result, if any.
func (r *Result) AllBlocks() []*BlockResult {
	out := make([]*BlockResult, 0, len(r.Blocks)+1)
	for i := range r.Blocks {
		out = append(out, &r.Blocks[i])
	}
	if r.Global != nil {
		out = append(out, r.Global)
	}
	return out
}

// MissingHardCount counts missing hard evidence across all blocks.
func (r *Result) MissingHardCount() int {
	n := 0
	for _, b := range r.AllBlocks() {
		n += len(b.MissingHard())
	}
	return n
}

// ViolationCount counts order violations across all blocks.
func (r *Result) ViolationCount() int {
	n := 0
	for _, b := range r.AllBlocks() {
		n += len(b.Violations)
	}
	return n
}

// ImbalancedTokens returns the tokens whose counts differ.
func (r *Result) ImbalancedTokens() []tokens.Count {
	return tokens.Imbalanced(r.Tokens)
}

// PassedBlocks counts blocks (excluding global) with StatusPass.
func (r *Result) PassedBlocks() int {
	n := 0
	for _, b := range r.Blocks {
		if b.Status == StatusPass {
			n++
		}
	}
	return n
}

// Err returns the reason codes that apply to the run, joined, or nil when
// none do. A passing run can still carry ErrSpecMalformed.
// Use errors.Is to test for a specific one.
func (r *Result) Err() error {
	if len(r.reasons) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", r.Status, errors.Join(r.reasons...))
}

func (r *Result) addReason(err error) {
	for _, e := range r.reasons {
		if e == err {
			return
		}
	}
	r.reasons = append(r.reasons, err)
}
