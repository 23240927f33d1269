// Package contract parses evidence specifications into a uniform rule model.
//
// Two authoring dialects are supported, each implemented as its own Source:
// the contract dialect (domains under "##" headers with HARD/SOFT/Order
// sub-sections and a global invariants section) and the checklist dialect
// (one literal section listing "**Block**" bullets followed by backtick
// evidence tokens). Both produce the same Document.
package contract

import "logcontract/internal/pattern"

// Category distinguishes evidence that fails a block from evidence that only
// produces diagnostics.
type Category string

const (
	Hard Category = "hard"
	Soft Category = "soft"
)

// Dialect names the Source that produced a Document.
type Dialect string

const (
	DialectNone      Dialect = ""
	DialectContract  Dialect = "contract"
	DialectChecklist Dialect = "checklist"
)

// Assertion is one piece of expected textual evidence.
type Assertion struct {
	Key      string          `json:"key"`
	Raw      string          `json:"raw"`
	Category Category        `json:"category"`
	SpecLine int             `json:"spec_line"`
	Matcher  pattern.Matcher `json:"-"`
}

// OrderRule asserts that every After line is preceded by an unmatched Before
// line and that every Before is eventually closed by an After.
type OrderRule struct {
	Key      string          `json:"key"`
	Before   string          `json:"before"`
	After    string          `json:"after"`
	SpecLine int             `json:"spec_line"`
	BeforeM  pattern.Matcher `json:"-"`
	AfterM   pattern.Matcher `json:"-"`
}

// Block groups the assertions and order rules of one phase of the run.
type Block struct {
	Name  string      `json:"name"`
	Hard  []Assertion `json:"hard,omitempty"`
	Soft  []Assertion `json:"soft,omitempty"`
	Order []OrderRule `json:"order,omitempty"`
}

// RuleCount returns the number of assertions and order rules in b.
func (b *Block) RuleCount() int {
	return len(b.Hard) + len(b.Soft) + len(b.Order)
}

// Assertions returns hard then soft assertions.
func (b *Block) Assertions() []Assertion {
	out := make([]Assertion, 0, len(b.Hard)+len(b.Soft))
	out = append(out, b.Hard...)
	return append(out, b.Soft...)
}

// GlobalName is the display name of the global invariants set.
const GlobalName = "Global Invariants"

// Document is a parsed specification.
type Document struct {
	Path        string   `json:"path,omitempty"`
	Dialect     Dialect  `json:"dialect"`
	Blocks      []Block  `json:"blocks"`
	Global      Block    `json:"global"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	// Dropped counts rules discarded as malformed.
	Dropped int `json:"dropped,omitempty"`
	// Missing is set when the document could not be read at all.
	Missing bool `json:"missing,omitempty"`
}

// RuleCount returns the number of rules across all blocks and the global set.
func (d *Document) RuleCount() int {
	n := d.Global.RuleCount()
	for i := range d.Blocks {
		n += d.Blocks[i].RuleCount()
	}
	return n
}

// Empty reports whether the document carries no rules.
func (d *Document) Empty() bool { return d.RuleCount() == 0 }
