// Package facts exports a verification run as Mangle facts and evaluates
// rules over them.
package facts

import (
	"fmt"
	"strings"
	"unicode"

	"logcontract/internal/logdoc"
	"logcontract/internal/order"
	"logcontract/internal/verify"
)

// Fact is a single ground atom.
type Fact struct {
	Predicate string        `json:"predicate"`
	Args      []interface{} `json:"args"`
}

// Name is a Mangle name constant such as /fail. Plain strings are always
// quoted.
type Name string

// String returns the Datalog representation of the fact.
func (f Fact) String() string {
	var args []string
	for _, arg := range f.Args {
		switch v := arg.(type) {
		case Name:
			args = append(args, string(v))
		case string:
			args = append(args, fmt.Sprintf("%q", printable(v)))
		case int:
			args = append(args, fmt.Sprintf("%d", v))
		case int64:
			args = append(args, fmt.Sprintf("%d", v))
		case float64:
			args = append(args, fmt.Sprintf("%f", v))
		case bool:
			if v {
				args = append(args, "/true")
			} else {
				args = append(args, "/false")
			}
		default:
			args = append(args, fmt.Sprintf("%q", fmt.Sprint(v)))
		}
	}
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(args, ", "))
}

// printable replaces control characters so %q never emits \x escapes.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

func name(s string) Name { return Name("/" + s) }

// Export converts a run into facts. lines may be nil, in which case no
// log_line facts are produced.
func Export(r *verify.Result, lines []logdoc.Line) []Fact {
	var out []Fact
	add := func(pred string, args ...interface{}) {
		out = append(out, Fact{Predicate: pred, Args: args})
	}

	add("run_status", name(string(r.Status)))

	for _, l := range lines {
		add("log_line", l.Number, l.Normalized)
	}

	for _, b := range r.AllBlocks() {
		add("block_status", b.Name, name(string(b.Status)))
		for _, e := range b.Evidence {
			add("evidence", b.Name, e.Assertion.Key, name(string(e.Assertion.Category)), e.Found, e.LineNumber)
		}
		for _, o := range b.Order {
			add("order_result", b.Name, o.Rule.Key, name(string(o.Outcome)))
			if o.Outcome == order.Violated {
				for _, v := range o.Violations {
					add("order_violation", b.Name, o.Rule.Key, v.LineNumber)
				}
			}
		}
	}

	for _, c := range r.Tokens {
		balance := name("balanced")
		if !c.Balanced() {
			balance = name("imbalanced")
		}
		add("token_balance", c.Name, c.Acquire, c.Release, balance)
	}
	return out
}

// Render writes facts one per line.
func Render(fs []Fact) string {
	var sb strings.Builder
	for _, f := range fs {
		sb.WriteString(f.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
