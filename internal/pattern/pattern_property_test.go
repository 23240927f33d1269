//go:build property
// +build property

package pattern

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: a literal alphanumeric pattern matches any line that embeds it.
func TestLiteralContainment(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("embedded literal always matches", prop.ForAll(
		func(prefix, lit, suffix string) bool {
			if lit == "" {
				return true
			}
			m, err := Compile(lit)
			if err != nil {
				return false
			}
			return m.Match(prefix + lit + suffix)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Property: A...B matches iff B occurs somewhere after an occurrence of A.
func TestWildcardOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("A...B agrees with index search", prop.ForAll(
		func(line string) bool {
			m := MustCompile("q...z")
			lower := strings.ToLower(line)
			i := strings.Index(lower, "q")
			want := i >= 0 && strings.Contains(lower[i+1:], "z")
			return m.Match(line) == want
		},
		gen.AlphaString(),
	))

	properties.Property("pattern matching is case-insensitive", prop.ForAll(
		func(lit string) bool {
			if lit == "" {
				return true
			}
			m := MustCompile(strings.ToUpper(lit))
			return m.Match(strings.ToLower(lit))
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
