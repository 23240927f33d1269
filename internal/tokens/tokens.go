// Package tokens tallies Acquire/Release token mentions in a log. The check
// is open-world: every token seen is reported, whether or not a spec names it.
package tokens

import (
	"fmt"
	"regexp"
	"sort"

	"logcontract/internal/logdoc"
	"logcontract/internal/logging"
)

var mention = regexp.MustCompile(`(Acquire|Release) token=['"]([^'"]+)['"]`)

// Count is the acquire/release tally of one token.
type Count struct {
	Name    string `json:"name"`
	Acquire int    `json:"acquire"`
	Release int    `json:"release"`
}

// Balanced reports whether every acquire was released.
func (c Count) Balanced() bool { return c.Acquire == c.Release }

// String renders the imbalance diagnostic for c.
func (c Count) String() string {
	return fmt.Sprintf("token %q imbalanced: acquire=%d release=%d", c.Name, c.Acquire, c.Release)
}

// Check scans lines and returns one Count per token, sorted by name.
func Check(lines []logdoc.Line) []Count {
	byName := make(map[string]*Count)
	for _, line := range lines {
		for _, m := range mention.FindAllStringSubmatch(line.Normalized, -1) {
			c, ok := byName[m[2]]
			if !ok {
				c = &Count{Name: m[2]}
				byName[m[2]] = c
			}
			if m[1] == "Acquire" {
				c.Acquire++
			} else {
				c.Release++
			}
		}
	}

	out := make([]Count, 0, len(byName))
	for _, c := range byName {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	logging.EvaluateDebug("token scan: %d tokens across %d lines", len(out), len(lines))
	return out
}

// Imbalanced filters counts down to the imbalanced ones.
func Imbalanced(counts []Count) []Count {
	var out []Count
	for _, c := range counts {
		if !c.Balanced() {
			out = append(out, c)
		}
	}
	return out
}
