package contract

import (
	"regexp"
	"strings"
)

var blockBullet = regexp.MustCompile(`^\s*[-*]\s+\*\*(.+?)\*\*(.*)$`)

// ChecklistSource parses the checklist dialect:
//
//	## Evidence Checklist
//	- **Boot → Menu (startup)**
//	  - `MenuScene` loaded, then `Menu ready`
//	- **Gameplay**
//	  - `GameplayScene`
//
// Every single-backtick token after a block bullet is one hard evidence item
// of that block, up to the next top-level header or the end of the document.
type ChecklistSource struct {
	Header string
}

// Dialect implements Source.
func (*ChecklistSource) Dialect() Dialect { return DialectChecklist }

// Claims implements Source: the literal section header must be present.
func (c *ChecklistSource) Claims(lines []string) bool {
	for _, line := range lines {
		if c.isHeader(line) {
			return true
		}
	}
	return false
}

func (c *ChecklistSource) isHeader(line string) bool {
	return c.Header != "" && strings.TrimSpace(line) == strings.TrimSpace(c.Header)
}

// Parse implements Source.
func (c *ChecklistSource) Parse(lines []string, b *Builder) {
	var (
		inSection bool
		inFence   bool
		current   *Block
	)

	for i, line := range lines {
		lineNo := i + 1
		if c.isHeader(line) {
			inSection, inFence, current = true, false, nil
			continue
		}
		if !inSection {
			continue
		}
		if isFence(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if level, _, ok := heading(line); ok {
			if level <= 2 {
				inSection, current = false, nil
			}
			continue
		}

		rest := line
		if m := blockBullet.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[1])
			current = b.Block(name)
			rest = m[2]
		}

		for _, tok := range backtickTokens(rest) {
			if current == nil {
				b.Diag("spec line %d: evidence `%s` appears before any **block** bullet", lineNo, tok)
				continue
			}
			b.AddAssertion(current, Hard, tok, tok, lineNo)
		}
	}

	for i := range b.doc.Blocks {
		if b.doc.Blocks[i].RuleCount() == 0 {
			b.Diag("checklist block %q declares no evidence", b.doc.Blocks[i].Name)
		}
	}
}
