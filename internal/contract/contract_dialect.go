package contract

import (
	"regexp"
	"strings"

	"logcontract/internal/logging"
)

// scope is where bullets currently land.
type scope int

const (
	scopeNone scope = iota
	scopeBlock
	scopeGlobal
)

// target is which collection of the current scope bullets feed.
type target int

const (
	targetNone target = iota
	targetHard
	targetSoft
	targetOrder
)

// ContractSource parses the contract dialect:
//
//	## SceneFlow
//	- `scenes_ready` :: `SceneTransitionScenesReady`
//	### SOFT
//	- `fade` :: `Fade...complete`
//	### Order
//	- `transition` :: `Acquire token='flow.scene_transition'` -> `Release token='flow.scene_transition'`
//	## Global Invariants
//	- `no_exceptions` :: `...`
type ContractSource struct{}

// Dialect implements Source.
func (*ContractSource) Dialect() Dialect { return DialectContract }

// Claims implements Source. The contract dialect is the fallback and accepts
// any document.
func (*ContractSource) Claims([]string) bool { return true }

// contractState is the parser state machine: scope × target.
type contractState struct {
	scope  scope
	target target
	block  *Block
}

func (s *contractState) enterTopLevel(b *Builder, level int, name string) {
	switch {
	case level == 1:
		*s = contractState{}
	case strings.Contains(strings.ToLower(name), "invariant"):
		*s = contractState{scope: scopeGlobal, target: targetHard, block: b.Global()}
	default:
		*s = contractState{scope: scopeBlock, target: targetHard, block: b.Block(name)}
	}
}

func (s *contractState) enterSubSection(name string) {
	if s.scope == scopeNone {
		return
	}
	s.target = subSectionTarget(name)
}

// subSectionTarget maps a sub-header to a collection. Unrecognized
// sub-headers suppress collection until the next header.
func subSectionTarget(name string) target {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "order"), strings.Contains(lower, "ordem"):
		return targetOrder
	case strings.Contains(lower, "hard"):
		return targetHard
	case strings.Contains(lower, "soft"):
		return targetSoft
	default:
		return targetNone
	}
}

// Parse implements Source.
func (c *ContractSource) Parse(lines []string, b *Builder) {
	var st contractState
	inFence := false

	for i, line := range lines {
		lineNo := i + 1
		if isFence(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if level, name, ok := heading(line); ok {
			if level <= 2 {
				st.enterTopLevel(b, level, name)
			} else {
				st.enterSubSection(name)
			}
			continue
		}

		content, ok := bullet(line)
		if !ok || st.scope == scopeNone || st.target == targetNone {
			continue
		}
		c.collect(&st, b, content, lineNo)
	}
}

// Rule bullets. Anything after the last pattern is ignored.
var (
	evidenceBullet = regexp.MustCompile("^`([^`]+)`\\s*::\\s*`([^`]+)`")
	orderBullet    = regexp.MustCompile("^`([^`]+)`\\s*::\\s*`([^`]+)`\\s*(?:->|→)\\s*`([^`]+)`")
)

// collect adds the rule a bullet declares. Bullets that are not shaped like
// a rule are prose and are skipped.
func (c *ContractSource) collect(st *contractState, b *Builder, content string, lineNo int) {
	ord := orderBullet.FindStringSubmatch(content)
	ev := evidenceBullet.FindStringSubmatch(content)
	if ev == nil {
		logging.SpecDebug("spec line %d: skipping prose bullet in %q", lineNo, st.block.Name)
		return
	}

	switch st.target {
	case targetHard, targetSoft:
		cat := Hard
		if st.target == targetSoft {
			cat = Soft
		}
		if ord != nil {
			b.Malformed("spec line %d: order rule %q outside an Order section in %q", lineNo, ord[1], st.block.Name)
			return
		}
		b.AddAssertion(st.block, cat, ev[1], ev[2], lineNo)

	case targetOrder:
		if ord == nil {
			b.Malformed("spec line %d: order rule %q in %q needs `before` -> `after` patterns", lineNo, ev[1], st.block.Name)
			return
		}
		b.AddOrder(st.block, ord[1], ord[2], ord[3], lineNo)
	}
}
