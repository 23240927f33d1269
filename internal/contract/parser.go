package contract

import (
	"fmt"
	"os"
	"strings"

	"logcontract/internal/logdoc"
	"logcontract/internal/logging"
	"logcontract/internal/pattern"
)

// DefaultChecklistHeader is the literal section header of the checklist dialect.
const DefaultChecklistHeader = "## Evidence Checklist"

// Source is one spec dialect front-end. Claims decides whether the source
// understands the document; Parse feeds rules into the shared builder.
type Source interface {
	Dialect() Dialect
	Claims(lines []string) bool
	Parse(lines []string, b *Builder)
}

// Builder accumulates rules for a Document, compiling patterns as they are
// added. A rule whose pattern fails to compile is dropped with a diagnostic.
type Builder struct {
	compiler pattern.Compiler
	doc      *Document
	index    map[string]int
}

func newBuilder(c pattern.Compiler, doc *Document) *Builder {
	return &Builder{compiler: c, doc: doc, index: make(map[string]int)}
}

// Block returns the block with the given name, creating it on first use.
// Blocks keep their first-seen order.
func (b *Builder) Block(name string) *Block {
	if i, ok := b.index[name]; ok {
		return &b.doc.Blocks[i]
	}
	b.doc.Blocks = append(b.doc.Blocks, Block{Name: name})
	b.index[name] = len(b.doc.Blocks) - 1
	return &b.doc.Blocks[len(b.doc.Blocks)-1]
}

// Global returns the global invariants set.
func (b *Builder) Global() *Block {
	b.doc.Global.Name = GlobalName
	return &b.doc.Global
}

// Diag records a document-level diagnostic.
func (b *Builder) Diag(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	b.doc.Diagnostics = append(b.doc.Diagnostics, msg)
	logging.SpecWarn("%s", msg)
}

// Malformed records a diagnostic for a rule that could not be used and
// counts it in Document.Dropped.
func (b *Builder) Malformed(format string, args ...interface{}) {
	b.doc.Dropped++
	b.Diag(format, args...)
}

// AddAssertion compiles raw and appends it to blk under the given category.
func (b *Builder) AddAssertion(blk *Block, cat Category, key, raw string, specLine int) bool {
	m, err := b.compiler.Compile(raw)
	if err != nil {
		b.Malformed("spec line %d: %s evidence %q in %q dropped: %v", specLine, cat, key, blk.Name, err)
		return false
	}
	a := Assertion{Key: key, Raw: raw, Category: cat, SpecLine: specLine, Matcher: m}
	if cat == Soft {
		blk.Soft = append(blk.Soft, a)
	} else {
		blk.Hard = append(blk.Hard, a)
	}
	return true
}

// AddOrder compiles both sides of an order rule and appends it to blk.
func (b *Builder) AddOrder(blk *Block, key, before, after string, specLine int) bool {
	bm, err := b.compiler.Compile(before)
	if err != nil {
		b.Malformed("spec line %d: order rule %q in %q dropped: before pattern: %v", specLine, key, blk.Name, err)
		return false
	}
	am, err := b.compiler.Compile(after)
	if err != nil {
		b.Malformed("spec line %d: order rule %q in %q dropped: after pattern: %v", specLine, key, blk.Name, err)
		return false
	}
	blk.Order = append(blk.Order, OrderRule{
		Key: key, Before: before, After: after, SpecLine: specLine,
		BeforeM: bm, AfterM: am,
	})
	return true
}

// Parser selects a Source for a document and runs it.
type Parser struct {
	compiler pattern.Compiler
	sources  []Source
}

// Option configures a Parser.
type Option func(*Parser)

// WithCompiler swaps the pattern backend.
func WithCompiler(c pattern.Compiler) Option {
	return func(p *Parser) { p.compiler = c }
}

// WithChecklistHeader changes the literal section header of the checklist dialect.
func WithChecklistHeader(header string) Option {
	return func(p *Parser) {
		for i, s := range p.sources {
			if _, ok := s.(*ChecklistSource); ok {
				p.sources[i] = &ChecklistSource{Header: header}
			}
		}
	}
}

// NewParser returns a parser with the checklist and contract sources, in
// that order of precedence.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		compiler: pattern.Default,
		sources: []Source{
			&ChecklistSource{Header: DefaultChecklistHeader},
			&ContractSource{},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses spec text. It never fails: problems are recorded in
// Document.Diagnostics and a document without rules comes back empty.
func (p *Parser) Parse(text string) *Document {
	timer := logging.StartTimer(logging.CategorySpec, "Parse")
	defer timer.Stop()

	doc := &Document{}
	lines := logdoc.SplitLines(text)
	b := newBuilder(p.compiler, doc)

	for _, src := range p.sources {
		if src.Claims(lines) {
			doc.Dialect = src.Dialect()
			src.Parse(lines, b)
			break
		}
	}

	pruneEmptyBlocks(doc)
	if doc.Empty() {
		diags := doc.Diagnostics
		*doc = Document{Dialect: doc.Dialect, Diagnostics: diags, Dropped: doc.Dropped}
		b.Diag("spec document yielded no rules")
	}

	logging.Spec("parsed %s spec: %d blocks, %d rules, %d diagnostics",
		dialectName(doc.Dialect), len(doc.Blocks), doc.RuleCount(), len(doc.Diagnostics))
	return doc
}

// ParseFile reads and parses the spec at path. A missing or unreadable file
// yields an empty Document flagged Missing.
func (p *Parser) ParseFile(path string) *Document {
	data, err := os.ReadFile(path)
	if err != nil {
		doc := &Document{Path: path, Missing: true}
		if os.IsNotExist(err) {
			doc.Diagnostics = append(doc.Diagnostics, fmt.Sprintf("spec document not found: %s", path))
		} else {
			doc.Diagnostics = append(doc.Diagnostics, fmt.Sprintf("spec document unreadable: %s: %v", path, err))
		}
		logging.SpecWarn("%s", doc.Diagnostics[0])
		return doc
	}
	doc := p.Parse(string(data))
	doc.Path = path
	return doc
}

func pruneEmptyBlocks(doc *Document) {
	kept := doc.Blocks[:0]
	for _, blk := range doc.Blocks {
		if blk.RuleCount() > 0 {
			kept = append(kept, blk)
		} else {
			logging.SpecDebug("dropping block %q: no rules", blk.Name)
		}
	}
	doc.Blocks = kept
}

func dialectName(d Dialect) string {
	if d == DialectNone {
		return "unrecognized"
	}
	return string(d)
}

// =============================================================================
// MARKDOWN HELPERS shared by both dialects
// =============================================================================

// heading returns the level and text of a markdown ATX header line.
func heading(line string) (int, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return 0, "", false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level > 6 || level == len(trimmed) || (trimmed[level] != ' ' && trimmed[level] != '\t') {
		return 0, "", false
	}
	text := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(trimmed[level:]), "#"))
	return level, text, true
}

// bullet returns the content of a "- " or "* " list item.
func bullet(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if len(trimmed) < 2 || (trimmed[0] != '-' && trimmed[0] != '*') || (trimmed[1] != ' ' && trimmed[1] != '\t') {
		return "", false
	}
	return strings.TrimSpace(trimmed[2:]), true
}

// isFence reports whether line opens or closes a fenced code block.
func isFence(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~")
}

// backtickTokens returns the contents of single-backtick code spans in s.
// Spans delimited by runs of two or more backticks are skipped.
func backtickTokens(s string) []string {
	var out []string
	for i := 0; i < len(s); {
		if s[i] != '`' {
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == '`' {
			j++
		}
		run := j - i
		if run > 1 {
			end := strings.Index(s[j:], strings.Repeat("`", run))
			if end < 0 {
				return out
			}
			i = j + end + run
			continue
		}
		end := strings.IndexByte(s[j:], '`')
		if end < 0 {
			return out
		}
		out = append(out, s[j:j+end])
		i = j + end + 1
	}
	return out
}
