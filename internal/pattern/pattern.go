// Package pattern compiles human-authored evidence patterns into tolerant,
// case-insensitive line matchers.
//
// The dialect is deliberately narrow. Reading a raw pattern left to right:
//
//	...        any substring, including the empty one
//	whitespace one or more whitespace characters
//	' or "     either quote mark
//	→          the arrow glyph or the ASCII digraph ->
//
// Every other character matches itself. Matching is "contains": a matcher
// never anchors to the start or end of a line.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidPattern is returned when a raw pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

// Matcher reports whether a normalized log line contains a match.
type Matcher interface {
	Match(line string) bool
	// Raw returns the authored pattern text.
	Raw() string
}

// Compiler turns raw patterns into matchers. The default backend is RE2
// (Go's regexp); alternative backends only have to honour the dialect above.
type Compiler interface {
	Compile(raw string) (Matcher, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(raw string) (Matcher, error)

// Compile calls f(raw).
func (f CompilerFunc) Compile(raw string) (Matcher, error) { return f(raw) }

// Default is the regexp-backed compiler used when callers do not supply one.
var Default Compiler = CompilerFunc(Compile)

const (
	wildcard = "..."
	arrow    = '→'
)

// Compile translates raw into a regexp-backed matcher.
// An empty or whitespace-only pattern yields a matcher that never matches.
func Compile(raw string) (Matcher, error) {
	if !utf8.ValidString(raw) {
		return nil, fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidPattern, raw)
	}
	if strings.TrimSpace(raw) == "" {
		return never{raw: raw}, nil
	}

	expr := Translate(raw)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, raw, err)
	}
	return &regexpMatcher{raw: raw, re: re}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level fixtures.
func MustCompile(raw string) Matcher {
	m, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// Translate returns the RE2 expression for raw. The expression is
// case-insensitive and carries implicit leading and trailing wildcards.
func Translate(raw string) string {
	var b strings.Builder
	b.WriteString("(?is).*")
	for i := 0; i < len(raw); {
		if strings.HasPrefix(raw[i:], wildcard) {
			b.WriteString(".*")
			i += len(wildcard)
			continue
		}
		r, size := utf8.DecodeRuneInString(raw[i:])
		i += size
		switch {
		case unicode.IsSpace(r):
			b.WriteString(`\s+`)
		case r == '\'' || r == '"':
			b.WriteString(`['"]`)
		case r == arrow:
			b.WriteString(`(?:→|->)`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(".*")
	return b.String()
}

type regexpMatcher struct {
	raw string
	re  *regexp.Regexp
}

func (m *regexpMatcher) Match(line string) bool { return m.re.MatchString(line) }
func (m *regexpMatcher) Raw() string            { return m.raw }
func (m *regexpMatcher) String() string         { return m.re.String() }

// never guards against vacuous passes from empty patterns.
type never struct{ raw string }

func (never) Match(string) bool { return false }
func (n never) Raw() string     { return n.raw }
func (never) String() string    { return "<never>" }
