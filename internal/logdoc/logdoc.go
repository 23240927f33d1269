// Package logdoc turns a captured run log into numbered, normalized lines.
// Normalization removes decorative markup and volatile timing suffixes so
// that evidence patterns can be written against the stable part of a line;
// the original text is kept for reporting.
package logdoc

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"logcontract/internal/logging"
)

// ErrInputMissing is returned when the log document does not exist.
var ErrInputMissing = errors.New("log document missing")

// Line is one physical log line.
type Line struct {
	Number     int    `json:"number"` // 1-based
	Normalized string `json:"normalized"`
	Original   string `json:"original"`
}

var (
	// Generic open/close tag grammar: <b>, </color>, <color=#ff0000>, <size=14>, <i/>.
	markupTag = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9_\-]*(?:\s*=\s*[^<>]*|\s+[^<>]*)?/?>`)
	// Trailing timing annotation: "(@ 12.5s)", "(@12s)".
	timingSuffix = regexp.MustCompile(`\s*\(@\s*[0-9]+(?:[.,][0-9]+)?\s*s\)\s*$`)
	lineBreak    = regexp.MustCompile(`\r\n|\r|\n`)
)

// Normalize strips markup and the trailing timing annotation from a single
// physical line.
func Normalize(text string) string {
	text = markupTag.ReplaceAllString(text, "")
	text = timingSuffix.ReplaceAllString(text, "")
	return strings.TrimRight(text, " \t")
}

// SplitLines splits a document into physical lines, accepting \r\n, \r and
// \n endings. A trailing line ending does not produce an empty final line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	parts := lineBreak.Split(text, -1)
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

// Parse normalizes captured entries. Each entry is one emission from the
// collector and may span several physical lines (an error plus its stack
// trace, for example); every physical line becomes its own Line.
func Parse(entries []string) []Line {
	lines := make([]Line, 0, len(entries))
	for _, entry := range entries {
		for _, physical := range SplitLines(entry) {
			lines = append(lines, Line{
				Number:     len(lines) + 1,
				Normalized: Normalize(physical),
				Original:   physical,
			})
		}
	}
	return lines
}

// ParseText normalizes a whole log document.
func ParseText(text string) []Line {
	return Parse([]string{text})
}

// Load reads and normalizes the log document at path.
func Load(path string) ([]Line, error) {
	timer := logging.StartTimer(logging.CategoryLog, "Load")
	defer timer.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.LogWarn("log document not found: %s", path)
			return nil, fmt.Errorf("%w: %s", ErrInputMissing, path)
		}
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	lines := ParseText(string(data))
	logging.Log("loaded %d lines from %s", len(lines), path)
	return lines, nil
}
