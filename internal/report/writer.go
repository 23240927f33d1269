package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"logcontract/internal/atomicfile"
	"logcontract/internal/logging"
	"logcontract/internal/verify"
)

// Format selects a report layout.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat accepts "md", "markdown" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown report format %q (want md or json)", s)
}

// FormatForPath picks the format from the file extension, falling back to def.
func FormatForPath(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".md", ".markdown":
		return FormatMarkdown
	}
	return def
}

// Render renders r in the given format.
func Render(r *verify.Result, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		return append(data, '\n'), nil
	case FormatMarkdown, "":
		return []byte(Markdown(r)), nil
	}
	return nil, fmt.Errorf("unknown report format %q", f)
}

// Writer implements verify.ReportWriter.
type Writer struct {
	// Format is used when the output extension does not decide it.
	Format Format
}

// WriteReport renders r and writes it to path atomically.
func (w Writer) WriteReport(path string, r *verify.Result) error {
	f := FormatForPath(path, w.Format)
	data, err := Render(r, f)
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, data, 0644); err != nil {
		logging.ReportError("write %s: %v", path, err)
		return err
	}
	logging.Report("wrote %s report (%d bytes) to %s", f, len(data), path)
	return nil
}

var _ verify.ReportWriter = Writer{}
