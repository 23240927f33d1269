package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"logcontract/internal/verify"
)

var (
	passColor         = lipgloss.Color("#8BC34A")
	failColor         = lipgloss.Color("#e53935")
	inconclusiveColor = lipgloss.Color("#FFC107")

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1)
	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d6dae0"))
)

// Banner renders a one-line verdict.
func Banner(r *verify.Result) string {
	color := inconclusiveColor
	switch r.Status {
	case verify.StatusPass:
		color = passColor
	case verify.StatusFail:
		color = failColor
	}
	label := bannerStyle.Background(color).Render(strings.ToUpper(string(r.Status)))
	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", summaryStyle.Render(r.Summary))
}

// Pretty renders the Markdown report for a terminal. style is a glamour
// style name ("dark", "light", "notty") or "" for auto detection.
func Pretty(r *verify.Result, style string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := renderer.Render(Markdown(r))
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return Banner(r) + "\n" + out, nil
}
