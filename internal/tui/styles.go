package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha subset.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorLavender lipgloss.Color = "#b4befe"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorText     lipgloss.Color = "#cdd6f4"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorOverlay1)
	textStyle    = lipgloss.NewStyle().Foreground(colorText)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// sectionColors picks a line style per report section.
var sectionColors = map[string]lipgloss.Style{
	"Created":      okStyle,
	"Needs review": errorStyle,
}

// RenderReport styles a plain-text import report for the terminal. The text
// content is unchanged.
func RenderReport(report string) string {
	lines := strings.Split(report, "\n")
	out := make([]string, 0, len(lines))
	lineStyle := textStyle
	for i, l := range lines {
		switch {
		case i == 0:
			out = append(out, titleStyle.Render(l))
		case strings.HasSuffix(l, ":") && !strings.HasPrefix(l, "- "):
			name := strings.TrimSuffix(l, ":")
			lineStyle = textStyle
			if s, ok := sectionColors[name]; ok {
				lineStyle = s
			} else if strings.HasPrefix(name, "Possible duplicates") {
				lineStyle = warnStyle
			}
			out = append(out, sectionStyle.Render(l))
		case strings.HasPrefix(l, "+") && strings.HasSuffix(l, " more"):
			out = append(out, mutedStyle.Render(l))
		case strings.HasPrefix(l, "- "):
			out = append(out, lineStyle.Render(l))
		default:
			out = append(out, textStyle.Render(l))
		}
	}
	return strings.Join(out, "\n")
}
