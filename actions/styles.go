package actions

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(14)
)

type field struct {
	label string
	value string
}

// box renders a titled key/value panel.
func box(title string, fields []field) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	for _, f := range fields {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(f.label))
		b.WriteString(f.value)
	}
	return boxStyle.Render(b.String())
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orNone(v string) string {
	if v == "" {
		return mutedStyle.Render("none")
	}
	return v
}
