package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/dealdates/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar. left holds key hints, msg is
// a transient message shown in accent color, right is right-aligned context
// such as the current date.
func RenderStatusBar(width int, left, msg, right string) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	msgStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	bar := base.Render(" " + left)
	if msg != "" {
		bar += base.Render("  ") + msgStyle.Render(msg)
	}
	rightStr := base.Render(right + " ")

	padding := width - lipgloss.Width(bar) - lipgloss.Width(rightStr)
	if padding < 1 {
		padding = 1
	}
	return lipgloss.NewStyle().Background(t.Surface).Width(width).
		Render(bar + base.Render(spaces(padding)) + rightStr)
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
