package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/dealdates/internal/tui/theme"
)

// ColorForPct returns red/orange/yellow/green as completion rises.
func ColorForPct(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 0.9:
		return t.Green
	case pct >= 0.5:
		return t.Accent
	case pct >= 0.25:
		return t.Yellow
	default:
		return t.Orange
	}
}

// ProgressBar renders a solid bar with a trailing percentage.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	if width < 4 {
		width = 4
	}
	color := ColorForPct(pct)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return bar.ViewAs(pct) + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100))
}

// LabeledProgress renders "label  [bar] 42%  done/total".
func LabeledProgress(label string, done, total, labelW, barWidth int) string {
	t := theme.Active
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total)
	}
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		ProgressBar(pct, barWidth) +
		spaceStyle.Render("  ") +
		countStyle.Render(fmt.Sprintf("%d/%d", done, total))
}
