package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
	ColorPurple    = lipgloss.Color("#8B7EC8")
	ColorYellow    = lipgloss.Color("#D0A215")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	todayStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
	Right   []int // column indexes to right-align
}

func (t Table) rightAligned(col int) bool {
	for _, c := range t.Right {
		if c == col {
			return true
		}
	}
	return false
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	// Calculate column widths
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			if n := lipgloss.Width(h); n > widths[i] {
				widths[i] = n
			}
		}
		for _, row := range t.Rows {
			for i, cell := range row {
				if n := lipgloss.Width(cell); i < numCols && n > widths[i] {
					widths[i] = n
				}
			}
		}
	}

	var b strings.Builder

	// Title above table if present
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	// Top border
	b.WriteString(dimStyle.Render("╭"))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < numCols-1 {
			b.WriteString(dimStyle.Render("┬"))
		}
	}
	b.WriteString(dimStyle.Render("╮"))
	b.WriteString("\n")

	// Header row
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			w := widths[i]
			padded := fmt.Sprintf(" %-*s ", w, h)
			b.WriteString(headerStyle.Render(padded))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")

		// Header separator
		b.WriteString(dimStyle.Render("├"))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("┼"))
			}
		}
		b.WriteString(dimStyle.Render("┤"))
		b.WriteString("\n")
	}

	// Data rows
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			// Separator row
			b.WriteString(dimStyle.Render("├"))
			for i, w := range widths {
				b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
				if i < numCols-1 {
					b.WriteString(dimStyle.Render("┼"))
				}
			}
			b.WriteString(dimStyle.Render("┤"))
			b.WriteString("\n")
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			w := widths[i]
			cell := ""
			if i < len(row) {
				cell = row[i]
			}

			var padded string
			if t.rightAligned(i) {
				padded = fmt.Sprintf(" %*s ", w, cell)
			} else {
				padded = fmt.Sprintf(" %-*s ", w, cell)
			}
			b.WriteString(valueStyle.Render(padded))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	// Bottom border
	b.WriteString(dimStyle.Render("╰"))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < numCols-1 {
			b.WriteString(dimStyle.Render("┴"))
		}
	}
	b.WriteString(dimStyle.Render("╯"))
	b.WriteString("\n")

	return b.String()
}

// RenderProgressBar renders a simple text progress bar.
func RenderProgressBar(current, total int, width int) string {
	if total <= 0 {
		return ""
	}

	pct := float64(current) / float64(total)
	if pct > 1 {
		pct = 1
	}

	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s/%s",
		mutedStyle.Render(bar),
		FormatNumber(int64(current)),
		FormatNumber(int64(total)),
	)
}

// StatusColor returns the display color for a milestone status.
func StatusColor(s model.MilestoneStatus) lipgloss.Color {
	switch s {
	case model.StatusOverdue:
		return ColorRed
	case model.StatusNegotiating:
		return ColorYellow
	case model.StatusExtended:
		return ColorPurple
	case model.StatusCompleted:
		return ColorGreen
	case model.StatusWaived:
		return ColorTextMuted
	default:
		return ColorBlue
	}
}

// RenderStatus renders a status label in its color.
func RenderStatus(s model.MilestoneStatus) string {
	return lipgloss.NewStyle().Foreground(StatusColor(s)).Render(s.Label())
}

// RenderMuted renders s in the muted text color.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}

// RenderWarn renders s in the overdue color.
func RenderWarn(s string) string {
	return lipgloss.NewStyle().Foreground(ColorRed).Render(s)
}

// RenderMonthGrid renders a Sunday-first month grid with the entry count
// of each day. Days outside the month are blank and today is highlighted.
func RenderMonthGrid(weeks [][]pipeline.GridDay, today time.Time) string {
	const cell = 6
	var b strings.Builder

	for d := 0; d < 7; d++ {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s", cell, FormatDayOfWeek(d))))
	}
	b.WriteString("\n")

	todayKey := dates.Key(today)
	for _, week := range weeks {
		for _, day := range week {
			if !day.InMonth {
				b.WriteString(strings.Repeat(" ", cell))
				continue
			}
			label := fmt.Sprintf("%2d", day.Date.Day())
			if n := len(day.Entries); n > 0 {
				label += fmt.Sprintf("·%d", n)
			}
			label = fmt.Sprintf("%-*s", cell, label)

			switch {
			case dates.Key(day.Date) == todayKey:
				b.WriteString(todayStyle.Render(label))
			case hasOverdue(day.Entries):
				b.WriteString(RenderWarn(label))
			case len(day.Entries) > 0:
				b.WriteString(valueStyle.Render(label))
			default:
				b.WriteString(dimStyle.Render(label))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func hasOverdue(es []pipeline.Entry) bool {
	for _, e := range es {
		if me, ok := e.(pipeline.MilestoneEntry); ok && me.Status() == model.StatusOverdue {
			return true
		}
	}
	return false
}
