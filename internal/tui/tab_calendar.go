package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/tui/components"
	"github.com/theirongolddev/dealdates/internal/tui/theme"
)

func (a App) renderCalendarTab(cw int) string {
	t := theme.Active
	today := a.today()
	entries := pipeline.CalendarEntries(a.deals, today)
	weeks := pipeline.MonthGrid(a.month.Year(), a.month.Month(), entries)

	gridW := cw
	var agenda string
	if !a.isCompactLayout() {
		gridW = cw * 3 / 5
		agenda = components.ContentCard("This month", a.renderMonthAgenda(weeks, components.CardInnerWidth(cw-gridW)), cw-gridW)
	}

	title := a.month.Format("January 2006")
	grid := components.ContentCard(title, renderGrid(weeks, today, components.CardInnerWidth(gridW)), gridW)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Background).
		Render(fmt.Sprintf(" %d dated entries across %d deals", len(entries), len(a.deals))))
	b.WriteString("\n")
	if agenda != "" {
		b.WriteString(components.CardRow([]string{grid, agenda}))
	} else {
		b.WriteString(grid)
	}
	return b.String()
}

// renderGrid draws a Sunday-first month grid. Each cell shows the day number
// and the entry count; today is highlighted and days with an overdue
// milestone are red.
func renderGrid(weeks [][]pipeline.GridDay, today time.Time, innerW int) string {
	t := theme.Active
	cell := innerW / 7
	if cell > 12 {
		cell = 12
	}
	if cell < 5 {
		cell = 5
	}

	base := lipgloss.NewStyle().Background(t.Surface).Width(cell)
	headStyle := base.Foreground(t.TextMuted).Bold(true)
	outStyle := base.Foreground(t.TextDim)
	dayStyle := base.Foreground(t.TextPrimary)
	busyStyle := base.Foreground(t.AccentBright).Bold(true)
	lateStyle := base.Foreground(t.Red).Bold(true)
	todayStyle := base.Foreground(t.Background).Background(t.Accent).Bold(true)

	var b strings.Builder
	for d := 0; d < 7; d++ {
		b.WriteString(headStyle.Render(cli.FormatDayOfWeek(d)))
	}
	b.WriteString("\n")

	todayKey := dates.Key(today)
	for wi, week := range weeks {
		for _, day := range week {
			label := fmt.Sprintf("%2d", day.Date.Day())
			if n := len(day.Entries); n > 0 {
				label += fmt.Sprintf(" •%d", n)
			}
			switch {
			case dates.Key(day.Date) == todayKey:
				b.WriteString(todayStyle.Render(label))
			case !day.InMonth:
				b.WriteString(outStyle.Render(label))
			case hasOverdue(day.Entries):
				b.WriteString(lateStyle.Render(label))
			case len(day.Entries) > 0:
				b.WriteString(busyStyle.Render(label))
			default:
				b.WriteString(dayStyle.Render(label))
			}
		}
		if wi < len(weeks)-1 {
			b.WriteString("\n")
		}
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

// renderMonthAgenda lists the in-month entries day by day.
func (a App) renderMonthAgenda(weeks [][]pipeline.GridDay, innerW int) string {
	t := theme.Active
	dayStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	for _, week := range weeks {
		for _, day := range week {
			if !day.InMonth || len(day.Entries) == 0 {
				continue
			}
			b.WriteString(dayStyle.Render(cli.FormatDay(day.Date)))
			b.WriteString("\n")
			for _, e := range day.Entries {
				marker := "◆"
				color := t.TextPrimary
				switch e := e.(type) {
				case pipeline.MilestoneEntry:
					color = t.Status(e.Status())
				case pipeline.TaskEntry:
					marker = "·"
					color = t.Task(e.Status)
				}
				style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
				b.WriteString(style.Render(fmt.Sprintf("  %s %s", marker, cli.Truncate(e.Title(), innerW-16))))
				b.WriteString(dimStyle.Render(" " + e.StatusLabel()))
				b.WriteString("\n")
			}
		}
	}
	if b.Len() == 0 {
		return dimStyle.Render("Nothing scheduled")
	}
	return strings.TrimRight(b.String(), "\n")
}
