package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/tui/components"
	"github.com/theirongolddev/dealdates/internal/tui/theme"
)

func (a App) renderTasksTab(cw int) string {
	t := theme.Active
	d, _ := a.selected()
	today := a.today()

	var b strings.Builder
	b.WriteString(a.renderDealHeader(d, cw))
	b.WriteString("\n")

	done := 0
	for _, task := range d.Tasks {
		if task.Completed {
			done++
		}
	}
	innerW := components.CardInnerWidth(cw)
	barW := innerW - 24
	if barW > 40 {
		barW = 40
	}
	progress := components.LabeledProgress("Completed", done, len(d.Tasks), 10, barW)

	if len(d.Tasks) == 0 {
		dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
		b.WriteString(components.ContentCard("Tasks", dim.Render("No tasks. Add one with `dealdates task add`."), cw))
		return b.String()
	}

	selStyle := lipgloss.NewStyle().Background(t.SurfaceHover).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	labelW := innerW - 2 - 4 - 10 - 14 - 10
	if labelW > 48 {
		labelW = 48
	}
	if labelW < 12 {
		labelW = 12
	}

	var list strings.Builder
	list.WriteString(progress)
	list.WriteString("\n\n")
	for i, task := range d.Tasks {
		st := task.StatusOn(today)
		box := "[ ]"
		if task.Completed {
			box = "[x]"
		}
		date := "TBD"
		days := ""
		if task.Date != nil {
			date = cli.FormatDay(*task.Date)
			n := dates.DaysBetween(today, *task.Date)
			days = cli.FormatDaysRemaining(&n)
		}

		style := lipgloss.NewStyle().Foreground(t.Task(st)).Background(t.Surface)
		marker := "  "
		if i == a.taskCursor {
			marker = "▸ "
			style = selStyle.Foreground(t.Task(st))
		}
		line := fmt.Sprintf("%s%s %-*s %-10s %-14s", marker, box, labelW, cli.Truncate(task.Label, labelW), date, days)
		list.WriteString(style.Render(line))
		list.WriteString(dimStyle.Render(" " + st.Label()))
		if task.Notes != "" {
			list.WriteString("\n")
			list.WriteString(dimStyle.Render("      " + cli.Truncate(task.Notes, innerW-6)))
		}
		list.WriteString("\n")
	}

	b.WriteString(components.ContentCard(fmt.Sprintf("Tasks (%d)", len(d.Tasks)),
		strings.TrimRight(list.String(), "\n"), cw))
	return b.String()
}

func (a App) toggleTask() (tea.Model, tea.Cmd) {
	d, ok := a.selected()
	if !ok || len(d.Tasks) == 0 {
		return a, nil
	}
	task := d.Tasks[clamp(a.taskCursor, 0, len(d.Tasks)-1)]
	return a, setTaskCmd(a.st, task.ID, !task.Completed, task.Label)
}
