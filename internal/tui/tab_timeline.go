package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/tui/components"
	"github.com/theirongolddev/dealdates/internal/tui/theme"
)

// Tab indices, matching components.Tabs.
const (
	tabTimeline = iota
	tabCalendar
	tabTasks
)

const loadWeeks = 8

// timelineRows flattens the status buckets into cursor order.
func timelineRows(d pipeline.Deal) []model.MilestoneInstance {
	var rows []model.MilestoneInstance
	for _, g := range pipeline.GroupByStatus(d.Milestones) {
		rows = append(rows, g.Milestones...)
	}
	return rows
}

// weeklyLoad counts open dated milestones due in each of the next n weeks.
func weeklyLoad(deals []pipeline.Deal, today time.Time, n int) []int {
	today = dates.Truncate(today)
	out := make([]int, n)
	for _, d := range deals {
		for _, m := range d.Milestones {
			if m.Date == nil || m.Status.IsSticky() {
				continue
			}
			days := dates.DaysBetween(today, *m.Date)
			if days < 0 {
				continue
			}
			if w := days / 7; w < n {
				out[w]++
			}
		}
	}
	return out
}

func (a App) renderTimelineTab(cw int) string {
	t := theme.Active
	d, _ := a.selected()
	today := a.today()

	var b strings.Builder
	b.WriteString(a.renderDealHeader(d, cw))
	b.WriteString("\n")

	sum := pipeline.Summarize([]pipeline.Deal{d}, today)
	done := sum.ByStatus[model.StatusCompleted] + sum.ByStatus[model.StatusWaived]

	next := "-"
	nextDelta := ""
	if sum.NextDeadline != nil {
		next = sum.NextDeadline.Milestone.Label
		nextDelta = cli.FormatDay(*sum.NextDeadline.Milestone.Date) + " · " +
			cli.FormatDaysRemaining(sum.NextDeadline.Milestone.DaysRemaining)
	}
	overdueColor := t.Green
	if sum.ByStatus[model.StatusOverdue] > 0 {
		overdueColor = t.Red
	}
	metrics := []components.Metric{
		{Label: "Next Deadline", Value: next, Delta: nextDelta, Color: t.AccentBright},
		{Label: "Overdue", Value: fmt.Sprintf("%d", sum.ByStatus[model.StatusOverdue]), Color: overdueColor},
		{Label: "Due This Week", Value: fmt.Sprintf("%d", sum.DueThisWeek)},
		{Label: "Done", Value: fmt.Sprintf("%d/%d", done, sum.Milestones)},
	}
	if a.isCompactLayout() {
		metrics = metrics[:2]
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	listW := cw
	var side string
	if !a.isCompactLayout() {
		sideW := cw / 3
		listW = cw - sideW
		side = a.renderMilestoneDetail(d, sideW)
	}

	list := components.ContentCard("Timeline", a.renderTimelineList(d, components.CardInnerWidth(listW)), listW)
	if side != "" {
		b.WriteString(components.CardRow([]string{list, side}))
	} else {
		b.WriteString(list)
	}
	return b.String()
}

func (a App) renderDealHeader(d pipeline.Deal, cw int) string {
	t := theme.Active
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Background).Bold(true)
	metaStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Background)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Background)

	parts := []string{}
	if d.Txn.Client != "" {
		parts = append(parts, d.Txn.Client)
	}
	if d.Txn.Side != "" {
		parts = append(parts, string(d.Txn.Side))
	}
	if !d.Txn.Financials.SalesPrice.IsZero() {
		parts = append(parts, cli.FormatMoney(d.Txn.Financials.SalesPrice))
	}

	line := titleStyle.Render(" ◈ "+cli.Truncate(d.Txn.FullAddress(), cw/2)) +
		dimStyle.Render(fmt.Sprintf("  ‹ %d/%d ›", a.sel+1, len(a.deals)))
	if len(parts) > 0 {
		line += metaStyle.Render("  " + strings.Join(parts, " · "))
	}
	return line
}

func (a App) renderTimelineList(d pipeline.Deal, innerW int) string {
	t := theme.Active

	labelW := 28
	if innerW < 70 {
		labelW = 22
	}
	notesW := innerW - labelW - 10 - 14 - 6
	if notesW < 0 {
		notesW = 0
	}

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	idx := 0
	first := true
	for _, g := range pipeline.GroupByStatus(d.Milestones) {
		if len(g.Milestones) == 0 {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false

		head := lipgloss.NewStyle().Foreground(t.Status(g.Status)).Background(t.Surface).Bold(true)
		b.WriteString(head.Render(fmt.Sprintf("%s (%d)", g.Status.Label(), len(g.Milestones))))
		b.WriteString("\n")

		for _, m := range g.Milestones {
			marker := "  "
			style := rowStyle
			if idx == a.cursor {
				marker = "▸ "
				style = selStyle
			}
			date := "TBD"
			if m.Date != nil {
				date = cli.FormatDay(*m.Date)
			}
			line := fmt.Sprintf("%s%-*s %-10s %-14s",
				marker,
				labelW, cli.Truncate(m.Label, labelW),
				date,
				cli.FormatDaysRemaining(m.DaysRemaining))
			b.WriteString(style.Render(line))
			if notesW > 4 && m.Notes != "" {
				b.WriteString(dimStyle.Render(" " + cli.Truncate(m.Notes, notesW)))
			}
			b.WriteString("\n")
			idx++
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a App) renderMilestoneDetail(d pipeline.Deal, outerW int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	innerW := components.CardInnerWidth(outerW)

	rows := timelineRows(d)
	if len(rows) == 0 {
		return components.ContentCard("Milestone", labelStyle.Render("none"), outerW)
	}
	m := rows[clamp(a.cursor, 0, len(rows)-1)]

	kv := func(k, v string) string {
		return labelStyle.Render(fmt.Sprintf("%-9s", k)) + valueStyle.Render(cli.Truncate(v, innerW-9)) + "\n"
	}

	var b strings.Builder
	b.WriteString(kv("Key", m.Key))
	b.WriteString(kv("Date", m.DateLabel()))
	statusStyle := lipgloss.NewStyle().Foreground(t.Status(m.Status)).Background(t.Surface).Bold(true)
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-9s", "Status")) + statusStyle.Render(m.Status.Label()) + "\n")

	if def, ok := a.cat.Lookup(m.Key); ok && !def.IsRoot() {
		rule := "entered"
		if def.DefaultOffset != nil {
			unit := "days"
			if def.BusinessDays {
				unit = "business days"
			}
			rule = fmt.Sprintf("%+d %s", *def.DefaultOffset, unit)
		}
		if base, ok := a.cat.Lookup(def.Base); ok {
			rule += " from " + base.Label
		}
		if def.PushOffWeekend {
			rule += ", off weekends"
		}
		b.WriteString(kv("Rule", rule))
	}
	if m.Notes != "" {
		b.WriteString("\n")
		b.WriteString(valueStyle.Width(innerW).Render(m.Notes))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("Deadlines, next %d weeks (all deals)", loadWeeks)))
	b.WriteString("\n")
	b.WriteString(components.Sparkline(weeklyLoad(a.deals, a.today(), loadWeeks), t.Accent))

	return components.ContentCard("Milestone", strings.TrimRight(b.String(), "\n"), outerW)
}

// ─── Milestone edit ─────────────────────────────────────────────

// editValues backs the huh edit form. Date accepts YYYY-MM-DD, TBD or an
// empty string to clear, or a signed offset such as +3 from the base
// milestone.
type editValues struct {
	date   string
	status string
	notes  string

	// stored date and offset as loaded; the offset survives while the
	// date field is left unchanged
	origDate string
	offset   *int
}

func (v editValues) update() (pipeline.MilestoneUpdate, error) {
	u := pipeline.MilestoneUpdate{Status: v.status, Notes: v.notes}
	s := strings.TrimSpace(v.date)
	if s == v.origDate {
		u.KeepOffset = v.offset
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		n, err := dates.ParseOffset(s)
		if err != nil {
			return u, err
		}
		u.Offset = &n
		return u, nil
	}
	if _, err := dates.ParseOptional(s); err != nil {
		return u, err
	}
	u.Date = s
	return u, nil
}

func validateDateField(s string) error {
	_, err := editValues{date: s}.update()
	return err
}

func newEditForm(def model.Definition, v *editValues) *huh.Form {
	opts := make([]huh.Option[string], 0, len(model.MilestoneStatuses))
	for _, st := range model.MilestoneStatuses {
		opts = append(opts, huh.NewOption(st.Label(), string(st)))
	}

	dateDesc := "YYYY-MM-DD, or empty/TBD to clear"
	if !def.IsRoot() {
		dateDesc += ", or +N/-N days from the base"
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Date").
				Description(dateDesc).
				Value(&v.date).
				Validate(validateDateField),
			huh.NewSelect[string]().
				Title("Status").
				Options(opts...).
				Value(&v.status),
			huh.NewText().
				Title("Notes").
				Lines(3).
				Value(&v.notes),
		),
	).WithShowHelp(true)
}

func (a App) openEdit() (tea.Model, tea.Cmd) {
	d, ok := a.selected()
	if !ok {
		return a, nil
	}
	rows := timelineRows(d)
	if len(rows) == 0 {
		return a, nil
	}
	m := rows[clamp(a.cursor, 0, len(rows)-1)]
	def, err := a.cat.Must(m.Key)
	if err != nil {
		a.status = err.Error()
		return a, nil
	}

	// Overdue is computed at read time; editing starts from in_progress.
	status := m.Status
	if status == model.StatusOverdue {
		status = model.StatusInProgress
	}
	date := ""
	if m.Date != nil {
		date = dates.Format(*m.Date)
	}

	a.editVals = &editValues{date: date, status: string(status), notes: m.Notes, origDate: date, offset: m.Offset}
	a.editKey = def.Key
	a.editForm = newEditForm(def, a.editVals).WithWidth(min(a.contentWidth()-8, 72))
	a.status = ""
	return a, a.editForm.Init()
}

func (a App) updateEditForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		a.editForm, a.editVals = nil, nil
		a.status = "edit cancelled"
		return a, nil
	}

	form, cmd := a.editForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.editForm = f
	}

	switch a.editForm.State {
	case huh.StateCompleted:
		return a.submitEdit()
	case huh.StateAborted:
		a.editForm, a.editVals = nil, nil
		return a, nil
	}
	return a, cmd
}

// submitEdit normalizes the form values and persists them.
func (a App) submitEdit() (tea.Model, tea.Cmd) {
	vals := *a.editVals
	a.editForm, a.editVals = nil, nil

	d, ok := a.selected()
	if !ok {
		return a, nil
	}
	def, err := a.cat.Must(a.editKey)
	if err != nil {
		a.status = err.Error()
		return a, nil
	}
	u, err := vals.update()
	if err != nil {
		a.status = err.Error()
		return a, nil
	}
	patch, err := pipeline.NormalizeUpdate(def, u, milestoneDate(d, def.Base))
	if err != nil {
		a.status = err.Error()
		return a, nil
	}
	return a, saveMilestoneCmd(a.st, d.Txn.ID, patch, def.Label)
}

func milestoneDate(d pipeline.Deal, key string) *time.Time {
	if key == "" {
		return nil
	}
	for _, m := range d.Milestones {
		if m.Key == key {
			return m.Date
		}
	}
	return nil
}

func (a App) viewEdit() string {
	t := theme.Active
	d, _ := a.selected()

	label := a.editKey
	if def, ok := a.cat.Lookup(a.editKey); ok {
		label = def.Label
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 2)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	body := titleStyle.Render("Edit · "+label) + "\n" +
		dimStyle.Render(d.Txn.ShortAddress()+"  ·  esc to cancel") + "\n\n" +
		a.editForm.View()

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}
