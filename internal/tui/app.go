// Package tui provides the interactive Bubble Tea dashboard for dealdates.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/config"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/store"
	"github.com/theirongolddev/dealdates/internal/tui/components"
	"github.com/theirongolddev/dealdates/internal/tui/theme"
)

// DataLoadedMsg is sent when deals have been loaded and projected.
type DataLoadedMsg struct {
	Deals    []pipeline.Deal
	LoadTime time.Duration
	Err      error
}

// SavedMsg is sent when a write to the store finishes.
type SavedMsg struct {
	What string
	Err  error
}

// Options configures NewApp.
type Options struct {
	Store     store.Store
	Catalog   model.Catalog
	Config    config.Config
	Today     func() time.Time
	NeedSetup bool
}

// App is the root Bubble Tea model.
type App struct {
	st    store.Store
	cat   model.Catalog
	cfg   config.Config
	today func() time.Time

	// Data
	deals    []pipeline.Deal
	loaded   bool
	loadErr  error
	loadTime time.Duration

	// UI state
	width      int
	height     int
	activeTab  int
	showHelp   bool
	sel        int // selected deal
	cursor     int // timeline row
	taskCursor int
	month      time.Time // first day of the calendar month
	status     string

	// Milestone edit (huh form)
	editForm *huh.Form
	editVals *editValues
	editKey  string

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	storeTimeout     = 10 * time.Second
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	today := opts.Today
	if today == nil {
		loc := opts.Config.Location()
		today = func() time.Time { return dates.Today(loc) }
	}
	now := today()

	return App{
		st:        opts.Store,
		cat:       opts.Catalog,
		cfg:       opts.Config,
		today:     today,
		needSetup: opts.NeedSetup,
		month:     dates.Of(now.Year(), now.Month(), 1),
		spinner:   sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDealsCmd(a.st, a.cat, a.today()),
		a.spinner.Tick,
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case spinner.TickMsg:
		if a.loaded {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case DataLoadedMsg:
		a.applyDeals(msg)
		if a.needSetup && a.setupForm == nil {
			a.setupVals = SetupValuesFrom(a.cfg)
			a.setupForm = NewSetupForm(a.setupVals).WithWidth(a.width).WithHeight(a.height)
			return a, a.setupForm.Init()
		}
		return a, nil

	case SavedMsg:
		if msg.Err != nil {
			a.status = "save failed: " + msg.Err.Error()
			return a, nil
		}
		a.status = msg.What
		return a, loadDealsCmd(a.st, a.cat, a.today())

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.loaded {
			return a, nil
		}
		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}
		if a.editForm != nil {
			return a.updateEditForm(msg)
		}
		return a.updateKey(msg)
	}

	// Forward unhandled messages to an open form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.editForm != nil {
		return a.updateEditForm(msg)
	}
	return a, nil
}

func (a *App) applyDeals(msg DataLoadedMsg) {
	a.loaded = true
	a.loadTime = msg.LoadTime
	a.loadErr = msg.Err
	if msg.Err != nil {
		return
	}

	var selID string
	if a.sel < len(a.deals) {
		selID = a.deals[a.sel].Txn.ID
	}
	a.deals = msg.Deals
	a.sel = 0
	for i, d := range a.deals {
		if d.Txn.ID == selID {
			a.sel = i
			break
		}
	}
	a.clampCursors()
}

func (a *App) clampCursors() {
	d, ok := a.selected()
	if !ok {
		a.cursor, a.taskCursor = 0, 0
		return
	}
	a.cursor = clamp(a.cursor, 0, len(timelineRows(d))-1)
	a.taskCursor = clamp(a.taskCursor, 0, len(d.Tasks)-1)
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "?":
		a.showHelp = true
		return a, nil
	case "r":
		a.status = "reloading"
		return a, loadDealsCmd(a.st, a.cat, a.today())
	case "tab", "right", "l":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "shift+tab", "left", "h":
		a.activeTab = (a.activeTab + len(components.Tabs) - 1) % len(components.Tabs)
		return a, nil
	case "n":
		if len(a.deals) > 0 {
			a.sel = (a.sel + 1) % len(a.deals)
			a.cursor, a.taskCursor = 0, 0
		}
		return a, nil
	case "p":
		if len(a.deals) > 0 {
			a.sel = (a.sel + len(a.deals) - 1) % len(a.deals)
			a.cursor, a.taskCursor = 0, 0
		}
		return a, nil
	case "j", "down":
		a.moveCursor(1)
		return a, nil
	case "k", "up":
		a.moveCursor(-1)
		return a, nil
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			a.activeTab = idx
			return a, nil
		}
	}

	switch a.activeTab {
	case tabTimeline:
		if key == "e" || key == "enter" {
			return a.openEdit()
		}
	case tabCalendar:
		switch key {
		case "[":
			a.month = a.month.AddDate(0, -1, 0)
		case "]":
			a.month = a.month.AddDate(0, 1, 0)
		case ".":
			now := a.today()
			a.month = dates.Of(now.Year(), now.Month(), 1)
		}
	case tabTasks:
		if key == "x" || key == " " || key == "enter" {
			return a.toggleTask()
		}
	}
	return a, nil
}

func (a *App) moveCursor(delta int) {
	d, ok := a.selected()
	if !ok {
		return
	}
	switch a.activeTab {
	case tabTimeline:
		a.cursor = clamp(a.cursor+delta, 0, len(timelineRows(d))-1)
	case tabTasks:
		a.taskCursor = clamp(a.taskCursor+delta, 0, len(d.Tasks)-1)
	case tabCalendar:
		a.month = a.month.AddDate(0, delta, 0)
	}
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || a.showHelp || a.setupForm != nil || a.editForm != nil {
		return a, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		a.moveCursor(-1)
	case tea.MouseButtonWheelDown:
		a.moveCursor(1)
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return a, nil
		}
		if msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) selected() (pipeline.Deal, bool) {
	if a.sel < 0 || a.sel >= len(a.deals) {
		return pipeline.Deal{}, false
	}
	return a.deals[a.sel], true
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := a.setupVals.Apply(a.cfg)
		if err := config.Save(cfg); err != nil {
			a.status = "config not saved: " + err.Error()
		} else {
			a.cfg = cfg
			theme.SetActive(cfg.Appearance.Theme)
			a.status = "saved " + config.ConfigPath()
		}
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	if a.editForm != nil {
		return a.viewEdit()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  dealdates needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ dealdates"))
	b.WriteString(subtitleStyle.Render(" · Important Dates"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(subtitleStyle.Render(" Loading transactions..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

type binding struct{ key, desc string }

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings []binding
	}{
		{"Navigation", []binding{
			{"t c a", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"n p", "Next / Previous transaction"},
			{"j k", "Move selection"},
		}},
		{"Timeline", []binding{
			{"e Enter", "Edit milestone"},
			{"Esc", "Cancel edit"},
		}},
		{"Calendar", []binding{
			{"[ ]", "Previous / Next month"},
			{".", "Current month"},
		}},
		{"Tasks", []binding{
			{"x Space", "Toggle done"},
		}},
		{"General", []binding{
			{"r", "Reload"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	hints := "[?]help  [q]uit"
	switch a.activeTab {
	case tabTimeline:
		hints = "[n/p]deal  [j/k]move  [e]dit  " + hints
	case tabCalendar:
		hints = "[/]month  [.]now  " + hints
	case tabTasks:
		hints = "[n/p]deal  [x]done  " + hints
	}
	right := fmt.Sprintf("%s · %d deals", cli.FormatDay(a.today()), len(a.deals))
	statusBar := components.RenderStatusBar(w, hints, a.status, right)

	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch {
	case a.loadErr != nil:
		content = components.ContentCard("Error", a.loadErr.Error(), cw)
	case len(a.deals) == 0:
		content = components.ContentCard("No transactions",
			"Add one with `dealdates txn add <address>` and reload with r.", cw)
	default:
		switch a.activeTab {
		case tabTimeline:
			content = a.renderTimelineTab(cw)
		case tabCalendar:
			content = a.renderCalendarTab(cw)
		case tabTasks:
			content = a.renderTasksTab(cw)
		}
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Commands ───────────────────────────────────────────────────

func loadDealsCmd(st store.Store, cat model.Catalog, today time.Time) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		deals, err := pipeline.LoadDeals(ctx, st, cat, today)
		return DataLoadedMsg{Deals: deals, LoadTime: time.Since(start), Err: err}
	}
}

func saveMilestoneCmd(st store.Store, txnID string, p model.MilestonePatch, label string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return SavedMsg{What: "saved " + label, Err: store.SaveMilestone(ctx, st, txnID, p)}
	}
}

func setTaskCmd(st store.Store, id string, done bool, label string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		what := "reopened " + label
		if done {
			what = "completed " + label
		}
		return SavedMsg{What: what, Err: st.SetTaskCompleted(ctx, id, done)}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
