package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/dealdates/internal/config"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/store"
	"github.com/theirongolddev/dealdates/internal/tui/components"
)

func day(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := dates.Parse(s)
	require.NoError(t, err)
	return &d
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(a App, msgs ...tea.Msg) App {
	for _, msg := range msgs {
		m, _ := a.Update(msg)
		a = m.(App)
	}
	return a
}

func newTestApp(t *testing.T, st store.Store, deals []pipeline.Deal) App {
	t.Helper()
	today := *day(t, "2024-03-10")
	a := NewApp(Options{
		Store:   st,
		Catalog: model.DefaultCatalog(),
		Config:  config.DefaultConfig(),
		Today:   func() time.Time { return today },
	})
	return press(a,
		tea.WindowSizeMsg{Width: 140, Height: 40},
		DataLoadedMsg{Deals: deals},
	)
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := len(tab.Name) + 2
			x := pos + w/2
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 1
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Fatalf("active=%d past last tab -> %d, want -1", active, got)
		}
	}
}

func TestTimelineRowsFollowBucketOrder(t *testing.T) {
	d := pipeline.Deal{Milestones: []model.MilestoneInstance{
		{Key: "done", Status: model.StatusCompleted, Date: day(t, "2024-03-01")},
		{Key: "late", Status: model.StatusOverdue, Date: day(t, "2024-03-05")},
		{Key: "later", Status: model.StatusInProgress, Date: day(t, "2024-03-20")},
		{Key: "tbd", Status: model.StatusInProgress},
		{Key: "soon", Status: model.StatusInProgress, Date: day(t, "2024-03-12")},
		{Key: "talk", Status: model.StatusNegotiating, Date: day(t, "2024-03-11")},
	}}

	var got []string
	for _, m := range timelineRows(d) {
		got = append(got, m.Key)
	}
	assert.Equal(t, []string{"late", "soon", "later", "tbd", "talk", "done"}, got)
}

func TestWeeklyLoad(t *testing.T) {
	today := *day(t, "2024-03-10")
	deals := []pipeline.Deal{
		{Milestones: []model.MilestoneInstance{
			{Status: model.StatusInProgress, Date: day(t, "2024-03-10")},
			{Status: model.StatusInProgress, Date: day(t, "2024-03-16")},
			{Status: model.StatusInProgress, Date: day(t, "2024-03-17")},
			{Status: model.StatusCompleted, Date: day(t, "2024-03-11")},
			{Status: model.StatusOverdue, Date: day(t, "2024-03-01")},
			{Status: model.StatusInProgress},
		}},
		{Milestones: []model.MilestoneInstance{
			{Status: model.StatusNegotiating, Date: day(t, "2024-04-20")},
			{Status: model.StatusInProgress, Date: day(t, "2025-01-01")},
		}},
	}
	assert.Equal(t, []int{2, 1, 0, 0, 0, 1}, weeklyLoad(deals, today, 6))
}

func TestKeyNavigation(t *testing.T) {
	deals := []pipeline.Deal{
		{Txn: model.Transaction{ID: "a", Address: "1 Elm St"}},
		{Txn: model.Transaction{ID: "b", Address: "2 Elm St"}},
		{Txn: model.Transaction{ID: "c", Address: "3 Elm St"}},
	}
	a := newTestApp(t, nil, deals)
	require.True(t, a.loaded)
	assert.Equal(t, tabTimeline, a.activeTab)

	a = press(a, keys("n"), keys("n"))
	assert.Equal(t, 2, a.sel)
	a = press(a, keys("n"))
	assert.Equal(t, 0, a.sel, "n wraps")
	a = press(a, keys("p"))
	assert.Equal(t, 2, a.sel, "p wraps")

	a = press(a, keys("c"))
	assert.Equal(t, tabCalendar, a.activeTab)
	assert.Equal(t, "2024-03-01", dates.Format(a.month))
	a = press(a, keys("["), keys("["))
	assert.Equal(t, "2024-01-01", dates.Format(a.month))
	a = press(a, keys("]"))
	assert.Equal(t, "2024-02-01", dates.Format(a.month))
	a = press(a, keys("."))
	assert.Equal(t, "2024-03-01", dates.Format(a.month))

	a = press(a, keys("a"))
	assert.Equal(t, tabTasks, a.activeTab)
	a = press(a, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabTimeline, a.activeTab)

	a = press(a, keys("?"))
	assert.True(t, a.showHelp)
	a = press(a, keys("x"))
	assert.False(t, a.showHelp)
}

func TestReloadKeepsSelectedDeal(t *testing.T) {
	deals := []pipeline.Deal{
		{Txn: model.Transaction{ID: "a"}},
		{Txn: model.Transaction{ID: "b"}},
	}
	a := newTestApp(t, nil, deals)
	a = press(a, keys("n"))
	require.Equal(t, "b", a.deals[a.sel].Txn.ID)

	reordered := []pipeline.Deal{deals[1], deals[0]}
	a = press(a, DataLoadedMsg{Deals: reordered})
	assert.Equal(t, 0, a.sel)
	assert.Equal(t, "b", a.deals[a.sel].Txn.ID)
}

func TestEditValuesUpdate(t *testing.T) {
	tests := []struct {
		in      string
		date    string
		offset  *int
		wantErr bool
	}{
		{in: "2024-03-05", date: "2024-03-05"},
		{in: "", date: ""},
		{in: "TBD", date: "TBD"},
		{in: "+3", offset: intPtr(3)},
		{in: "-5", offset: intPtr(-5)},
		{in: "+1.5", wantErr: true},
		{in: "03/05/2024", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := editValues{date: tt.in, status: "completed"}.update()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Error(t, validateDateField(tt.in))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.date, u.Date)
			assert.Equal(t, tt.offset, u.Offset)
			assert.Equal(t, "completed", u.Status)
		})
	}
}

func intPtr(n int) *int { return &n }

func TestSubmitEditPersistsMilestone(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "deals.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	txn := model.Transaction{Address: "12 Oak St"}
	require.NoError(t, st.CreateTransaction(ctx, &txn))
	require.NoError(t, store.SaveMilestone(ctx, st, txn.ID, model.MilestonePatch{
		Key: model.KeyOfferAcceptance, Date: day(t, "2024-03-01"), Status: model.StatusCompleted,
	}))

	cat := model.DefaultCatalog()
	deals, err := pipeline.LoadDeals(ctx, st, cat, *day(t, "2024-03-10"))
	require.NoError(t, err)

	a := newTestApp(t, st, deals)
	a.editKey = "emd_due_date"
	a.editVals = &editValues{date: "+3", status: "negotiating", notes: " wire pending "}

	m, cmd := a.submitEdit()
	a = m.(App)
	require.NotNil(t, cmd, "status: %s", a.status)
	assert.Nil(t, a.editForm)

	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.Err)
	assert.Equal(t, "saved EMD Due", saved.What)

	rec, err := st.LoadRecord(ctx, txn.ID)
	require.NoError(t, err)
	got, ok := rec.Milestone("emd_due_date")
	require.True(t, ok)
	assert.Equal(t, "2024-03-06", dates.Format(*got.Date))
	assert.Equal(t, "negotiating", got.Status)
	assert.Equal(t, "wire pending", got.Notes)
}

func TestSubmitEditKeepsStoredOffset(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "deals.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	txn := model.Transaction{Address: "12 Oak St"}
	require.NoError(t, st.CreateTransaction(ctx, &txn))
	five := 5
	require.NoError(t, st.SaveMilestones(ctx, txn.ID, []model.MilestonePatch{
		{Key: model.KeyOfferAcceptance, Date: day(t, "2024-03-01"), Status: model.StatusCompleted},
		{Key: "emd_due_date", Date: day(t, "2024-03-08"), Status: model.StatusInProgress, Offset: &five},
	}))

	cat := model.DefaultCatalog()
	deals, err := pipeline.LoadDeals(ctx, st, cat, *day(t, "2024-03-04"))
	require.NoError(t, err)

	a := newTestApp(t, st, deals)
	for i, m := range timelineRows(deals[0]) {
		if m.Key == "emd_due_date" {
			a.cursor = i
		}
	}
	m, _ := a.openEdit()
	a = m.(App)
	require.NotNil(t, a.editVals)
	require.Equal(t, "2024-03-08", a.editVals.date)
	a.editVals.status = "negotiating"

	m, cmd := a.submitEdit()
	a = m.(App)
	require.NotNil(t, cmd, "status: %s", a.status)
	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.Err)

	rec, err := st.LoadRecord(ctx, txn.ID)
	require.NoError(t, err)
	got, _ := rec.Milestone("emd_due_date")
	assert.Equal(t, "negotiating", got.Status)
	require.NotNil(t, got.Offset)
	assert.Equal(t, 5, *got.Offset)
}

func TestEditValuesNewDateDropsOffset(t *testing.T) {
	five := 5
	v := editValues{date: "2024-03-08", origDate: "2024-03-08", offset: &five}
	u, err := v.update()
	require.NoError(t, err)
	assert.Equal(t, &five, u.KeepOffset)

	v.date = "2024-03-12"
	u, err = v.update()
	require.NoError(t, err)
	assert.Nil(t, u.KeepOffset)
}

func TestSubmitEditReportsMissingBase(t *testing.T) {
	deals := []pipeline.Deal{{Txn: model.Transaction{ID: "a"}}}
	a := newTestApp(t, nil, deals)
	a.editKey = "emd_due_date"
	a.editVals = &editValues{date: "+3"}

	m, cmd := a.submitEdit()
	a = m.(App)
	assert.Nil(t, cmd)
	assert.Contains(t, a.status, "base milestone has no date")
}

func TestViewRendersEachTab(t *testing.T) {
	deals := []pipeline.Deal{{
		Txn: model.Transaction{ID: "a", Address: "12 Oak St", City: "Springfield"},
		Milestones: []model.MilestoneInstance{
			{Key: "emd_due_date", Label: "EMD Due", Status: model.StatusOverdue, Date: day(t, "2024-03-05")},
		},
		Tasks: []model.Task{{ID: "t1", Label: "Call lender", Date: day(t, "2024-03-12")}},
	}}
	a := newTestApp(t, nil, deals)

	assert.Contains(t, a.View(), "EMD Due")
	a = press(a, keys("c"))
	assert.Contains(t, a.View(), "March 2024")
	a = press(a, keys("a"))
	assert.Contains(t, a.View(), "Call lender")
}
