package pipeline

import (
	"testing"
	"time"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
)

func sampleDeals(t *testing.T) []Deal {
	t.Helper()
	today := mustDate(t, "2024-03-10")
	rec := record(
		model.StoredMilestone{Key: model.KeyOfferAcceptance, Date: datePtr(t, "2024-03-01")},
		model.StoredMilestone{Key: "emd_due_date", Date: datePtr(t, "2024-03-06"), Status: "completed"},
		model.StoredMilestone{Key: "investigation_contingency_date", Date: datePtr(t, "2024-03-18")},
		model.StoredMilestone{Key: "closing_date", Date: datePtr(t, "2024-04-01")},
	)
	tasks := []model.Task{
		{ID: "t1", Label: "Order inspection", Date: datePtr(t, "2024-03-18")},
		{ID: "t2", Label: "Call lender", Date: datePtr(t, "2024-03-08")},
		{ID: "t3", Label: "Someday"},
		{ID: "t4", Label: "Send flowers", Date: datePtr(t, "2024-03-09"), Completed: true},
	}
	return []Deal{{
		Txn:        rec.Transaction,
		Milestones: Project(rec, model.DefaultCatalog(), today),
		Tasks:      tasks,
	}}
}

func TestCalendarEntries_MergesKinds(t *testing.T) {
	today := mustDate(t, "2024-03-10")
	entries := CalendarEntries(sampleDeals(t), today)

	// 4 dated milestones + 3 dated tasks.
	if len(entries) != 7 {
		t.Fatalf("got %d entries, want 7", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Day().Before(entries[i-1].Day()) {
			t.Fatalf("entries not sorted by day at %d", i)
		}
	}

	byDay := GroupByDay(entries)
	same := byDay["2024-03-18"]
	if len(same) != 2 {
		t.Fatalf("2024-03-18 has %d entries, want 2", len(same))
	}
	if same[0].Kind() != KindMilestone || same[1].Kind() != KindTask {
		t.Errorf("same-day order = %s, %s; want milestone then task", same[0].Kind(), same[1].Kind())
	}

	task, ok := byDay["2024-03-08"][0].(TaskEntry)
	if !ok {
		t.Fatalf("2024-03-08 entry is %T, want TaskEntry", byDay["2024-03-08"][0])
	}
	if task.Status != model.TaskOverdue {
		t.Errorf("past open task status = %q, want overdue", task.Status)
	}
	if done := byDay["2024-03-09"][0].(TaskEntry); done.Status != model.TaskCompleted {
		t.Errorf("completed task status = %q", done.Status)
	}

	ms, ok := byDay["2024-03-06"][0].(MilestoneEntry)
	if !ok || ms.Status() != model.StatusCompleted {
		t.Errorf("2024-03-06 entry = %#v", byDay["2024-03-06"][0])
	}
	if got := ms.Title(); got != "EMD Due - 12 Oak St" {
		t.Errorf("Title = %q", got)
	}
}

func TestGroupByDay_ExcludesDateless(t *testing.T) {
	entries := CalendarEntries(sampleDeals(t), mustDate(t, "2024-03-10"))
	total := 0
	for day, es := range GroupByDay(entries) {
		if _, err := dates.Parse(day); err != nil {
			t.Errorf("bad day key %q", day)
		}
		total += len(es)
	}
	if total != len(entries) {
		t.Errorf("day buckets hold %d entries, want %d", total, len(entries))
	}
}

func TestGroupByDay_IgnoresTimeOfDay(t *testing.T) {
	d := time.Date(2024, 3, 18, 17, 45, 0, 0, time.UTC)
	es := []Entry{TaskEntry{Task: model.Task{Label: "x", Date: &d}}}
	if got := GroupByDay(es)["2024-03-18"]; len(got) != 1 {
		t.Fatalf("bucket = %v", got)
	}
}

func TestMonthGrid(t *testing.T) {
	entries := CalendarEntries(sampleDeals(t), mustDate(t, "2024-03-10"))
	weeks := MonthGrid(2024, time.March, entries)

	// March 2024 starts on a Friday and ends on a Sunday: 6 week rows.
	if len(weeks) != 6 {
		t.Fatalf("got %d weeks, want 6", len(weeks))
	}
	for i, w := range weeks {
		if len(w) != 7 {
			t.Fatalf("week %d has %d days", i, len(w))
		}
		if w[0].Date.Weekday() != time.Sunday {
			t.Errorf("week %d starts on %s", i, w[0].Date.Weekday())
		}
	}
	if got := dates.Format(weeks[0][0].Date); got != "2024-02-25" {
		t.Errorf("grid starts %s, want 2024-02-25", got)
	}
	if weeks[0][0].InMonth || !weeks[0][5].InMonth {
		t.Error("InMonth flags wrong in first week")
	}

	var count int
	for _, w := range weeks {
		for _, d := range w {
			count += len(d.Entries)
		}
	}
	// closing_date on 2024-04-01 sits in the trailing week.
	if count != len(entries) {
		t.Errorf("grid holds %d entries, want %d", count, len(entries))
	}
}

func TestUpcoming(t *testing.T) {
	today := mustDate(t, "2024-03-10")
	items := Upcoming(sampleDeals(t), today, 10)

	var keys []string
	for _, it := range items {
		keys = append(keys, it.Milestone.Key)
	}
	// emd is completed and skipped; offer acceptance is a completed root;
	// closing is beyond the window.
	if len(keys) != 1 || keys[0] != "investigation_contingency_date" {
		t.Errorf("Upcoming = %v, want [investigation_contingency_date]", keys)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleDeals(t), mustDate(t, "2024-03-10"))
	if s.Transactions != 1 {
		t.Errorf("Transactions = %d", s.Transactions)
	}
	if s.Milestones != len(model.DefaultCatalog()) {
		t.Errorf("Milestones = %d", s.Milestones)
	}
	if s.Dated != 4 {
		t.Errorf("Dated = %d, want 4", s.Dated)
	}
	if s.ByStatus[model.StatusCompleted] != 3 {
		// original contract (forced), offer acceptance, emd
		t.Errorf("completed = %d, want 3", s.ByStatus[model.StatusCompleted])
	}
	if s.OpenTasks != 3 || s.OverdueTasks != 1 {
		t.Errorf("tasks open=%d overdue=%d, want 3 and 1", s.OpenTasks, s.OverdueTasks)
	}
	if s.DueThisWeek != 0 || s.NextDeadline != nil {
		t.Errorf("DueThisWeek = %d, NextDeadline = %v", s.DueThisWeek, s.NextDeadline)
	}
}
