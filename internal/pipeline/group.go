package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
)

// StatusGroup is one bucket of the status board.
type StatusGroup struct {
	Status     model.MilestoneStatus
	Milestones []model.MilestoneInstance
}

// GroupByStatus partitions instances into the fixed bucket order
// overdue, in_progress, negotiating, extended, completed, waived. Every
// instance lands in exactly one bucket and buckets keep ascending date
// order. Empty buckets are included.
func GroupByStatus(ms []model.MilestoneInstance) []StatusGroup {
	sorted := make([]model.MilestoneInstance, len(ms))
	copy(sorted, ms)
	SortByDate(sorted)

	idx := make(map[model.MilestoneStatus]int, len(model.MilestoneStatuses))
	groups := make([]StatusGroup, len(model.MilestoneStatuses))
	for i, st := range model.MilestoneStatuses {
		idx[st] = i
		groups[i].Status = st
	}

	for _, m := range sorted {
		i, ok := idx[m.Status]
		if !ok {
			i = idx[model.StatusInProgress]
		}
		groups[i].Milestones = append(groups[i].Milestones, m)
	}
	return groups
}

// EntryKind separates milestone entries from task entries on the calendar.
type EntryKind string

// Entry kinds.
const (
	KindMilestone EntryKind = "milestone"
	KindTask      EntryKind = "task"
)

// Entry is anything that occupies a calendar day. Milestones and tasks keep
// their own status vocabularies; the calendar only needs the shared fields.
type Entry interface {
	Day() time.Time
	Title() string
	Kind() EntryKind
	StatusLabel() string
	TransactionID() string
}

// MilestoneEntry places a dated milestone on the calendar.
type MilestoneEntry struct {
	Txn       model.Transaction
	Milestone model.MilestoneInstance
}

// Day returns the milestone date. Callers only build entries for dated
// milestones.
func (e MilestoneEntry) Day() time.Time { return *e.Milestone.Date }

func (e MilestoneEntry) Title() string {
	return e.Milestone.Label + " - " + e.Txn.ShortAddress()
}

func (e MilestoneEntry) Kind() EntryKind { return KindMilestone }

func (e MilestoneEntry) StatusLabel() string { return e.Milestone.Status.Label() }

func (e MilestoneEntry) TransactionID() string { return e.Txn.ID }

// Status returns the milestone status.
func (e MilestoneEntry) Status() model.MilestoneStatus { return e.Milestone.Status }

// TaskEntry places a dated task reminder on the calendar.
type TaskEntry struct {
	Txn    model.Transaction
	Task   model.Task
	Status model.TaskStatus
}

func (e TaskEntry) Day() time.Time { return *e.Task.Date }

func (e TaskEntry) Title() string { return e.Task.Label + " - " + e.Txn.ShortAddress() }

func (e TaskEntry) Kind() EntryKind { return KindTask }

func (e TaskEntry) StatusLabel() string { return e.Status.Label() }

func (e TaskEntry) TransactionID() string { return e.Txn.ID }

// Deal bundles a transaction with its projected milestones and tasks.
type Deal struct {
	Txn        model.Transaction
	Milestones []model.MilestoneInstance
	Tasks      []model.Task
}

// CalendarEntries flattens deals into calendar entries. Dateless milestones
// and tasks are dropped. The result is sorted by day, milestones before
// tasks on the same day.
func CalendarEntries(deals []Deal, today time.Time) []Entry {
	var out []Entry
	for _, d := range deals {
		for _, m := range d.Milestones {
			if m.Date == nil {
				continue
			}
			out = append(out, MilestoneEntry{Txn: d.Txn, Milestone: m})
		}
		for _, t := range d.Tasks {
			if t.Date == nil {
				continue
			}
			out = append(out, TaskEntry{Txn: d.Txn, Task: t, Status: t.StatusOn(today)})
		}
	}
	SortEntries(out)
	return out
}

// SortEntries orders entries by day, then milestones before tasks.
func SortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		di, dj := dates.Truncate(es[i].Day()), dates.Truncate(es[j].Day())
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return es[i].Kind() == KindMilestone && es[j].Kind() == KindTask
	})
}

// GroupByDay buckets entries by their "2006-01-02" day key, ignoring time
// of day. Days with no entries are absent.
func GroupByDay(es []Entry) map[string][]Entry {
	out := make(map[string][]Entry)
	for _, e := range es {
		k := dates.Key(e.Day())
		out[k] = append(out[k], e)
	}
	for k := range out {
		SortEntries(out[k])
	}
	return out
}

// GridDay is one cell of a month grid.
type GridDay struct {
	Date    time.Time
	InMonth bool
	Entries []Entry
}

// MonthGrid lays out a month as Sunday-first week rows. Leading and trailing
// cells from neighbouring months are included with InMonth false and carry
// their entries too.
func MonthGrid(year int, month time.Month, es []Entry) [][]GridDay {
	byDay := GroupByDay(es)

	first := dates.Of(year, month, 1)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	last := first.AddDate(0, 1, -1)
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	var weeks [][]GridDay
	var week []GridDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		week = append(week, GridDay{
			Date:    d,
			InMonth: d.Month() == month,
			Entries: byDay[dates.Key(d)],
		})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = nil
		}
	}
	return weeks
}

// UpcomingItem is one row of the agenda.
type UpcomingItem struct {
	Txn       model.Transaction
	Milestone model.MilestoneInstance
}

// Upcoming returns open milestones across deals that are overdue or due
// within the next days days, soonest first. Completed and waived milestones
// are skipped.
func Upcoming(deals []Deal, today time.Time, days int) []UpcomingItem {
	today = dates.Truncate(today)
	horizon := today.AddDate(0, 0, days)

	var out []UpcomingItem
	for _, d := range deals {
		for _, m := range d.Milestones {
			if m.Date == nil || m.Status.IsSticky() {
				continue
			}
			if m.Date.After(horizon) {
				continue
			}
			out = append(out, UpcomingItem{Txn: d.Txn, Milestone: m})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Milestone.SortDate().Before(out[j].Milestone.SortDate())
	})
	return out
}

// Summary counts milestones per status across deals.
type Summary struct {
	Transactions int
	Milestones   int
	Dated        int
	ByStatus     map[model.MilestoneStatus]int
	DueThisWeek  int
	OpenTasks    int
	OverdueTasks int
	NextDeadline *UpcomingItem
}

// Summarize computes portfolio-wide counts.
func Summarize(deals []Deal, today time.Time) Summary {
	today = dates.Truncate(today)
	s := Summary{
		Transactions: len(deals),
		ByStatus:     make(map[model.MilestoneStatus]int, len(model.MilestoneStatuses)),
	}
	for _, d := range deals {
		for _, m := range d.Milestones {
			s.Milestones++
			s.ByStatus[m.Status]++
			if m.Date != nil {
				s.Dated++
			}
		}
		for _, t := range d.Tasks {
			switch t.StatusOn(today) {
			case model.TaskPending:
				s.OpenTasks++
			case model.TaskOverdue:
				s.OpenTasks++
				s.OverdueTasks++
			}
		}
	}

	week := Upcoming(deals, today, 7)
	for i := range week {
		if !week[i].Milestone.Date.Before(today) {
			s.DueThisWeek++
			if s.NextDeadline == nil {
				item := week[i]
				s.NextDeadline = &item
			}
		}
	}
	return s
}
