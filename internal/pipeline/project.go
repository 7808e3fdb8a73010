// Package pipeline projects stored milestone rows into dated, status-checked
// instances and arranges them for the timeline, board and calendar views.
package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
)

// Project builds the read-time view of every milestone in cat for one
// transaction, sorted by date ascending with dateless milestones last.
//
// Each definition reads only its own stored row, so the projection has no
// ordering dependency between milestones.
func Project(rec model.TransactionRecord, cat model.Catalog, today time.Time) []model.MilestoneInstance {
	today = dates.Truncate(today)
	out := make([]model.MilestoneInstance, 0, len(cat))

	for _, def := range cat {
		stored, _ := rec.Milestone(def.Key)
		inst := model.MilestoneInstance{
			Key:    def.Key,
			Label:  def.Label,
			Status: storedStatus(stored.Status),
			Notes:  stored.Notes,
			Offset: stored.Offset,
		}
		if stored.Date != nil {
			d := dates.Truncate(*stored.Date)
			inst.Date = &d
		}

		inst.Status = EffectiveStatus(def.Key, inst.Date, inst.Status, today)

		if inst.Date != nil {
			n := dates.DaysBetween(today, *inst.Date)
			inst.DaysRemaining = &n
		}
		out = append(out, inst)
	}

	SortByDate(out)
	return out
}

// EffectiveStatus applies the read-time status overrides:
// original_contract_date is always completed, offer_acceptance_date is
// completed once it has a date, and any other milestone dated before today
// is overdue unless it is completed or waived.
func EffectiveStatus(key string, date *time.Time, stored model.MilestoneStatus, today time.Time) model.MilestoneStatus {
	switch key {
	case model.KeyOriginalContract:
		return model.StatusCompleted
	case model.KeyOfferAcceptance:
		if date != nil {
			return model.StatusCompleted
		}
		return stored
	}
	if date != nil && dates.Truncate(*date).Before(dates.Truncate(today)) && !stored.IsSticky() {
		return model.StatusOverdue
	}
	return stored
}

// storedStatus reads a persisted status. Missing or unrecognised values read
// as in_progress so one bad row never hides a milestone.
func storedStatus(s string) model.MilestoneStatus {
	st, err := model.ParseMilestoneStatus(s)
	if err != nil {
		return model.StatusInProgress
	}
	return st
}

// SortByDate orders instances ascending by date. Dateless instances compare
// as the far-future sentinel and keep their relative order.
func SortByDate(ms []model.MilestoneInstance) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].SortDate().Before(ms[j].SortDate())
	})
}
