package pipeline

import (
	"fmt"
	"time"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/source"
)

// DeriveAll fills milestone dates from offsets, walking the catalog so every
// base is settled before the milestones that chain from it. The stored
// offset wins over the catalog default. Milestones that already have a date
// are kept unless overwrite is set. Milestones whose base has no date are
// skipped.
func DeriveAll(rec model.TransactionRecord, cat model.Catalog, overwrite bool) ([]model.MilestonePatch, error) {
	ordered, err := cat.Ordered()
	if err != nil {
		return nil, err
	}

	known := knownDates(rec)
	var patches []model.MilestonePatch

	for _, def := range ordered {
		if def.IsRoot() {
			continue
		}
		stored, _ := rec.Milestone(def.Key)
		offset := stored.Offset
		if offset == nil {
			offset = def.DefaultOffset
		}
		if offset == nil {
			continue
		}
		if stored.Date != nil && !overwrite {
			continue
		}
		base := known[def.Base]
		if base == nil {
			continue
		}

		d, err := DeriveDate(def, *offset, def.BusinessDays, base)
		if err != nil {
			return nil, err
		}
		known[def.Key] = &d

		n := *offset
		patches = append(patches, model.MilestonePatch{
			Key:    def.Key,
			Date:   &d,
			Status: storedStatus(stored.Status),
			Notes:  stored.Notes,
			Offset: &n,
		})
	}
	return patches, nil
}

// ApplyTerms turns a parsed extraction result into patches for rec. Explicit
// dates are taken as given; offsets are resolved in dependency order against
// the dates already known, including dates set earlier in the same terms.
// Milestones the terms do not mention are left alone.
func ApplyTerms(rec model.TransactionRecord, cat model.Catalog, terms source.Terms) ([]model.MilestonePatch, error) {
	ordered, err := cat.Ordered()
	if err != nil {
		return nil, err
	}

	entries := make(map[string]source.TermEntry, len(terms.Milestones)+2)
	for k, v := range terms.Milestones {
		entries[k] = v
	}
	if terms.OriginalContractDate != nil {
		entries[model.KeyOriginalContract] = source.TermEntry{Date: terms.OriginalContractDate}
	}
	if terms.OfferAcceptanceDate != nil {
		entries[model.KeyOfferAcceptance] = source.TermEntry{Date: terms.OfferAcceptanceDate}
	}

	known := knownDates(rec)
	var patches []model.MilestonePatch

	for _, def := range ordered {
		entry, ok := entries[def.Key]
		if !ok {
			continue
		}
		stored, _ := rec.Milestone(def.Key)

		u := MilestoneUpdate{
			Status: entry.Status,
			Notes:  entry.Notes,
		}
		if u.Status == "" {
			u.Status = string(storedStatus(stored.Status))
		}
		if u.Notes == "" {
			u.Notes = stored.Notes
		}

		var patch model.MilestonePatch
		switch {
		case entry.Days != nil:
			business := def.BusinessDays
			if entry.BusinessDays != nil {
				business = *entry.BusinessDays
			}
			d, err := DeriveDate(def, *entry.Days, business, known[def.Base])
			if err != nil {
				return nil, fmt.Errorf("applying %s: %w", terms.Path, err)
			}
			patch, err = NormalizeUpdate(def, u, nil)
			if err != nil {
				return nil, fmt.Errorf("applying %s: %w", terms.Path, err)
			}
			n := *entry.Days
			patch.Date = &d
			patch.Offset = &n
		default:
			if entry.Date != nil {
				u.Date = dates.Format(*entry.Date)
			}
			patch, err = NormalizeUpdate(def, u, nil)
			if err != nil {
				return nil, fmt.Errorf("applying %s: %w", terms.Path, err)
			}
		}

		known[def.Key] = patch.Date
		patches = append(patches, patch)
	}
	return patches, nil
}

func knownDates(rec model.TransactionRecord) map[string]*time.Time {
	known := make(map[string]*time.Time, len(rec.Milestones))
	for k, m := range rec.Milestones {
		known[k] = m.Date
	}
	return known
}
