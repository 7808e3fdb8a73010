package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
)

// ErrBaseDateMissing is returned when a milestone date is derived from an
// offset but its base milestone has no date yet.
var ErrBaseDateMissing = errors.New("base milestone has no date")

// MilestoneUpdate is a raw edit as typed by a user or sent over the API.
type MilestoneUpdate struct {
	Date   string // YYYY-MM-DD, or "" / "TBD" for no date
	Status string
	Notes  string
	Offset *int // days from the base milestone; replaces Date when set

	// KeepOffset is the stored offset, carried into the patch when the edit
	// leaves the date as it was. Ignored when Offset is set.
	KeepOffset *int
}

// NormalizeUpdate validates an edit and turns it into a patch ready to
// persist. baseDate is the stored date of def's base milestone and is only
// read when the update carries an offset.
//
// Root milestones always persist as completed regardless of the requested
// status.
func NormalizeUpdate(def model.Definition, u MilestoneUpdate, baseDate *time.Time) (model.MilestonePatch, error) {
	patch := model.MilestonePatch{
		Key:   def.Key,
		Notes: strings.TrimSpace(u.Notes),
	}

	status, err := model.ParseMilestoneStatus(u.Status)
	if err != nil {
		return model.MilestonePatch{}, fmt.Errorf("%s: %w", def.Key, err)
	}
	if def.Key == model.KeyOriginalContract || def.Key == model.KeyOfferAcceptance {
		status = model.StatusCompleted
	}
	patch.Status = status

	if u.Offset != nil {
		if strings.TrimSpace(u.Date) != "" {
			return model.MilestonePatch{}, fmt.Errorf("%s: date and offset are mutually exclusive", def.Key)
		}
		d, err := DeriveDate(def, *u.Offset, def.BusinessDays, baseDate)
		if err != nil {
			return model.MilestonePatch{}, err
		}
		n := *u.Offset
		patch.Date = &d
		patch.Offset = &n
		return patch, nil
	}

	d, err := dates.ParseOptional(u.Date)
	if err != nil {
		return model.MilestonePatch{}, fmt.Errorf("%s: %w", def.Key, err)
	}
	patch.Date = d
	if u.KeepOffset != nil {
		n := *u.KeepOffset
		patch.Offset = &n
	}
	return patch, nil
}

// DeriveDate computes def's date from its base date and an offset. The
// definition's weekend push is applied after the offset walk.
func DeriveDate(def model.Definition, offset int, businessDays bool, baseDate *time.Time) (time.Time, error) {
	if def.IsRoot() {
		return time.Time{}, fmt.Errorf("%s: root milestone has no base to offset from", def.Key)
	}
	if baseDate == nil {
		return time.Time{}, fmt.Errorf("%s: %w (%s)", def.Key, ErrBaseDateMissing, def.Base)
	}
	d := dates.AddOffsetDays(*baseDate, offset, businessDays)
	if def.PushOffWeekend {
		d = dates.NextWeekday(d)
	}
	return d, nil
}
