// Package model defines domain types for transactions, milestones and tasks.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/dealdates/internal/dates"
)

var (
	// ErrInvalidStatus is returned when a status string is not part of the
	// vocabulary of its entity kind.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrUnknownMilestone is returned for keys missing from the catalog.
	ErrUnknownMilestone = errors.New("unknown milestone")
)

// Root milestone keys. Every other milestone chains from one of these.
const (
	KeyOriginalContract = "original_contract_date"
	KeyOfferAcceptance  = "offer_acceptance_date"
)

// MilestoneStatus is the six-state vocabulary for contractual milestones.
type MilestoneStatus string

// Milestone statuses.
const (
	StatusInProgress  MilestoneStatus = "in_progress"
	StatusCompleted   MilestoneStatus = "completed"
	StatusOverdue     MilestoneStatus = "overdue"
	StatusWaived      MilestoneStatus = "waived"
	StatusNegotiating MilestoneStatus = "negotiating"
	StatusExtended    MilestoneStatus = "extended"
)

// MilestoneStatuses lists every milestone status in presentation order.
var MilestoneStatuses = []MilestoneStatus{
	StatusOverdue,
	StatusInProgress,
	StatusNegotiating,
	StatusExtended,
	StatusCompleted,
	StatusWaived,
}

// ParseMilestoneStatus parses a stored or user-supplied status. An empty
// string means in_progress.
func ParseMilestoneStatus(s string) (MilestoneStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusInProgress, nil
	}
	st := MilestoneStatus(strings.ReplaceAll(s, "-", "_"))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q (want one of %s)", ErrInvalidStatus, s, milestoneStatusList())
	}
	return st, nil
}

// IsValid reports whether s is a known milestone status.
func (s MilestoneStatus) IsValid() bool {
	for _, v := range MilestoneStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsSticky reports whether the status survives a past due date.
func (s MilestoneStatus) IsSticky() bool {
	return s == StatusCompleted || s == StatusWaived
}

// Label returns a human-readable label for the status.
func (s MilestoneStatus) Label() string {
	switch s {
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusOverdue:
		return "Overdue"
	case StatusWaived:
		return "Waived"
	case StatusNegotiating:
		return "Negotiating"
	case StatusExtended:
		return "Extended"
	default:
		return string(s)
	}
}

func milestoneStatusList() string {
	names := make([]string, len(MilestoneStatuses))
	for i, s := range MilestoneStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Definition describes one milestone of the catalog. Definitions are static
// and never persisted.
type Definition struct {
	Key          string
	Label        string
	Base         string // key this milestone is computed from; empty for roots
	BusinessDays bool   // offsets skip Saturdays and Sundays

	// DefaultOffset is the contract default in days from Base, nil when the
	// date must always be entered.
	DefaultOffset *int

	// PushOffWeekend moves a derived date landing on a weekend to the
	// following Monday. It is an explicit per-milestone policy.
	PushOffWeekend bool
}

// IsRoot reports whether the definition has no base milestone.
func (d Definition) IsRoot() bool {
	return d.Base == ""
}

// StoredMilestone is one row of the milestone child table.
type StoredMilestone struct {
	ID        string
	Key       string
	Date      *time.Time
	Status    string
	Notes     string
	Offset    *int
	UpdatedAt time.Time
}

// MilestoneInstance is the read-time projection of a milestone.
type MilestoneInstance struct {
	Key           string          `json:"key"`
	Label         string          `json:"label"`
	Date          *time.Time      `json:"-"`
	Status        MilestoneStatus `json:"status"`
	Notes         string          `json:"notes"`
	DaysRemaining *int            `json:"days_remaining"`
	Offset        *int            `json:"offset_days,omitempty"` // stored offset from the base
}

// MarshalJSON emits the date as YYYY-MM-DD, or null when unset.
func (m MilestoneInstance) MarshalJSON() ([]byte, error) {
	type plain MilestoneInstance
	return json.Marshal(struct {
		plain
		Date *string `json:"date"`
	}{plain(m), dateString(m.Date)})
}

func dateString(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := dates.Format(*d)
	return &s
}

// DateLabel renders the date, or "TBD" when there is none.
func (m MilestoneInstance) DateLabel() string {
	if m.Date == nil {
		return "TBD"
	}
	return dates.Format(*m.Date)
}

// SortDate returns the date used for ordering. Dateless milestones use the
// far-future sentinel.
func (m MilestoneInstance) SortDate() time.Time {
	if m.Date == nil {
		return dates.Sentinel
	}
	return *m.Date
}

// MilestonePatch is a normalized update for one milestone.
type MilestonePatch struct {
	Key    string
	Date   *time.Time
	Status MilestoneStatus
	Notes  string
	Offset *int
}

// Fields returns the patch as the flat transaction field set:
// {K: date|nil, K_status: status, K_notes: notes}.
func (p MilestonePatch) Fields() map[string]any {
	var date any
	if p.Date != nil {
		date = dates.Format(*p.Date)
	}
	return map[string]any{
		p.Key:             date,
		p.Key + "_status": string(p.Status),
		p.Key + "_notes":  p.Notes,
	}
}
