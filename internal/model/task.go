package model

import (
	"encoding/json"
	"time"

	"github.com/theirongolddev/dealdates/internal/dates"
)

// TaskStatus is the three-state vocabulary for task reminders. It is a
// distinct type from MilestoneStatus so the two cannot be mixed.
type TaskStatus string

// Task statuses.
const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskOverdue   TaskStatus = "overdue"
)

// Label returns a human-readable label for the status.
func (s TaskStatus) Label() string {
	switch s {
	case TaskPending:
		return "Pending"
	case TaskCompleted:
		return "Done"
	case TaskOverdue:
		return "Overdue"
	default:
		return string(s)
	}
}

// Task is a simple dated reminder attached to a transaction. Tasks have no
// derived-date chaining.
type Task struct {
	ID            string     `json:"id"`
	TransactionID string     `json:"transaction_id"`
	Label         string     `json:"label"`
	Date          *time.Time `json:"-"`
	Completed     bool       `json:"completed"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
}

// StatusOn returns the task status as of today.
func (t Task) StatusOn(today time.Time) TaskStatus {
	switch {
	case t.Completed:
		return TaskCompleted
	case t.Date != nil && dates.Truncate(*t.Date).Before(dates.Truncate(today)):
		return TaskOverdue
	default:
		return TaskPending
	}
}

// MarshalJSON emits the date as YYYY-MM-DD, or null when unset.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	return json.Marshal(struct {
		plain
		Date *string `json:"date"`
	}{plain(t), dateString(t.Date)})
}
