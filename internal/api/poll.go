package api

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
)

// Event types.
const (
	EventSnapshot         = "snapshot"
	EventMilestoneOverdue = "milestone_overdue"
	EventMilestoneUpdated = "milestone_updated"
)

// Snapshot is a compact portfolio state for status/event payloads.
type Snapshot struct {
	At           time.Time      `json:"at"`
	Today        string         `json:"today"`
	Transactions int            `json:"transactions"`
	Milestones   int            `json:"milestones"`
	Overdue      int            `json:"overdue"`
	DueThisWeek  int            `json:"due_this_week"`
	OpenTasks    int            `json:"open_tasks"`
	OverdueTasks int            `json:"overdue_tasks"`
	ByStatus     map[string]int `json:"by_status"`
}

// MilestoneRef identifies one milestone in an event payload.
type MilestoneRef struct {
	TransactionID string `json:"transaction_id"`
	Address       string `json:"address"`
	Key           string `json:"key"`
	Label         string `json:"label"`
	Date          string `json:"date"`
	Status        string `json:"status,omitempty"`
}

// Event is emitted when the snapshot is seeded, when a milestone newly
// turns overdue, or when a milestone is edited through the API.
type Event struct {
	ID        int64         `json:"id"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Snapshot  *Snapshot     `json:"snapshot,omitempty"`
	Milestone *MilestoneRef `json:"milestone,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	UpcomingDays    int       `json:"upcoming_days"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

func (s *Server) pollOnce(ctx context.Context) {
	now := time.Now()
	today := s.today()

	deals, err := pipeline.LoadDeals(ctx, s.store, s.cat, today)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.m.polls.WithLabelValues("error").Inc()
		s.log.Error("poll failed", zap.Error(err))
		return
	}
	s.m.polls.WithLabelValues("ok").Inc()
	s.m.projections.Add(float64(len(deals)))

	snap := snapshotFromDeals(deals, today, now)
	curr := overdueSet(deals)
	s.m.overdue.Set(float64(len(curr)))
	s.m.transactions.Set(float64(len(deals)))

	var pending []Event

	s.mu.Lock()
	prev := s.overdue
	seeded := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.overdue = curr
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !seeded {
		pending = append(pending, Event{
			Type:      EventSnapshot,
			Timestamp: now,
			Snapshot:  &snap,
		})
	} else {
		for _, m := range newlyOverdue(prev, curr) {
			pending = append(pending, Event{
				Type:      EventMilestoneOverdue,
				Timestamp: now,
				Milestone: &m,
			})
		}
	}
	s.mu.Unlock()

	for _, ev := range pending {
		if ev.Type == EventMilestoneOverdue {
			s.log.Info("milestone overdue",
				zap.String("transaction", ev.Milestone.TransactionID),
				zap.String("key", ev.Milestone.Key),
				zap.String("date", ev.Milestone.Date))
		}
		s.publishEvent(ev)
	}
}

func snapshotFromDeals(deals []pipeline.Deal, today, at time.Time) Snapshot {
	sum := pipeline.Summarize(deals, today)
	by := make(map[string]int, len(sum.ByStatus))
	for st, n := range sum.ByStatus {
		by[string(st)] = n
	}
	return Snapshot{
		At:           at,
		Today:        dates.Format(today),
		Transactions: sum.Transactions,
		Milestones:   sum.Milestones,
		Overdue:      sum.ByStatus[model.StatusOverdue],
		DueThisWeek:  sum.DueThisWeek,
		OpenTasks:    sum.OpenTasks,
		OverdueTasks: sum.OverdueTasks,
		ByStatus:     by,
	}
}

func overdueKey(txnID, key string) string {
	return txnID + "/" + key
}

func overdueSet(deals []pipeline.Deal) map[string]MilestoneRef {
	out := make(map[string]MilestoneRef)
	for _, d := range deals {
		for _, m := range d.Milestones {
			if m.Status != model.StatusOverdue {
				continue
			}
			out[overdueKey(d.Txn.ID, m.Key)] = MilestoneRef{
				TransactionID: d.Txn.ID,
				Address:       d.Txn.ShortAddress(),
				Key:           m.Key,
				Label:         m.Label,
				Date:          m.DateLabel(),
			}
		}
	}
	return out
}

// newlyOverdue returns entries in curr that were absent from prev, ordered
// by date then transaction so event IDs are deterministic.
func newlyOverdue(prev, curr map[string]MilestoneRef) []MilestoneRef {
	var out []MilestoneRef
	for k, m := range curr {
		if _, ok := prev[k]; !ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return overdueKey(out[i].TransactionID, out[i].Key) < overdueKey(out[j].TransactionID, out[j].Key)
	})
	return out
}

// publishEvent numbers ev and fans it out. IDs are assigned under the same
// lock as the append, so the buffer is always in ID order.
func (s *Server) publishEvent(ev Event) {
	s.mu.Lock()
	s.nextEventID++
	ev.ID = s.nextEventID
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

// recordUpdate publishes an edit made through the API.
func (s *Server) recordUpdate(txn model.Transaction, def model.Definition, p model.MilestonePatch) {
	date := "TBD"
	if p.Date != nil {
		date = dates.Format(*p.Date)
	}
	s.publishEvent(Event{
		Type:      EventMilestoneUpdated,
		Timestamp: time.Now(),
		Milestone: &MilestoneRef{
			TransactionID: txn.ID,
			Address:       txn.ShortAddress(),
			Key:           def.Key,
			Label:         def.Label,
			Date:          date,
			Status:        string(p.Status),
		},
	})
}

func (s *Server) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		UpcomingDays:    s.cfg.UpcomingDays,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Server) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Server) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
