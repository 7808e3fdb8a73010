package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/ics"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/store"
)

const contentTypeCalendar = "text/calendar; charset=utf-8"

// handleError maps domain errors onto HTTP status codes.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		msg = fmt.Sprint(he.Message)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, model.ErrUnknownMilestone):
		code = http.StatusNotFound
	case errors.Is(err, dates.ErrInvalidDate), errors.Is(err, dates.ErrInvalidOffset),
		errors.Is(err, model.ErrInvalidStatus), errors.Is(err, pipeline.ErrBaseDateMissing):
		code = http.StatusBadRequest
	}

	if code >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		msg = http.StatusText(code)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok\n")
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.snapshotStatus())
}

func (s *Server) handleEvents(c echo.Context) error {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	return c.JSON(http.StatusOK, events)
}

func (s *Server) handleStream(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	snap := s.snapshotStatus().Summary
	writeSSE(w, Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  &snap,
	})
	w.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			writeSSE(w, ev)
			w.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

// transactionRow is one line of the transaction list.
type transactionRow struct {
	model.Transaction
	Overdue int                      `json:"overdue"`
	Next    *model.MilestoneInstance `json:"next_deadline"`
}

func (s *Server) handleListTransactions(c echo.Context) error {
	today := s.today()
	deals, err := pipeline.LoadDeals(c.Request().Context(), s.store, s.cat, today)
	if err != nil {
		return err
	}
	s.m.projections.Add(float64(len(deals)))

	rows := make([]transactionRow, 0, len(deals))
	for _, d := range deals {
		row := transactionRow{Transaction: d.Txn}
		for i, m := range d.Milestones {
			if m.Status == model.StatusOverdue {
				row.Overdue++
			}
			if row.Next == nil && m.Date != nil && !m.Status.IsSticky() && !m.Date.Before(today) {
				row.Next = &d.Milestones[i]
			}
		}
		rows = append(rows, row)
	}
	return c.JSON(http.StatusOK, rows)
}

// transactionDetail is the full view of one transaction.
type transactionDetail struct {
	Transaction model.Transaction         `json:"transaction"`
	Milestones  []model.MilestoneInstance `json:"milestones"`
	Tasks       []model.Task              `json:"tasks"`
}

func (s *Server) loadDeal(c echo.Context) (pipeline.Deal, error) {
	ctx := c.Request().Context()
	rec, err := s.store.LoadRecord(ctx, c.Param("id"))
	if err != nil {
		return pipeline.Deal{}, err
	}
	tasks, err := s.store.ListTasks(ctx, rec.ID)
	if err != nil {
		return pipeline.Deal{}, err
	}
	s.m.projections.Inc()
	return pipeline.NewDeal(rec, tasks, s.cat, s.today()), nil
}

func (s *Server) handleGetTransaction(c echo.Context) error {
	d, err := s.loadDeal(c)
	if err != nil {
		return err
	}
	tasks := d.Tasks
	if tasks == nil {
		tasks = []model.Task{}
	}
	return c.JSON(http.StatusOK, transactionDetail{
		Transaction: d.Txn,
		Milestones:  d.Milestones,
		Tasks:       tasks,
	})
}

type statusGroupJSON struct {
	Status     model.MilestoneStatus     `json:"status"`
	Label      string                    `json:"label"`
	Milestones []model.MilestoneInstance `json:"milestones"`
}

type milestonesResponse struct {
	TransactionID string                    `json:"transaction_id"`
	Address       string                    `json:"address"`
	Today         string                    `json:"today"`
	Milestones    []model.MilestoneInstance `json:"milestones"`
	Groups        []statusGroupJSON         `json:"groups"`
}

func (s *Server) handleMilestones(c echo.Context) error {
	d, err := s.loadDeal(c)
	if err != nil {
		return err
	}

	resp := milestonesResponse{
		TransactionID: d.Txn.ID,
		Address:       d.Txn.FullAddress(),
		Today:         dates.Format(s.today()),
		Milestones:    d.Milestones,
	}
	for _, g := range pipeline.GroupByStatus(d.Milestones) {
		ms := g.Milestones
		if ms == nil {
			ms = []model.MilestoneInstance{}
		}
		resp.Groups = append(resp.Groups, statusGroupJSON{
			Status:     g.Status,
			Label:      g.Status.Label(),
			Milestones: ms,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// updateRequest is the PATCH body. A null or absent date clears the date.
type updateRequest struct {
	Date   *string  `json:"date"`
	Status string   `json:"status"`
	Notes  string   `json:"notes"`
	Offset *float64 `json:"offset"`
}

func (s *Server) handleUpdateMilestone(c echo.Context) error {
	ctx := c.Request().Context()

	var req updateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}

	def, err := s.cat.Must(c.Param("key"))
	if err != nil {
		return err
	}
	rec, err := s.store.LoadRecord(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	u := pipeline.MilestoneUpdate{Status: req.Status, Notes: req.Notes}
	if req.Date != nil {
		u.Date = *req.Date
	}
	if req.Offset != nil {
		n, err := dates.OffsetFromFloat(*req.Offset)
		if err != nil {
			return err
		}
		u.Offset = &n
	}

	var base *time.Time
	if !def.IsRoot() {
		base = rec.DateOf(def.Base)
	}
	patch, err := pipeline.NormalizeUpdate(def, u, base)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	if err := store.SaveMilestone(ctx, s.store, rec.ID, patch); err != nil {
		return err
	}

	s.m.updates.WithLabelValues(string(patch.Status)).Inc()
	s.log.Info("milestone updated",
		zap.String("transaction", rec.ID),
		zap.String("key", def.Key),
		zap.String("status", string(patch.Status)))
	s.recordUpdate(rec.Transaction, def, patch)

	return c.JSON(http.StatusOK, patch.Fields())
}

// calendarEntry is one item on a calendar day.
type calendarEntry struct {
	Kind          pipeline.EntryKind `json:"kind"`
	Title         string             `json:"title"`
	Status        string             `json:"status"`
	TransactionID string             `json:"transaction_id"`
}

type calendarDay struct {
	Date    string          `json:"date"`
	Entries []calendarEntry `json:"entries"`
}

type calendarResponse struct {
	Month string        `json:"month"`
	Days  []calendarDay `json:"days"`
}

func (s *Server) handleCalendar(c echo.Context) error {
	today := s.today()
	first := dates.Of(today.Year(), today.Month(), 1)
	if m := c.QueryParam("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("month %q: want YYYY-MM", m))
		}
		first = dates.Of(t.Year(), t.Month(), 1)
	}

	deals, err := pipeline.LoadDeals(c.Request().Context(), s.store, s.cat, today)
	if err != nil {
		return err
	}
	s.m.projections.Add(float64(len(deals)))

	byDay := pipeline.GroupByDay(pipeline.CalendarEntries(deals, today))
	resp := calendarResponse{Month: first.Format("2006-01"), Days: []calendarDay{}}
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		es := byDay[dates.Key(d)]
		if len(es) == 0 {
			continue
		}
		day := calendarDay{Date: dates.Format(d)}
		for _, e := range es {
			day.Entries = append(day.Entries, calendarEntry{
				Kind:          e.Kind(),
				Title:         e.Title(),
				Status:        e.StatusLabel(),
				TransactionID: e.TransactionID(),
			})
		}
		resp.Days = append(resp.Days, day)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) calendarOptions(name string) ics.Options {
	opts := s.cfg.Calendar
	if opts.Name == "" {
		opts.Name = name
	}
	return opts
}

func (s *Server) handleCalendarICS(c echo.Context) error {
	deals, err := pipeline.LoadDeals(c.Request().Context(), s.store, s.cat, s.today())
	if err != nil {
		return err
	}
	s.m.projections.Add(float64(len(deals)))
	body := ics.Build(deals, s.calendarOptions("Important Dates"))
	return c.Blob(http.StatusOK, contentTypeCalendar, []byte(body))
}

func (s *Server) handleTransactionICS(c echo.Context) error {
	d, err := s.loadDeal(c)
	if err != nil {
		return err
	}
	body := ics.Build([]pipeline.Deal{d}, s.calendarOptions(d.Txn.ShortAddress()))
	return c.Blob(http.StatusOK, contentTypeCalendar, []byte(body))
}
