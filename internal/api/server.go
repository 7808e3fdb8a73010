// Package api serves projected milestones, calendars and a live overdue
// event stream over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/ics"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/store"
)

// Config controls the server runtime behavior.
type Config struct {
	Addr         string
	Interval     time.Duration
	EventsBuffer int
	UpcomingDays int
	Location     *time.Location
	Calendar     ics.Options

	// Today overrides the clock; nil means dates.Today(Location).
	Today func() time.Time
}

// Server owns the echo router, the poll loop state and event fan-out.
type Server struct {
	cfg   Config
	store store.Store
	cat   model.Catalog
	log   *zap.Logger
	m     *metrics
	echo  *echo.Echo

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	overdue     map[string]MilestoneRef
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a server reading from st with the milestone catalog cat.
func New(cfg Config, st store.Store, cat model.Catalog, log *zap.Logger) *Server {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.UpcomingDays <= 0 {
		cfg.UpcomingDays = 14
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Today == nil {
		loc := cfg.Location
		cfg.Today = func() time.Time { return dates.Today(loc) }
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg:       cfg,
		store:     st,
		cat:       cat,
		log:       log,
		m:         newMetrics(),
		startedAt: time.Now(),
		overdue:   make(map[string]MilestoneRef),
		subs:      make(map[int]chan Event),
	}
	s.echo = s.router()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.m.observeRequest(v.Method, c.Path(), strconv.Itoa(v.Status), v.Latency)
			s.log.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", s.m.handler())

	v1 := e.Group("/v1")
	{
		v1.GET("/status", s.handleStatus)
		v1.GET("/events", s.handleEvents)
		v1.GET("/stream", s.handleStream)

		v1.GET("/transactions", s.handleListTransactions)
		v1.GET("/transactions/:id", s.handleGetTransaction)
		v1.GET("/transactions/:id/milestones", s.handleMilestones)
		v1.PATCH("/transactions/:id/milestones/:key", s.handleUpdateMilestone)
		v1.GET("/transactions/:id/calendar.ics", s.handleTransactionICS)

		v1.GET("/calendar", s.handleCalendar)
		v1.GET("/calendar.ics", s.handleCalendarICS)
	}
	return e
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}
	}
}

func (s *Server) today() time.Time {
	return dates.Truncate(s.cfg.Today())
}
