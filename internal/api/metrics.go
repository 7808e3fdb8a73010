package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics are registered per server so tests can build several.
type metrics struct {
	reg *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	projections     prometheus.Counter
	updates         *prometheus.CounterVec
	polls           *prometheus.CounterVec
	overdue         prometheus.Gauge
	transactions    prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		reg: reg,
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dealdates_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"method", "path", "status"},
		),
		projections: f.NewCounter(prometheus.CounterOpts{
			Name: "dealdates_projections_total",
			Help: "Transactions projected into milestone instances",
		}),
		updates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealdates_milestone_updates_total",
				Help: "Milestone updates persisted, by resulting status",
			},
			[]string{"status"},
		),
		polls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealdates_polls_total",
				Help: "Background re-projection passes",
			},
			[]string{"result"}, // ok, error
		),
		overdue: f.NewGauge(prometheus.GaugeOpts{
			Name: "dealdates_overdue_milestones",
			Help: "Milestones currently overdue across all transactions",
		}),
		transactions: f.NewGauge(prometheus.GaugeOpts{
			Name: "dealdates_transactions",
			Help: "Transactions in the store",
		}),
	}
}

func (m *metrics) observeRequest(method, path, status string, d time.Duration) {
	m.requestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

func (m *metrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
}
