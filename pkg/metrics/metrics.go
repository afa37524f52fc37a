// Package metrics exposes Prometheus metrics for HTTP traffic, published
// events, scheduled jobs and business figures.
package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec
	RateLimited         prometheus.Counter

	// Business metrics
	EventsPublished *prometheus.CounterVec
	SalesToday      prometheus.Gauge
	RevenueToday    prometheus.Gauge
	RevenueMonth    prometheus.Gauge
	PendingSales    prometheus.Gauge
	LowStock        prometheus.Gauge

	// Job metrics
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	// Database metrics
	DBOpenConnections  prometheus.Gauge
	DBInUseConnections prometheus.Gauge
}

// New creates a Metrics instance on its own registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),

		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_published_total",
				Help: "Domain events published, by subject and outcome",
			},
			[]string{"subject", "status"},
		),
		SalesToday: f.NewGauge(prometheus.GaugeOpts{
			Name: "sales_today_count",
			Help: "Sales dated today",
		}),
		RevenueToday: f.NewGauge(prometheus.GaugeOpts{
			Name: "sales_today_revenue",
			Help: "Total amount of the sales dated today",
		}),
		RevenueMonth: f.NewGauge(prometheus.GaugeOpts{
			Name: "sales_month_revenue",
			Help: "Total amount of this month's sales",
		}),
		PendingSales: f.NewGauge(prometheus.GaugeOpts{
			Name: "sales_pending_count",
			Help: "Sales waiting for completion",
		}),
		LowStock: f.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_low_stock_products",
			Help: "Products at or below their minimum stock",
		}),

		JobRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "job_runs_total",
				Help: "Scheduled job runs by outcome",
			},
			[]string{"job", "status"}, // success, failed, skipped
		),
		JobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "job_duration_seconds",
				Help:    "Scheduled job duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"job"},
		),

		DBOpenConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Open database connections",
		}),
		DBInUseConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Database connections currently in use",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path() // route pattern, e.g. /api/v1/projects/:id
			status := strconv.Itoa(c.Response().Status)
			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, status).Observe(time.Since(start).Seconds())
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))
			return nil
		}
	}
}

// RecordJob records the outcome and duration of a job run.
func (m *Metrics) RecordJob(job, status string, d time.Duration) {
	m.JobRuns.WithLabelValues(job, status).Inc()
	if status != "skipped" {
		m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
	}
}

// RecordDBStats copies the connection pool figures into gauges.
func (m *Metrics) RecordDBStats(s sql.DBStats) {
	m.DBOpenConnections.Set(float64(s.OpenConnections))
	m.DBInUseConnections.Set(float64(s.InUse))
}

// Publisher counts the events sent through an inner publisher.
type Publisher struct {
	events.Publisher
	m *Metrics
}

// CountEvents wraps p so every publish is counted by subject.
func (m *Metrics) CountEvents(p events.Publisher) *Publisher {
	return &Publisher{Publisher: p, m: m}
}

// Publish implements events.Publisher.
func (p *Publisher) Publish(ctx context.Context, subject string, data any) error {
	err := p.Publisher.Publish(ctx, subject, data)
	status := "success"
	if err != nil {
		status = "failed"
	}
	p.m.EventsPublished.WithLabelValues(subject, status).Inc()
	return err
}
