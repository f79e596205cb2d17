// Package metrics exposes HTTP and authentication counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Results recorded by the auth counters.
const (
	ResultSuccess = "success"
	ResultInvalid = "invalid"
	ResultMissing = "missing"
	ResultError   = "error"
)

// Metrics owns its registry so several instances (tests, multiple servers)
// never collide on registration.
type Metrics struct {
	service  string
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	logins   *prometheus.CounterVec
	refresh  *prometheus.CounterVec
}

// New creates and registers the collectors for a service.
func New(service string) *Metrics {
	m := &Metrics{
		service:  service,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Login attempts by result",
		}, []string{"service", "result"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Access token refreshes by result",
		}, []string{"service", "result"}),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.logins, m.refresh,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Login records a login attempt.
func (m *Metrics) Login(result string) { m.logins.WithLabelValues(m.service, result).Inc() }

// Refresh records a refresh attempt.
func (m *Metrics) Refresh(result string) { m.refresh.WithLabelValues(m.service, result).Inc() }

// Middleware creates an Echo middleware function that records HTTP request
// metrics.  The route template (c.Path) is used as label to keep
// cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			m.requests.WithLabelValues(m.service, c.Request().Method, path, status).Inc()
			m.duration.WithLabelValues(m.service, c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
