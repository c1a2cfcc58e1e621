// Package telemetry exposes Prometheus metrics for the scheduling service
// and the HTTP layer in front of it.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinic"

// SchedulingMetrics counts booking and status-update outcomes.
type SchedulingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	statusTotal     *prometheus.CounterVec
	bookingDuration prometheus.Histogram
}

// NewSchedulingMetrics registers the scheduling collectors on reg, or on the
// default registerer when reg is nil.
func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		statusTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "status_updates_total",
			Help:      "Appointment status updates by target status and outcome",
		}, []string{"status", "outcome"}),
		bookingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "booking_duration_seconds",
			Help:      "Time spent validating and storing a booking",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.statusTotal, m.bookingDuration)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingDuration.Observe(seconds)
}

func (m *SchedulingMetrics) ObserveStatusUpdate(status, outcome string) {
	if m == nil {
		return
	}
	m.statusTotal.WithLabelValues(status, outcome).Inc()
}

// HTTPMetrics tracks request counts and latency per route.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// Middleware records every request under its route template (c.Path()) so
// appointment ids do not explode label cardinality.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format. A nil gatherer
// serves the default registry.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
