// Package metrics exposes Prometheus instrumentation for the booking
// service.  Collectors register with the default registry on import and
// are served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingOperations counts reserve and cancel attempts by outcome.
	// outcome is "ok" or the error kind.
	BookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Reserve and cancel attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)

	BookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_operation_duration_seconds",
			Help:    "Duration of reserve and cancel transactions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SeatsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_seats_reserved_total",
		Help: "Seats moved from available to unavailable",
	})

	SeatsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_seats_released_total",
		Help: "Seats returned to available by cancellation",
	})

	SeatMapCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_map_cache_requests_total",
			Help: "Seat map layout cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_event_publish_failures_total",
		Help: "Booking events that could not be published after commit",
	})

	EventsProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_provider_requests_total",
			Help: "Calls to the sports events provider by result",
		},
		[]string{"league", "result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordBooking records the outcome and latency of one coordinator call.
func RecordBooking(operation, outcome string, d time.Duration) {
	BookingOperations.WithLabelValues(operation, outcome).Inc()
	BookingDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Middleware observes every request under its route pattern, so path
// parameters do not explode label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			HTTPRequestDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
