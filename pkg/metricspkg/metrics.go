// Package metricspkg holds the Prometheus collectors exported on /metrics.
package metricspkg

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wallet"

// Transfer outcomes used as the "outcome" label.
const (
	OutcomeCompleted          = "completed"
	OutcomeInvalidArgument    = "invalid_argument"
	OutcomeInsufficientFunds  = "insufficient_funds"
	OutcomeNotFound           = "not_found"
	OutcomeTransferFailed     = "transfer_failed"
	OutcomeCompensationFailed = "compensation_failed"
	OutcomeError              = "error"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	transfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Total number of transfer operations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	transferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Duration of transfer operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"kind"},
	)

	compensationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensation_failures_total",
			Help:      "Total number of transfers whose debit could not be restored.",
		},
	)

	notificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Total number of notifications the sink failed to accept.",
		},
	)

	unresolvedCompensationFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unresolved_compensation_failures",
			Help:      "Number of compensation failures awaiting manual reconciliation.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		transfers,
		transferDuration,
		compensationFailures,
		notificationFailures,
		unresolvedCompensationFailures,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count and latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveTransfer records the outcome and duration of a transfer operation.
func ObserveTransfer(kind, outcome string, duration time.Duration) {
	transfers.WithLabelValues(kind, outcome).Inc()
	transferDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// IncCompensationFailures counts a debit that could not be restored.
func IncCompensationFailures() {
	compensationFailures.Inc()
}

// IncNotificationFailures counts a notification the sink rejected.
func IncNotificationFailures() {
	notificationFailures.Inc()
}

// SetUnresolvedCompensationFailures publishes the reconciliation backlog size.
func SetUnresolvedCompensationFailures(n int64) {
	unresolvedCompensationFailures.Set(float64(n))
}
