// Package metrics registers the Prometheus instruments for the planning
// engine. All record methods are nil-safe so callers never guard on wiring.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	saveTotal       *prometheus.CounterVec
	decodeFailures  prometheus.Counter
	refreshRows     prometheus.Histogram
}

// New registers the engine instruments on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rebateplan",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		saveTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rebateplan",
			Name:      "save_total",
			Help:      "Plan save attempts by result.",
		}, []string{"result"}),
		decodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rebateplan",
			Name:      "artifact_decode_failures_total",
			Help:      "Stored artifact values that failed to decode.",
		}),
		refreshRows: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rebateplan",
			Name:      "refresh_rows",
			Help:      "Host rows received per plan refresh.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// IncSave increments save attempt counts by result.
func (m *Metrics) IncSave(result string) {
	if m == nil {
		return
	}
	m.saveTotal.WithLabelValues(result).Inc()
}

// IncDecodeFailure increments decode failure counts.
func (m *Metrics) IncDecodeFailure() {
	if m == nil {
		return
	}
	m.decodeFailures.Inc()
}

// ObserveRefreshRows records the host row count of one refresh.
func (m *Metrics) ObserveRefreshRows(n int) {
	if m == nil {
		return
	}
	m.refreshRows.Observe(float64(n))
}

// GinMiddleware records per-route request latency.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
