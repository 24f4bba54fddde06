// Package metrics exposes Prometheus collectors for the pipeline and HTTP layer.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	dispatchTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_dispatch_ticks_total",
			Help: "Dispatcher ticks by result",
		},
		[]string{"result"},
	)

	dispatchTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lead_dispatch_tick_duration_seconds",
			Help:    "Wall time of a dispatcher tick",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	leadTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_transitions_total",
			Help: "Lead state transitions performed by the pipeline",
		},
		[]string{"from", "to"},
	)

	verificationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_email_verification_total",
			Help: "Email verification outcomes",
		},
		[]string{"outcome"},
	)

	healChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_heal_checks_total",
			Help: "Proxy heal-check probes by outcome",
		},
		[]string{"outcome"},
	)

	leadsRequeued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lead_stale_claims_requeued_total",
			Help: "Leads returned from enriching to scraped after their claim lease expired",
		},
	)
)

// GinMiddleware records request counts and latencies per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordTick records a finished dispatcher tick.
func RecordTick(ok bool, duration time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	dispatchTicks.WithLabelValues(result).Inc()
	dispatchTickDuration.Observe(duration.Seconds())
}

// RecordTransition records a lead status change.
func RecordTransition(from, to string) {
	leadTransitions.WithLabelValues(from, to).Inc()
}

// RecordVerification records an email verification outcome.
func RecordVerification(outcome string) {
	verificationOutcomes.WithLabelValues(outcome).Inc()
}

// RecordHealCheck records a proxy probe outcome.
func RecordHealCheck(outcome string) {
	healChecks.WithLabelValues(outcome).Inc()
}

// RecordRequeued records leads released by the stale-claim sweep.
func RecordRequeued(n int64) {
	if n > 0 {
		leadsRequeued.Add(float64(n))
	}
}
