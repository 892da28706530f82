// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marup",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marup",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	roundsResolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marup",
			Subsystem: "rounds",
			Name:      "resolved_total",
			Help:      "Total number of rounds resolved.",
		},
	)

	payoutAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marup",
			Subsystem: "rounds",
			Name:      "payout_amount_total",
			Help:      "Sum of all payout amounts.",
		},
	)

	contributionsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marup",
			Subsystem: "rounds",
			Name:      "contributions_total",
			Help:      "Total number of contributions recorded.",
		},
	)

	groupsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marup",
			Subsystem: "groups",
			Name:      "closed_total",
			Help:      "Total number of groups that completed their cycle.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		roundsResolved,
		payoutAmount,
		contributionsRecorded,
		groupsClosed,
	)
}

// RoundResolved records one resolved round and its payout amount.
func RoundResolved(amount float64) {
	roundsResolved.Inc()
	payoutAmount.Add(amount)
}

// ContributionRecorded records one accepted contribution.
func ContributionRecorded() {
	contributionsRecorded.Inc()
}

// GroupClosed records one completed group cycle.
func GroupClosed() {
	groupsClosed.Inc()
}

// Handler serves the collected metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware instruments every request with a counter and a latency
// histogram, labeled by route template rather than raw path to keep
// cardinality bounded.
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
