package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spinly",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spinly",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// SpinsTotal counts resolved spins by classification and whether the
	// settle timeout forced them.
	SpinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spinly",
			Name:      "spins_total",
			Help:      "Total number of resolved spins",
		},
		[]string{"classification", "forced"},
	)

	// SpinLogFailures counts log entries that could not be appended.
	SpinLogFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spinly",
			Name:      "spin_log_failures_total",
			Help:      "Total number of spin log appends that failed",
		},
	)

	// ActiveSessions tracks live spin sessions by status.
	ActiveSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "spinly",
			Name:      "sessions_active",
			Help:      "Number of live spin sessions",
		},
		[]string{"status"},
	)

	// SpinsRateLimited counts spin requests rejected by the rate limiter.
	SpinsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spinly",
			Name:      "spins_rate_limited_total",
			Help:      "Total number of spin requests rejected by the rate limiter",
		},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "spinly",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)
)

// PrometheusMiddleware creates a Gin middleware for automatic metrics collection
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		RequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
