package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "instantquiz_attempts_started_total",
			Help: "Number of quiz attempts started",
		},
	)

	AttemptsFinished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "instantquiz_attempts_finished_total",
			Help: "Number of quiz attempts that transitioned to finished",
		},
	)

	SummaryComputations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "instantquiz_summary_computations_total",
			Help: "Number of summary recomputations after a cache miss",
		},
	)

	SummaryInvalidations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "instantquiz_summary_invalidations_total",
			Help: "Number of summary cache resets",
		},
	)

	MalformedPayloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instantquiz_malformed_payloads_total",
			Help: "Stored JSON payloads that failed to decode and were replaced by an empty value",
		},
		[]string{"entity", "field"},
	)

	registerOnce sync.Once
)

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			AttemptsFinished,
			SummaryComputations,
			SummaryInvalidations,
			MalformedPayloads,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
