// Prometheus instrumentation for the swap API's HTTP traffic.
//
// Labels are limited to method, route template, and status so cardinality
// stays bounded no matter what clients put in the URL: a status poll for any
// swap UUID lands on the one /api/v1/swaps/:id series.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	reqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// Latency is not labelled by status: quote and confirm calls dominate the
	// traffic and a per-status histogram would multiply series for no gain.
	reqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	reqInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// Responses are small JSON bodies; the largest is a full history page.
	respSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B .. 4MiB
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(reqTotal, reqDuration, reqInflight, respSize)
}

// Metrics returns a Gin middleware recording request counts, latencies,
// in-flight concurrency, and response sizes. The path label is the registered
// route template; requests that matched no route (404s) fall back to the raw
// URL path.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqInflight.Inc()
		defer reqInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		reqTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		reqDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size reads -1 when nothing was written (hijacked or empty replies).
		if size := c.Writer.Size(); size >= 0 {
			respSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
