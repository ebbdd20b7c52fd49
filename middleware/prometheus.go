package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onsae_http_requests_total",
		Help: "HTTP requests processed, by method, route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "onsae_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	gateRedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onsae_gate_redirects_total",
		Help: "Edge-gate redirects, by target.",
	}, []string{"target"})
)

// PrometheusMiddleware records request counts and latencies. Routes are
// labelled by the matched gin template to keep cardinality bounded.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(method, route, status).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		if c.Writer.Status() == 302 {
			if target := c.Writer.Header().Get("Location"); target != "" {
				gateRedirectsTotal.WithLabelValues(redirectTargetLabel(target)).Inc()
			}
		}
	}
}

// redirectTargetLabel strips the query so returnUrl values do not explode
// label cardinality.
func redirectTargetLabel(location string) string {
	for i := 0; i < len(location); i++ {
		if location[i] == '?' {
			return location[:i]
		}
	}
	return location
}
