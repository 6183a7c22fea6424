package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder receives per-request metrics. Implemented by metrics.Metrics.
type HTTPRecorder interface {
	ObserveHTTPRequest(method, route, status string, d time.Duration)
}

// HTTPMetrics records the count and latency of every request
func HTTPMetrics(recorder HTTPRecorder) gin.HandlerFunc {
	if recorder == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		recorder.ObserveHTTPRequest(
			c.Request.Method,
			getRoutePattern(c),
			HTTPMetricsStatusGroup(c.Writer.Status()),
			time.Since(start),
		)
	}
}

// getRoutePattern returns the matched route pattern instead of the raw
// path to keep label cardinality bounded.
func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// HTTPMetricsStatusGroup returns the status class (2xx, 4xx, 5xx) of a code
func HTTPMetricsStatusGroup(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "other"
	}
}
