package dashboard

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/metrics"
)

// prometheusMiddleware records request counts and latencies. Paths are
// labelled by route template so parameters do not explode cardinality.
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// requestLogger writes one debug entry per request, or a warning for 5xx
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		data := map[string]any{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= 500 {
			log.Warn("Dashboard request failed", data)
			return
		}
		log.Debug("Dashboard request", data)
	}
}
