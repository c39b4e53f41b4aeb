package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"costwarden/pkg/monitoring"
)

// Metrics records request counts and latency per route.
func Metrics(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		monitoring.RequestsTotal.WithLabelValues(
			service,
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		monitoring.RequestDuration.WithLabelValues(
			service,
			c.Request.Method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}
