// internal/middleware/metrics.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/gemstore-backend/internal/metrics"
)

// Metrics records request counts and latency labelled by route template, so
// /v1/gemstones/:id is one series regardless of the id.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := metrics.RequestStarted()
		start := time.Now()

		c.Next()

		done()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
