package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactvault/contactvault/internal/telemetry"
)

// MetricsMiddleware records request count and latency for every request.
//
// The path label is set from c.FullPath(), the matched Gin route template
// (e.g. /api/v1/contacts/:id) rather than the raw URL. Requests that match no
// registered route use the literal "<no-route>" so unhandled paths cannot
// inflate label cardinality.
//
// Register after gin.Recovery() and RequestIDMiddleware so the status set by
// error handlers is captured correctly.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
