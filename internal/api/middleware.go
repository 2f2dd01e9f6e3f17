package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DonQuixuote/shape-tcg/internal/logging"
)

// RequestLogger writes one access log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := logging.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		logging.Info("http request", fields)
	}
}
