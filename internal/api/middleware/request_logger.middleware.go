package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/pkg/logger"
)

// RequestLogger emits one structured log line per request. Status drives the
// level: 4xx warns, 5xx errors.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"tenant_id", c.GetString(KeyTenantID),
			"user_id", c.GetString(KeyUserID),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("request completed", fields...)
		case status >= 400:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}
