package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/facility-backend/internal/platform/ctxutil"
	"github.com/yungbote/facility-backend/internal/platform/logger"
)

// RequestLogger writes one line per request at a level chosen by status class.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := append([]interface{}{
			"method", c.Request.Method,
			"route", routeOf(c),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// routeOf returns the matched route pattern, or "unmatched".
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}
