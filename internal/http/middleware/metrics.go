package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/facility-backend/internal/observability"
)

// Metrics records in-flight requests and per-route latency. A nil m disables it.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		m.ApiInflightInc()
		start := time.Now()
		defer func() {
			m.ApiInflightDec()
			m.ObserveAPI(c.Request.Method, routeOf(c), strconv.Itoa(c.Writer.Status()), time.Since(start))
		}()
		c.Next()
	}
}
