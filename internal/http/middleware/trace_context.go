package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/facility-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext starts the request scope. The trace id prefers the
// caller's header, then the active span, then a fresh uuid.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := headerOr(c, headerRequestID, uuid.NewString)
		traceID := headerOr(c, headerTraceID, func() string {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				return sc.TraceID().String()
			}
			return uuid.NewString()
		})

		c.Request = c.Request.WithContext(ctxutil.Update(c.Request.Context(), func(s *ctxutil.Scope) {
			s.TraceID = traceID
			s.RequestID = reqID
		}))
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name string, fallback func() string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return fallback()
}
