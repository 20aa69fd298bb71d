package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/facility-backend/internal/http/response"
	"github.com/yungbote/facility-backend/internal/platform/ctxutil"
)

const HeaderPropertyID = "X-Property-Id"

// RequireTenant rejects requests without a property scope and attaches it to the
// request context.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID := strings.TrimSpace(c.GetHeader(HeaderPropertyID))
		if propertyID == "" {
			response.RespondError(c, http.StatusBadRequest, "missing_property_id",
				errors.New(HeaderPropertyID+" header is required"))
			return
		}
		c.Request = c.Request.WithContext(ctxutil.Update(c.Request.Context(), func(s *ctxutil.Scope) {
			s.PropertyID = propertyID
		}))
		c.Set("property_id", propertyID)
		c.Next()
	}
}
