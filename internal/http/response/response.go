package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/facility-backend/internal/domain/aggregates"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// StatusFor maps an aggregate error code to its HTTP status.
func StatusFor(code aggregates.ErrorCode) int {
	switch code {
	case aggregates.CodeValidation:
		return http.StatusBadRequest
	case aggregates.CodeNotFound:
		return http.StatusNotFound
	case aggregates.CodeConflict, aggregates.CodeInvariantViolation:
		return http.StatusConflict
	case aggregates.CodePreconditionFailed:
		return http.StatusUnprocessableEntity
	case aggregates.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondAggregateError writes err with the status of its aggregate code.
// Internal failures never echo the underlying message.
func RespondAggregateError(c *gin.Context, err error) {
	code := aggregates.CodeOf(err)
	if code == "" {
		code = aggregates.CodeInternal
	}
	status := StatusFor(code)
	if status == http.StatusInternalServerError {
		RespondError(c, status, string(aggregates.CodeInternal), errors.New("internal error"))
		return
	}
	apiErr := APIError{Message: err.Error(), Code: string(code)}
	var aggErr *aggregates.Error
	if errors.As(err, &aggErr) {
		apiErr.Field = aggErr.Field
		if aggErr.Message != "" {
			apiErr.Message = aggErr.Message
		}
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: apiErr})
}
