package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the failure kind a repository call reports. Each code maps to
// exactly one HTTP status family.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is what every repository operation returns on failure. Driver errors
// only ever appear as Cause.
type Error struct {
	Code ErrorCode
	Op   string
	// Field names the offending payload field for validation failures, using
	// slot.column for slot fields.
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 2)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(parts) == 0 {
		return string(e.Code)
	}
	return strings.Join(parts, ": ") + " (" + string(e.Code) + ")"
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by code, so errors.Is(err, &Error{Code: CodeConflict})
// works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Code == e.Code && (t.Op == "" || t.Op == e.Op)
}

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap tags err with code, keeping it as the cause.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func Validationf(op, format string, args ...any) error {
	return NewError(CodeValidation, op, fmt.Sprintf(format, args...), nil)
}

// FieldErrorf is a validation failure attributed to one payload field.
func FieldErrorf(op, field, format string, args ...any) error {
	return &Error{
		Code:    CodeValidation,
		Op:      strings.TrimSpace(op),
		Field:   field,
		Message: strings.TrimSpace(fmt.Sprintf(format, args...)),
	}
}

func NotFoundf(op, format string, args ...any) error {
	return NewError(CodeNotFound, op, fmt.Sprintf(format, args...), nil)
}

func Conflictf(op, format string, args ...any) error {
	return NewError(CodeConflict, op, fmt.Sprintf(format, args...), nil)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// FieldOf returns the offending field of a validation failure, or "".
func FieldOf(err error) string {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Field
}

// Retryable reports whether the caller may resend the same request unchanged.
func Retryable(err error) bool {
	return IsCode(err, CodeRetryable)
}
