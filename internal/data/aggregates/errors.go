package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("aggregate validation")
	// ErrNotFound indicates a root or item outside the caller's tenant scope.
	ErrNotFound = errors.New("aggregate not found")
	// ErrInvariant indicates invariant rule violation.
	ErrInvariant = errors.New("aggregate invariant violation")
	// ErrConflict indicates a secondary unique key collision.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable indicates transient retryable failure.
	ErrRetryable = errors.New("aggregate retryable")
)

func tagged(sentinel error, msg string) error {
	return errors.Join(sentinel, errors.New(strings.TrimSpace(msg)))
}

func ValidationError(msg string) error { return tagged(ErrValidation, msg) }
func NotFoundError(msg string) error   { return tagged(ErrNotFound, msg) }
func InvariantError(msg string) error  { return tagged(ErrInvariant, msg) }
func ConflictError(msg string) error   { return tagged(ErrConflict, msg) }
func RetryableError(msg string) error  { return tagged(ErrRetryable, msg) }

// sentinelCodes is checked in order; the first errors.Is match decides the code.
var sentinelCodes = []struct {
	err  error
	code domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrNotFound, domainagg.CodeNotFound},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{ErrRetryable, domainagg.CodeRetryable},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

// MapError converts any failure into a *domainagg.Error so raw driver errors
// never leave the repository. Already-typed errors pass through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return aggErr
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return domainagg.Wrap(sc.code, op, err)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case pgerrcode.UniqueViolation:
			return domainagg.Wrap(domainagg.CodeConflict, op, err)
		case pgerrcode.ForeignKeyViolation:
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err)
		case pgerrcode.NotNullViolation, pgerrcode.CheckViolation, pgerrcode.InvalidTextRepresentation:
			return domainagg.Wrap(domainagg.CodeValidation, op, err)
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
			return domainagg.Wrap(domainagg.CodeRetryable, op, err)
		}
	}

	// sqlite reports constraint failures as plain text.
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "already exists"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err)
	case strings.Contains(msg, "not null constraint failed"),
		strings.Contains(msg, "check constraint failed"):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}
