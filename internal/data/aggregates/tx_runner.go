package aggregates

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// TxRunner opens the transaction boundary for one aggregate write. The body
// commits only when fn returns nil.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// TxOption tunes a gorm-backed runner.
type TxOption func(*gormTxRunner)

// WithTxRetry reruns a body whose transaction died on a transient lock or
// serialization failure, up to attempts runs in total. onRetry fires before
// each rerun.
func WithTxRetry(attempts int, backoff time.Duration, onRetry func(attempt int, err error)) TxOption {
	return func(r *gormTxRunner) {
		if attempts > 1 {
			r.attempts = attempts
		}
		if backoff > 0 {
			r.backoff = backoff
		}
		r.onRetry = onRetry
	}
}

type gormTxRunner struct {
	db       *gorm.DB
	attempts int
	backoff  time.Duration
	onRetry  func(attempt int, err error)
}

// NewGormTxRunner returns a runner backed by gorm transactions. A *gorm.DB that
// is already a transaction nests through savepoints.
func NewGormTxRunner(db *gorm.DB, opts ...TxOption) TxRunner {
	r := &gormTxRunner{db: db, attempts: 1, backoff: 10 * time.Millisecond}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	for attempt := 1; ; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if err == nil || attempt >= r.attempts || !isTransientTxError(err) {
			return err
		}
		if r.onRetry != nil {
			r.onRetry(attempt, err)
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
}

// isTransientTxError reports failures after which the whole transaction was
// rolled back and can be rerun unchanged.
func isTransientTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
