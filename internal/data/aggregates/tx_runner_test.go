package aggregates_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yungbote/facility-backend/internal/data/aggregates"
	"github.com/yungbote/facility-backend/internal/data/repos/testutil"
	"github.com/yungbote/facility-backend/internal/platform/dbctx"
)

func TestTxRunnerRetriesTransientFailures(t *testing.T) {
	gdb := testutil.DB(t)
	var retried []int
	runner := aggregates.NewGormTxRunner(gdb, aggregates.WithTxRetry(3, time.Millisecond, func(attempt int, _ error) {
		retried = append(retried, attempt)
	}))

	calls := 0
	err := runner.InTx(context.Background(), func(dbc dbctx.Context) error {
		calls++
		if dbc.Tx == nil {
			t.Fatalf("body ran without a transaction")
		}
		if calls < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls: want=3 got=%d", calls)
	}
	if want := []int{1, 2}; !reflect.DeepEqual(retried, want) {
		t.Fatalf("retried: want=%v got=%v", want, retried)
	}
}

func TestTxRunnerGivesUpAfterAttempts(t *testing.T) {
	gdb := testutil.DB(t)
	runner := aggregates.NewGormTxRunner(gdb, aggregates.WithTxRetry(2, time.Millisecond, nil))

	calls := 0
	err := runner.InTx(context.Background(), func(dbctx.Context) error {
		calls++
		return errors.New("database is locked")
	})
	if err == nil {
		t.Fatalf("expected the last failure")
	}
	if calls != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
}

func TestTxRunnerDoesNotRetryDomainErrors(t *testing.T) {
	gdb := testutil.DB(t)
	runner := aggregates.NewGormTxRunner(gdb, aggregates.WithTxRetry(5, time.Millisecond, nil))

	calls := 0
	want := aggregates.ConflictError("tag_number taken")
	err := runner.InTx(context.Background(), func(dbctx.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, aggregates.ErrConflict) {
		t.Fatalf("want=%v got=%v", aggregates.ErrConflict, err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestTxRunnerDefaultRunsOnce(t *testing.T) {
	runner := aggregates.NewGormTxRunner(testutil.DB(t))
	calls := 0
	err := runner.InTx(context.Background(), func(dbctx.Context) error {
		calls++
		return errors.New("database is locked")
	})
	if err == nil || calls != 1 {
		t.Fatalf("want=1 failed call got=%d err=%v", calls, err)
	}
}
