package aggregates

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/observability"
	"github.com/yungbote/facility-backend/internal/platform/dbctx"
)

type signal struct {
	kind, op, status string
}

// capture returns hooks that append every signal to the returned slice.
func capture() (*[]signal, Hooks) {
	var got []signal
	return &got, HookFuncs{
		Operation: func(op, status string, _ time.Duration) { got = append(got, signal{"op", op, status}) },
		Conflict:  func(op string) { got = append(got, signal{"conflict", op, ""}) },
		Retry:     func(op string) { got = append(got, signal{"retry", op, ""}) },
	}
}

type passRunner struct{ calls int }

func (r *passRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.calls++
	return fn(dbctx.Context{Ctx: ctx})
}

func TestExecuteWriteSignals(t *testing.T) {
	cases := []struct {
		name    string
		bodyErr error
		code    domainagg.ErrorCode
		want    []signal
	}{
		{
			name: "success",
			want: []signal{{"op", "aggregate.create", "success"}},
		},
		{
			name:    "invariant",
			bodyErr: InvariantError("counter below zero"),
			code:    domainagg.CodeInvariantViolation,
			want:    []signal{{"op", "aggregate.create", "invariant_violation"}},
		},
		{
			name:    "conflict",
			bodyErr: ConflictError("incident_id IR-1 already exists"),
			code:    domainagg.CodeConflict,
			want:    []signal{{"conflict", "aggregate.create", ""}, {"op", "aggregate.create", "conflict"}},
		},
		{
			name:    "retryable",
			bodyErr: RetryableError("lock timeout"),
			code:    domainagg.CodeRetryable,
			want:    []signal{{"retry", "aggregate.create", ""}, {"op", "aggregate.create", "retryable"}},
		},
		{
			name:    "raw driver error",
			bodyErr: errors.New("connection reset by peer"),
			code:    domainagg.CodeInternal,
			want:    []signal{{"op", "aggregate.create", "internal"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, hooks := capture()
			runner := &passRunner{}
			err := executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "aggregate.create",
				func(dbctx.Context) error { return tc.bodyErr })
			if tc.bodyErr == nil && err != nil {
				t.Fatalf("executeWrite: %v", err)
			}
			if tc.bodyErr != nil && !domainagg.IsCode(err, tc.code) {
				t.Fatalf("code: want=%s got=%v", tc.code, err)
			}
			if runner.calls != 1 {
				t.Fatalf("runner calls: want=1 got=%d", runner.calls)
			}
			if !reflect.DeepEqual(*got, tc.want) {
				t.Fatalf("signals: want=%v got=%v", tc.want, *got)
			}
		})
	}
}

func TestExecuteReadSkipsTransaction(t *testing.T) {
	got, hooks := capture()
	runner := &passRunner{}
	var inTx bool
	err := executeRead(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "aggregate.get",
		func(dbc dbctx.Context) error {
			inTx = dbc.InTx()
			return NotFoundError("missing")
		})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("want=not_found got=%v", err)
	}
	if runner.calls != 0 || inTx {
		t.Fatalf("read opened a transaction: calls=%d inTx=%v", runner.calls, inTx)
	}
	if want := []signal{{"op", "aggregate.get", "not_found"}}; !reflect.DeepEqual(*got, want) {
		t.Fatalf("signals: want=%v got=%v", want, *got)
	}
}

func TestBlankOperationName(t *testing.T) {
	got, hooks := capture()
	_ = executeWrite(context.Background(), BaseDeps{Runner: &passRunner{}, Hooks: hooks}, "  ",
		func(dbctx.Context) error { return nil })
	if want := []signal{{"op", "aggregate.write", "success"}}; !reflect.DeepEqual(*got, want) {
		t.Fatalf("signals: want=%v got=%v", want, *got)
	}
}

func TestAggregateErrorStatus(t *testing.T) {
	cases := map[string]error{
		"success":             nil,
		"invariant_violation": InvariantError("x"),
		"conflict":            ConflictError("x"),
		"retryable":           context.DeadlineExceeded,
		"validation":          ValidationError("x"),
	}
	for want, err := range cases {
		if got := aggregateErrorStatus(err); got != want {
			t.Fatalf("want=%s got=%s", want, got)
		}
	}
}

func TestZeroHookFuncsDiscard(t *testing.T) {
	var h HookFuncs
	h.ObserveOperation("aggregate.get", "success", time.Millisecond)
	h.IncConflict("aggregate.create")
	h.IncRetry("aggregate.tx")
}

func TestObservabilityHooksFeedMetrics(t *testing.T) {
	m := observability.NewMetrics()
	err := executeWrite(context.Background(), BaseDeps{Runner: &passRunner{}, Hooks: NewObservabilityHooks(m)}, "aggregate.update",
		func(dbctx.Context) error { return ConflictError("tag_number taken") })
	if err == nil {
		t.Fatalf("expected conflict")
	}

	for _, name := range []string{"facility_aggregate_conflicts_total", "facility_aggregate_operations_total"} {
		n, err := promtest.GatherAndCount(m.Registry(), name)
		if err != nil {
			t.Fatalf("gather %s: %v", name, err)
		}
		if n != 1 {
			t.Fatalf("%s series: want=1 got=%d", name, n)
		}
	}

	// nil metrics must not panic
	NewObservabilityHooks(nil).IncRetry("aggregate.tx")
}
