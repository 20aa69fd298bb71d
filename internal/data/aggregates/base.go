package aggregates

import (
	"context"
	"strings"
	"time"

	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/platform/dbctx"
	"github.com/yungbote/facility-backend/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const tracerName = "github.com/yungbote/facility-backend/internal/data/aggregates"

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	Tracer trace.Tracer
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = HookFuncs{}
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer(tracerName)
	}
	return d
}

// executeWrite runs fn in one transaction, maps the failure and records it.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error, attrs ...attribute.KeyValue) error {
	deps = deps.withDefaults()
	return observe(ctx, deps, op, attrs, func(ctx context.Context) error {
		return deps.Runner.InTx(ctx, fn)
	})
}

// executeRead runs fn outside a transaction with the same error mapping and hooks.
func executeRead(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error, attrs ...attribute.KeyValue) error {
	deps = deps.withDefaults()
	return observe(ctx, deps, op, attrs, func(ctx context.Context) error {
		return fn(dbctx.Context{Ctx: ctx})
	})
}

func observe(ctx context.Context, deps BaseDeps, op string, attrs []attribute.KeyValue, run func(ctx context.Context) error) error {
	start := time.Now()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	ctx, span := deps.Tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()

	mapped := MapError(op, run(ctx))

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		span.SetAttributes(attribute.String("aggregate.error_code", status))
		span.SetStatus(codes.Error, mapped.Error())
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
