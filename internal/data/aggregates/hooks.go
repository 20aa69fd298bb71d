package aggregates

import (
	"time"

	"github.com/yungbote/facility-backend/internal/observability"
)

// Hooks receives one signal per repository operation, plus conflict and retry
// counts keyed by operation name.
type Hooks interface {
	ObserveOperation(op, status string, dur time.Duration)
	IncConflict(op string)
	IncRetry(op string)
}

// HookFuncs adapts plain functions to Hooks. Nil fields are skipped, so the
// zero value discards everything.
type HookFuncs struct {
	Operation func(op, status string, dur time.Duration)
	Conflict  func(op string)
	Retry     func(op string)
}

func (h HookFuncs) ObserveOperation(op, status string, dur time.Duration) {
	if h.Operation != nil {
		h.Operation(op, status, dur)
	}
}

func (h HookFuncs) IncConflict(op string) {
	if h.Conflict != nil {
		h.Conflict(op)
	}
}

func (h HookFuncs) IncRetry(op string) {
	if h.Retry != nil {
		h.Retry(op)
	}
}

// NewObservabilityHooks routes hook signals to the aggregate prometheus series.
// A nil m yields hooks that discard everything.
func NewObservabilityHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return HookFuncs{}
	}
	return HookFuncs{
		Operation: m.ObserveAggregateOperation,
		Conflict:  m.IncAggregateConflict,
		Retry:     m.IncAggregateRetry,
	}
}
