package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/facility-backend/internal/data/aggregates"
)

type HookKind string

const (
	KindOperation HookKind = "operation"
	KindConflict  HookKind = "conflict"
	KindRetry     HookKind = "retry"
)

type HookEvent struct {
	Kind     HookKind
	Op       string
	Status   string
	Duration time.Duration
}

// HooksRecorder keeps every signal a repository emits, in arrival order.
type HooksRecorder struct {
	mu     sync.Mutex
	events []HookEvent
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) record(e HookEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *HooksRecorder) ObserveOperation(op, status string, dur time.Duration) {
	h.record(HookEvent{Kind: KindOperation, Op: op, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(op string) { h.record(HookEvent{Kind: KindConflict, Op: op}) }

func (h *HooksRecorder) IncRetry(op string) { h.record(HookEvent{Kind: KindRetry, Op: op}) }

// Events returns events of the given kind; an empty kind returns all of them.
func (h *HooksRecorder) Events(kind HookKind) []HookEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []HookEvent
	for _, e := range h.events {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Count reports how many events of kind were recorded for op, or for any op
// when op is empty.
func (h *HooksRecorder) Count(kind HookKind, op string) int {
	n := 0
	for _, e := range h.Events(kind) {
		if op == "" || e.Op == op {
			n++
		}
	}
	return n
}

func (h *HooksRecorder) Reset() {
	h.mu.Lock()
	h.events = nil
	h.mu.Unlock()
}
