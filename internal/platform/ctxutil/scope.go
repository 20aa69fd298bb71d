package ctxutil

import (
	"context"
	"strings"
)

type scopeKey struct{}

// Scope identifies one request as it flows from the router into the
// repository. It is stored by value so later middleware can extend it without
// mutating what earlier handlers saw.
type Scope struct {
	TraceID    string
	RequestID  string
	PropertyID string
}

func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

func FromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// Update applies fn to a copy of the scope on ctx, or to a zero scope, and
// returns a context carrying the result.
func Update(ctx context.Context, fn func(*Scope)) context.Context {
	s, _ := FromContext(ctx)
	fn(&s)
	return WithScope(ctx, s)
}

// PropertyID returns the tenant attached to ctx, or "" when none was set.
func PropertyID(ctx context.Context) string {
	s, _ := FromContext(ctx)
	return strings.TrimSpace(s.PropertyID)
}

func TraceID(ctx context.Context) string {
	s, _ := FromContext(ctx)
	return s.TraceID
}

func RequestID(ctx context.Context) string {
	s, _ := FromContext(ctx)
	return s.RequestID
}

// LogFields returns the populated scope values as logger key/value pairs.
func LogFields(ctx context.Context) []interface{} {
	s, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	var kv []interface{}
	if s.TraceID != "" {
		kv = append(kv, "trace_id", s.TraceID)
	}
	if s.RequestID != "" {
		kv = append(kv, "request_id", s.RequestID)
	}
	if p := strings.TrimSpace(s.PropertyID); p != "" {
		kv = append(kv, "property_id", p)
	}
	return kv
}
