// Package context carries request-scoped values (trace ids, load run ids).
package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext contains request tracing information.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

type loadRunKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// NewTraceContext creates a new TraceContext with generated IDs.
func NewTraceContext() *TraceContext {
	return &TraceContext{
		TraceID:   uuid.New().String(),
		SpanID:    uuid.New().String()[:16],
		RequestID: uuid.New().String(),
	}
}

// WithLoadRun tags ctx with the id of the bulk load it belongs to.
func WithLoadRun(ctx context.Context, runID uuid.UUID) context.Context {
	return context.WithValue(ctx, loadRunKey{}, runID)
}

// GetLoadRun returns the bulk load id carried by ctx, if any.
func GetLoadRun(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(loadRunKey{}).(uuid.UUID)
	return id, ok
}
