package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

// CorrelationIDContextKey is the context key used to carry the request
// correlation ID into downstream calls and log entries.
const CorrelationIDContextKey contextKey = "correlation_id"

// WithContext returns a logger annotated with the correlation ID from ctx, if any
func WithContext(ctx context.Context) *zap.Logger {
	l := Get()
	if ctx == nil {
		return l
	}
	if id, ok := ctx.Value(CorrelationIDContextKey).(string); ok && id != "" {
		return l.With(zap.String("correlation_id", id))
	}
	return l
}

// ContextWithCorrelationID stores the correlation ID in ctx
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDContextKey, id)
}
