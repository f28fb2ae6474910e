package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type traceIDKey struct{}

// WithTraceID возвращает context с внутренним trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceIDFromContext возвращает внутренний trace ID или "".
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// IDsFromContext возвращает trace ID и span ID для корреляции записей.
// Приоритет у валидного OTel span context; если его нет, возвращается
// внутренний trace ID без span ID. ok == false, если нет ни того, ни другого.
func IDsFromContext(ctx context.Context) (traceID, spanID string, ok bool) {
	if ctx == nil {
		return "", "", false
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String(), sc.SpanID().String(), true
	}
	if id := TraceIDFromContext(ctx); id != "" {
		return id, "", true
	}
	return "", "", false
}
