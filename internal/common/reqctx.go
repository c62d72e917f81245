package common

import "context"

type contextKey int

const correlationIDKey contextKey = iota

// WithCorrelationID stores the request correlation id in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation id, or "" if absent.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// LoggerFromContext returns logger tagged with the request correlation id when one is present.
func LoggerFromContext(ctx context.Context, logger Logger) Logger {
	if id := CorrelationIDFromContext(ctx); id != "" {
		return logger.WithCorrelationId(id)
	}
	return logger
}
