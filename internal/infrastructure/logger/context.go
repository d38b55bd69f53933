package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the request-scoped logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for the request ID
	RequestIDKey contextKey = "request_id"
	// ActorIDKey is the context key for the acting user's ID
	ActorIDKey contextKey = "actor_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returning a no-op logger
// when none is attached
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds the request ID to context and returns an enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithActorID adds the acting user's ID to context and returns an enriched logger
func WithActorID(ctx context.Context, logger *zap.Logger, actorID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, ActorIDKey, actorID)
	enriched := logger.With(zap.String("actor_id", actorID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetActorID retrieves the acting user's ID from context
func GetActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(ActorIDKey).(string); ok {
		return actorID
	}
	return ""
}

// WithTraceContext adds trace_id and span_id from the context's active span.
// Returns the logger unchanged when no valid span exists.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
