package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for the per-update trace ID
	TraceIDKey ContextKey = "trace_id"
	// SessionKeyKey is the context key for the chat session key
	SessionKeyKey ContextKey = "session_key"
	// CommandKey is the context key for the workflow command being handled
	CommandKey ContextKey = "command"
)

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithSessionKey adds a session key to the context
func WithSessionKey(ctx context.Context, sessionKey string) context.Context {
	return context.WithValue(ctx, SessionKeyKey, sessionKey)
}

// WithCommand adds the command name to the context
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, CommandKey, command)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

// GetSessionKey retrieves the session key from the context
func GetSessionKey(ctx context.Context) string {
	return stringValue(ctx, SessionKeyKey)
}

// GetCommand retrieves the command name from the context
func GetCommand(ctx context.Context) string {
	return stringValue(ctx, CommandKey)
}

func stringValue(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// NewRequestContext starts a new trace for an inbound update
func NewRequestContext(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}

// LoggerFromContext returns baseLogger enriched with the tracing fields in ctx
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	fields := baseLogger.With()
	if v := GetTraceID(ctx); v != "" {
		fields = fields.Str("trace_id", v)
	}
	if v := GetSessionKey(ctx); v != "" {
		fields = fields.Str("session_key", v)
	}
	if v := GetCommand(ctx); v != "" {
		fields = fields.Str("command", v)
	}
	return fields.Logger()
}
