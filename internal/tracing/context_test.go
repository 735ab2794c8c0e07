package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithSessionKey(ctx, "chat:42")
	ctx = WithCommand(ctx, "write")

	assert.Equal(t, "trace-1", GetTraceID(ctx))
	assert.Equal(t, "chat:42", GetSessionKey(ctx))
	assert.Equal(t, "write", GetCommand(ctx))
}

func TestContextValuesEmpty(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSessionKey(ctx))
	assert.Empty(t, GetCommand(ctx))
	assert.Empty(t, GetTraceID(nil))
}

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background())
	assert.NotEmpty(t, GetTraceID(ctx))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithSessionKey(WithTraceID(context.Background(), "trace-9"), "chat:7")
	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("handled")

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"trace-9"`)
	assert.Contains(t, out, `"session_key":"chat:7"`)
	assert.NotContains(t, out, `"command"`)
}
