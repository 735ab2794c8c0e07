package tracing

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const testServiceName = "copydesk-test"

// The provider is process-wide and can only be installed once, so it is
// shut down after every test in the package has run.
func TestMain(m *testing.M) {
	if err := InitOpenTelemetry(testServiceName); err != nil {
		panic(err)
	}
	code := m.Run()
	_ = ShutdownOpenTelemetry(context.Background())
	os.Exit(code)
}

func TestInitOpenTelemetryIgnoresSecondCall(t *testing.T) {
	require.NoError(t, InitOpenTelemetry("ignored-second-call"))

	_, span := StartSpan(context.Background(), "copydesk/test", "write")
	defer span.End()

	readOnly, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)
	value, found := readOnly.Resource().Set().Value(semconv.ServiceNameKey)
	require.True(t, found)
	assert.Equal(t, testServiceName, value.AsString())
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "copydesk/test", "write")
	defer span.End()

	require.True(t, span.SpanContext().IsValid())
	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
}

func TestStartSpanKeepsExistingTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "request-trace")

	ctx, span := StartSpan(ctx, "copydesk/test", "revise")
	defer span.End()

	assert.Equal(t, "request-trace", GetTraceID(ctx))
}
