package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRegisteredIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		EnsureRegistered()
		EnsureRegistered()
	})
}

func TestRecordQueueMetrics(t *testing.T) {
	lane := "chat:metrics-test"

	RecordQueueEnqueue(lane, 3)
	assert.Equal(t, float64(1), testutil.ToFloat64(getMetrics().enqueueTotal.WithLabelValues(lane)))
	assert.Equal(t, float64(3), testutil.ToFloat64(getMetrics().queueSize.WithLabelValues(lane)))

	RecordQueueCompletion(lane, 10*time.Millisecond, false, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(getMetrics().dequeueTotal.WithLabelValues(lane, "error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(getMetrics().queueSize.WithLabelValues(lane)))

	SetQueueSize(lane, 0)
	assert.Equal(t, float64(0), testutil.ToFloat64(getMetrics().queueSize.WithLabelValues(lane)))
}

func TestRecordCompletionMetrics(t *testing.T) {
	RecordCompletion("openrouter", "test/model-a", time.Second, true)
	RecordCompletion("openrouter", "test/model-a", time.Second, false)

	m := getMetrics()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.completionTotal.WithLabelValues("openrouter", "test/model-a", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.completionTotal.WithLabelValues("openrouter", "test/model-a", "error")))

	RecordFallback("metrics-test")
	RecordExhausted("metrics-test")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.fallbackTotal.WithLabelValues("metrics-test")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.exhaustedTotal.WithLabelValues("metrics-test")))
}

func TestRecordWorkflowOp(t *testing.T) {
	RecordWorkflowOp("deliver", "precondition")
	RecordWorkflowOp("deliver", "precondition")

	assert.Equal(t, float64(2), testutil.ToFloat64(getMetrics().workflowOpsTotal.WithLabelValues("deliver", "precondition")))
}

func TestSetActiveSessions(t *testing.T) {
	SetActiveSessions(5)
	assert.Equal(t, float64(5), testutil.ToFloat64(getMetrics().activeSessions))
}

func TestMetricsHandler(t *testing.T) {
	RecordWorkflowOp("start", "ok")

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "copydesk_workflow_operations_total")
}
