package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	queueSize    *prometheus.GaugeVec
	enqueueTotal *prometheus.CounterVec
	dequeueTotal *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec

	activeSessions prometheus.Gauge

	completionTotal    *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	fallbackTotal      *prometheus.CounterVec
	exhaustedTotal     *prometheus.CounterVec

	workflowOpsTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			queueSize: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "copydesk_queue_size",
					Help: "Current queue size by lane.",
				},
				[]string{"lane"},
			),
			enqueueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "copydesk_enqueue_total",
					Help: "Total enqueue operations by lane.",
				},
				[]string{"lane"},
			),
			dequeueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "copydesk_dequeue_total",
					Help: "Total task completions by lane and status.",
				},
				[]string{"lane", "status"},
			),
			taskDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "copydesk_task_duration_seconds",
					Help:    "Task execution duration in seconds by lane.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"lane"},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "copydesk_active_sessions",
					Help: "Number of chat sessions held in memory.",
				},
			),
			completionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "copydesk_completion_total",
					Help: "Completion calls by provider, model and status.",
				},
				[]string{"provider", "model", "status"},
			),
			completionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "copydesk_completion_duration_seconds",
					Help:    "Completion call duration in seconds by model.",
					Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
				},
				[]string{"model"},
			),
			fallbackTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "copydesk_model_fallback_total",
					Help: "Times a task moved on to its next candidate model.",
				},
				[]string{"task"},
			),
			exhaustedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "copydesk_model_exhausted_total",
					Help: "Times every candidate model failed for a task.",
				},
				[]string{"task"},
			),
			workflowOpsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "copydesk_workflow_operations_total",
					Help: "Workflow operations by operation and outcome.",
				},
				[]string{"operation", "outcome"},
			),
		}

		prometheus.MustRegister(
			m.queueSize,
			m.enqueueTotal,
			m.dequeueTotal,
			m.taskDuration,
			m.activeSessions,
			m.completionTotal,
			m.completionDuration,
			m.fallbackTotal,
			m.exhaustedTotal,
			m.workflowOpsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordQueueEnqueue(lane string, queueSize int) {
	m := getMetrics()
	m.enqueueTotal.WithLabelValues(lane).Inc()
	m.queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

func SetQueueSize(lane string, queueSize int) {
	getMetrics().queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

func RecordQueueCompletion(lane string, duration time.Duration, success bool, queueSize int) {
	m := getMetrics()
	m.dequeueTotal.WithLabelValues(lane, status(success)).Inc()
	m.taskDuration.WithLabelValues(lane).Observe(duration.Seconds())
	m.queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

func RecordCompletion(provider, model string, duration time.Duration, success bool) {
	m := getMetrics()
	m.completionTotal.WithLabelValues(provider, model, status(success)).Inc()
	m.completionDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func RecordFallback(task string) {
	getMetrics().fallbackTotal.WithLabelValues(task).Inc()
}

func RecordExhausted(task string) {
	getMetrics().exhaustedTotal.WithLabelValues(task).Inc()
}

// RecordWorkflowOp counts a workflow operation. Outcome is one of
// "ok", "precondition" or "failed".
func RecordWorkflowOp(operation, outcome string) {
	getMetrics().workflowOpsTotal.WithLabelValues(operation, outcome).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
