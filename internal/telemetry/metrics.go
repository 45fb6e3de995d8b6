package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ShayCichocki/agentsmith/internal/llm"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	tasks           *prometheus.CounterVec
	executions      *prometheus.CounterVec
	fallbacks       prometheus.Counter
	llmDuration     *prometheus.HistogramVec
	llmTokens       *prometheus.CounterVec
	llmErrors       *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	workersInFlight prometheus.Gauge
}

// NewMetrics creates the collectors on a fresh registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentsmith",
			Name:      "tasks_total",
			Help:      "Tasks that reached a status, by status.",
		}, []string{"status"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentsmith",
			Name:      "executions_total",
			Help:      "Executions that reached a status, by status.",
		}, []string{"status"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentsmith",
			Name:      "classification_fallbacks_total",
			Help:      "Classifications that fell back to the custom archetype because the model output was unparseable.",
		}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentsmith",
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of LLM completion calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"provider"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentsmith",
			Name:      "llm_tokens_total",
			Help:      "Tokens exchanged with the LLM, by direction.",
		}, []string{"direction"}),
		llmErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentsmith",
			Name:      "llm_errors_total",
			Help:      "Failed LLM completion calls, by provider and kind.",
		}, []string{"provider", "kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentsmith",
			Name:      "queue_depth",
			Help:      "Jobs waiting in the dispatch queue.",
		}),
		workersInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentsmith",
			Name:      "workers_in_flight",
			Help:      "Jobs currently being processed.",
		}),
	}

	reg.MustRegister(m.tasks, m.executions, m.fallbacks, m.llmDuration, m.llmTokens, m.llmErrors,
		m.queueDepth, m.workersInFlight)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// TaskStatus counts a task reaching status.
func (m *Metrics) TaskStatus(status string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(status).Inc()
}

// ExecutionStatus counts an execution reaching status.
func (m *Metrics) ExecutionStatus(status string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(status).Inc()
}

// ClassificationFallback counts one unparseable classification.
func (m *Metrics) ClassificationFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// QueueDepth sets the number of queued jobs.
func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// WorkerStarted and WorkerFinished track jobs in flight.
func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.workersInFlight.Inc()
}

func (m *Metrics) WorkerFinished() {
	if m == nil {
		return
	}
	m.workersInFlight.Dec()
}

// ObserveCompletion implements llm.Observer.
func (m *Metrics) ObserveCompletion(provider string, elapsed time.Duration, resp llm.CompletionResponse, err error) {
	if m == nil {
		return
	}
	m.llmDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		kind := "error"
		if errors.Is(err, llm.ErrTimeout) {
			kind = "timeout"
		}
		m.llmErrors.WithLabelValues(provider, kind).Inc()
		return
	}
	m.llmTokens.WithLabelValues("input").Add(float64(resp.InputTokens))
	m.llmTokens.WithLabelValues("output").Add(float64(resp.OutputTokens))
}

var _ llm.Observer = (*Metrics)(nil)
