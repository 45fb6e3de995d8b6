package orchestrator

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/ShayCichocki/agentsmith/internal/logging"
	"github.com/ShayCichocki/agentsmith/internal/telemetry"
)

// Option configures orchestrators and the dispatcher.
type Option func(*options)

type options struct {
	log     *logging.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	sink    func(Event)
}

func newOptions(opts []Option) options {
	o := options{
		log:    logging.Nop(),
		tracer: telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records pipeline metrics. A nil value disables them.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer overrides the tracer from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithEventSink receives every Event. The sink runs on the worker
// goroutine and must not block.
func WithEventSink(fn func(Event)) Option {
	return func(o *options) {
		o.sink = fn
	}
}
