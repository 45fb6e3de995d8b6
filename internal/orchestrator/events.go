package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskQueued indicates a task was stored and enqueued.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a worker claimed the task.
	EventTaskStarted EventType = "task_started"
	// EventTaskClassified indicates the archetype was chosen.
	EventTaskClassified EventType = "task_classified"
	// EventAgentCreated indicates the synthesized agent was persisted.
	EventAgentCreated EventType = "agent_created"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventExecutionQueued indicates an execution was stored and enqueued.
	EventExecutionQueued EventType = "execution_queued"
	// EventExecutionStarted indicates a worker claimed the execution.
	EventExecutionStarted EventType = "execution_started"
	// EventExecutionCompleted indicates an execution completed successfully.
	EventExecutionCompleted EventType = "execution_completed"
	// EventExecutionFailed indicates an execution failed.
	EventExecutionFailed EventType = "execution_failed"
)

// Event is emitted on every pipeline transition.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is set for task events.
	TaskID string
	// ExecutionID is set for execution events.
	ExecutionID string
	// AgentID is the related agent, if one exists yet.
	AgentID string
	// Message provides additional context, e.g. the chosen archetype.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emit stamps the event, records it on the active span and hands it to the sink.
func (o *options) emit(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	attrs := []attribute.KeyValue{}
	if e.AgentID != "" {
		attrs = append(attrs, attribute.String("agent.id", e.AgentID))
	}
	if e.Message != "" {
		attrs = append(attrs, attribute.String("message", e.Message))
	}
	span := trace.SpanFromContext(ctx)
	span.AddEvent(string(e.Type), trace.WithAttributes(attrs...), trace.WithTimestamp(e.Timestamp))
	if e.Error != nil {
		span.RecordError(e.Error)
	}

	if o.sink != nil {
		o.sink(e)
	}
}
