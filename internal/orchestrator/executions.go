package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ShayCichocki/agentsmith/internal/cache"
	"github.com/ShayCichocki/agentsmith/internal/llm"
	"github.com/ShayCichocki/agentsmith/internal/logging"
	"github.com/ShayCichocki/agentsmith/internal/state"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// ErrAgentNotFound is returned by Submit when the target agent does not exist.
var ErrAgentNotFound = errors.New("agent not found")

// ExecutionStore is the persistence the execution pipeline needs.
type ExecutionStore interface {
	state.ExecutionStore
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
}

// ExecutionOrchestrator runs existing agents against new inputs.
type ExecutionOrchestrator struct {
	store  ExecutionStore
	runner *llm.Runner
	mirror *cache.Mirror
	queue  Enqueuer

	opts options
	log  *logging.Logger
	now  func() time.Time
}

// NewExecutionOrchestrator creates an execution orchestrator.
func NewExecutionOrchestrator(store ExecutionStore, runner *llm.Runner, mirror *cache.Mirror, queue Enqueuer, opts ...Option) *ExecutionOrchestrator {
	o := newOptions(opts)
	return &ExecutionOrchestrator{
		store:  store,
		runner: runner,
		mirror: mirror,
		queue:  queue,
		opts:   o,
		log:    o.log.Component("executions"),
		now:    time.Now,
	}
}

// Submit stores a pending execution for agentID and enqueues it.
// ErrAgentNotFound is returned before anything is written.
func (o *ExecutionOrchestrator) Submit(ctx context.Context, ownerID, agentID, input string, metadata map[string]any) (*models.Execution, error) {
	if _, err := o.store.GetAgent(ctx, agentID); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
		}
		return nil, fmt.Errorf("look up agent: %w", err)
	}

	e := &models.Execution{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		AgentID:  agentID,
		Input:    input,
		Status:   models.ExecutionStatusPending,
		Metadata: metadata,
	}
	if err := o.store.CreateExecution(ctx, e); err != nil {
		return nil, fmt.Errorf("submit execution: %w", err)
	}

	o.mirror.Execution(ctx, *e)
	o.opts.metrics.ExecutionStatus(string(models.ExecutionStatusPending))
	o.opts.emit(ctx, Event{Type: EventExecutionQueued, ExecutionID: e.ID, AgentID: agentID})

	if err := o.queue.Enqueue(ctx, Job{Kind: JobExecution, ID: e.ID}); err != nil {
		o.log.Warn("execution left pending", "execution_id", e.ID, "error", err)
	}
	return e, nil
}

// Process runs one execution. Run failures, including a failed output
// write, are recorded on the row and are not returned; only a failed
// terminal write is.
func (o *ExecutionOrchestrator) Process(ctx context.Context, executionID string) error {
	ctx, span := o.opts.tracer.Start(ctx, "execution.process",
		trace.WithAttributes(attribute.String("execution.id", executionID)))
	defer span.End()

	log := o.log.WithContext(ctx).With("execution_id", executionID)

	e, err := o.store.ClaimExecution(ctx, executionID)
	if errors.Is(err, state.ErrAlreadyClaimed) {
		log.Debug("execution already claimed")
		span.AddEvent("claim_lost")
		return nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("claim execution: %w", err)
	}

	o.mirror.Execution(ctx, *e)
	o.opts.metrics.ExecutionStatus(string(models.ExecutionStatusRunning))
	o.opts.emit(ctx, Event{Type: EventExecutionStarted, ExecutionID: executionID, AgentID: e.AgentID})

	agent, err := o.store.GetAgent(ctx, e.AgentID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrAgentNotFound, e.AgentID)
		}
		return o.fail(ctx, span, log, *e, err, nil)
	}

	start := o.now()
	output, err := o.runner.Run(ctx, *agent, e.Input)
	elapsed := models.FormatElapsed(o.now().Sub(start))
	if err != nil {
		return o.fail(ctx, span, log, *e, err, &elapsed)
	}

	done, err := o.store.CompleteExecution(ctx, executionID, output, elapsed)
	if err != nil {
		log.Error("failed to record execution output", "error", err)
		if ferr := o.fail(ctx, span, log, *e, fmt.Errorf("record output: %w", err), &elapsed); ferr != nil {
			return fmt.Errorf("complete execution: %w", err)
		}
		return nil
	}

	o.mirror.Execution(ctx, *done)
	o.opts.metrics.ExecutionStatus(string(models.ExecutionStatusCompleted))
	o.opts.emit(ctx, Event{Type: EventExecutionCompleted, ExecutionID: executionID, AgentID: e.AgentID, Message: elapsed})
	log.Info("execution completed", "elapsed", elapsed)
	return nil
}

func (o *ExecutionOrchestrator) fail(ctx context.Context, span trace.Span, log *logging.Logger, e models.Execution, cause error, elapsed *string) error {
	log.Warn("execution failed", "error", cause)
	span.SetStatus(codes.Error, cause.Error())

	failed, err := o.store.FailExecution(ctx, e.ID, cause.Error(), elapsed)
	if err != nil {
		log.Error("failed to record execution failure", "error", err)
		return fmt.Errorf("fail execution: %w", err)
	}

	o.mirror.Execution(ctx, *failed)
	o.opts.metrics.ExecutionStatus(string(models.ExecutionStatusFailed))
	o.opts.emit(ctx, Event{Type: EventExecutionFailed, ExecutionID: e.ID, AgentID: e.AgentID, Error: cause})
	return nil
}
