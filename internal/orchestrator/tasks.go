package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ShayCichocki/agentsmith/internal/architect"
	"github.com/ShayCichocki/agentsmith/internal/cache"
	"github.com/ShayCichocki/agentsmith/internal/llm"
	"github.com/ShayCichocki/agentsmith/internal/logging"
	"github.com/ShayCichocki/agentsmith/internal/state"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// TaskStore is the persistence the task pipeline needs.
type TaskStore interface {
	state.TaskStore
	state.AgentStore
}

// TaskOrchestrator turns submitted tasks into agents and runs them.
type TaskOrchestrator struct {
	store  TaskStore
	synth  *architect.Synthesizer
	runner *llm.Runner
	mirror *cache.Mirror
	queue  Enqueuer

	opts options
	log  *logging.Logger
}

// NewTaskOrchestrator creates a task orchestrator.
func NewTaskOrchestrator(store TaskStore, synth *architect.Synthesizer, runner *llm.Runner, mirror *cache.Mirror, queue Enqueuer, opts ...Option) *TaskOrchestrator {
	o := newOptions(opts)
	return &TaskOrchestrator{
		store:  store,
		synth:  synth,
		runner: runner,
		mirror: mirror,
		queue:  queue,
		opts:   o,
		log:    o.log.Component("tasks"),
	}
}

// Submit stores a pending task and enqueues it. The pending record is
// returned as soon as it is durable. If the queue refuses the job the
// task stays pending until the next Recover.
func (o *TaskOrchestrator) Submit(ctx context.Context, ownerID, description string, metadata map[string]any) (*models.Task, error) {
	task := &models.Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Description: description,
		Status:      models.TaskStatusPending,
		Metadata:    metadata,
	}
	if err := o.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("submit task: %w", err)
	}

	o.mirror.Task(ctx, *task)
	o.opts.metrics.TaskStatus(string(models.TaskStatusPending))
	o.opts.emit(ctx, Event{Type: EventTaskQueued, TaskID: task.ID})

	if err := o.queue.Enqueue(ctx, Job{Kind: JobTask, ID: task.ID}); err != nil {
		o.log.Warn("task left pending", "task_id", task.ID, "error", err)
	}
	return task, nil
}

// Process runs the pipeline for one task. Losing the claim to another
// worker is not an error. Pipeline failures, including a failed result
// write, are recorded on the task and are not returned; only a failed
// terminal write is.
func (o *TaskOrchestrator) Process(ctx context.Context, taskID string) error {
	ctx, span := o.opts.tracer.Start(ctx, "task.process",
		trace.WithAttributes(attribute.String("task.id", taskID)))
	defer span.End()

	log := o.log.WithContext(ctx).With("task_id", taskID)

	task, err := o.store.ClaimTask(ctx, taskID)
	if errors.Is(err, state.ErrAlreadyClaimed) {
		log.Debug("task already claimed")
		span.AddEvent("claim_lost")
		return nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("claim task: %w", err)
	}

	o.mirror.Task(ctx, *task)
	o.opts.metrics.TaskStatus(string(models.TaskStatusProcessing))
	o.opts.emit(ctx, Event{Type: EventTaskStarted, TaskID: taskID})
	log.Info("processing task")

	result, agentID, err := o.run(ctx, *task)
	if err != nil {
		return o.fail(ctx, span, log, taskID, agentID, err)
	}

	done, err := o.store.CompleteTask(ctx, taskID, agentID, result)
	if err != nil {
		log.Error("failed to record task completion", "error", err)
		if ferr := o.fail(ctx, span, log, taskID, agentID, fmt.Errorf("record result: %w", err)); ferr != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		return nil
	}

	o.mirror.Task(ctx, *done)
	o.opts.metrics.TaskStatus(string(models.TaskStatusCompleted))
	o.opts.emit(ctx, Event{Type: EventTaskCompleted, TaskID: taskID, AgentID: agentID})
	log.Info("task completed", "agent_id", agentID)
	return nil
}

// run classifies, persists the agent and executes it. agentID is set as
// soon as the agent is durable, even when the run then fails.
func (o *TaskOrchestrator) run(ctx context.Context, task models.Task) (result map[string]any, agentID string, err error) {
	res, err := o.synth.Classify(ctx, task.Description)
	if err != nil {
		return nil, "", err
	}
	if res.UsedFallback {
		o.opts.metrics.ClassificationFallback()
		o.log.Warn("classification unparseable, using custom template", "task_id", task.ID)
	}

	def := o.synth.BuildAgentDefinition(res, task.Description)
	o.opts.emit(ctx, Event{Type: EventTaskClassified, TaskID: task.ID, Message: string(def.Archetype)})

	agent := def.Agent(uuid.NewString(), task.OwnerID)
	if err := o.store.CreateAgent(ctx, &agent); err != nil {
		return nil, "", fmt.Errorf("create agent: %w", err)
	}
	o.opts.emit(ctx, Event{Type: EventAgentCreated, TaskID: task.ID, AgentID: agent.ID, Message: agent.Name})

	output, err := o.runner.Run(ctx, agent, task.Description)
	if err != nil {
		return nil, agent.ID, err
	}

	return models.TaskResult{
		AgentID:   agent.ID,
		AgentName: agent.Name,
		AgentType: agent.Archetype,
		Output:    output,
		Config:    res.Classification.Map(),
	}.Map(), agent.ID, nil
}

func (o *TaskOrchestrator) fail(ctx context.Context, span trace.Span, log *logging.Logger, taskID, agentID string, cause error) error {
	log.Warn("task failed", "error", cause, "agent_id", agentID)
	span.SetStatus(codes.Error, cause.Error())

	var ref *string
	if agentID != "" {
		ref = &agentID
	}

	failed, err := o.store.FailTask(ctx, taskID, ref, cause.Error())
	if err != nil {
		log.Error("failed to record task failure", "error", err)
		return fmt.Errorf("fail task: %w", err)
	}

	o.mirror.Task(ctx, *failed)
	o.opts.metrics.TaskStatus(string(models.TaskStatusFailed))
	o.opts.emit(ctx, Event{Type: EventTaskFailed, TaskID: taskID, AgentID: agentID, Error: cause})
	return nil
}
