package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/agentsmith/internal/logging"
	"github.com/ShayCichocki/agentsmith/internal/state"
)

// ErrDispatcherClosed is returned by Enqueue after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// InterruptedMessage is recorded on work a previous process left unfinished.
const InterruptedMessage = "interrupted: server restarted"

// JobKind selects the handler for a job.
type JobKind string

const (
	JobTask      JobKind = "task"
	JobExecution JobKind = "execution"
)

// Job is one unit of background work, identified by its row id.
type Job struct {
	Kind JobKind
	ID   string
}

// Handler processes one job. It must claim the row itself.
type Handler func(ctx context.Context, id string) error

// Enqueuer accepts jobs for background processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// DispatcherConfig sizes the queue and the worker pool.
type DispatcherConfig struct {
	// Concurrency is the number of jobs processed at once.
	Concurrency int
	// QueueSize is the number of jobs buffered before Enqueue blocks.
	QueueSize int
}

// Dispatcher is an in-process job queue drained by a bounded worker pool.
// Jobs still queued when the dispatcher closes are not lost: their rows
// stay pending and Recover picks them up on the next start.
type Dispatcher struct {
	cfg   DispatcherConfig
	queue chan Job
	stop  chan struct{}
	once  sync.Once

	mu       sync.RWMutex
	handlers map[JobKind]Handler

	opts options
	log  *logging.Logger
}

// NewDispatcher creates a dispatcher. Zero values select one worker and a
// queue of 64.
func NewDispatcher(cfg DispatcherConfig, opts ...Option) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	o := newOptions(opts)
	return &Dispatcher{
		cfg:      cfg,
		queue:    make(chan Job, cfg.QueueSize),
		stop:     make(chan struct{}),
		handlers: make(map[JobKind]Handler),
		opts:     o,
		log:      o.log.Component("dispatcher"),
	}
}

// Register sets the handler for kind, replacing any previous one.
func (d *Dispatcher) Register(kind JobKind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Enqueue adds a job, blocking while the queue is full.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-d.stop:
		return ErrDispatcherClosed
	default:
	}

	select {
	case d.queue <- job:
		d.opts.metrics.QueueDepth(len(d.queue))
		return nil
	case <-d.stop:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until Close is called or ctx is done, then waits
// for in-flight jobs. Jobs run detached from ctx: once started, a job is
// never cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	jobCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)

	d.log.Info("dispatcher started", "concurrency", d.cfg.Concurrency, "queue_size", d.cfg.QueueSize)
	defer d.log.Info("dispatcher stopped")

	for {
		select {
		case <-d.stop:
			return g.Wait()
		case <-ctx.Done():
			d.Close()
			return g.Wait()
		case job := <-d.queue:
			d.opts.metrics.QueueDepth(len(d.queue))
			g.Go(func() error {
				d.dispatch(jobCtx, job)
				return nil
			})
		}
	}
}

// Close stops intake. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.stop)
	})
}

// Pending returns the number of queued jobs.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) dispatch(ctx context.Context, job Job) {
	d.mu.RLock()
	h, ok := d.handlers[job.Kind]
	d.mu.RUnlock()
	if !ok {
		d.log.Error("no handler for job", "kind", string(job.Kind), "id", job.ID)
		return
	}

	d.opts.metrics.WorkerStarted()
	defer d.opts.metrics.WorkerFinished()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("job panicked", "kind", string(job.Kind), "id", job.ID, "panic", fmt.Sprint(r))
		}
	}()

	if err := h(ctx, job.ID); err != nil {
		d.log.Error("job failed", "kind", string(job.Kind), "id", job.ID, "error", err)
	}
}

// Recover prepares the store after a restart: FailInterrupted, then
// Requeue. It is only safe when nothing else is serving the store yet.
func (d *Dispatcher) Recover(ctx context.Context, r state.Recoverer) (state.RecoveryReport, error) {
	report, err := d.FailInterrupted(ctx, r)
	if err != nil {
		return report, err
	}
	return report, d.Requeue(ctx, r)
}

// FailInterrupted fails rows left processing or running with
// InterruptedMessage. Call it before any worker or listener starts: a
// row claimed by a live worker would be failed too.
func (d *Dispatcher) FailInterrupted(ctx context.Context, r state.Recoverer) (state.RecoveryReport, error) {
	report, err := r.FailInterrupted(ctx, InterruptedMessage)
	if err != nil {
		return report, fmt.Errorf("fail interrupted work: %w", err)
	}
	if report.FailedTasks > 0 || report.FailedExecutions > 0 {
		d.log.Warn("failed interrupted work",
			"tasks", report.FailedTasks, "executions", report.FailedExecutions)
	}
	return report, nil
}

// Requeue enqueues every pending row oldest first. Run must already be
// draining the queue when more rows are pending than the queue holds.
// Rows also enqueued by Submit run once: the second claim loses.
func (d *Dispatcher) Requeue(ctx context.Context, r state.Recoverer) error {
	taskIDs, err := r.PendingTaskIDs(ctx)
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}
	execIDs, err := r.PendingExecutionIDs(ctx)
	if err != nil {
		return fmt.Errorf("list pending executions: %w", err)
	}

	for _, id := range taskIDs {
		if err := d.Enqueue(ctx, Job{Kind: JobTask, ID: id}); err != nil {
			return fmt.Errorf("enqueue task %s: %w", id, err)
		}
	}
	for _, id := range execIDs {
		if err := d.Enqueue(ctx, Job{Kind: JobExecution, ID: id}); err != nil {
			return fmt.Errorf("enqueue execution %s: %w", id, err)
		}
	}

	if n := len(taskIDs) + len(execIDs); n > 0 {
		d.log.Info("re-enqueued pending work", "tasks", len(taskIDs), "executions", len(execIDs))
	}
	return nil
}

var _ Enqueuer = (*Dispatcher)(nil)
