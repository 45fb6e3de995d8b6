package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ShayCichocki/agentsmith/internal/architect"
	"github.com/ShayCichocki/agentsmith/internal/cache"
	"github.com/ShayCichocki/agentsmith/internal/llm"
	"github.com/ShayCichocki/agentsmith/internal/llm/llmtest"
	"github.com/ShayCichocki/agentsmith/internal/state"
	"github.com/ShayCichocki/agentsmith/internal/telemetry"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

const coderJSON = `{"agent_type": "CODER", "reasoning": "needs code", "suggested_name": "Sorter", "description": "Sorts lists", "custom_prompt_additions": ""}`

// recordingQueue captures jobs instead of running them.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.jobs...)
}

type harness struct {
	db      *state.DB
	mirror  *cache.Mirror
	queue   *recordingQueue
	metrics *telemetry.Metrics
	events  *eventLog
	spans   *tracetest.InMemoryExporter
	tasks   *TaskOrchestrator
	execs   *ExecutionOrchestrator
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func newHarness(t *testing.T, completer llm.Completer) *harness {
	t.Helper()

	db, err := state.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	mem := cache.NewMemoryCache(100, time.Hour)
	t.Cleanup(func() { mem.Close() })

	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	h := &harness{
		db:      db,
		mirror:  cache.NewMirror(mem, time.Hour, nil),
		queue:   &recordingQueue{},
		metrics: telemetry.NewMetrics(),
		events:  &eventLog{},
		spans:   spans,
	}
	opts := []Option{
		WithMetrics(h.metrics),
		WithEventSink(h.events.add),
		WithTracer(tp.Tracer("test")),
	}

	synth := architect.NewSynthesizer(completer, "test-model")
	runner := llm.NewRunner(completer)
	h.tasks = NewTaskOrchestrator(db, synth, runner, h.mirror, h.queue, opts...)
	h.execs = NewExecutionOrchestrator(db, runner, h.mirror, h.queue, opts...)
	return h
}

// assertTaskCounts compares agentsmith_tasks_total against want.
func assertTaskCounts(t *testing.T, m *telemetry.Metrics, want map[string]int) {
	t.Helper()
	statuses := make([]string, 0, len(want))
	for s := range want {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	var b strings.Builder
	b.WriteString("# HELP agentsmith_tasks_total Tasks that reached a status, by status.\n")
	b.WriteString("# TYPE agentsmith_tasks_total counter\n")
	for _, s := range statuses {
		fmt.Fprintf(&b, "agentsmith_tasks_total{status=%q} %d\n", s, want[s])
	}
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(b.String()), "agentsmith_tasks_total"))
}

// isClassification reports whether req is the architect call.
func isClassification(req llm.CompletionRequest) bool {
	return len(req.Messages) == 2 && strings.Contains(req.Messages[1].Content, `"agent_type"`)
}

func TestTaskOrchestrator_Submit(t *testing.T) {
	h := newHarness(t, llmtest.New())
	ctx := context.Background()

	task, err := h.tasks.Submit(ctx, "u1", "Write a Python function to sort a list", map[string]any{"priority": "high"})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Nil(t, task.CreatedAgentID)
	assert.Equal(t, []Job{{Kind: JobTask, ID: task.ID}}, h.queue.Jobs())

	stored, err := h.db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "high", stored.Metadata["priority"])

	snap, ok, err := h.mirror.TaskSnapshot(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pending", snap.Status)
}

func TestTaskOrchestrator_SubmitSurvivesEnqueueFailure(t *testing.T) {
	h := newHarness(t, llmtest.New())
	h.queue.err = ErrDispatcherClosed

	task, err := h.tasks.Submit(context.Background(), "u1", "Summarise the quarterly report", nil)
	require.NoError(t, err)

	ids, err := h.db.PendingTaskIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, ids)
}

func TestTaskOrchestrator_Process(t *testing.T) {
	fake := llmtest.New(llmtest.Text(coderJSON), llmtest.Text("def sort(xs): return sorted(xs)"))
	h := newHarness(t, fake)
	ctx := context.Background()

	task, err := h.tasks.Submit(ctx, "u1", "Write a Python function to sort a list", nil)
	require.NoError(t, err)
	require.NoError(t, h.tasks.Process(ctx, task.ID))

	done, err := h.db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)
	require.NotNil(t, done.CreatedAgentID)
	assert.Nil(t, done.Error)

	assert.Equal(t, *done.CreatedAgentID, done.Result["agent_id"])
	assert.Equal(t, "Sorter", done.Result["agent_name"])
	assert.Equal(t, "coder", done.Result["agent_type"])
	assert.Equal(t, "def sort(xs): return sorted(xs)", done.Result["output"])
	config, ok := done.Result["config"].(map[string]any)
	require.True(t, ok, "config = %T", done.Result["config"])
	assert.Equal(t, "needs code", config["reasoning"])

	agent, err := h.db.GetAgent(ctx, *done.CreatedAgentID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchetypeCoder, agent.Archetype)
	assert.Equal(t, "u1", agent.OwnerID)
	assert.Equal(t, "test-model", agent.Model)
	assert.True(t, strings.HasSuffix(agent.SystemPrompt, "\n\nCurrent Task Focus: Write a Python function to sort a list"))

	// The run call uses the synthesized agent.
	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, agent.SystemPrompt, reqs[1].Messages[0].Content)
	assert.Equal(t, "Write a Python function to sort a list", reqs[1].Messages[1].Content)

	snap, ok, err := h.mirror.TaskSnapshot(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "completed", snap.Status)
	assert.Equal(t, "def sort(xs): return sorted(xs)", snap.Result["output"])

	assert.Equal(t, []EventType{
		EventTaskQueued, EventTaskStarted, EventTaskClassified, EventAgentCreated, EventTaskCompleted,
	}, h.events.types())
	assertTaskCounts(t, h.metrics, map[string]int{"pending": 1, "processing": 1, "completed": 1})
}

func TestTaskOrchestrator_ProcessFallback(t *testing.T) {
	fake := llmtest.New(llmtest.Text("I would pick a coder, probably."), llmtest.Text("done"))
	h := newHarness(t, fake)
	ctx := context.Background()

	task, err := h.tasks.Submit(ctx, "u1", "Plan a team offsite", nil)
	require.NoError(t, err)
	require.NoError(t, h.tasks.Process(ctx, task.ID))

	done, err := h.db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)
	assert.Equal(t, "custom", done.Result["agent_type"])
	assert.Equal(t, "Custom Agent", done.Result["agent_name"])

	agent, err := h.db.GetAgent(ctx, *done.CreatedAgentID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchetypeCustom, agent.Archetype)
	assert.Equal(t, true, agent.Metadata["classification_fallback"])

	expected := "# HELP agentsmith_classification_fallbacks_total Classifications that fell back to the custom archetype because the model output was unparseable.\n" +
		"# TYPE agentsmith_classification_fallbacks_total counter\n" +
		"agentsmith_classification_fallbacks_total 1\n"
	assert.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected),
		"agentsmith_classification_fallbacks_total"))
}

func TestTaskOrchestrator_ClassificationFailure(t *testing.T) {
	fake := llmtest.New(llmtest.Fail(errors.New("upstream 503")))
	h := newHarness(t, fake)
	ctx := context.Background()

	task, err := h.tasks.Submit(ctx, "u1", "Review this pull request", nil)
	require.NoError(t, err)
	require.NoError(t, h.tasks.Process(ctx, task.ID))

	failed, err := h.db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, failed.Status)
	assert.Nil(t, failed.CreatedAgentID)
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "classification failed")
	assert.Contains(t, *failed.Error, "upstream 503")
	assert.Nil(t, failed.Result)

	agents, err := h.db.ListAgents(ctx, state.AgentFilter{})
	require.NoError(t, err)
	assert.Empty(t, agents)

	snap, ok, err := h.mirror.TaskSnapshot(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "failed", snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, *failed.Error, *snap.Error)
	assert.Equal(t, EventTaskFailed, h.events.types()[len(h.events.types())-1])
}

func TestTaskOrchestrator_RunFailureKeepsAgent(t *testing.T) {
	timeout := fmt.Errorf("%w after 2m0s: context deadline exceeded", llm.ErrTimeout)
	fake := llmtest.New(llmtest.Text(coderJSON), llmtest.Fail(timeout))
	h := newHarness(t, fake)
	ctx := context.Background()

	task, err := h.tasks.Submit(ctx, "u1", "Write a Python function to sort a list", nil)
	require.NoError(t, err)
	require.NoError(t, h.tasks.Process(ctx, task.ID))

	failed, err := h.db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, timeout.Error(), *failed.Error)

	// The agent was durable before the run failed, so the task points at it.
	require.NotNil(t, failed.CreatedAgentID)
	_, err = h.db.GetAgent(ctx, *failed.CreatedAgentID)
	assert.NoError(t, err)
}

func TestTaskOrchestrator_ProcessUnknownTask(t *testing.T) {
	h := newHarness(t, llmtest.New())

	err := h.tasks.Process(context.Background(), "missing")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestTaskOrchestrator_ConcurrentProcessRunsOnce(t *testing.T) {
	fake := llmtest.NewFunc(func(req llm.CompletionRequest) llmtest.Reply {
		if isClassification(req) {
			return llmtest.Reply{Text: coderJSON, Delay: 20 * time.Millisecond}
		}
		return llmtest.Text("output")
	})
	h := newHarness(t, fake)
	ctx := context.Background()

	task, err := h.tasks.Submit(ctx, "u1", "Write a Python function to sort a list", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = h.tasks.Process(ctx, task.ID)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 2, fake.Calls(), "one classification and one run")

	agents, err := h.db.ListAgents(ctx, state.AgentFilter{})
	require.NoError(t, err)
	assert.Len(t, agents, 1)
}

func TestTaskOrchestrator_ProcessRecordsSpan(t *testing.T) {
	fake := llmtest.New(llmtest.Text(coderJSON), llmtest.Text("ok"))
	h := newHarness(t, fake)
	ctx := context.Background()

	task, err := h.tasks.Submit(ctx, "u1", "Write a Python function to sort a list", nil)
	require.NoError(t, err)
	require.NoError(t, h.tasks.Process(ctx, task.ID))

	var found bool
	for _, span := range h.spans.GetSpans() {
		if span.Name != "task.process" {
			continue
		}
		found = true
		var names []string
		for _, ev := range span.Events {
			names = append(names, ev.Name)
		}
		assert.Equal(t, []string{"task_started", "task_classified", "agent_created", "task_completed"}, names)
	}
	assert.True(t, found, "task.process span not recorded")
}

func mustCreateAgent(t *testing.T, db *state.DB, id string) *models.Agent {
	t.Helper()
	a := &models.Agent{
		ID:           id,
		OwnerID:      "u1",
		Name:         "Analyst",
		Archetype:    models.ArchetypeAnalyst,
		SystemPrompt: "You analyse data.",
		Capabilities: []string{"statistics"},
		Model:        "test-model",
		Temperature:  "0.3",
		MaxTokens:    "1500",
	}
	require.NoError(t, db.CreateAgent(context.Background(), a))
	return a
}

var elapsedPattern = regexp.MustCompile(`^\d+\.\d{2}s$`)

func TestExecutionOrchestrator_SubmitUnknownAgent(t *testing.T) {
	h := newHarness(t, llmtest.New())
	ctx := context.Background()

	_, err := h.execs.Submit(ctx, "u1", "nope", "hello", nil)
	assert.ErrorIs(t, err, ErrAgentNotFound)

	execs, err := h.db.ListExecutions(ctx, state.ExecutionFilter{})
	require.NoError(t, err)
	assert.Empty(t, execs)
	assert.Empty(t, h.queue.Jobs())
}

func TestExecutionOrchestrator_Process(t *testing.T) {
	fake := llmtest.New(llmtest.Text("revenue grew 12%"))
	h := newHarness(t, fake)
	ctx := context.Background()
	agent := mustCreateAgent(t, h.db, "a1")

	e, err := h.execs.Submit(ctx, "u1", agent.ID, "Summarise Q3", map[string]any{"source": "cli"})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, e.Status)
	assert.Equal(t, []Job{{Kind: JobExecution, ID: e.ID}}, h.queue.Jobs())

	require.NoError(t, h.execs.Process(ctx, e.ID))

	done, err := h.db.GetExecution(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, done.Status)
	require.NotNil(t, done.Output)
	assert.Equal(t, "revenue grew 12%", *done.Output)
	require.NotNil(t, done.ExecutionTime)
	assert.Regexp(t, elapsedPattern, *done.ExecutionTime)
	assert.NotNil(t, done.CompletedAt)
	assert.Nil(t, done.Error)

	req := fake.Requests()[0]
	assert.Equal(t, "test-model", req.Model)
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	assert.Equal(t, int64(1500), req.MaxTokens)
	assert.Equal(t, "You analyse data.", req.Messages[0].Content)

	snap, ok, err := h.mirror.ExecutionSnapshot(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "completed", snap.Status)
	require.NotNil(t, snap.Output)
	assert.Equal(t, "revenue grew 12%", *snap.Output)
}

func TestExecutionOrchestrator_ProcessFailure(t *testing.T) {
	fake := llmtest.New(llmtest.Fail(errors.New("rate limited")))
	h := newHarness(t, fake)
	ctx := context.Background()
	agent := mustCreateAgent(t, h.db, "a1")

	e, err := h.execs.Submit(ctx, "u1", agent.ID, "Summarise Q3", nil)
	require.NoError(t, err)
	require.NoError(t, h.execs.Process(ctx, e.ID))

	failed, err := h.db.GetExecution(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "rate limited", *failed.Error)
	assert.Nil(t, failed.Output)
	assert.NotNil(t, failed.CompletedAt)

	snap, ok, err := h.mirror.ExecutionSnapshot(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "failed", snap.Status)
}

func TestExecutionOrchestrator_ProcessTwice(t *testing.T) {
	fake := llmtest.New(llmtest.Text("once"))
	h := newHarness(t, fake)
	ctx := context.Background()
	agent := mustCreateAgent(t, h.db, "a1")

	e, err := h.execs.Submit(ctx, "u1", agent.ID, "go", nil)
	require.NoError(t, err)
	require.NoError(t, h.execs.Process(ctx, e.ID))
	require.NoError(t, h.execs.Process(ctx, e.ID))
	assert.Equal(t, 1, fake.Calls())
}

var errLocked = errors.New("database is locked")

// flakyStore rejects result writes, and terminal failure writes when
// failToo is set.
type flakyStore struct {
	*state.DB
	failToo bool
}

func (s *flakyStore) CompleteTask(context.Context, string, string, map[string]any) (*models.Task, error) {
	return nil, errLocked
}

func (s *flakyStore) FailTask(ctx context.Context, id string, agentID *string, msg string) (*models.Task, error) {
	if s.failToo {
		return nil, errLocked
	}
	return s.DB.FailTask(ctx, id, agentID, msg)
}

func (s *flakyStore) CompleteExecution(context.Context, string, string, string) (*models.Execution, error) {
	return nil, errLocked
}

func (s *flakyStore) FailExecution(ctx context.Context, id, msg string, elapsed *string) (*models.Execution, error) {
	if s.failToo {
		return nil, errLocked
	}
	return s.DB.FailExecution(ctx, id, msg, elapsed)
}

func TestTaskOrchestrator_ResultWriteFailureFailsTask(t *testing.T) {
	fake := llmtest.New(llmtest.Text(coderJSON), llmtest.Text("done"))
	h := newHarness(t, fake)
	ctx := context.Background()

	store := &flakyStore{DB: h.db}
	synth := architect.NewSynthesizer(fake, "test-model")
	tasks := NewTaskOrchestrator(store, synth, llm.NewRunner(fake), h.mirror, h.queue, WithEventSink(h.events.add))

	task, err := tasks.Submit(ctx, "u1", "Write a Python function to sort a list", nil)
	require.NoError(t, err)
	require.NoError(t, tasks.Process(ctx, task.ID))

	failed, err := h.db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "database is locked")
	require.NotNil(t, failed.CreatedAgentID)
	_, err = h.db.GetAgent(ctx, *failed.CreatedAgentID)
	assert.NoError(t, err)

	snap, ok, err := h.mirror.TaskSnapshot(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "failed", snap.Status)

	types := h.events.types()
	assert.Equal(t, EventTaskFailed, types[len(types)-1])
}

func TestTaskOrchestrator_TerminalWriteFailureReturnsError(t *testing.T) {
	fake := llmtest.New(llmtest.Text(coderJSON), llmtest.Text("done"))
	h := newHarness(t, fake)
	ctx := context.Background()

	store := &flakyStore{DB: h.db, failToo: true}
	synth := architect.NewSynthesizer(fake, "test-model")
	tasks := NewTaskOrchestrator(store, synth, llm.NewRunner(fake), h.mirror, h.queue)

	task, err := tasks.Submit(ctx, "u1", "Write a Python function to sort a list", nil)
	require.NoError(t, err)

	err = tasks.Process(ctx, task.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errLocked)
}

func TestExecutionOrchestrator_OutputWriteFailureFailsExecution(t *testing.T) {
	fake := llmtest.New(llmtest.Text("revenue grew 12%"))
	h := newHarness(t, fake)
	ctx := context.Background()
	agent := mustCreateAgent(t, h.db, "a1")

	store := &flakyStore{DB: h.db}
	execs := NewExecutionOrchestrator(store, llm.NewRunner(fake), h.mirror, h.queue)

	e, err := execs.Submit(ctx, "u1", agent.ID, "Summarise Q3", nil)
	require.NoError(t, err)
	require.NoError(t, execs.Process(ctx, e.ID))

	failed, err := h.db.GetExecution(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "database is locked")
	require.NotNil(t, failed.ExecutionTime)
	assert.Regexp(t, elapsedPattern, *failed.ExecutionTime)

	snap, ok, err := h.mirror.ExecutionSnapshot(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "failed", snap.Status)
}

func TestExecutionOrchestrator_TerminalWriteFailureReturnsError(t *testing.T) {
	fake := llmtest.New(llmtest.Text("out"))
	h := newHarness(t, fake)
	ctx := context.Background()
	agent := mustCreateAgent(t, h.db, "a1")

	store := &flakyStore{DB: h.db, failToo: true}
	execs := NewExecutionOrchestrator(store, llm.NewRunner(fake), h.mirror, h.queue)

	e, err := execs.Submit(ctx, "u1", agent.ID, "Summarise Q3", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, execs.Process(ctx, e.ID), errLocked)
}
