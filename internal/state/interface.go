package state

import (
	"context"
	"io"

	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// TaskStore handles task persistence and the task status machine.
type TaskStore interface {
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error)
	ClaimTask(ctx context.Context, id string) (*models.Task, error)
	CompleteTask(ctx context.Context, id, agentID string, result map[string]any) (*models.Task, error)
	FailTask(ctx context.Context, id string, agentID *string, msg string) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// AgentStore handles agent persistence.
type AgentStore interface {
	CreateAgent(ctx context.Context, a *models.Agent) error
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	ListAgents(ctx context.Context, f AgentFilter) ([]models.Agent, error)
	UpdateAgent(ctx context.Context, a *models.Agent) error
	DeleteAgent(ctx context.Context, id string) error
}

// ExecutionStore handles execution persistence and the execution status machine.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, e *models.Execution) error
	GetExecution(ctx context.Context, id string) (*models.Execution, error)
	ListExecutions(ctx context.Context, f ExecutionFilter) ([]models.Execution, error)
	ClaimExecution(ctx context.Context, id string) (*models.Execution, error)
	CompleteExecution(ctx context.Context, id, output, elapsed string) (*models.Execution, error)
	FailExecution(ctx context.Context, id, msg string, elapsed *string) (*models.Execution, error)
	DeleteExecution(ctx context.Context, id string) error
}

// Recoverer finds work abandoned by a previous process.
type Recoverer interface {
	FailInterrupted(ctx context.Context, msg string) (RecoveryReport, error)
	PendingTaskIDs(ctx context.Context) ([]string, error)
	PendingExecutionIDs(ctx context.Context) ([]string, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store is everything the service needs from persistence.
// It composes focused sub-interfaces so consumers can depend on less.
type Store interface {
	io.Closer
	Migrator
	Recoverer
	TaskStore
	AgentStore
	ExecutionStore
	Ping(ctx context.Context) error
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store          = (*DB)(nil)
	_ Migrator       = (*DB)(nil)
	_ Recoverer      = (*DB)(nil)
	_ TaskStore      = (*DB)(nil)
	_ AgentStore     = (*DB)(nil)
	_ ExecutionStore = (*DB)(nil)
)
