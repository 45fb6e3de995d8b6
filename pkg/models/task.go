package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting for a worker.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusProcessing indicates a worker is building and running the agent.
	TaskStatusProcessing TaskStatus = "processing"
	// TaskStatusCompleted indicates the agent ran and produced a result.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the pipeline stopped with an error.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true once the task can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Pending tasks may also fail directly (recovery of abandoned work).
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusProcessing || next == TaskStatusFailed
	case TaskStatusProcessing:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	default:
		return false
	}
}

// Task is a free-text request submitted by a user.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// OwnerID identifies the submitting user.
	OwnerID string `json:"user_id"`
	// Description is the task text as submitted.
	Description string `json:"description"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// CreatedAgentID is the agent built for this task, once persisted.
	CreatedAgentID *string `json:"created_agent_id"`
	// Result holds the completed payload (agent identity, output, classification).
	Result map[string]any `json:"result"`
	// Error contains the failure message if the task failed.
	Error *string `json:"error_message"`
	// Metadata is caller-supplied and stored untouched.
	Metadata map[string]any `json:"task_metadata"`
	// CreatedAt is when the task was submitted.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskResult is the payload stored on a completed task.
type TaskResult struct {
	AgentID   string         `json:"agent_id"`
	AgentName string         `json:"agent_name"`
	AgentType Archetype      `json:"agent_type"`
	Output    string         `json:"output"`
	Config    map[string]any `json:"config"`
}

// Map converts the result into the generic form stored on the task.
func (r TaskResult) Map() map[string]any {
	return map[string]any{
		"agent_id":   r.AgentID,
		"agent_name": r.AgentName,
		"agent_type": string(r.AgentType),
		"output":     r.Output,
		"config":     r.Config,
	}
}
