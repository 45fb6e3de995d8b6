package models

import (
	"fmt"
	"time"
)

// ExecutionStatus represents the current state of an execution.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusCompleted, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true once the execution can no longer change.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	switch s {
	case ExecutionStatusPending:
		return next == ExecutionStatusRunning || next == ExecutionStatusFailed
	case ExecutionStatusRunning:
		return next == ExecutionStatusCompleted || next == ExecutionStatusFailed
	default:
		return false
	}
}

// Execution is one run of an existing agent against an input.
type Execution struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"user_id"`
	AgentID       string          `json:"agent_id"`
	Input         string          `json:"input_data"`
	Status        ExecutionStatus `json:"status"`
	Output        *string         `json:"output_data"`
	Error         *string         `json:"error_message"`
	ExecutionTime *string         `json:"execution_time"`
	Metadata      map[string]any  `json:"execution_metadata"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
}

// FormatElapsed renders a duration the way execution times are stored ("1.23s").
func FormatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
