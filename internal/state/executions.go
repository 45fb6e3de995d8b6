package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// ExecutionFilter narrows ListExecutions. Zero values match everything.
type ExecutionFilter struct {
	OwnerID string
	AgentID string
	Status  models.ExecutionStatus
	Offset  int
	Limit   int
}

const executionColumns = `id, user_id, agent_id, input_data, status, output_data, error_message,
	execution_time, metadata, created_at, completed_at`

// CreateExecution inserts a new execution. The agent must exist.
func (db *DB) CreateExecution(ctx context.Context, e *models.Execution) error {
	if e.Status == "" {
		e.Status = models.ExecutionStatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	meta, err := encodeJSON(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode execution metadata: %w", err)
	}
	var completedAt sql.NullString
	if e.CompletedAt != nil {
		completedAt = sql.NullString{String: formatTime(*e.CompletedAt), Valid: true}
	}

	_, err = db.exec(ctx, `
		INSERT INTO executions (`+executionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.OwnerID, e.AgentID, e.Input, string(e.Status), nullString(e.Output), nullString(e.Error),
		nullString(e.ExecutionTime), meta, formatTime(e.CreatedAt), completedAt)
	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (db *DB) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	e, err := scanExecution(db.queryRow(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return e, nil
}

// ListExecutions lists executions newest first.
func (db *DB) ListExecutions(ctx context.Context, f ExecutionFilter) ([]models.Execution, error) {
	var where []string
	var args []any
	if f.OwnerID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.AgentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, f.AgentID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	offset, limit := page(f.Offset, f.Limit)
	q := `SELECT ` + executionColumns + ` FROM executions` + whereClause(where) +
		` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	executions := []models.Execution{}
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		executions = append(executions, *e)
	}
	return executions, rows.Err()
}

// ClaimExecution moves a pending execution to running.
func (db *DB) ClaimExecution(ctx context.Context, id string) (*models.Execution, error) {
	return db.transitionExecution(ctx, id, ErrAlreadyClaimed,
		`UPDATE executions SET status = 'running' WHERE id = ? AND status = 'pending'`, id)
}

// CompleteExecution stores the output of a running execution.
func (db *DB) CompleteExecution(ctx context.Context, id, output, elapsed string) (*models.Execution, error) {
	return db.transitionExecution(ctx, id, ErrInvalidTransition, `
		UPDATE executions SET status = 'completed', output_data = ?, execution_time = ?, completed_at = ?
		WHERE id = ? AND status = 'running'
	`, output, elapsed, formatTime(time.Now()), id)
}

// FailExecution records a failure on a pending or running execution.
// elapsed may be nil when the run never started.
func (db *DB) FailExecution(ctx context.Context, id, msg string, elapsed *string) (*models.Execution, error) {
	return db.transitionExecution(ctx, id, ErrInvalidTransition, `
		UPDATE executions SET status = 'failed', error_message = ?, execution_time = ?, completed_at = ?
		WHERE id = ? AND status IN ('pending', 'running')
	`, msg, nullString(elapsed), formatTime(time.Now()), id)
}

// DeleteExecution removes an execution.
func (db *DB) DeleteExecution(ctx context.Context, id string) error {
	res, err := db.exec(ctx, "DELETE FROM executions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete execution: %w", err)
	}
	return requireOneRow(res, "delete execution")
}

func (db *DB) transitionExecution(ctx context.Context, id string, conflict error, stmt string, args ...any) (*models.Execution, error) {
	var execution *models.Execution
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("update execution: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		row := tx.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = ?`, id)
		e, err := scanExecution(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get execution: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("execution %s is %s: %w", id, e.Status, conflict)
		}
		execution = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return execution, nil
}

func scanExecution(s scanner) (*models.Execution, error) {
	var e models.Execution
	var status, createdAt string
	var output, errMsg, elapsed, meta, completedAt sql.NullString
	err := s.Scan(&e.ID, &e.OwnerID, &e.AgentID, &e.Input, &status, &output, &errMsg,
		&elapsed, &meta, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	e.Status = models.ExecutionStatus(status)
	e.Output = stringPtr(output)
	e.Error = stringPtr(errMsg)
	e.ExecutionTime = stringPtr(elapsed)
	if e.Metadata, err = decodeMap(meta); err != nil {
		return nil, fmt.Errorf("decode execution metadata: %w", err)
	}
	e.CreatedAt, _ = parseTime(createdAt)
	e.CompletedAt = parseNullableTime(completedAt)
	return &e, nil
}
