package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	OwnerID string
	Status  models.TaskStatus
	Offset  int
	Limit   int
}

const taskColumns = `id, user_id, description, status, created_agent_id, result, error_message,
	metadata, created_at, updated_at`

// CreateTask inserts a new task. Empty status defaults to pending and zero
// timestamps to now.
func (db *DB) CreateTask(ctx context.Context, t *models.Task) error {
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	result, err := encodeJSON(t.Result)
	if err != nil {
		return fmt.Errorf("encode task result: %w", err)
	}
	meta, err := encodeJSON(t.Metadata)
	if err != nil {
		return fmt.Errorf("encode task metadata: %w", err)
	}

	_, err = db.exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OwnerID, t.Description, string(t.Status), nullString(t.CreatedAgentID), result,
		nullString(t.Error), meta, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(db.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks lists tasks newest first.
func (db *DB) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	var where []string
	var args []any
	if f.OwnerID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	offset, limit := page(f.Offset, f.Limit)
	q := `SELECT ` + taskColumns + ` FROM tasks` + whereClause(where) +
		` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ClaimTask moves a pending task to processing. Exactly one caller wins;
// the rest get ErrAlreadyClaimed. A missing task yields ErrNotFound.
func (db *DB) ClaimTask(ctx context.Context, id string) (*models.Task, error) {
	return db.transitionTask(ctx, id, ErrAlreadyClaimed,
		`UPDATE tasks SET status = 'processing', updated_at = ? WHERE id = ? AND status = 'pending'`,
		formatTime(time.Now()), id)
}

// CompleteTask records a successful pipeline run on a processing task.
func (db *DB) CompleteTask(ctx context.Context, id, agentID string, result map[string]any) (*models.Task, error) {
	encoded, err := encodeJSON(result)
	if err != nil {
		return nil, fmt.Errorf("encode task result: %w", err)
	}
	return db.transitionTask(ctx, id, ErrInvalidTransition, `
		UPDATE tasks SET status = 'completed', created_agent_id = ?, result = ?, error_message = NULL, updated_at = ?
		WHERE id = ? AND status = 'processing'
	`, agentID, encoded, formatTime(time.Now()), id)
}

// FailTask records a failure on a pending or processing task. agentID is
// kept when the agent was already persisted before the failure.
func (db *DB) FailTask(ctx context.Context, id string, agentID *string, msg string) (*models.Task, error) {
	return db.transitionTask(ctx, id, ErrInvalidTransition, `
		UPDATE tasks SET status = 'failed', created_agent_id = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND status IN ('pending', 'processing')
	`, nullString(agentID), msg, formatTime(time.Now()), id)
}

// DeleteTask removes a task.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	res, err := db.exec(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireOneRow(res, "delete task")
}

// transitionTask runs a conditional UPDATE and returns the updated row.
// When nothing matched it reports ErrNotFound or the given conflict error.
func (db *DB) transitionTask(ctx context.Context, id string, conflict error, stmt string, args ...any) (*models.Task, error) {
	var task *models.Task
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
		t, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("task %s is %s: %w", id, t.Status, conflict)
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func scanTask(s scanner) (*models.Task, error) {
	var t models.Task
	var status, createdAt, updatedAt string
	var agentID, result, errMsg, meta sql.NullString
	err := s.Scan(&t.ID, &t.OwnerID, &t.Description, &status, &agentID, &result, &errMsg,
		&meta, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.Status = models.TaskStatus(status)
	t.CreatedAgentID = stringPtr(agentID)
	t.Error = stringPtr(errMsg)
	if t.Result, err = decodeMap(result); err != nil {
		return nil, fmt.Errorf("decode task result: %w", err)
	}
	if t.Metadata, err = decodeMap(meta); err != nil {
		return nil, fmt.Errorf("decode task metadata: %w", err)
	}
	t.CreatedAt, _ = parseTime(createdAt)
	t.UpdatedAt, _ = parseTime(updatedAt)
	return &t, nil
}
