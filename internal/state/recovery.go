package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecoveryReport summarises what FailInterrupted changed.
type RecoveryReport struct {
	FailedTasks      int64
	FailedExecutions int64
}

// FailInterrupted marks every processing task and running execution as
// failed with msg. Called at startup: no worker survives a restart, so
// those rows can never finish.
func (db *DB) FailInterrupted(ctx context.Context, msg string) (RecoveryReport, error) {
	var report RecoveryReport
	now := formatTime(time.Now())

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks SET status = 'failed', error_message = ?, updated_at = ?
			WHERE status = 'processing'
		`, msg, now)
		if err != nil {
			return fmt.Errorf("fail interrupted tasks: %w", err)
		}
		if report.FailedTasks, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE executions SET status = 'failed', error_message = ?, completed_at = ?
			WHERE status = 'running'
		`, msg, now)
		if err != nil {
			return fmt.Errorf("fail interrupted executions: %w", err)
		}
		if report.FailedExecutions, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	return report, err
}

// PendingTaskIDs returns every pending task, oldest first.
func (db *DB) PendingTaskIDs(ctx context.Context) ([]string, error) {
	return db.ids(ctx, `SELECT id FROM tasks WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC`)
}

// PendingExecutionIDs returns every pending execution, oldest first.
func (db *DB) PendingExecutionIDs(ctx context.Context) ([]string, error) {
	return db.ids(ctx, `SELECT id FROM executions WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC`)
}

func (db *DB) ids(ctx context.Context, q string) ([]string, error) {
	rows, err := db.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
