package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/agentsmith/internal/logging"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// Key helpers for the mirrored fields.
func TaskStatusKey(id string) string      { return fmt.Sprintf("task:%s:status", id) }
func TaskResultKey(id string) string      { return fmt.Sprintf("task:%s:result", id) }
func TaskErrorKey(id string) string       { return fmt.Sprintf("task:%s:error", id) }
func TaskOwnerKey(id string) string       { return fmt.Sprintf("task:%s:owner", id) }
func ExecutionStatusKey(id string) string { return fmt.Sprintf("execution:%s:status", id) }
func ExecutionOutputKey(id string) string { return fmt.Sprintf("execution:%s:output", id) }
func ExecutionErrorKey(id string) string  { return fmt.Sprintf("execution:%s:error", id) }
func ExecutionOwnerKey(id string) string  { return fmt.Sprintf("execution:%s:owner", id) }

// Snapshot is what the cache knows about one task or execution.
type Snapshot struct {
	Owner  string         `json:"owner,omitempty"`
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
	Output *string        `json:"output,omitempty"`
	Error  *string        `json:"error,omitempty"`
}

// Mirror copies task and execution state into a Cache. Writes are
// best-effort: failures are logged and never returned to the pipeline.
type Mirror struct {
	cache Cache
	ttl   time.Duration
	log   *logging.Logger
}

// NewMirror creates a mirror writing entries that live for ttl.
func NewMirror(c Cache, ttl time.Duration, log *logging.Logger) *Mirror {
	if log == nil {
		log = logging.Nop()
	}
	return &Mirror{cache: c, ttl: ttl, log: log.Component("cache")}
}

// Cache returns the underlying cache.
func (m *Mirror) Cache() Cache {
	return m.cache
}

// Task rewrites every key for t from the record. Calling it twice with the
// same record leaves the cache in the same state.
func (m *Mirror) Task(ctx context.Context, t models.Task) {
	m.set(ctx, TaskOwnerKey(t.ID), t.OwnerID)
	m.set(ctx, TaskStatusKey(t.ID), string(t.Status))
	if t.Result != nil {
		m.set(ctx, TaskResultKey(t.ID), t.Result)
	} else {
		m.del(ctx, TaskResultKey(t.ID))
	}
	if t.Error != nil {
		m.set(ctx, TaskErrorKey(t.ID), *t.Error)
	} else {
		m.del(ctx, TaskErrorKey(t.ID))
	}
}

// Execution rewrites every key for e from the record.
func (m *Mirror) Execution(ctx context.Context, e models.Execution) {
	m.set(ctx, ExecutionOwnerKey(e.ID), e.OwnerID)
	m.set(ctx, ExecutionStatusKey(e.ID), string(e.Status))
	if e.Output != nil {
		m.set(ctx, ExecutionOutputKey(e.ID), *e.Output)
	} else {
		m.del(ctx, ExecutionOutputKey(e.ID))
	}
	if e.Error != nil {
		m.set(ctx, ExecutionErrorKey(e.ID), *e.Error)
	} else {
		m.del(ctx, ExecutionErrorKey(e.ID))
	}
}

// ForgetTask removes every key for a task.
func (m *Mirror) ForgetTask(ctx context.Context, id string) {
	m.del(ctx, TaskStatusKey(id))
	m.del(ctx, TaskResultKey(id))
	m.del(ctx, TaskErrorKey(id))
	m.del(ctx, TaskOwnerKey(id))
}

// ForgetExecution removes every key for an execution.
func (m *Mirror) ForgetExecution(ctx context.Context, id string) {
	m.del(ctx, ExecutionStatusKey(id))
	m.del(ctx, ExecutionOutputKey(id))
	m.del(ctx, ExecutionErrorKey(id))
	m.del(ctx, ExecutionOwnerKey(id))
}

// TaskSnapshot reads a task's mirrored state. ok is false when no status is cached.
func (m *Mirror) TaskSnapshot(ctx context.Context, id string) (Snapshot, bool, error) {
	status, ok, err := m.cache.Get(ctx, TaskStatusKey(id))
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	snap := Snapshot{Status: string(status)}

	if raw, ok, err := m.cache.Get(ctx, TaskResultKey(id)); err != nil {
		return Snapshot{}, false, err
	} else if ok {
		if err := json.Unmarshal(raw, &snap.Result); err != nil {
			return Snapshot{}, false, fmt.Errorf("decode task result: %w", err)
		}
	}
	if snap.Error, err = m.getString(ctx, TaskErrorKey(id)); err != nil {
		return Snapshot{}, false, err
	}
	if snap.Owner, err = m.getOwner(ctx, TaskOwnerKey(id)); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// ExecutionSnapshot reads an execution's mirrored state.
func (m *Mirror) ExecutionSnapshot(ctx context.Context, id string) (Snapshot, bool, error) {
	status, ok, err := m.cache.Get(ctx, ExecutionStatusKey(id))
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	snap := Snapshot{Status: string(status)}
	if snap.Output, err = m.getString(ctx, ExecutionOutputKey(id)); err != nil {
		return Snapshot{}, false, err
	}
	if snap.Error, err = m.getString(ctx, ExecutionErrorKey(id)); err != nil {
		return Snapshot{}, false, err
	}
	if snap.Owner, err = m.getOwner(ctx, ExecutionOwnerKey(id)); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (m *Mirror) getString(ctx context.Context, key string) (*string, error) {
	raw, ok, err := m.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func (m *Mirror) getOwner(ctx context.Context, key string) (string, error) {
	owner, err := m.getString(ctx, key)
	if err != nil || owner == nil {
		return "", err
	}
	return *owner, nil
}

func (m *Mirror) set(ctx context.Context, key string, value any) {
	if err := m.cache.Set(ctx, key, value, m.ttl); err != nil {
		m.log.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

func (m *Mirror) del(ctx context.Context, key string) {
	if err := m.cache.Delete(ctx, key); err != nil {
		m.log.WarnContext(ctx, "cache delete failed", "key", key, "error", err)
	}
}
