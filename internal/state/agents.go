package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// AgentFilter narrows ListAgents. Zero values match everything.
type AgentFilter struct {
	OwnerID   string
	Archetype models.Archetype
	Offset    int
	Limit     int
}

const agentColumns = `id, user_id, name, agent_type, description, system_prompt, capabilities,
	model, temperature, max_tokens, metadata, created_at, updated_at`

// CreateAgent inserts a new agent. Zero timestamps are set to now.
func (db *DB) CreateAgent(ctx context.Context, a *models.Agent) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}

	caps, err := json.Marshal(nonNilStrings(a.Capabilities))
	if err != nil {
		return fmt.Errorf("encode capabilities: %w", err)
	}
	meta, err := encodeJSON(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode agent metadata: %w", err)
	}

	_, err = db.exec(ctx, `
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.OwnerID, a.Name, string(a.Archetype), a.Description, a.SystemPrompt, string(caps),
		a.Model, a.Temperature, a.MaxTokens, meta, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID.
func (db *DB) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	row := db.queryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// ListAgents lists agents newest first.
func (db *DB) ListAgents(ctx context.Context, f AgentFilter) ([]models.Agent, error) {
	var where []string
	var args []any
	if f.OwnerID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Archetype != "" {
		where = append(where, "agent_type = ?")
		args = append(args, string(f.Archetype))
	}

	offset, limit := page(f.Offset, f.Limit)
	q := `SELECT ` + agentColumns + ` FROM agents` + whereClause(where) +
		` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	agents := []models.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

// UpdateAgent overwrites an agent's mutable fields and stamps UpdatedAt.
func (db *DB) UpdateAgent(ctx context.Context, a *models.Agent) error {
	a.UpdatedAt = time.Now().UTC()

	caps, err := json.Marshal(nonNilStrings(a.Capabilities))
	if err != nil {
		return fmt.Errorf("encode capabilities: %w", err)
	}
	meta, err := encodeJSON(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode agent metadata: %w", err)
	}

	res, err := db.exec(ctx, `
		UPDATE agents SET name = ?, agent_type = ?, description = ?, system_prompt = ?, capabilities = ?,
			model = ?, temperature = ?, max_tokens = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`, a.Name, string(a.Archetype), a.Description, a.SystemPrompt, string(caps),
		a.Model, a.Temperature, a.MaxTokens, meta, formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return requireOneRow(res, "update agent")
}

// DeleteAgent removes an agent and, by cascade, its executions.
// Tasks that created it keep their row with the reference cleared.
func (db *DB) DeleteAgent(ctx context.Context, id string) error {
	res, err := db.exec(ctx, "DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	return requireOneRow(res, "delete agent")
}

func scanAgent(s scanner) (*models.Agent, error) {
	var a models.Agent
	var archetype, caps, createdAt, updatedAt string
	var meta sql.NullString
	err := s.Scan(&a.ID, &a.OwnerID, &a.Name, &archetype, &a.Description, &a.SystemPrompt, &caps,
		&a.Model, &a.Temperature, &a.MaxTokens, &meta, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Archetype = models.Archetype(archetype)
	if err := json.Unmarshal([]byte(caps), &a.Capabilities); err != nil {
		return nil, fmt.Errorf("decode capabilities: %w", err)
	}
	if a.Metadata, err = decodeMap(meta); err != nil {
		return nil, fmt.Errorf("decode agent metadata: %w", err)
	}
	a.CreatedAt, _ = parseTime(createdAt)
	a.UpdatedAt, _ = parseTime(updatedAt)
	return &a, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// requireOneRow maps "no row matched" onto ErrNotFound.
func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: get rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
