// Package client talks to a running agentsmith server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ShayCichocki/agentsmith/internal/catalog"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Status is the polling view of a task or execution.
type Status struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
	Output *string        `json:"output,omitempty"`
	Error  *string        `json:"error,omitempty"`
	Source string         `json:"source"`
}

// Terminal reports whether the status will not change again.
func (s Status) Terminal() bool {
	return s.Status == "completed" || s.Status == "failed"
}

// HTTPClient talks to the agentsmith API as one user.
type HTTPClient struct {
	BaseURL string
	UserID  string
	Client  *http.Client
}

// New constructs a client.
func New(baseURL, userID string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		UserID:  userID,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SubmitTask calls POST /api/tasks.
func (c *HTTPClient) SubmitTask(ctx context.Context, description string, metadata map[string]any) (*models.Task, error) {
	var task models.Task
	body := map[string]any{"description": description, "task_metadata": metadata}
	if err := c.do(ctx, http.MethodPost, "/api/tasks", nil, body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask calls GET /api/tasks/:id.
func (c *HTTPClient) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks calls GET /api/tasks.
func (c *HTTPClient) ListTasks(ctx context.Context, skip, limit int) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", page(skip, limit), nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// TaskStatus calls GET /api/tasks/:id/status.
func (c *HTTPClient) TaskStatus(ctx context.Context, id string) (Status, error) {
	var s Status
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/status", nil, nil, &s)
	return s, err
}

// ListAgents calls GET /api/agents, optionally filtered by archetype.
func (c *HTTPClient) ListAgents(ctx context.Context, agentType string, skip, limit int) ([]models.Agent, error) {
	q := page(skip, limit)
	if agentType != "" {
		q.Set("agent_type", agentType)
	}
	var agents []models.Agent
	if err := c.do(ctx, http.MethodGet, "/api/agents", q, nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAgent calls GET /api/agents/:id.
func (c *HTTPClient) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var agent models.Agent
	if err := c.do(ctx, http.MethodGet, "/api/agents/"+url.PathEscape(id), nil, nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// CreateFromTemplate calls POST /api/agents/create-from-template.
func (c *HTTPClient) CreateFromTemplate(ctx context.Context, agentType, name, description string) (*models.Agent, error) {
	q := url.Values{"agent_type": {agentType}, "name": {name}}
	if description != "" {
		q.Set("description", description)
	}
	var agent models.Agent
	if err := c.do(ctx, http.MethodPost, "/api/agents/create-from-template", q, nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// DeleteAgent calls DELETE /api/agents/:id.
func (c *HTTPClient) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/agents/"+url.PathEscape(id), nil, nil, nil)
}

// RunAgent calls POST /api/executions.
func (c *HTTPClient) RunAgent(ctx context.Context, agentID, input string, metadata map[string]any) (*models.Execution, error) {
	var e models.Execution
	body := map[string]any{"agent_id": agentID, "input_data": input, "execution_metadata": metadata}
	if err := c.do(ctx, http.MethodPost, "/api/executions", nil, body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExecution calls GET /api/executions/:id.
func (c *HTTPClient) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	var e models.Execution
	if err := c.do(ctx, http.MethodGet, "/api/executions/"+url.PathEscape(id), nil, nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ExecutionStatus calls GET /api/executions/:id/status.
func (c *HTTPClient) ExecutionStatus(ctx context.Context, id string) (Status, error) {
	var s Status
	err := c.do(ctx, http.MethodGet, "/api/executions/"+url.PathEscape(id)+"/status", nil, nil, &s)
	return s, err
}

// Templates calls GET /api/templates.
func (c *HTTPClient) Templates(ctx context.Context) ([]catalog.Template, error) {
	var templates []catalog.Template
	if err := c.do(ctx, http.MethodGet, "/api/templates", nil, nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// Health calls GET /health and returns the decoded body.
func (c *HTTPClient) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out)
	return out, err
}

func page(skip, limit int) url.Values {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// do sends one request and decodes the JSON reply into out when non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint, err := c.resolve(path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	c.applyHeaders(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(raw, &detail) == nil && detail.Detail != "" {
			apiErr.Detail = detail.Detail
		} else {
			apiErr.Detail = string(bytes.TrimSpace(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) resolve(path string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}

func (c *HTTPClient) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.UserID != "" {
		req.Header.Set("X-User-ID", c.UserID)
	}
}
