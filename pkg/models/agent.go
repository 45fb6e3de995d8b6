package models

import (
	"strconv"
	"time"
)

// Default generation parameters for agents created without explicit values.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// Agent is a persisted agent definition: a system prompt plus generation
// parameters, reusable across executions.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// OwnerID identifies the user the agent belongs to.
	OwnerID string `json:"user_id"`
	// Name is the display name.
	Name string `json:"name"`
	// Archetype is the template family the agent was built from.
	Archetype Archetype `json:"agent_type"`
	// Description summarises what the agent is for.
	Description string `json:"description"`
	// SystemPrompt is sent as the system turn on every execution.
	SystemPrompt string `json:"system_prompt"`
	// Capabilities are ordered tags copied from the template.
	Capabilities []string `json:"capabilities"`
	// Model is the LLM model identifier.
	Model string `json:"model"`
	// Temperature is stored as text; use TemperatureValue.
	Temperature string `json:"temperature"`
	// MaxTokens is stored as text; use MaxTokensValue.
	MaxTokens string `json:"max_tokens"`
	// Metadata records provenance (task id, reasoning).
	Metadata map[string]any `json:"agent_metadata"`
	// CreatedAt is when the agent was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the agent was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// TemperatureValue parses Temperature, falling back to DefaultTemperature.
func (a Agent) TemperatureValue() float64 {
	f, err := strconv.ParseFloat(a.Temperature, 64)
	if err != nil {
		return DefaultTemperature
	}
	return f
}

// MaxTokensValue parses MaxTokens, falling back to DefaultMaxTokens.
func (a Agent) MaxTokensValue() int64 {
	n, err := strconv.ParseInt(a.MaxTokens, 10, 64)
	if err != nil || n <= 0 {
		return DefaultMaxTokens
	}
	return n
}

// FormatTemperature renders a temperature for storage.
func FormatTemperature(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatMaxTokens renders a token limit for storage.
func FormatMaxTokens(n int) string {
	return strconv.Itoa(n)
}
