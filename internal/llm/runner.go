package llm

import (
	"context"

	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// Runner executes a persisted agent against one input.
type Runner struct {
	completer Completer
}

// NewRunner creates a runner over the given completer.
func NewRunner(c Completer) *Runner {
	return &Runner{completer: c}
}

// Run sends the agent's system prompt and the input as one completion,
// using the agent's model, temperature and token limit.
// Errors from the completer are returned unchanged.
func (r *Runner) Run(ctx context.Context, agent models.Agent, input string) (string, error) {
	resp, err := r.completer.Complete(ctx, CompletionRequest{
		Model: agent.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: agent.SystemPrompt},
			{Role: RoleUser, Content: input},
		},
		Temperature: agent.TemperatureValue(),
		MaxTokens:   agent.MaxTokensValue(),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
