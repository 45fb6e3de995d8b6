// Package llm provides text-in/text-out LLM completions behind a
// provider-neutral interface, plus the runner that executes agents.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Role identifies the speaker of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int64
}

// CompletionResponse is the text produced by the model plus token usage.
type CompletionResponse struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Completer performs chat completions.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return f(ctx, req)
}

// ErrEmptyConversation is returned when a request carries no user or assistant turn.
var ErrEmptyConversation = errors.New("completion request has no messages")

// splitSystem separates system turns from the conversation. Multiple system
// turns are joined with blank lines.
func splitSystem(msgs []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
