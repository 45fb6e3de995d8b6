package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		{Role: RoleSystem, Content: "one"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "two"},
	})
	if system != "one\n\ntwo" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 1 || rest[0].Content != "hi" {
		t.Errorf("rest = %+v", rest)
	}
}

func TestGeminiRequest(t *testing.T) {
	contents, cfg, err := geminiRequest(CompletionRequest{
		Model: "gemini-2.5-flash",
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "hi"},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("geminiRequest() error: %v", err)
	}
	if len(contents) != 2 {
		t.Fatalf("contents = %d, want 2", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("roles = %q, %q", contents[0].Role, contents[1].Role)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "be brief" {
		t.Errorf("system instruction not set: %+v", cfg.SystemInstruction)
	}
	if cfg.MaxOutputTokens != 1000 || cfg.Temperature == nil || *cfg.Temperature != float32(0.3) {
		t.Errorf("unexpected generation config: %+v", cfg)
	}
}

func TestGeminiRequest_Empty(t *testing.T) {
	if _, _, err := geminiRequest(CompletionRequest{Messages: []Message{{Role: RoleSystem, Content: "x"}}}); err != ErrEmptyConversation {
		t.Errorf("err = %v, want ErrEmptyConversation", err)
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	if got := translateModelForBedrock(anthropic.ModelClaudeSonnet4_5); got != "us.anthropic.claude-sonnet-4-5-20250929-v1:0" {
		t.Errorf("translate sonnet 4.5 = %q", got)
	}
	if got := translateModelForBedrock("custom-model"); got != "custom-model" {
		t.Errorf("unknown model should pass through, got %q", got)
	}
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Hello "}, {"type": "text", "text": "there"}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`)
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(context.Background(), AnthropicConfig{APIKey: "sk-ant-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewAnthropicClient() error: %v", err)
	}

	resp, err := client.Complete(context.Background(), CompletionRequest{
		Model: "claude-sonnet-4-5",
		Messages: []Message{
			{Role: RoleSystem, Content: "system text"},
			{Role: RoleUser, Content: "hi"},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if resp.Text != "Hello there" {
		t.Errorf("Text = %q, want %q", resp.Text, "Hello there")
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 4 {
		t.Errorf("usage = %d/%d, want 12/4", resp.InputTokens, resp.OutputTokens)
	}
	if in, out := client.Tracker().Total(); in != 12 || out != 4 {
		t.Errorf("tracker = %d/%d, want 12/4", in, out)
	}

	if got["max_tokens"] != float64(1000) || got["temperature"] != 0.3 {
		t.Errorf("request body = %v", got)
	}
	system, _ := got["system"].([]any)
	if len(system) != 1 {
		t.Errorf("system blocks = %v", got["system"])
	}
}
