package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig contains configuration for a Gemini-backed Completer.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
}

// GeminiClient completes messages with Google Gemini.
type GeminiClient struct {
	client  *genai.Client
	tracker *TokenTracker
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is not set")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, tracker: NewTokenTracker()}, nil
}

// Tracker returns the token tracker for this client.
func (c *GeminiClient) Tracker() *TokenTracker {
	return c.tracker
}

// Complete sends one GenerateContent call.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	contents, genCfg, err := geminiRequest(req)
	if err != nil {
		return CompletionResponse{}, err
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, genCfg)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("gemini generate content: %w", err)
	}

	out := CompletionResponse{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		out.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	c.tracker.Add(out.InputTokens, out.OutputTokens)
	return out, nil
}

// geminiRequest converts a request into Gemini contents. Assistant turns use
// the "model" role; the system turn becomes the system instruction.
func geminiRequest(req CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	system, turns := splitSystem(req.Messages)
	if len(turns) == 0 {
		return nil, nil, ErrEmptyConversation
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return contents, cfg, nil
}
