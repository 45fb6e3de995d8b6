// Package architect turns a free-text task into an agent definition: it asks
// the LLM to classify the task, then fills in the matching template.
package architect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/agentsmith/internal/catalog"
	"github.com/ShayCichocki/agentsmith/internal/llm"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// ErrClassification wraps LLM failures during Classify.
var ErrClassification = errors.New("classification failed")

// Classification parameters.
const (
	classifyTemperature = 0.3
	classifyMaxTokens   = 1000
)

// fallbackReasoning marks a classification that could not be parsed.
const fallbackReasoning = "unable to parse recommendation"

// Classification is the LLM's recommendation for a task.
type Classification struct {
	AgentType             string `json:"agent_type"`
	Reasoning             string `json:"reasoning"`
	SuggestedName         string `json:"suggested_name"`
	Description           string `json:"description"`
	CustomPromptAdditions string `json:"custom_prompt_additions"`
}

// Map returns the classification as a generic object for task results.
func (c Classification) Map() map[string]any {
	return map[string]any{
		"agent_type":              c.AgentType,
		"reasoning":               c.Reasoning,
		"suggested_name":          c.SuggestedName,
		"description":             c.Description,
		"custom_prompt_additions": c.CustomPromptAdditions,
	}
}

// ClassificationResult carries a classification and how it was obtained.
type ClassificationResult struct {
	Classification Classification
	// UsedFallback is true when the model output could not be parsed.
	UsedFallback bool
	// Raw is the model's text as received.
	Raw string
}

// AgentDefinition is everything needed to persist a new agent.
type AgentDefinition struct {
	Name         string
	Archetype    models.Archetype
	Description  string
	SystemPrompt string
	Capabilities []string
	Temperature  float64
	MaxTokens    int
	Model        string
	Metadata     map[string]any
}

// Agent converts the definition into a storable agent.
func (d AgentDefinition) Agent(id, ownerID string) models.Agent {
	return models.Agent{
		ID:           id,
		OwnerID:      ownerID,
		Name:         d.Name,
		Archetype:    d.Archetype,
		Description:  d.Description,
		SystemPrompt: d.SystemPrompt,
		Capabilities: d.Capabilities,
		Model:        d.Model,
		Temperature:  models.FormatTemperature(d.Temperature),
		MaxTokens:    models.FormatMaxTokens(d.MaxTokens),
		Metadata:     d.Metadata,
	}
}

// Synthesizer classifies tasks and builds agent definitions.
type Synthesizer struct {
	completer llm.Completer
	model     string
}

// NewSynthesizer creates a synthesizer. model is used both for the
// classification call and for the agents it defines.
func NewSynthesizer(c llm.Completer, model string) *Synthesizer {
	return &Synthesizer{completer: c, model: model}
}

// Model returns the model assigned to new agents.
func (s *Synthesizer) Model() string {
	return s.model
}

// Classify asks the model which archetype suits description. Unparseable
// output yields the fallback classification, never an error; only a failed
// LLM call returns one, wrapped in ErrClassification.
func (s *Synthesizer) Classify(ctx context.Context, description string) (ClassificationResult, error) {
	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: analysisPrompt(description)},
		},
		Temperature: classifyTemperature,
		MaxTokens:   classifyMaxTokens,
	})
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	c, ok := ParseClassification(resp.Text)
	if !ok {
		return ClassificationResult{
			Classification: Fallback(description),
			UsedFallback:   true,
			Raw:            resp.Text,
		}, nil
	}
	return ClassificationResult{Classification: c, Raw: resp.Text}, nil
}

// ParseClassification decodes model output: first as a whole, then the
// span between the first '{' and the last '}'.
func ParseClassification(text string) (Classification, bool) {
	text = strings.TrimSpace(text)

	var c Classification
	if err := json.Unmarshal([]byte(text), &c); err == nil {
		return c, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return Classification{}, false
	}

	c = Classification{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &c); err != nil {
		return Classification{}, false
	}
	return c, true
}

// Fallback is the classification used when the model output is unusable.
func Fallback(description string) Classification {
	return Classification{
		AgentType:     strings.ToUpper(string(models.ArchetypeCustom)),
		Reasoning:     fallbackReasoning,
		SuggestedName: "Custom Agent",
		Description:   description,
	}
}

// BuildAgentDefinition fills the archetype's template from a classification.
// Unknown archetypes use the custom template.
func (s *Synthesizer) BuildAgentDefinition(res ClassificationResult, description string) AgentDefinition {
	c := res.Classification

	archetype, ok := models.ParseArchetype(c.AgentType)
	if !ok {
		archetype = models.ArchetypeCustom
	}
	tmpl := catalog.Lookup(archetype)

	prompt := tmpl.SystemPrompt
	if c.CustomPromptAdditions != "" {
		prompt += "\n\nAdditional Context:\n" + c.CustomPromptAdditions
	}
	prompt += "\n\nCurrent Task Focus: " + description

	name := c.SuggestedName
	if name == "" {
		name = archetype.Title() + " Agent"
	}
	desc := c.Description
	if desc == "" {
		desc = description
	}

	return AgentDefinition{
		Name:         name,
		Archetype:    archetype,
		Description:  desc,
		SystemPrompt: prompt,
		Capabilities: tmpl.Capabilities,
		Temperature:  tmpl.Temperature,
		MaxTokens:    tmpl.MaxTokens,
		Model:        s.model,
		Metadata: map[string]any{
			"created_from_task":       description,
			"reasoning":               c.Reasoning,
			"classification_fallback": res.UsedFallback,
		},
	}
}
