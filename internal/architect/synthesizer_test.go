package architect

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ShayCichocki/agentsmith/internal/catalog"
	"github.com/ShayCichocki/agentsmith/internal/llm"
	"github.com/ShayCichocki/agentsmith/internal/llm/llmtest"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

const coderJSON = `{"agent_type": "CODER", "reasoning": "needs code", "suggested_name": "Python Coder", "description": "Writes Python", "custom_prompt_additions": "Use type hints"}`

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantOK   bool
		wantType string
	}{
		{"plain json", coderJSON, true, "CODER"},
		{"json with whitespace", "\n  " + coderJSON + "\n", true, "CODER"},
		{"json in prose", "Here you go:\n```json\n" + coderJSON + "\n```\nHope that helps.", true, "CODER"},
		{"no braces", "I think a coder would be best.", false, ""},
		{"broken json", `{"agent_type": "CODER",`, false, ""},
		{"braces but invalid", "{not json} and {more}", false, ""},
		{"wrong field types", `{"agent_type": 42}`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseClassification(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ParseClassification() ok = %v, want %v", ok, tt.wantOK)
			}
			if got.AgentType != tt.wantType {
				t.Errorf("AgentType = %q, want %q", got.AgentType, tt.wantType)
			}
		})
	}
}

func TestClassify_Success(t *testing.T) {
	fake := llmtest.New(llmtest.Text(coderJSON))
	s := NewSynthesizer(fake, "test-model")

	res, err := s.Classify(context.Background(), "Write a Python function to sort a list")
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if res.UsedFallback {
		t.Error("UsedFallback = true, want false")
	}
	if res.Classification.SuggestedName != "Python Coder" {
		t.Errorf("SuggestedName = %q", res.Classification.SuggestedName)
	}
	if res.Raw != coderJSON {
		t.Errorf("Raw not preserved")
	}

	req := fake.Requests()[0]
	if req.Temperature != 0.3 || req.MaxTokens != 1000 || req.Model != "test-model" {
		t.Errorf("request params = %+v", req)
	}
	if req.Messages[0].Role != llm.RoleSystem || !strings.Contains(req.Messages[0].Content, "AI agent architect") {
		t.Errorf("system turn = %+v", req.Messages[0])
	}
	user := req.Messages[1].Content
	for _, want := range []string{"Write a Python function to sort a list", "RESEARCHER", "REVIEWER", "CUSTOM", "custom_prompt_additions"} {
		if !strings.Contains(user, want) {
			t.Errorf("analysis prompt missing %q", want)
		}
	}
}

func TestClassify_FallbackOnGarbage(t *testing.T) {
	s := NewSynthesizer(llmtest.New(llmtest.Text("Sorry, I can't help with that.")), "m")

	res, err := s.Classify(context.Background(), "Plan a birthday party")
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if !res.UsedFallback {
		t.Error("UsedFallback = false, want true")
	}
	c := res.Classification
	if c.AgentType != "CUSTOM" || c.SuggestedName != "Custom Agent" || c.Description != "Plan a birthday party" {
		t.Errorf("fallback = %+v", c)
	}
	if c.Reasoning != "unable to parse recommendation" {
		t.Errorf("Reasoning = %q", c.Reasoning)
	}
}

func TestClassify_LLMErrorWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewSynthesizer(llmtest.New(llmtest.Fail(boom)), "m")

	_, err := s.Classify(context.Background(), "anything at all")
	if !errors.Is(err, ErrClassification) {
		t.Errorf("error %v does not wrap ErrClassification", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error %v does not wrap the cause", err)
	}
}

func TestBuildAgentDefinition(t *testing.T) {
	s := NewSynthesizer(nil, "test-model")
	desc := "Write a Python function to sort a list"

	c, _ := ParseClassification(coderJSON)
	def := s.BuildAgentDefinition(ClassificationResult{Classification: c}, desc)

	tmpl := catalog.Lookup(models.ArchetypeCoder)
	if def.Archetype != models.ArchetypeCoder {
		t.Errorf("Archetype = %q, want coder", def.Archetype)
	}
	wantPrompt := tmpl.SystemPrompt + "\n\nAdditional Context:\nUse type hints\n\nCurrent Task Focus: " + desc
	if def.SystemPrompt != wantPrompt {
		t.Errorf("SystemPrompt = %q\nwant %q", def.SystemPrompt, wantPrompt)
	}
	if def.Temperature != 0.2 || def.MaxTokens != 4000 {
		t.Errorf("params = %v/%d, want 0.2/4000", def.Temperature, def.MaxTokens)
	}
	if def.Name != "Python Coder" || def.Description != "Writes Python" || def.Model != "test-model" {
		t.Errorf("def = %+v", def)
	}
	if def.Metadata["created_from_task"] != desc || def.Metadata["reasoning"] != "needs code" {
		t.Errorf("Metadata = %v", def.Metadata)
	}
	if def.Metadata["classification_fallback"] != false {
		t.Errorf("classification_fallback = %v, want false", def.Metadata["classification_fallback"])
	}

	agent := def.Agent("a1", "u1")
	if agent.Temperature != "0.2" || agent.MaxTokens != "4000" {
		t.Errorf("stored params = %q/%q", agent.Temperature, agent.MaxTokens)
	}
}

func TestBuildAgentDefinition_Defaults(t *testing.T) {
	s := NewSynthesizer(nil, "m")

	tests := []struct {
		name          string
		c             Classification
		wantArchetype models.Archetype
		wantName      string
	}{
		{"unknown type", Classification{AgentType: "POET"}, models.ArchetypeCustom, "Custom Agent"},
		{"lower case type", Classification{AgentType: "analyst"}, models.ArchetypeAnalyst, "Analyst Agent"},
		{"empty type", Classification{}, models.ArchetypeCustom, "Custom Agent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := s.BuildAgentDefinition(ClassificationResult{Classification: tt.c}, "the task")
			if def.Archetype != tt.wantArchetype {
				t.Errorf("Archetype = %q, want %q", def.Archetype, tt.wantArchetype)
			}
			if def.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", def.Name, tt.wantName)
			}
			if def.Description != "the task" {
				t.Errorf("Description = %q, want task text", def.Description)
			}
			if strings.Contains(def.SystemPrompt, "Additional Context") {
				t.Error("empty additions should not add a context section")
			}
			if !strings.HasSuffix(def.SystemPrompt, "\n\nCurrent Task Focus: the task") {
				t.Errorf("SystemPrompt missing task focus: %q", def.SystemPrompt)
			}

			tmpl := catalog.Lookup(tt.wantArchetype)
			if !strings.HasPrefix(def.SystemPrompt, tmpl.SystemPrompt) {
				t.Errorf("SystemPrompt does not start with the %s template prompt", tt.wantArchetype)
			}
			if !reflect.DeepEqual(def.Capabilities, tmpl.Capabilities) {
				t.Errorf("Capabilities = %v, want %v", def.Capabilities, tmpl.Capabilities)
			}
			if def.Temperature != tmpl.Temperature || def.MaxTokens != tmpl.MaxTokens {
				t.Errorf("params = %v/%d, want %v/%d", def.Temperature, def.MaxTokens, tmpl.Temperature, tmpl.MaxTokens)
			}
		})
	}
}

func TestBuildAgentDefinition_Fallback(t *testing.T) {
	s := NewSynthesizer(nil, "m")
	res := ClassificationResult{Classification: Fallback("do a thing"), UsedFallback: true}

	def := s.BuildAgentDefinition(res, "do a thing")
	if def.Archetype != models.ArchetypeCustom || def.Temperature != 0.5 || def.MaxTokens != 2000 {
		t.Errorf("fallback def = %+v", def)
	}
	if def.Metadata["classification_fallback"] != true {
		t.Errorf("classification_fallback = %v, want true", def.Metadata["classification_fallback"])
	}
}

func TestFromTemplate(t *testing.T) {
	s := NewSynthesizer(nil, "m")

	def := s.FromTemplate(models.ArchetypeReviewer, "", "")
	if def.Name != "Reviewer Agent" {
		t.Errorf("Name = %q", def.Name)
	}
	if def.Description != "Agent created from reviewer template" {
		t.Errorf("Description = %q", def.Description)
	}
	if def.SystemPrompt != catalog.Lookup(models.ArchetypeReviewer).SystemPrompt {
		t.Error("template prompt should be used unchanged")
	}
	if def.Metadata["created_from"] != "template" {
		t.Errorf("Metadata = %v", def.Metadata)
	}

	named := s.FromTemplate(models.ArchetypeWriter, "Blog Bot", "writes posts")
	if named.Name != "Blog Bot" || named.Description != "writes posts" {
		t.Errorf("named = %+v", named)
	}
}
