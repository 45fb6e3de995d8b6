package architect

import (
	"fmt"

	"github.com/ShayCichocki/agentsmith/internal/catalog"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// FromTemplate defines an agent straight from an archetype's template,
// without an LLM call. Empty name and description get generated values.
func (s *Synthesizer) FromTemplate(archetype models.Archetype, name, description string) AgentDefinition {
	tmpl := catalog.Lookup(archetype)
	archetype = tmpl.Archetype

	if name == "" {
		name = archetype.Title() + " Agent"
	}
	if description == "" {
		description = fmt.Sprintf("Agent created from %s template", archetype)
	}

	return AgentDefinition{
		Name:         name,
		Archetype:    archetype,
		Description:  description,
		SystemPrompt: tmpl.SystemPrompt,
		Capabilities: tmpl.Capabilities,
		Temperature:  tmpl.Temperature,
		MaxTokens:    tmpl.MaxTokens,
		Model:        s.model,
		Metadata:     map[string]any{"created_from": "template"},
	}
}
