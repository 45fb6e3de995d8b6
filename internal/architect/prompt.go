package architect

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/agentsmith/pkg/models"
)

// systemPrompt is the architect's persona for classification calls.
const systemPrompt = "You are an AI agent architect. Analyze tasks and recommend optimal agent configurations. Always respond with valid JSON."

// archetypeGuide describes when each archetype fits, in catalog order.
var archetypeGuide = map[models.Archetype]string{
	models.ArchetypeResearcher: "For research, information gathering, and analysis tasks",
	models.ArchetypeCoder:      "For programming, software development, and technical tasks",
	models.ArchetypeAnalyst:    "For data analysis, statistics, and insights",
	models.ArchetypeWriter:     "For content creation, copywriting, and editing",
	models.ArchetypeMarketer:   "For marketing strategy, campaigns, and promotional content",
	models.ArchetypeDebugger:   "For finding and fixing bugs, troubleshooting issues",
	models.ArchetypeReviewer:   "For code review, quality assurance, and feedback",
	models.ArchetypeCustom:     "For tasks that don't fit other categories",
}

// analysisPrompt builds the user turn asking for a classification of description.
func analysisPrompt(description string) string {
	var b strings.Builder
	b.WriteString("Analyze this task and determine the best agent type to handle it:\n\n")
	fmt.Fprintf(&b, "Task: %s\n\n", description)
	b.WriteString("Available agent types:\n")
	for _, a := range models.Archetypes {
		fmt.Fprintf(&b, "- %s: %s\n", strings.ToUpper(string(a)), archetypeGuide[a])
	}
	b.WriteString(`
Respond with a JSON object:
{
    "agent_type": "TYPE",
    "reasoning": "why this type fits",
    "suggested_name": "descriptive name",
    "description": "what this agent will do",
    "custom_prompt_additions": "any additional context for the system prompt"
}`)
	return b.String()
}
