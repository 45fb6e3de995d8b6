package models

import "strings"

// Archetype is the kind of specialist agent built for a task.
type Archetype string

const (
	// ArchetypeResearcher gathers and synthesizes information.
	ArchetypeResearcher Archetype = "researcher"
	// ArchetypeCoder writes and optimizes code.
	ArchetypeCoder Archetype = "coder"
	// ArchetypeAnalyst interprets data and reports findings.
	ArchetypeAnalyst Archetype = "analyst"
	// ArchetypeWriter produces long-form and marketing copy.
	ArchetypeWriter Archetype = "writer"
	// ArchetypeMarketer plans campaigns and positioning.
	ArchetypeMarketer Archetype = "marketer"
	// ArchetypeDebugger traces and fixes defects.
	ArchetypeDebugger Archetype = "debugger"
	// ArchetypeReviewer audits code quality and security.
	ArchetypeReviewer Archetype = "reviewer"
	// ArchetypeCustom is the general-purpose fallback.
	ArchetypeCustom Archetype = "custom"
)

// Archetypes lists every archetype in catalog order.
var Archetypes = []Archetype{
	ArchetypeResearcher,
	ArchetypeCoder,
	ArchetypeAnalyst,
	ArchetypeWriter,
	ArchetypeMarketer,
	ArchetypeDebugger,
	ArchetypeReviewer,
	ArchetypeCustom,
}

// Valid returns true if the archetype is a known value.
func (a Archetype) Valid() bool {
	switch a {
	case ArchetypeResearcher, ArchetypeCoder, ArchetypeAnalyst, ArchetypeWriter,
		ArchetypeMarketer, ArchetypeDebugger, ArchetypeReviewer, ArchetypeCustom:
		return true
	default:
		return false
	}
}

// Title returns the archetype name with its first letter upper-cased ("Coder").
func (a Archetype) Title() string {
	if a == "" {
		return ""
	}
	s := string(a)
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseArchetype maps a free-form string onto an archetype.
// Matching ignores case and surrounding whitespace.
func ParseArchetype(s string) (Archetype, bool) {
	a := Archetype(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", false
	}
	return a, true
}
