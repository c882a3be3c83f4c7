// Package model resolves capabilities to language models. Pipeline
// stages never name a model directly; they ask for "research" or
// "writing" and the registry answers with a preference-ordered chain of
// configured endpoints, filtered by circuit-breaker health.
package model

// Capability names a kind of model work. Stages request capabilities,
// the registry picks models.
type Capability string

// The five capabilities stages request: research and outline feed
// planning, writing produces section bodies, refinement revises scored
// drafts, fast covers cheap utility calls.
const (
	CapabilityResearch   Capability = "research"
	CapabilityOutline    Capability = "outline"
	CapabilityWriting    Capability = "writing"
	CapabilityRefinement Capability = "refinement"
	CapabilityFast       Capability = "fast"
)

// StageCapabilities maps pipeline stages to the capability they use
// when nothing more specific is configured.
var StageCapabilities = map[string]Capability{
	"llm-research": CapabilityResearch,
	"outline":      CapabilityOutline,
	"draft":        CapabilityWriting,
	"scored-draft": CapabilityRefinement,
}

// CapabilityForStage returns a stage's default capability, writing for
// stages the table does not know.
func CapabilityForStage(stage string) Capability {
	if c, ok := StageCapabilities[stage]; ok {
		return c
	}
	return CapabilityWriting
}

// IsValid reports whether c is one of the known capabilities.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityResearch, CapabilityOutline, CapabilityWriting, CapabilityRefinement, CapabilityFast:
		return true
	}
	return false
}

func (c Capability) String() string {
	return string(c)
}

// ParseCapability returns s as a Capability when it names a known one,
// "" otherwise.
func ParseCapability(s string) Capability {
	if c := Capability(s); c.IsValid() {
		return c
	}
	return ""
}
