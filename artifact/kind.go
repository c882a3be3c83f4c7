// Package artifact provides the content-addressed artifact store shared by
// all pipeline stages. Every stage output is an Artifact keyed by
// (keyword slug, kind) and versioned by a monotonically increasing revision.
package artifact

import "fmt"

// Kind identifies the type of payload an artifact carries.
type Kind string

// Artifact kinds, in pipeline stage order.
const (
	KindKeywordMetrics Kind = "kw-metrics"
	KindPAA            Kind = "paa"
	KindSERP           Kind = "serp"
	KindResearch       Kind = "llm-research"
	KindIntent         Kind = "intent"
	KindOutline        Kind = "outline"
	KindDraft          Kind = "draft"
	KindScoredDraft    Kind = "scored-draft"
	KindImageSet       Kind = "image-set"
	KindBundle         Kind = "bundle"
)

// kindOrder lists all kinds in execution order. Order matters: downstream
// invalidation and the orchestrator's state machine both walk this slice.
var kindOrder = []Kind{
	KindKeywordMetrics,
	KindPAA,
	KindSERP,
	KindResearch,
	KindIntent,
	KindOutline,
	KindDraft,
	KindScoredDraft,
	KindImageSet,
	KindBundle,
}

// researchKinds are the provider-produced kinds exported to the flat
// research/ directory for external consumers.
var researchKinds = map[Kind]bool{
	KindKeywordMetrics: true,
	KindPAA:            true,
	KindSERP:           true,
	KindResearch:       true,
}

// Kinds returns all artifact kinds in pipeline order.
func Kinds() []Kind {
	out := make([]Kind, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Valid reports whether k is a known artifact kind.
func (k Kind) Valid() bool {
	for _, known := range kindOrder {
		if k == known {
			return true
		}
	}
	return false
}

// String returns the kind's wire name.
func (k Kind) String() string {
	return string(k)
}

// IsResearch reports whether k is one of the research fan-out kinds.
func (k Kind) IsResearch() bool {
	return researchKinds[k]
}

// Position returns k's index in the pipeline stage order, or -1 when k is
// not a known kind.
func (k Kind) Position() int {
	for i, known := range kindOrder {
		if k == known {
			return i
		}
	}
	return -1
}
