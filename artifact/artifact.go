package artifact

import (
	"encoding/json"
	"time"
)

// Mode records how a payload was produced.
type Mode string

const (
	// ModeLive marks payloads fetched from a real external provider.
	ModeLive Mode = "live"
	// ModeSynthetic marks deterministic locally generated payloads used when
	// credentials are missing or the live path failed.
	ModeSynthetic Mode = "synthetic"
	// ModeDerived marks payloads computed purely from other artifacts with no
	// provider involved (intent profiles, score reports, bundles).
	ModeDerived Mode = "derived"
)

// InputRef identifies one upstream artifact an artifact was derived from.
// The recorded hash is the upstream payload hash at derivation time, which
// lets the store verify the chain on read.
type InputRef struct {
	Kind     Kind   `json:"kind"`
	Revision int    `json:"revision"`
	Hash     string `json:"hash"`
}

// Provenance records where an artifact came from: the producing stage, the
// provider and mode used, and the input-hash chain that drives downstream
// invalidation.
type Provenance struct {
	Stage     string     `json:"stage"`
	Provider  string     `json:"provider,omitempty"`
	Mode      Mode       `json:"mode"`
	RunID     string     `json:"run_id,omitempty"`
	InputHash string     `json:"input_hash"`
	Inputs    []InputRef `json:"inputs,omitempty"`
}

// Artifact is a single immutable stage output. Re-running a stage never
// mutates an existing artifact; it writes a new revision.
type Artifact struct {
	Slug       string          `json:"slug"`
	Kind       Kind            `json:"kind"`
	Revision   int             `json:"revision"`
	CreatedAt  time.Time       `json:"created_at"`
	Provenance Provenance      `json:"provenance"`
	Payload    json.RawMessage `json:"payload"`

	// Stale mirrors the index staleness marker at read time. It is not part
	// of the artifact document itself.
	Stale bool `json:"-"`
}

// Ref returns an InputRef pointing at this artifact, for use in the
// provenance of artifacts derived from it.
func (a *Artifact) Ref() InputRef {
	return InputRef{Kind: a.Kind, Revision: a.Revision, Hash: HashBytes(a.Payload)}
}

// DecodePayload unmarshals the payload into v.
func (a *Artifact) DecodePayload(v any) error {
	return json.Unmarshal(a.Payload, v)
}
