// Package provider implements the research data adapters feeding the pipeline:
// keyword metrics, People-Also-Ask, SERP, and LLM research. Every adapter can
// serve live data or a deterministic synthetic payload with an identical
// schema, so the pipeline runs end to end without credentials.
package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/keyword"
)

// Adapter is the capability set every research provider implements.
// Payloads are opaque JSON documents; only the fields named in each
// adapter's contract are relied on downstream.
type Adapter interface {
	// Kind returns the artifact kind this adapter produces.
	Kind() artifact.Kind

	// Name returns the provider identifier recorded in provenance.
	Name() string

	// IsLive reports whether the adapter can make live calls
	// (credentials present, endpoint configured).
	IsLive() bool

	// Fetch retrieves a live payload for the keyword.
	Fetch(ctx context.Context, kw keyword.Keyword) (json.RawMessage, error)

	// Synthesize produces a deterministic schema-identical payload without
	// any network call. Must be a pure function of the keyword.
	Synthesize(kw keyword.Keyword) (json.RawMessage, error)
}

// Registry holds the adapters available to a pipeline run, keyed by the
// artifact kind they produce. It is an explicit dependency of the
// orchestrator, not a package-level singleton.
type Registry struct {
	mu       sync.RWMutex
	adapters map[artifact.Kind]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[artifact.Kind]Adapter),
	}
}

// Register adds an adapter, replacing any previous adapter for the same kind.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Kind()] = a
}

// Get returns the adapter for a kind.
func (r *Registry) Get(kind artifact.Kind) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[kind]
	return a, ok
}

// Kinds returns the registered kinds in pipeline stage order.
func (r *Registry) Kinds() []artifact.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]artifact.Kind, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return kinds[i].Position() < kinds[j].Position()
	})
	return kinds
}

// Resolve fetches a payload live-first with synthetic fallback. The returned
// mode records which path produced the payload. An error is returned only
// when both the live and synthetic paths fail; the orchestrator treats that
// as retryable.
func Resolve(ctx context.Context, a Adapter, kw keyword.Keyword, logger *slog.Logger) (json.RawMessage, artifact.Mode, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var liveErr error
	if a.IsLive() {
		payload, err := a.Fetch(ctx, kw)
		if err == nil {
			return payload, artifact.ModeLive, nil
		}
		liveErr = err
		logger.Warn("Live provider call failed, falling back to synthetic",
			"provider", a.Name(),
			"kind", a.Kind(),
			"slug", kw.Slug,
			"error", err)
	} else {
		logger.Warn("Provider credentials missing, using synthetic data",
			"provider", a.Name(),
			"kind", a.Kind(),
			"slug", kw.Slug)
	}

	// Synthesis must not absorb cancellation: a cancelled pipeline stops here.
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	payload, err := a.Synthesize(kw)
	if err != nil {
		return nil, "", &Error{
			Kind:   a.Kind(),
			Reason: ReasonSynthesis,
			Err:    errorsJoin(liveErr, err),
		}
	}

	return payload, artifact.ModeSynthetic, nil
}
