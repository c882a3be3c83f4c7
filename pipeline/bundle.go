package pipeline

import (
	"context"
	"errors"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/enhance"
	"github.com/draftforge/draftforge/provider"
	"github.com/draftforge/draftforge/seo"
)

// Bundle is the terminal artifact payload: stable references to the final
// revision of every component the publishing side consumes, plus the
// refinement outcome. It carries no run identifiers or timestamps, so a
// rerun over unchanged inputs produces a byte-identical payload.
type Bundle struct {
	Keyword   string              `json:"keyword"`
	Slug      string              `json:"slug"`
	Refs      []artifact.InputRef `json:"refs"`
	Score     int                 `json:"score"`
	Iteration int                 `json:"iteration"`
	Warnings  []string            `json:"warnings,omitempty"`
}

// Ref returns the bundle's reference for a kind, or nil.
func (b *Bundle) Ref(kind artifact.Kind) *artifact.InputRef {
	for i := range b.Refs {
		if b.Refs[i].Kind == kind {
			return &b.Refs[i]
		}
	}
	return nil
}

// StageRevision pairs a stage with its latest stored revision.
type StageRevision struct {
	Kind     artifact.Kind `json:"kind"`
	Revision int           `json:"revision"`
}

// FailureReport tells the operator where a run stopped and what to do
// about it. Revisions lists the latest intact artifact per stage, which is
// where a fixed rerun resumes from.
type FailureReport struct {
	Stage       artifact.Kind   `json:"stage"`
	ErrorKind   string          `json:"error_kind"`
	Message     string          `json:"message"`
	Revisions   []StageRevision `json:"revisions,omitempty"`
	Remediation []string        `json:"remediation,omitempty"`
}

// errorKind names the failure class for the run report.
func errorKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case artifact.IsStoreError(err):
		return "artifact-store"
	case artifact.IsValidationError(err):
		return "validation"
	case seo.IsBudgetExhausted(err):
		return "score-budget-exhausted"
	}
	if perr, ok := provider.IsProviderError(err); ok {
		return "provider-" + string(perr.Reason)
	}
	var te *enhance.TruncationError
	if errors.As(err, &te) {
		return "truncation"
	}
	return "internal"
}

// remediation suggests the operator actions most likely to clear the
// failure.
func remediation(err error) []string {
	var hints []string
	if perr, ok := provider.IsProviderError(err); ok {
		switch perr.Reason {
		case provider.ReasonCredential:
			hints = append(hints, "set "+credentialFor(perr.Kind))
		case provider.ReasonTransport:
			hints = append(hints, "check network access and the provider endpoint, then rerun")
		}
	}
	if seo.IsBudgetExhausted(err) {
		hints = append(hints, "increase pipeline.max_iterations or lower --min-score")
	}
	var te *enhance.TruncationError
	if errors.As(err, &te) {
		hints = append(hints, "raise llm.max_tokens or break long outline sections into subsections")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		hints = append(hints, "increase pipeline.stage_timeout")
	}
	if artifact.IsStoreError(err) {
		hints = append(hints, "check permissions on the output directory")
	}
	return hints
}

func credentialFor(kind artifact.Kind) string {
	switch kind {
	case artifact.KindResearch:
		return config.EnvLLMResearchKey
	case artifact.KindImageSet:
		return config.EnvImageServiceURL
	default:
		return config.EnvKeywordMetricsKey
	}
}
