package pipeline

import (
	"context"
	"fmt"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/enhance"
	"github.com/draftforge/draftforge/imageplan"
	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/provider"
	"github.com/draftforge/draftforge/seo"
)

// stageInput is the canonical document hashed to decide reuse. Upstream
// payload hashes stand in for the payloads themselves, so re-executing any
// upstream stage changes every downstream hash and forces those stages to
// run again.
type stageInput struct {
	Keyword string        `json:"keyword"`
	Stage   artifact.Kind `json:"stage"`
	Inputs  []inputDigest `json:"inputs,omitempty"`
	Params  any           `json:"params,omitempty"`
}

type inputDigest struct {
	Kind artifact.Kind `json:"kind"`
	Hash string        `json:"hash"`
}

type scoreParams struct {
	MinScore      int `json:"min_score"`
	MaxIterations int `json:"max_iterations"`
}

type imageParams struct {
	Requested int  `json:"requested"`
	Auto      bool `json:"auto"`
}

// stageDeps names the artifacts a stage consumes, in hash order. Provider
// stages depend on the keyword alone.
func stageDeps(kind artifact.Kind, opts Options) []artifact.Kind {
	switch kind {
	case artifact.KindIntent:
		if opts.SkipIntent {
			return nil
		}
		return []artifact.Kind{artifact.KindPAA, artifact.KindSERP, artifact.KindResearch}
	case artifact.KindOutline:
		return []artifact.Kind{artifact.KindIntent, artifact.KindResearch}
	case artifact.KindDraft:
		return []artifact.Kind{artifact.KindOutline, artifact.KindIntent}
	case artifact.KindScoredDraft:
		return []artifact.Kind{artifact.KindDraft, artifact.KindIntent}
	case artifact.KindImageSet:
		return []artifact.Kind{artifact.KindScoredDraft}
	case artifact.KindBundle:
		deps := []artifact.Kind{artifact.KindIntent, artifact.KindOutline, artifact.KindScoredDraft}
		if !opts.SkipImage {
			deps = append(deps, artifact.KindImageSet)
		}
		return deps
	default:
		return nil
	}
}

func (p *Pipeline) stageParams(opts Options, kind artifact.Kind) any {
	switch kind {
	case artifact.KindScoredDraft:
		return scoreParams{
			MinScore:      p.effectiveMinScore(opts),
			MaxIterations: p.cfg.Pipeline.MaxIterations,
		}
	case artifact.KindImageSet:
		requested := opts.ImageCount
		if requested == 0 {
			requested = p.cfg.Images.Count
		}
		return imageParams{Requested: requested, Auto: !opts.NoAutoImage}
	default:
		return nil
	}
}

// stageInputs computes a stage's input hash and the provenance refs of the
// artifacts it consumes.
func (p *Pipeline) stageInputs(rc *runContext, kind artifact.Kind) (string, []artifact.InputRef, error) {
	deps := stageDeps(kind, rc.opts)
	refs := make([]artifact.InputRef, 0, len(deps))
	digests := make([]inputDigest, 0, len(deps))
	for _, dep := range deps {
		art, ok := rc.artifacts[dep]
		if !ok {
			return "", nil, artifact.NewValidationError(string(kind),
				fmt.Errorf("required input %s not loaded", dep))
		}
		ref := art.Ref()
		refs = append(refs, ref)
		digests = append(digests, inputDigest{Kind: dep, Hash: ref.Hash})
	}

	hash, err := artifact.HashJSON(stageInput{
		Keyword: rc.kw.Raw,
		Stage:   kind,
		Inputs:  digests,
		Params:  p.stageParams(rc.opts, kind),
	})
	if err != nil {
		return "", nil, artifact.NewValidationError(string(kind), err)
	}
	if len(refs) == 0 {
		refs = nil
	}
	return hash, refs, nil
}

// runStage executes one stage and writes its artifact.
func (p *Pipeline) runStage(ctx context.Context, rc *runContext, kind artifact.Kind, inputHash string, refs []artifact.InputRef) (*artifact.Artifact, error) {
	switch kind {
	case artifact.KindKeywordMetrics, artifact.KindPAA, artifact.KindSERP, artifact.KindResearch:
		return p.runProviderStage(ctx, rc, kind, inputHash)
	case artifact.KindIntent:
		return p.runIntentStage(ctx, rc, inputHash, refs)
	case artifact.KindOutline:
		return p.runOutlineStage(ctx, rc, inputHash, refs)
	case artifact.KindDraft:
		return p.runDraftStage(ctx, rc, inputHash, refs)
	case artifact.KindScoredDraft:
		return p.runScoredDraftStage(ctx, rc, inputHash, refs)
	case artifact.KindImageSet:
		return p.runImageSetStage(ctx, rc, inputHash, refs)
	case artifact.KindBundle:
		return p.runBundleStage(ctx, rc, inputHash, refs)
	default:
		return nil, artifact.NewValidationError(string(kind), fmt.Errorf("no runner for stage"))
	}
}

// runProviderStage resolves a research artifact through its adapter, live
// first with synthetic fallback. The research stage gets the LLM call
// budget; the HTTP providers get the shorter provider budget.
func (p *Pipeline) runProviderStage(ctx context.Context, rc *runContext, kind artifact.Kind, inputHash string) (*artifact.Artifact, error) {
	adapter, ok := p.providers.Get(kind)
	if !ok {
		return nil, artifact.NewValidationError(string(kind), fmt.Errorf("no provider registered"))
	}

	timeout := p.cfg.Providers.Timeout
	if kind == artifact.KindResearch {
		timeout = p.cfg.LLM.Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, mode, err := provider.Resolve(callCtx, adapter, rc.kw, p.logger)
	if err != nil {
		return nil, err
	}
	return p.store.Put(ctx, rc.kw.Slug, kind, payload, artifact.Provenance{
		Stage:     string(kind),
		Provider:  adapter.Name(),
		Mode:      mode,
		RunID:     rc.runID,
		InputHash: inputHash,
	})
}

// runIntentStage derives the intent profile from the stored research
// payloads. Under --skip-intent with nothing stored, the profile comes
// from the keyword text alone.
func (p *Pipeline) runIntentStage(ctx context.Context, rc *runContext, inputHash string, refs []artifact.InputRef) (*artifact.Artifact, error) {
	var in intent.Inputs
	if !rc.opts.SkipIntent {
		var serp provider.SERPPayload
		if err := decodeFrom(rc, artifact.KindSERP, &serp); err != nil {
			return nil, err
		}
		in.SERP = &serp

		var paa provider.PAAPayload
		if err := decodeFrom(rc, artifact.KindPAA, &paa); err != nil {
			return nil, err
		}
		for _, q := range paa.Questions {
			in.Questions = append(in.Questions, q.Question)
		}

		var research provider.ResearchPayload
		if err := decodeFrom(rc, artifact.KindResearch, &research); err != nil {
			return nil, err
		}
		in.Subtopics = research.Subtopics
	}

	profile := intent.Analyze(rc.kw, in)
	return p.store.Put(ctx, rc.kw.Slug, artifact.KindIntent, profile, artifact.Provenance{
		Stage:     string(artifact.KindIntent),
		Mode:      artifact.ModeDerived,
		RunID:     rc.runID,
		InputHash: inputHash,
		Inputs:    refs,
	})
}

func (p *Pipeline) runOutlineStage(ctx context.Context, rc *runContext, inputHash string, refs []artifact.InputRef) (*artifact.Artifact, error) {
	o, mode, err := p.synth.Synthesize(ctx, rc.kw, rc.profile, rc.research)
	if err != nil {
		return nil, err
	}
	return p.store.Put(ctx, rc.kw.Slug, artifact.KindOutline, o, artifact.Provenance{
		Stage:     string(artifact.KindOutline),
		Mode:      mode,
		RunID:     rc.runID,
		InputHash: inputHash,
		Inputs:    refs,
	})
}

func (p *Pipeline) runDraftStage(ctx context.Context, rc *runContext, inputHash string, refs []artifact.InputRef) (*artifact.Artifact, error) {
	d, mode, err := p.enhancer.Enhance(ctx, rc.kw, rc.profile, rc.outline)
	if err != nil {
		return nil, err
	}
	return p.store.Put(ctx, rc.kw.Slug, artifact.KindDraft, d, artifact.Provenance{
		Stage:     string(artifact.KindDraft),
		Mode:      mode,
		RunID:     rc.runID,
		InputHash: inputHash,
		Inputs:    refs,
	})
}

// runScoredDraftStage refines the draft against the score floor. An
// exhausted refinement budget is not a failure: the best revision is
// stored and the shortfall surfaces as a bundle warning.
func (p *Pipeline) runScoredDraftStage(ctx context.Context, rc *runContext, inputHash string, refs []artifact.InputRef) (*artifact.Artifact, error) {
	refiner := seo.NewRefiner(p.completer,
		seo.WithMinScore(p.effectiveMinScore(rc.opts)),
		seo.WithMaxIterations(p.cfg.Pipeline.MaxIterations),
		seo.WithRefinerLogger(p.logger))

	result, err := refiner.Refine(ctx, rc.kw, rc.profile, rc.draft)
	if err != nil && !seo.IsBudgetExhausted(err) {
		return nil, err
	}
	return p.store.Put(ctx, rc.kw.Slug, artifact.KindScoredDraft, result, artifact.Provenance{
		Stage:     string(artifact.KindScoredDraft),
		Mode:      artifact.ModeDerived,
		RunID:     rc.runID,
		InputHash: inputHash,
		Inputs:    refs,
	})
}

// runImageSetStage plans and generates the image set, then refreshes the
// one-image record older consumers still read.
func (p *Pipeline) runImageSetStage(ctx context.Context, rc *runContext, inputHash string, refs []artifact.InputRef) (*artifact.Artifact, error) {
	count := p.imageCount(rc)
	items := p.planner.Plan(rc.kw, rc.scored.Draft.Title, count)
	set, mode, err := p.planner.Generate(ctx, rc.kw, items)
	if err != nil {
		return nil, err
	}

	prov := artifact.Provenance{
		Stage:     string(artifact.KindImageSet),
		Mode:      mode,
		RunID:     rc.runID,
		InputHash: inputHash,
		Inputs:    refs,
	}
	if mode == artifact.ModeLive {
		prov.Provider = "image-service"
	}
	art, err := p.store.Put(ctx, rc.kw.Slug, artifact.KindImageSet, set, prov)
	if err != nil {
		return nil, err
	}
	if err := p.store.WriteJSON(ctx, "images/"+rc.kw.Slug+"-image.json", set.Single()); err != nil {
		return nil, err
	}
	return art, nil
}

func (p *Pipeline) imageCount(rc *runContext) int {
	requested := rc.opts.ImageCount
	if requested == 0 {
		requested = p.cfg.Images.Count
	}
	recommended := 0
	if !rc.opts.NoAutoImage && rc.scored != nil {
		recommended = rc.scored.Report.SEO.RecommendedImages
	}
	return imageplan.Count(requested, recommended)
}

// runBundleStage writes the terminal artifact and exports the rendered
// article to the flat markdown view.
func (p *Pipeline) runBundleStage(ctx context.Context, rc *runContext, inputHash string, refs []artifact.InputRef) (*artifact.Artifact, error) {
	b := &Bundle{
		Keyword:   rc.kw.Raw,
		Slug:      rc.kw.Slug,
		Refs:      refs,
		Score:     rc.scored.Report.Composite,
		Iteration: rc.scored.Iteration,
		Warnings:  rc.warnings,
	}
	art, err := p.store.Put(ctx, rc.kw.Slug, artifact.KindBundle, b, artifact.Provenance{
		Stage:     string(artifact.KindBundle),
		Mode:      artifact.ModeDerived,
		RunID:     rc.runID,
		InputHash: inputHash,
		Inputs:    refs,
	})
	if err != nil {
		return nil, err
	}

	rendered := enhance.Render(rc.scored.Draft)
	if err := p.store.ExportMarkdown(ctx, rc.kw.Slug, []byte(rendered)); err != nil {
		return nil, err
	}
	return art, nil
}

func decodeFrom(rc *runContext, kind artifact.Kind, v any) error {
	art, ok := rc.artifacts[kind]
	if !ok {
		return artifact.NewValidationError(string(kind), fmt.Errorf("artifact not loaded"))
	}
	if err := art.DecodePayload(v); err != nil {
		return artifact.NewValidationError(string(kind), fmt.Errorf("decode payload: %w", err))
	}
	return nil
}
