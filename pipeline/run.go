package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/enhance"
	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/outline"
	"github.com/draftforge/draftforge/provider"
	"github.com/draftforge/draftforge/seo"
)

// researchKinds run concurrently at the top of every run, one goroutine
// per distinct provider.
var researchKinds = []artifact.Kind{
	artifact.KindKeywordMetrics,
	artifact.KindPAA,
	artifact.KindSERP,
}

// transitions is the sequential stage order after the research fan-out,
// shaped by the run options.
func transitions(opts Options) []artifact.Kind {
	kinds := []artifact.Kind{artifact.KindResearch, artifact.KindIntent}
	if opts.IntentOnly {
		return kinds
	}
	kinds = append(kinds, artifact.KindOutline, artifact.KindDraft, artifact.KindScoredDraft)
	if !opts.SkipImage {
		kinds = append(kinds, artifact.KindImageSet)
	}
	return append(kinds, artifact.KindBundle)
}

// Run executes the pipeline for one keyword. The keyword is validated
// before any store access, so a rejected keyword leaves no artifacts
// behind. The returned RunResult is non-nil whenever the run started;
// on failure it carries a FailureReport and the error names the stage.
func (p *Pipeline) Run(ctx context.Context, raw string, opts Options) (*RunResult, error) {
	kw, err := keyword.New(raw)
	if err != nil {
		return nil, err
	}
	if opts.MinScore != 0 && (opts.MinScore < 1 || opts.MinScore > 100) {
		return nil, fmt.Errorf("min score %d out of range 1-100", opts.MinScore)
	}
	if opts.ImageCount != 0 && (opts.ImageCount < 1 || opts.ImageCount > 10) {
		return nil, fmt.Errorf("image count %d out of range 1-10", opts.ImageCount)
	}

	rc := &runContext{
		kw:        kw,
		opts:      opts,
		runID:     uuid.NewString(),
		artifacts: make(map[artifact.Kind]*artifact.Artifact),
	}
	res := &RunResult{Keyword: kw.Raw, Slug: kw.Slug, RunID: rc.runID}
	start := time.Now()

	p.logger.Info("Pipeline run starting",
		"slug", kw.Slug,
		"run_id", rc.runID,
		"force_api", opts.ForceAPI)

	if failed, err := p.runResearch(ctx, rc, res); err != nil {
		return p.fail(ctx, res, failed, err, start)
	}
	for _, kind := range transitions(opts) {
		art, sr, err := p.executeStage(ctx, rc, kind)
		res.Stages = append(res.Stages, sr)
		if err != nil {
			return p.fail(ctx, res, kind, err, start)
		}
		if err := p.absorb(rc, kind, art); err != nil {
			return p.fail(ctx, res, kind, err, start)
		}
	}

	res.State = StateDone
	res.Warnings = rc.warnings
	if rc.scored != nil {
		res.Score = rc.scored.Report.Composite
		res.Iteration = rc.scored.Iteration
	}
	res.Bundle = rc.artifacts[artifact.KindBundle]
	p.metrics.observeRun(string(StateDone), res.Score)

	p.logger.Info("Pipeline run complete",
		"slug", kw.Slug,
		"score", res.Score,
		"iterations", res.Iteration,
		"warnings", len(res.Warnings),
		"elapsed", time.Since(start))
	return res, nil
}

// runResearch executes the provider stages concurrently and reports them
// in stage order. The first failure in stage order wins, which keeps the
// outcome deterministic regardless of goroutine scheduling.
func (p *Pipeline) runResearch(ctx context.Context, rc *runContext, res *RunResult) (artifact.Kind, error) {
	type outcome struct {
		art *artifact.Artifact
		sr  StageResult
		err error
	}
	outcomes := make([]outcome, len(researchKinds))

	var wg sync.WaitGroup
	for i, kind := range researchKinds {
		wg.Add(1)
		go func(i int, kind artifact.Kind) {
			defer wg.Done()
			art, sr, err := p.executeStage(ctx, rc, kind)
			outcomes[i] = outcome{art: art, sr: sr, err: err}
		}(i, kind)
	}
	wg.Wait()

	for i, kind := range researchKinds {
		o := outcomes[i]
		res.Stages = append(res.Stages, o.sr)
		if o.err != nil {
			return kind, o.err
		}
		if err := p.absorb(rc, kind, o.art); err != nil {
			return kind, err
		}
	}
	return "", nil
}

// executeStage resolves one stage: reuse the stored artifact when its
// input hash still matches, otherwise run it under the stage timeout with
// retries, degrading to the stage's deterministic fallback when one
// exists.
func (p *Pipeline) executeStage(ctx context.Context, rc *runContext, kind artifact.Kind) (*artifact.Artifact, StageResult, error) {
	start := time.Now()
	sr := StageResult{Kind: kind}

	inputHash, refs, err := p.stageInputs(rc, kind)
	if err != nil {
		sr.Status = StageFailed
		sr.Duration = time.Since(start)
		return nil, sr, err
	}

	if art, ok := p.reusable(ctx, rc, kind, inputHash); ok {
		sr.Status = StageReused
		sr.Revision = art.Revision
		sr.Mode = art.Provenance.Mode
		sr.Duration = time.Since(start)
		p.metrics.observeStage(kind, string(StageReused), sr.Duration)
		p.logger.Info("Stage reused from store",
			"slug", rc.kw.Slug,
			"stage", kind,
			"revision", art.Revision)
		return art, sr, nil
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.StageTimeout)
	defer cancel()

	var art *artifact.Artifact
	attempts, runErr := p.withRetry(stageCtx, kind, func(ctx context.Context) error {
		var err error
		art, err = p.runStage(ctx, rc, kind, inputHash, refs)
		return err
	})
	sr.Attempts = attempts

	if runErr != nil {
		art, runErr = p.degrade(ctx, rc, kind, inputHash, refs, runErr)
		if runErr != nil {
			sr.Status = StageFailed
			sr.Duration = time.Since(start)
			p.metrics.observeStage(kind, string(StageFailed), sr.Duration)
			return nil, sr, runErr
		}
	}

	sr.Status = StageExecuted
	sr.Revision = art.Revision
	sr.Mode = art.Provenance.Mode
	sr.Duration = time.Since(start)
	p.metrics.observeStage(kind, string(StageExecuted), sr.Duration)
	p.logger.Info("Stage executed",
		"slug", rc.kw.Slug,
		"stage", kind,
		"revision", art.Revision,
		"mode", art.Provenance.Mode,
		"attempts", attempts)
	return art, sr, nil
}

// reusable reports whether the latest stored artifact can stand in for a
// fresh execution. The input hash is the sole invalidation trigger;
// --force-api bypasses reuse entirely, and --skip-intent takes the latest
// profile as-is, whatever inputs produced it.
func (p *Pipeline) reusable(ctx context.Context, rc *runContext, kind artifact.Kind, inputHash string) (*artifact.Artifact, bool) {
	if rc.opts.ForceAPI {
		return nil, false
	}
	art, err := p.store.Latest(ctx, rc.kw.Slug, kind)
	if err != nil {
		return nil, false
	}
	if rc.opts.SkipIntent && kind == artifact.KindIntent {
		return art, true
	}
	if art.Stale {
		return nil, false
	}
	if art.Provenance.InputHash != inputHash {
		return nil, false
	}
	return art, true
}

// degrade falls back to the stage's deterministic output once retries are
// spent. Only the draft stage degrades at this level; the providers and
// the outline synthesizer fall back inside their own runners. Store and
// validation failures are never masked, and a cancelled run stays
// cancelled.
func (p *Pipeline) degrade(ctx context.Context, rc *runContext, kind artifact.Kind, inputHash string, refs []artifact.InputRef, cause error) (*artifact.Artifact, error) {
	if ctx.Err() != nil {
		return nil, cause
	}
	if artifact.IsStoreError(cause) || artifact.IsValidationError(cause) {
		return nil, cause
	}
	if kind != artifact.KindDraft {
		return nil, cause
	}

	p.logger.Warn("Accepting synthetic draft after retries",
		"slug", rc.kw.Slug,
		"error", cause)
	d := p.enhancer.Synthesize(rc.kw, rc.profile, rc.outline)
	return p.store.Put(ctx, rc.kw.Slug, kind, d, artifact.Provenance{
		Stage:     string(kind),
		Mode:      artifact.ModeSynthetic,
		RunID:     rc.runID,
		InputHash: inputHash,
		Inputs:    refs,
	})
}

// absorb records a stage's artifact in the run context and decodes the
// payloads later stages read. Reused and freshly executed artifacts pass
// through the same decode, so downstream stages never see a shape the
// store would not round-trip.
func (p *Pipeline) absorb(rc *runContext, kind artifact.Kind, art *artifact.Artifact) error {
	rc.artifacts[kind] = art

	decode := func(v any) error {
		if err := art.DecodePayload(v); err != nil {
			return artifact.NewValidationError(string(kind), fmt.Errorf("decode payload: %w", err))
		}
		return nil
	}

	switch kind {
	case artifact.KindResearch:
		rc.research = new(provider.ResearchPayload)
		return decode(rc.research)
	case artifact.KindIntent:
		rc.profile = new(intent.Profile)
		return decode(rc.profile)
	case artifact.KindOutline:
		rc.outline = new(outline.Outline)
		return decode(rc.outline)
	case artifact.KindDraft:
		rc.draft = new(enhance.Draft)
		return decode(rc.draft)
	case artifact.KindScoredDraft:
		rc.scored = new(seo.Result)
		if err := decode(rc.scored); err != nil {
			return err
		}
		if rc.scored.Draft == nil || rc.scored.Report == nil {
			return artifact.NewValidationError(string(kind), fmt.Errorf("scored draft payload incomplete"))
		}
		if floor := p.effectiveMinScore(rc.opts); rc.scored.Report.Composite < floor {
			rc.warnings = append(rc.warnings, fmt.Sprintf(
				"composite score %d stayed below the floor %d after %d refinement iterations; best revision kept",
				rc.scored.Report.Composite, floor, rc.scored.Iteration))
		}
	}
	return nil
}

// fail finalizes a failed run with the structured report the CLI prints.
func (p *Pipeline) fail(ctx context.Context, res *RunResult, stage artifact.Kind, cause error, start time.Time) (*RunResult, error) {
	res.State = StateFailed
	res.Failure = p.failureReport(ctx, res.Slug, stage, cause)
	p.metrics.observeRun(string(StateFailed), 0)

	p.logger.Error("Pipeline run failed",
		"slug", res.Slug,
		"stage", stage,
		"error_kind", res.Failure.ErrorKind,
		"elapsed", time.Since(start),
		"error", cause)
	return res, fmt.Errorf("pipeline failed at stage %s: %w", stage, cause)
}

// failureReport assembles the operator-facing view of a failure: the
// stage, the error class, the latest stored revision per stage as a resume
// point, and remediation hints.
func (p *Pipeline) failureReport(ctx context.Context, slug string, stage artifact.Kind, cause error) *FailureReport {
	fr := &FailureReport{
		Stage:       stage,
		ErrorKind:   errorKind(cause),
		Message:     cause.Error(),
		Remediation: remediation(cause),
	}
	ix, err := p.store.Index(context.WithoutCancel(ctx), slug)
	if err != nil {
		return fr
	}
	for _, kind := range artifact.Kinds() {
		latest := ix.Latest(kind)
		if latest == nil || latest.Stale {
			continue
		}
		fr.Revisions = append(fr.Revisions, StageRevision{Kind: kind, Revision: latest.Revision})
	}
	return fr
}
