package scenarios

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/pipeline"
	e2econfig "github.com/draftforge/draftforge/test/e2e/config"
)

// deadEndpoint is a loopback port nothing listens on, so every LLM call
// fails with connection refused instead of hanging.
const deadEndpoint = "http://127.0.0.1:9/v1"

// DegradedScenario points the pipeline at a dead LLM endpoint and
// verifies the run still completes: outline and draft must fall back to
// their synthetic modes and the bundle with its markdown export must
// exist anyway.
type DegradedScenario struct {
	name        string
	description string
	config      *e2econfig.Config
	keyword     string

	harness *harness
	run     *pipeline.RunResult
}

// NewDegradedScenario creates the offline degradation scenario.
func NewDegradedScenario(cfg *e2econfig.Config) *DegradedScenario {
	return &DegradedScenario{
		name:        "degraded",
		description: "With the LLM unreachable the run completes on synthetic fallbacks",
		config:      cfg,
		keyword:     "compost bin maintenance",
	}
}

func (s *DegradedScenario) Name() string        { return s.name }
func (s *DegradedScenario) Description() string { return s.description }

// Setup builds a harness against the dead endpoint. A single attempt
// per call keeps the scenario fast; connection refused is immediate
// either way.
func (s *DegradedScenario) Setup(ctx context.Context) error {
	h, err := newHarness(s.config, deadEndpoint,
		llm.WithRetryConfig(llm.RetryConfig{
			MaxAttempts:       1,
			BackoffBase:       50 * time.Millisecond,
			BackoffMultiplier: 2,
			MaxBackoff:        200 * time.Millisecond,
		}))
	if err != nil {
		return err
	}
	s.harness = h
	return nil
}

func (s *DegradedScenario) Teardown(ctx context.Context) error {
	return s.harness.cleanup(s.config.KeepOutput)
}

func (s *DegradedScenario) Execute(ctx context.Context) (*Result, error) {
	result := NewResult(s.name)
	defer result.Complete()

	result.runChecks(ctx, s.config.StageTimeout, []check{
		{"run pipeline offline", s.runOffline},
		{"verify synthetic fallbacks", s.verifyFallbacks},
		{"verify bundle survives", s.verifyBundle},
	})
	return result, nil
}

func (s *DegradedScenario) runOffline(ctx context.Context, result *Result) error {
	run, err := s.harness.pipeline.Run(ctx, s.keyword, pipeline.Options{MinScore: 1})
	if err != nil {
		if run != nil && run.Failure != nil {
			return fmt.Errorf("run failed at %s instead of degrading: %s", run.Failure.Stage, run.Failure.Message)
		}
		return err
	}
	if run.State != pipeline.StateDone {
		return fmt.Errorf("run ended in state %q", run.State)
	}
	s.run = run
	result.SetDetail("slug", run.Slug)
	result.SetDetail("score", run.Score)
	return nil
}

func (s *DegradedScenario) verifyFallbacks(ctx context.Context, result *Result) error {
	for _, kind := range []artifact.Kind{
		artifact.KindOutline,
		artifact.KindDraft,
		artifact.KindResearch,
	} {
		sr := stageOf(s.run, kind)
		if sr == nil {
			return fmt.Errorf("no stage result for %s", kind)
		}
		if sr.Mode != artifact.ModeSynthetic {
			return fmt.Errorf("stage %s ran in mode %q with a dead endpoint, want %q",
				kind, sr.Mode, artifact.ModeSynthetic)
		}
	}
	return nil
}

func (s *DegradedScenario) verifyBundle(ctx context.Context, result *Result) error {
	art, err := s.harness.store.Latest(ctx, s.run.Slug, artifact.KindBundle)
	if err != nil {
		return fmt.Errorf("bundle after degraded run: %w", err)
	}
	var bundle pipeline.Bundle
	if err := art.DecodePayload(&bundle); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	if len(bundle.Refs) == 0 {
		return fmt.Errorf("degraded bundle carries no input refs")
	}

	mdPath := filepath.Join(s.harness.outputDir, "markdown", s.run.Slug+".md")
	if _, err := os.Stat(mdPath); err != nil {
		return fmt.Errorf("markdown export after degraded run: %w", err)
	}
	return nil
}
