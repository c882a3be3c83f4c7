package scenarios

import (
	"context"
	"fmt"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/pipeline"
	e2econfig "github.com/draftforge/draftforge/test/e2e/config"
)

// ReuseScenario runs the same keyword three times: the first run
// executes everything, the second must reuse every stored artifact
// without touching the LLM, and a forced third run must re-execute and
// bump every revision.
type ReuseScenario struct {
	name        string
	description string
	config      *e2econfig.Config
	keyword     string

	harness *harness
	first   *pipeline.RunResult
}

// NewReuseScenario creates the artifact reuse scenario.
func NewReuseScenario(cfg *e2econfig.Config) *ReuseScenario {
	return &ReuseScenario{
		name:        "reuse",
		description: "Re-running a keyword reuses stored artifacts until a forced run bypasses them",
		config:      cfg,
		keyword:     "cast iron skillet seasoning",
	}
}

func (s *ReuseScenario) Name() string        { return s.name }
func (s *ReuseScenario) Description() string { return s.description }

func (s *ReuseScenario) Setup(ctx context.Context) error {
	if err := checkEndpoint(s.config.LLMURL); err != nil {
		return err
	}
	h, err := newHarness(s.config, s.config.LLMURL)
	if err != nil {
		return err
	}
	s.harness = h
	return nil
}

func (s *ReuseScenario) Teardown(ctx context.Context) error {
	return s.harness.cleanup(s.config.KeepOutput)
}

func (s *ReuseScenario) Execute(ctx context.Context) (*Result, error) {
	result := NewResult(s.name)
	defer result.Complete()

	result.runChecks(ctx, s.config.StageTimeout, []check{
		{"first run executes", s.firstRun},
		{"second run reuses", s.secondRun},
		{"forced run re-executes", s.forcedRun},
	})
	return result, nil
}

func (s *ReuseScenario) firstRun(ctx context.Context, result *Result) error {
	run, err := s.harness.pipeline.Run(ctx, s.keyword, pipeline.Options{MinScore: 1})
	if err != nil {
		return err
	}
	for _, sr := range run.Stages {
		if sr.Status != pipeline.StageExecuted {
			return fmt.Errorf("stage %s finished %q on a fresh store", sr.Kind, sr.Status)
		}
	}
	s.first = run
	result.SetDetail("slug", run.Slug)
	return nil
}

func (s *ReuseScenario) secondRun(ctx context.Context, result *Result) error {
	run, err := s.harness.pipeline.Run(ctx, s.keyword, pipeline.Options{MinScore: 1})
	if err != nil {
		return err
	}
	for _, sr := range run.Stages {
		if sr.Status != pipeline.StageReused {
			return fmt.Errorf("stage %s finished %q, want reuse on an identical run", sr.Kind, sr.Status)
		}
		if sr.Revision != 1 {
			return fmt.Errorf("stage %s reused revision %d, want 1", sr.Kind, sr.Revision)
		}
	}
	if run.Score != s.first.Score {
		return fmt.Errorf("reused run reported score %d, first run had %d", run.Score, s.first.Score)
	}
	return nil
}

func (s *ReuseScenario) forcedRun(ctx context.Context, result *Result) error {
	run, err := s.harness.pipeline.Run(ctx, s.keyword, pipeline.Options{MinScore: 1, ForceAPI: true})
	if err != nil {
		return err
	}
	for _, sr := range run.Stages {
		if sr.Status != pipeline.StageExecuted {
			return fmt.Errorf("stage %s finished %q under force", sr.Kind, sr.Status)
		}
		if sr.Revision != 2 {
			return fmt.Errorf("stage %s at revision %d after a forced re-run, want 2", sr.Kind, sr.Revision)
		}
	}

	ix, err := s.harness.store.Index(ctx, run.Slug)
	if err != nil {
		return err
	}
	if latest := ix.Latest(artifact.KindBundle); latest == nil || latest.Revision != 2 {
		return fmt.Errorf("bundle index did not advance to revision 2")
	}
	return nil
}
