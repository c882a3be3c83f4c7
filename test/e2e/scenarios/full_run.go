package scenarios

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/pipeline"
	e2econfig "github.com/draftforge/draftforge/test/e2e/config"
)

// FullRunScenario drives one keyword through every stage against the
// fixture-backed LLM and checks what a complete run leaves behind: ten
// stage results, a stored artifact per kind, the flat exports, the
// prompt log, and populated metrics. The score floor is pinned to 1
// because the fixtures exercise plumbing, not editorial quality.
type FullRunScenario struct {
	name        string
	description string
	config      *e2econfig.Config
	keyword     string

	harness *harness
	run     *pipeline.RunResult
}

// NewFullRunScenario creates the full pipeline run scenario.
func NewFullRunScenario(cfg *e2econfig.Config) *FullRunScenario {
	return &FullRunScenario{
		name:        "full-run",
		description: "Runs one keyword through every stage and verifies artifacts, exports, and metrics",
		config:      cfg,
		keyword:     "how to descale a kettle",
	}
}

func (s *FullRunScenario) Name() string        { return s.name }
func (s *FullRunScenario) Description() string { return s.description }

// Setup verifies the LLM endpoint is answering and builds the harness.
func (s *FullRunScenario) Setup(ctx context.Context) error {
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

// Teardown removes the scenario's artifact store.
func (s *FullRunScenario) Teardown(ctx context.Context) error {
	return s.harness.cleanup(s.config.KeepOutput)
}

// Execute runs the checks in order, stopping at the first failure.
func (s *FullRunScenario) Execute(ctx context.Context) (*Result, error) {
	result := NewResult(s.name)
	defer result.Complete()

	result.runChecks(ctx, s.config.StageTimeout, []check{
		{"run pipeline", s.runPipeline},
		{"verify stage modes", s.verifyStageModes},
		{"verify stored artifacts", s.verifyArtifacts},
		{"verify flat exports", s.verifyExports},
		{"verify prompt log", s.verifyPromptLog},
		{"verify metrics", s.verifyMetrics},
	})
	return result, nil
}

func (s *FullRunScenario) runPipeline(ctx context.Context, result *Result) error {
	run, err := s.harness.pipeline.Run(ctx, s.keyword, pipeline.Options{MinScore: 1})
	if err != nil {
		if run != nil && run.Failure != nil {
			return fmt.Errorf("run failed at %s (%s): %s", run.Failure.Stage, run.Failure.ErrorKind, run.Failure.Message)
		}
		return err
	}
	if run.State != pipeline.StateDone {
		return fmt.Errorf("run ended in state %q", run.State)
	}
	if run.Score <= 0 {
		return fmt.Errorf("run completed with score %d", run.Score)
	}

	s.run = run
	result.SetDetail("slug", run.Slug)
	result.SetDetail("run_id", run.RunID)
	result.SetDetail("score", run.Score)
	for _, w := range run.Warnings {
		result.AddWarning(w)
	}
	return nil
}

// verifyStageModes checks that every stage executed and that the LLM
// stages actually consulted the model: the research adapters run
// synthetic without credentials, while outline and draft must come back
// derived, not as their offline fallbacks.
func (s *FullRunScenario) verifyStageModes(ctx context.Context, result *Result) error {
	if got, want := len(s.run.Stages), len(artifact.Kinds()); got != want {
		return fmt.Errorf("run reported %d stages, want %d", got, want)
	}
	for _, sr := range s.run.Stages {
		if sr.Status != pipeline.StageExecuted {
			return fmt.Errorf("stage %s finished %q on a fresh store", sr.Kind, sr.Status)
		}
	}

	wantModes := map[artifact.Kind]artifact.Mode{
		artifact.KindKeywordMetrics: artifact.ModeSynthetic,
		artifact.KindPAA:            artifact.ModeSynthetic,
		artifact.KindSERP:           artifact.ModeSynthetic,
		artifact.KindResearch:       artifact.ModeSynthetic,
		artifact.KindOutline:        artifact.ModeDerived,
		artifact.KindDraft:          artifact.ModeDerived,
	}
	for kind, want := range wantModes {
		sr := stageOf(s.run, kind)
		if sr == nil {
			return fmt.Errorf("no stage result for %s", kind)
		}
		if sr.Mode != want {
			return fmt.Errorf("stage %s ran in mode %q, want %q", kind, sr.Mode, want)
		}
	}
	return nil
}

func (s *FullRunScenario) verifyArtifacts(ctx context.Context, result *Result) error {
	ix, err := s.harness.store.Index(ctx, s.run.Slug)
	if err != nil {
		return err
	}
	for _, kind := range artifact.Kinds() {
		latest := ix.Latest(kind)
		if latest == nil {
			return fmt.Errorf("no stored revision for %s", kind)
		}
		if latest.Revision != 1 {
			return fmt.Errorf("%s at revision %d after one run", kind, latest.Revision)
		}
	}

	art, err := s.harness.store.Latest(ctx, s.run.Slug, artifact.KindBundle)
	if err != nil {
		return err
	}
	var bundle pipeline.Bundle
	if err := art.DecodePayload(&bundle); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	if bundle.Slug != s.run.Slug {
		return fmt.Errorf("bundle slug %q, want %q", bundle.Slug, s.run.Slug)
	}
	if len(bundle.Refs) == 0 {
		return fmt.Errorf("bundle carries no input refs")
	}
	if bundle.Score != s.run.Score {
		return fmt.Errorf("bundle score %d, run reported %d", bundle.Score, s.run.Score)
	}
	result.SetDetail("bundle_refs", len(bundle.Refs))
	return nil
}

func (s *FullRunScenario) verifyExports(ctx context.Context, result *Result) error {
	mdPath := filepath.Join(s.harness.outputDir, "markdown", s.run.Slug+".md")
	data, err := os.ReadFile(mdPath)
	if err != nil {
		return fmt.Errorf("markdown export: %w", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "---\n") {
		return fmt.Errorf("markdown export missing front matter")
	}
	if !strings.Contains(text, "\n# ") {
		return fmt.Errorf("markdown export missing article heading")
	}
	result.SetDetail("markdown_bytes", len(data))

	flat := filepath.Join(s.harness.outputDir, "research",
		fmt.Sprintf("%s-%s.json", s.run.Slug, artifact.KindSERP))
	if _, err := os.Stat(flat); err != nil {
		return fmt.Errorf("research flat view: %w", err)
	}
	images := filepath.Join(s.harness.outputDir, "images", s.run.Slug+"-images.json")
	if _, err := os.Stat(images); err != nil {
		return fmt.Errorf("images flat view: %w", err)
	}
	return nil
}

// verifyPromptLog checks that every LLM call left a record under the
// slug's prompt directory.
func (s *FullRunScenario) verifyPromptLog(ctx context.Context, result *Result) error {
	promptDir := filepath.Join(s.harness.store.SlugDir(s.run.Slug), "prompts")
	days, err := os.ReadDir(promptDir)
	if err != nil {
		return fmt.Errorf("prompt log: %w", err)
	}

	records := 0
	for _, day := range days {
		if !day.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(promptDir, day.Name()))
		if err != nil {
			return err
		}
		records += len(entries)
	}
	// At minimum the outline call and one writing call per section.
	if records < 4 {
		return fmt.Errorf("prompt log holds %d records, expected at least 4", records)
	}
	result.SetDetail("prompt_records", records)
	return nil
}

func (s *FullRunScenario) verifyMetrics(ctx context.Context, result *Result) error {
	families, err := s.harness.metrics.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	if len(families) == 0 {
		return fmt.Errorf("no metric families after a full run")
	}
	result.SetDetail("metric_families", len(families))
	return nil
}

// stageOf finds one stage's result within a run.
func stageOf(run *pipeline.RunResult, kind artifact.Kind) *pipeline.StageResult {
	for i := range run.Stages {
		if run.Stages[i].Kind == kind {
			return &run.Stages[i]
		}
	}
	return nil
}
