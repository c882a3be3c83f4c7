// Package pipeline orchestrates a keyword run end to end: concurrent
// research fan-out, intent analysis, outline, draft, score-driven
// refinement, image planning, and the terminal bundle. Every stage writes
// an artifact with provenance, and a stage whose inputs are unchanged is
// reused from the store instead of re-executed.
package pipeline

import (
	"log/slog"
	"time"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/enhance"
	"github.com/draftforge/draftforge/imageplan"
	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/outline"
	"github.com/draftforge/draftforge/provider"
	"github.com/draftforge/draftforge/seo"
)

// Pipeline wires the stages together around a shared artifact store. It is
// safe for concurrent runs over distinct keywords; the store serializes
// writes per slug.
type Pipeline struct {
	store     *artifact.Store
	providers *provider.Registry
	completer llm.Completer
	synth     *outline.Synthesizer
	enhancer  *enhance.Enhancer
	planner   *imageplan.Planner
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConfig supplies the effective configuration. The default is
// config.DefaultConfig.
func WithConfig(cfg *config.Config) Option {
	return func(p *Pipeline) {
		if cfg != nil {
			p.cfg = cfg
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithPlanner overrides the image planner, usually to attach a live image
// service.
func WithPlanner(planner *imageplan.Planner) Option {
	return func(p *Pipeline) {
		if planner != nil {
			p.planner = planner
		}
	}
}

// New builds a pipeline over the given store, provider registry, and LLM
// completer. The outline synthesizer and enhancer are built from the
// completer; without WithPlanner the image stage plans placeholders only.
func New(store *artifact.Store, providers *provider.Registry, completer llm.Completer, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		providers: providers,
		completer: completer,
		cfg:       config.DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.synth == nil {
		p.synth = outline.NewSynthesizer(completer, outline.WithLogger(p.logger))
	}
	if p.enhancer == nil {
		p.enhancer = enhance.NewEnhancer(completer, enhance.WithLogger(p.logger))
	}
	if p.planner == nil {
		dead := provider.NewImageService(provider.NewBase(), config.Credentials{})
		p.planner = imageplan.NewPlanner(dead, imageplan.WithLogger(p.logger))
	}
	return p
}

// Options are the per-run switches, mapped one to one from the CLI flags.
// The zero value runs the full pipeline with configured defaults.
type Options struct {
	// ForceAPI re-executes every stage even when a stored artifact with a
	// matching input hash exists.
	ForceAPI bool

	// SkipImage drops the image-set stage; the bundle then carries no
	// image reference.
	SkipImage bool

	// SkipIntent reuses the latest stored intent profile without checking
	// its inputs. When none is stored the profile is derived from the
	// keyword text alone.
	SkipIntent bool

	// IntentOnly stops the run once the intent profile is written.
	IntentOnly bool

	// MinScore overrides pipeline.min_score as the refinement floor (1-100).
	MinScore int

	// ImageCount fixes the number of planned images (1-10).
	ImageCount int

	// NoAutoImage ignores the scorer's image-count recommendation; the
	// count falls back to ImageCount or the default.
	NoAutoImage bool
}

// State is a run's terminal position.
type State string

const (
	StateDone   State = "done"
	StateFailed State = "failed"
)

// StageStatus describes how a stage concluded within one run.
type StageStatus string

const (
	// StageReused means a stored artifact with a matching input hash stood
	// in for execution.
	StageReused StageStatus = "reused"

	// StageExecuted means the stage ran and wrote a new revision.
	StageExecuted StageStatus = "executed"

	// StageFailed means the stage failed after its retries.
	StageFailed StageStatus = "failed"
)

// StageResult is one stage's outcome within a run.
type StageResult struct {
	Kind     artifact.Kind `json:"kind"`
	Status   StageStatus   `json:"status"`
	Revision int           `json:"revision,omitempty"`
	Mode     artifact.Mode `json:"mode,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// RunResult is what one keyword run reports back. Failed runs carry a
// FailureReport; completed runs carry the bundle artifact and the final
// refinement outcome.
type RunResult struct {
	Keyword   string             `json:"keyword"`
	Slug      string             `json:"slug"`
	RunID     string             `json:"run_id"`
	State     State              `json:"state"`
	Stages    []StageResult      `json:"stages"`
	Score     int                `json:"score,omitempty"`
	Iteration int                `json:"iteration,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
	Failure   *FailureReport     `json:"failure,omitempty"`
	Bundle    *artifact.Artifact `json:"-"`
}

// runContext carries one run's working state between stages.
type runContext struct {
	kw        keyword.Keyword
	opts      Options
	runID     string
	artifacts map[artifact.Kind]*artifact.Artifact

	research *provider.ResearchPayload
	profile  *intent.Profile
	outline  *outline.Outline
	draft    *enhance.Draft
	scored   *seo.Result
	warnings []string
}

func (p *Pipeline) effectiveMinScore(opts Options) int {
	if opts.MinScore > 0 {
		return opts.MinScore
	}
	if p.cfg.Pipeline.MinScore > 0 {
		return p.cfg.Pipeline.MinScore
	}
	return 85
}
