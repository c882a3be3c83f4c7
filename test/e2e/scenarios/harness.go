package scenarios

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/model"
	"github.com/draftforge/draftforge/pipeline"
	"github.com/draftforge/draftforge/provider"
	e2econfig "github.com/draftforge/draftforge/test/e2e/config"
)

// harness assembles a full pipeline against a throwaway artifact store,
// mirroring the production command wiring with two deliberate
// differences: provider credentials stay empty so the research adapters
// never call live APIs, and every LLM capability routes to its own
// named model so fixtures can script stages independently.
type harness struct {
	cfg       *config.Config
	store     *artifact.Store
	pipeline  *pipeline.Pipeline
	metrics   *prometheus.Registry
	logger    *slog.Logger
	outputDir string
}

func newHarness(ecfg *e2econfig.Config, llmURL string, clientOpts ...llm.ClientOption) (*harness, error) {
	dir, err := os.MkdirTemp("", "draftforge-e2e-")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.DefaultConfig()
	cfg.Output.Dir = dir
	cfg.LLM.Endpoint = llmURL
	cfg.LLM.Timeout = ecfg.StageTimeout
	cfg.Pipeline.StageTimeout = ecfg.StageTimeout

	store, err := artifact.NewStore(dir, artifact.WithLogger(logger))
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	opts := append([]llm.ClientOption{
		llm.WithLogger(logger),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
		llm.WithRecorder(llm.NewPromptLog(store.SlugDir, llm.WithPromptLogLogger(logger))),
	}, clientOpts...)
	completer := llm.NewClient(stageRegistry(llmURL, cfg.LLM.MaxTokens), opts...)

	// Zero credentials on purpose. Exported API keys must not turn a
	// test run into live provider traffic.
	var creds config.Credentials
	base := provider.NewBase(
		provider.WithLogger(logger),
		provider.WithHTTPClient(&http.Client{Timeout: cfg.Providers.Timeout}),
	)
	providers := provider.NewRegistry()
	providers.Register(provider.NewKeywordMetrics(base, creds))
	providers.Register(provider.NewPeopleAlsoAsk(base, creds))
	providers.Register(provider.NewSERP(base, creds, provider.WithPageText(provider.NewPageText(base))))
	providers.Register(provider.NewResearch(completer, creds))

	metrics := prometheus.NewRegistry()
	p := pipeline.New(store, providers, completer,
		pipeline.WithConfig(cfg),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(pipeline.NewMetrics(metrics)),
	)

	return &harness{
		cfg:       cfg,
		store:     store,
		pipeline:  p,
		metrics:   metrics,
		logger:    logger,
		outputDir: dir,
	}, nil
}

// stageRegistry gives each capability its own endpoint name so the mock
// can answer outline, writing, and refinement calls with different
// fixtures. All of them point at the same URL.
func stageRegistry(llmURL string, maxTokens int) *model.Registry {
	caps := map[model.Capability]*model.CapabilityConfig{
		model.CapabilityResearch:   {Preferred: []string{e2econfig.ResearchModel}},
		model.CapabilityOutline:    {Preferred: []string{e2econfig.OutlineModel}},
		model.CapabilityWriting:    {Preferred: []string{e2econfig.WritingModel}},
		model.CapabilityRefinement: {Preferred: []string{e2econfig.RefineModel}},
		model.CapabilityFast:       {Preferred: []string{e2econfig.WritingModel}},
	}
	endpoints := make(map[string]*model.EndpointConfig)
	for _, name := range []string{
		e2econfig.ResearchModel,
		e2econfig.OutlineModel,
		e2econfig.WritingModel,
		e2econfig.RefineModel,
	} {
		endpoints[name] = &model.EndpointConfig{
			Provider:  "openai",
			URL:       llmURL,
			Model:     name,
			MaxTokens: maxTokens,
		}
	}
	return model.NewRegistry(caps, endpoints)
}

// cleanup removes the scenario's artifact store unless the run asked to
// keep it for inspection.
func (h *harness) cleanup(keepOutput bool) error {
	if h == nil {
		return nil
	}
	if keepOutput {
		fmt.Printf("  output kept at %s\n", h.outputDir)
		return nil
	}
	return os.RemoveAll(h.outputDir)
}

// checkEndpoint verifies the configured LLM endpoint is reachable before
// a scenario starts, so a missing mock fails fast with a clear message
// instead of burning the per-stage retry budget.
func checkEndpoint(llmURL string) error {
	resp, err := http.Get(llmURL + "/models")
	if err != nil {
		return fmt.Errorf("LLM endpoint %s unreachable (start `mock-llm -fixtures test/e2e/fixtures`): %w", llmURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LLM endpoint %s returned %d", llmURL, resp.StatusCode)
	}
	return nil
}
