package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/imageplan"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/model"
	"github.com/draftforge/draftforge/pipeline"
	"github.com/draftforge/draftforge/provider"
	"github.com/draftforge/draftforge/storage"
)

// Env bundles what subcommands need once the process is wired: loaded
// config, the artifact store, the assembled pipeline, and the metrics
// registry. Callers own the Env and must Close it.
type Env struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *artifact.Store
	Pipeline *pipeline.Pipeline
	Metrics  *prometheus.Registry

	metricsFile string
	natsConn    *nats.Conn
	embedded    *server.Server
}

// buildEnv loads config and assembles the pipeline with all providers
// registered. Provider credentials come from the environment; missing
// ones are logged, not fatal, because the affected adapters degrade to
// synthetic output.
func buildEnv(ctx context.Context, opts *rootOptions) (*Env, error) {
	logger := newLogger(opts.logLevel)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}

	creds := config.CredentialsFromEnv()
	if missing := creds.Missing(); len(missing) > 0 {
		logger.Warn("provider credentials missing, affected stages run synthetic", "env", missing)
	}

	env := &Env{
		Cfg:         cfg,
		Logger:      logger,
		metricsFile: opts.metricsFile,
	}

	storeOpts := []artifact.StoreOption{artifact.WithLogger(logger)}
	if cfg.Mirror.Enabled() {
		mirror, err := env.startMirror(ctx)
		if err != nil {
			env.Close()
			return nil, err
		}
		storeOpts = append(storeOpts, artifact.WithMirror(mirror))
	}

	store, err := artifact.NewStore(cfg.Output.Dir, storeOpts...)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Store = store

	reg, err := modelRegistry(opts.modelsPath, cfg)
	if err != nil {
		env.Close()
		return nil, err
	}

	completer := llm.NewClient(reg,
		llm.WithLogger(logger),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
		llm.WithRecorder(llm.NewPromptLog(store.SlugDir, llm.WithPromptLogLogger(logger))),
	)

	base := provider.NewBase(
		provider.WithLogger(logger),
		provider.WithMinInterval(cfg.Providers.MinInterval),
		provider.WithHTTPClient(&http.Client{Timeout: cfg.Providers.Timeout}),
	)

	serpOpts := []provider.SERPOption{provider.WithPageText(provider.NewPageText(base))}
	if cfg.Providers.SERPEndpoint != "" {
		serpOpts = append(serpOpts, provider.WithSERPEndpoint(cfg.Providers.SERPEndpoint))
	}

	providers := provider.NewRegistry()
	providers.Register(provider.NewKeywordMetrics(base, creds))
	providers.Register(provider.NewPeopleAlsoAsk(base, creds))
	providers.Register(provider.NewSERP(base, creds, serpOpts...))
	providers.Register(provider.NewResearch(completer, creds))

	planner := imageplan.NewPlanner(provider.NewImageService(base, creds), imageplan.WithLogger(logger))

	env.Metrics = prometheus.NewRegistry()
	env.Pipeline = pipeline.New(store, providers, completer,
		pipeline.WithConfig(cfg),
		pipeline.WithLogger(logger),
		pipeline.WithPlanner(planner),
		pipeline.WithMetrics(pipeline.NewMetrics(env.Metrics)),
	)

	return env, nil
}

// buildStoreEnv wires config and the artifact store only, for
// administrative commands that never touch providers or the mirror.
func buildStoreEnv(opts *rootOptions) (*Env, error) {
	logger := newLogger(opts.logLevel)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}

	store, err := artifact.NewStore(cfg.Output.Dir, artifact.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &Env{Cfg: cfg, Logger: logger, Store: store}, nil
}

// startMirror connects the artifact mirror, booting an embedded NATS
// server when no URL is configured. The connection and server handles
// land on e so Close can release them.
func (e *Env) startMirror(ctx context.Context) (*storage.KVMirror, error) {
	if e.Cfg.Mirror.URL != "" {
		conn, err := nats.Connect(e.Cfg.Mirror.URL, nats.Name(appName), nats.MaxReconnects(-1))
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		e.natsConn = conn
	} else {
		opts := &server.Options{
			Port:      -1, // Random available port
			JetStream: true,
			// Keep JetStream data next to the artifacts so the mirror
			// survives across runs.
			StoreDir: filepath.Join(e.Cfg.Output.Dir, "mirror"),
			NoLog:    true,
			NoSigs:   true,
		}
		ns, err := server.NewServer(opts)
		if err != nil {
			return nil, fmt.Errorf("create embedded NATS server: %w", err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return nil, fmt.Errorf("embedded NATS server failed to start")
		}
		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return nil, fmt.Errorf("connect to embedded NATS: %w", err)
		}
		e.natsConn = conn
		e.embedded = ns
	}

	js, err := jetstream.New(e.natsConn)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	mirror, err := storage.NewKVMirror(ctx, js)
	if err != nil {
		return nil, err
	}
	e.Logger.Info("artifact mirror connected", "embedded", e.embedded != nil)
	return mirror, nil
}

// Close flushes metrics to the textfile path when one was requested,
// then tears down the mirror connection and any embedded server.
func (e *Env) Close() error {
	var err error
	if e.metricsFile != "" && e.Metrics != nil {
		if werr := prometheus.WriteToTextfile(e.metricsFile, e.Metrics); werr != nil {
			err = fmt.Errorf("write metrics file: %w", werr)
		}
	}
	if e.natsConn != nil {
		e.natsConn.Drain()
		e.natsConn.Close()
	}
	if e.embedded != nil {
		e.embedded.Shutdown()
		e.embedded.WaitForShutdown()
	}
	return err
}

// modelRegistry resolves the LLM model registry. An explicit --models
// file wins; otherwise a single-endpoint registry is built from the llm
// config so every capability resolves to the configured model. The
// configured endpoint speaks the OpenAI-compatible API, which covers
// Ollama's /v1 surface as well.
func modelRegistry(path string, cfg *config.Config) (*model.Registry, error) {
	if path != "" {
		reg, err := model.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load model registry: %w", err)
		}
		model.InitGlobal(reg)
		return reg, nil
	}

	caps := make(map[model.Capability]*model.CapabilityConfig)
	for _, c := range []model.Capability{
		model.CapabilityResearch,
		model.CapabilityOutline,
		model.CapabilityWriting,
		model.CapabilityRefinement,
		model.CapabilityFast,
	} {
		caps[c] = &model.CapabilityConfig{Preferred: []string{"default"}}
	}
	reg := model.NewRegistry(caps, map[string]*model.EndpointConfig{
		"default": {
			Provider:  "openai",
			URL:       cfg.LLM.Endpoint,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		},
	})
	model.InitGlobal(reg)
	return reg, nil
}
