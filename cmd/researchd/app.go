package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/checkpoint"
	"github.com/fyrsmithlabs/researchd/internal/config"
	"github.com/fyrsmithlabs/researchd/internal/gh"
	"github.com/fyrsmithlabs/researchd/internal/llm"
	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
	"github.com/fyrsmithlabs/researchd/internal/schema"
	"github.com/fyrsmithlabs/researchd/internal/search"
	"github.com/fyrsmithlabs/researchd/internal/stages"
	"github.com/fyrsmithlabs/researchd/internal/telemetry"
)

// app holds the process-wide collaborators shared by all commands.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
}

// newApp loads configuration and initializes logging and telemetry.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	zapLevel, err := logging.LevelFromString(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Insecure:       cfg.Telemetry.Insecure,
		ExportInterval: cfg.Telemetry.ExportInterval,
		Shutdown: telemetry.ShutdownConfig{
			Timeout: config.Duration(5 * time.Second),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Level = zapLevel
	logCfg.Format = cfg.Logging.Format
	logCfg.Output.OTEL = cfg.Logging.OTEL
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}

	return &app{cfg: cfg, logger: logger, telemetry: tel}, nil
}

// Close flushes logs and shuts telemetry down.
func (a *app) Close(ctx context.Context) {
	if err := a.logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "log sync: %v\n", err)
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
	}
}

// newDriver assembles the pipeline: collaborators, stages, routing,
// and checkpointing. Optional tools (web search, GitHub) are wired
// only when configured; their stages degrade gracefully without them.
func (a *app) newDriver(ctx context.Context) (*pipeline.Driver, *checkpoint.Store, error) {
	cfg := a.cfg
	log := a.logger

	validator, err := schema.Load(cfg.Run.SchemaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading proposal schema: %w", err)
	}
	schemaJSON, err := os.ReadFile(cfg.Run.SchemaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading proposal schema: %w", err)
	}

	var searcher stages.WebSearcher
	if cfg.Search.TavilyAPIKey.IsSet() {
		client, err := search.NewClient(search.Config{
			APIKey:     cfg.Search.TavilyAPIKey.Value(),
			MaxResults: cfg.Search.MaxResults,
			RatePerSec: cfg.Search.RatePerSecond,
			Burst:      cfg.Search.Burst,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("initializing web search: %w", err)
		}
		searcher = client
	} else {
		log.Warn(ctx, "tavily API key not set, web research will be skipped")
	}

	var repos stages.RepoSearcher
	var issues stages.IssueCreator
	if cfg.GitHub.Token.IsSet() {
		client, err := gh.NewClient(ctx, cfg.GitHub.Token)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing GitHub client: %w", err)
		}
		repos = client
		issues = client
	} else {
		log.Warn(ctx, "GitHub token not set, prior art search and publishing disabled")
	}

	factory := llm.NewFactory(cfg.LLM)
	criticismLLM, err := factory.ForStage(cfg.Stage("criticism"))
	if err != nil {
		log.Warn(ctx, "criticism LLM unavailable", zap.Error(err))
		criticismLLM = nil
	}
	synthesisLLM, err := factory.ForStage(cfg.Stage("synthesize"))
	if err != nil {
		return nil, nil, fmt.Errorf("initializing synthesis LLM: %w", err)
	}

	gate := pipeline.NewQualityGate(pipeline.GateConfig{
		FindingsThreshold:     cfg.Run.FindingsThreshold,
		MinViabilityScore:     cfg.Run.MinViabilityScore,
		MaxPlanningIterations: cfg.Run.MaxPlanningIterations,
	})

	all := []pipeline.Stage{
		stages.NewPlan(log),
		stages.NewResearch(searcher, log),
		stages.NewPriorArt(repos, gate, log),
		stages.NewCriticism(criticismLLM, gate, log),
		stages.NewSynthesize(synthesisLLM, string(schemaJSON), log),
		stages.NewValidate(validator, log),
		stages.NewPersist(cfg.Run.OutputDir, log),
		stages.NewPublish(issues, cfg.GitHub.IssueRepo, log),
	}

	seq, err := pipeline.Build(all, a.stageEnabled)
	if err != nil {
		return nil, nil, fmt.Errorf("building pipeline: %w", err)
	}

	store, err := checkpoint.NewStore(cfg.Run.CheckpointDir, ".", log)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing checkpoint store: %w", err)
	}

	router := pipeline.NewRouter(seq, pipeline.RouterConfig{
		MaxRepairAttempts: cfg.Run.MaxRepairAttempts,
	})
	return pipeline.NewDriver(seq, router, store, log), store, nil
}

// stageEnabled applies stage toggles from configuration. Publishing is
// opt-in; every other stage is enabled unless explicitly disabled.
func (a *app) stageEnabled(name pipeline.StageName) bool {
	sc := a.cfg.Stage(string(name))
	if name == pipeline.StagePublish {
		return sc.Enabled != nil && *sc.Enabled
	}
	return sc.IsEnabled()
}
