// Package pipeline provides the high-level orchestration of refinement runs:
// configuration, LLM clients, oracles, the controller, persistence and progress.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonathan/essay-refiner/internal/config"
	"github.com/jonathan/essay-refiner/internal/llm"
	"github.com/jonathan/essay-refiner/internal/observability"
	"github.com/jonathan/essay-refiner/internal/oracle"
	"github.com/jonathan/essay-refiner/internal/refine"
	"github.com/jonathan/essay-refiner/internal/rubric"
	"github.com/jonathan/essay-refiner/internal/scoring"
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
	"github.com/jonathan/essay-refiner/internal/validation"
)

// EngineOptions holds the optional collaborators of an Engine.
type EngineOptions struct {
	Logger *slog.Logger
	// Client overrides the LLM client built from the configuration.
	Client llm.Client
	// Registerer receives the Prometheus collectors. Nil disables metrics.
	Registerer prometheus.Registerer
	// Store persists runs. Nil disables persistence.
	Store Store
}

// Engine holds everything a run needs that can be shared across runs.
// Per-run state lives in the controller's run and never in the Engine.
type Engine struct {
	cfg     config.Config
	client  llm.Client
	oracle  *oracle.LLM
	scorer  *scoring.Scorer
	loop    *validation.Loop
	rubric  *rubric.Rubric
	library *strategy.Library
	metrics refine.MetricsCollector
	store   Store
	logger  *slog.Logger
}

// NewEngine builds an engine from a merged and validated configuration.
func NewEngine(ctx context.Context, cfg config.Config, opts EngineOptions) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r, err := loadRubric(cfg)
	if err != nil {
		return nil, err
	}
	library, err := LoadLibrary(cfg)
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		client, err = newClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	client = llm.NewRateLimited(client, cfg.RequestsPerMinute)

	var metrics refine.MetricsCollector = refine.NoOpMetrics{}
	loopOpts := []validation.LoopOption{
		validation.WithMaxAttempts(cfg.MaxAttempts),
		validation.WithLoopLogger(logger),
	}
	if opts.Registerer != nil {
		m := observability.NewMetrics(opts.Registerer)
		metrics = m
		loopOpts = append(loopOpts, validation.WithAttemptHook(m.ObserveAttempt))
	}

	timeout := time.Duration(cfg.TimeoutSeconds()) * time.Second
	if timeout > 0 {
		loopOpts = append(loopOpts, validation.WithGenerationTimeout(timeout))
	}

	orc := oracle.New(client, logger)
	validator := validation.NewValidator(orc,
		validation.WithThreshold(cfg.QualityThreshold),
		validation.WithFailOpenScore(cfg.FailOpenScore),
		validation.WithValidationTimeout(timeout),
		validation.WithValidatorLogger(logger),
	)

	return &Engine{
		cfg:     cfg,
		client:  client,
		oracle:  orc,
		scorer:  scoring.NewScorer(orc, scoring.WithSamples(cfg.ScoreSamples), scoring.WithTimeout(timeout)),
		loop:    validation.NewLoop(orc, validator, loopOpts...),
		rubric:  r,
		library: library,
		metrics: metrics,
		store:   opts.Store,
		logger:  logger,
	}, nil
}

// Close releases the LLM client.
func (e *Engine) Close() error {
	return e.client.Close()
}

// Rubric returns the rubric runs are scored against.
func (e *Engine) Rubric() *rubric.Rubric {
	return e.rubric
}

// Library returns the strategy library runs select from.
func (e *Engine) Library() *strategy.Library {
	return e.library
}

// RefineConfig converts the file configuration into a run configuration.
func RefineConfig(cfg config.Config) refine.Config {
	return refine.Config{
		TargetScore:      cfg.TargetScore,
		MaxIterations:    cfg.MaxIterations,
		StagnationWindow: cfg.StagnationWindow,
		RegressionMargin: cfg.Margin(),
		GoodEnoughFloor:  cfg.GoodEnoughFloor,
	}
}

// controller builds a controller bound to one run's progress callback.
func (e *Engine) controller(onProgress refine.ProgressCallback) (*refine.Controller, error) {
	return refine.NewController(e.scorer, e.loop, e.rubric, e.library, RefineConfig(e.cfg), refine.Options{
		Logger:     e.logger,
		OnProgress: onProgress,
		Metrics:    e.metrics,
	})
}

func newClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	llmCfg, err := llm.ConfigFor(llm.Provider(cfg.Provider))
	if err != nil {
		return nil, err
	}
	if cfg.Model != "" {
		llmCfg = llmCfg.WithAllModels(cfg.Model)
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.ResolveAPIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}
	return client, nil
}

func loadRubric(cfg config.Config) (*rubric.Rubric, error) {
	reg := rubric.NewRegistry()
	if cfg.RubricFile != "" {
		if err := reg.LoadFile(cfg.RubricFile); err != nil {
			return nil, err
		}
	}
	return reg.Get(cfg.RubricVersion)
}

// LoadLibrary builds the strategy library a configuration selects: the
// built-in catalog, then file overrides, then the configured subset.
func LoadLibrary(cfg config.Config) (*strategy.Library, error) {
	library := strategy.DefaultLibrary()
	if cfg.StrategyFile != "" {
		var err error
		library, err = library.LoadOverrides(cfg.StrategyFile)
		if err != nil {
			return nil, err
		}
	}
	if len(cfg.Strategies) > 0 {
		ids := make([]types.StrategyID, len(cfg.Strategies))
		for i, s := range cfg.Strategies {
			ids[i] = types.StrategyID(s)
		}
		return library.Restrict(ids)
	}
	return library, nil
}
