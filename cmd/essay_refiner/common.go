package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/essay-refiner/internal/config"
	"github.com/jonathan/essay-refiner/internal/db"
	"github.com/jonathan/essay-refiner/internal/pipeline"
	"github.com/jonathan/essay-refiner/internal/refine"
	"github.com/jonathan/essay-refiner/internal/types"
)

// resolveConfig loads the config file, applies flag overrides, fills defaults and validates.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("provider") {
		cfg.Provider = provider
	}
	if flags.Changed("model") {
		cfg.Model = model
	}
	if flags.Changed("api-key") {
		cfg.APIKey = apiKey
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = databaseURL
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	cfg = cfg.MergeWithDefaults(config.Default())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger returns a text logger on stderr at the given level; verbose lowers it to debug.
func newLogger(verbose bool, level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// readText reads an essay from path, or from stdin when path is "-".
func readText(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read essay %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("essay %s is empty", path)
	}
	return text, nil
}

// readProfile loads a source profile from a YAML or JSON file. An empty path
// yields an empty profile.
func readProfile(path string) (types.SourceProfile, error) {
	var profile types.SourceProfile
	if path == "" {
		return profile, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return profile, fmt.Errorf("invalid profile: %w", err)
	}
	return profile, nil
}

// openEngine builds an engine, connecting run storage when a database URL is
// configured. The returned func releases both.
func openEngine(ctx context.Context, cfg config.Config, opts pipeline.EngineOptions) (*pipeline.Engine, *db.DB, func(), error) {
	var database *db.DB
	if cfg.DatabaseURL != "" {
		var err error
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, nil, err
		}
		opts.Store = database
	}

	engine, err := pipeline.NewEngine(ctx, cfg, opts)
	if err != nil {
		if database != nil {
			database.Close()
		}
		return nil, nil, nil, err
	}

	closeAll := func() {
		_ = engine.Close()
		if database != nil {
			database.Close()
		}
	}
	return engine, database, closeAll, nil
}

// progressPrinter writes one colored line per controller event.
func progressPrinter(w io.Writer) refine.ProgressCallback {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	return func(ev refine.ProgressEvent) {
		paint := gray
		switch ev.Step {
		case refine.StepCandidateAccepted, refine.StepStopped:
			paint = green
		case refine.StepWorkItemDropped, refine.StepWorkItemAbandoned:
			paint = yellow
		case refine.StepRollback:
			paint = red
		}
		_, _ = fmt.Fprintf(w, "  %s %s\n", paint("•"), paint(ev.Message))
	}
}

// stopColor picks a color for a stop reason.
func stopColor(reason refine.StopReason) func(a ...any) string {
	switch reason {
	case refine.Converged:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	case refine.Stagnant, refine.Exhausted:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgCyan).SprintFunc()
	}
}
