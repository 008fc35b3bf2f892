package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonathan/essay-refiner/internal/diagnosis"
	"github.com/jonathan/essay-refiner/internal/observability"
	"github.com/jonathan/essay-refiner/internal/pipeline"
)

var scoreCmd = &cobra.Command{
	Use:   "score <essay>",
	Short: "Score an essay once and report its weakest category",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	text, err := readText(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	// Scoring a single text never persists anything.
	cfg.DatabaseURL = ""
	engine, _, closeAll, err := openEngine(ctx, cfg, pipeline.EngineOptions{Logger: newLogger(cfg.Verbose, slog.LevelWarn)})
	if err != nil {
		return err
	}
	defer closeAll()

	result, err := engine.Score(ctx, text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	observability.NewPrinter(out).PrintScorecard("SCORECARD", result.Scorecard)

	switch result.Diagnosis {
	case diagnosis.StatusGap:
		yellow := color.New(color.FgYellow).SprintFunc()
		_, _ = fmt.Fprintf(out, "\nWeakest category: %s\n", yellow(result.Category))
		if len(result.BelowFloor) > 1 {
			_, _ = fmt.Fprintf(out, "Below floor:      %s\n", strings.Join(result.BelowFloor, ", "))
		}
	default:
		green := color.New(color.FgGreen).SprintFunc()
		_, _ = fmt.Fprintf(out, "\n%s\n", green("Every category is at or above the floor"))
	}
	return nil
}
