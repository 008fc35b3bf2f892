package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonathan/essay-refiner/internal/observability"
	"github.com/jonathan/essay-refiner/internal/pipeline"
)

var refineCmd = &cobra.Command{
	Use:   "refine <essay> [essay...]",
	Short: "Iteratively refine one or more essays",
	Long: `Scores each essay, applies one rewrite strategy per iteration to its weakest
category and stops when the target is reached, the budget is spent, no
strategy applies or scores stop improving. Pass "-" to read an essay from stdin.

Several essays run concurrently, bounded by batch_concurrency.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRefine,
}

var (
	refineProfile       string
	refineTarget        int
	refineMaxIterations int
	refineOut           string
)

func init() {
	refineCmd.Flags().StringVarP(&refineProfile, "profile", "p", "", "Path to source profile (YAML or JSON)")
	refineCmd.Flags().IntVar(&refineTarget, "target", 0, "Target composite score (0-100)")
	refineCmd.Flags().IntVar(&refineMaxIterations, "max-iterations", 0, "Maximum refinement iterations")
	refineCmd.Flags().StringVarP(&refineOut, "out", "o", "", "Write the best text to this file (single essay only)")
	rootCmd.AddCommand(refineCmd)
}

func runRefine(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("target") {
		cfg.TargetScore = refineTarget
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.MaxIterations = refineMaxIterations
	}
	if refineOut != "" && len(args) > 1 {
		return fmt.Errorf("--out can only be used with a single essay")
	}

	profile, err := readProfile(refineProfile)
	if err != nil {
		return err
	}

	inputs := make([]pipeline.RunOptions, len(args))
	for i, path := range args {
		text, err := readText(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		inputs[i] = pipeline.RunOptions{Text: text, Profile: profile}
	}

	engine, _, closeAll, err := openEngine(ctx, cfg, pipeline.EngineOptions{Logger: newLogger(cfg.Verbose, slog.LevelWarn)})
	if err != nil {
		return err
	}
	defer closeAll()

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)

	if len(inputs) == 1 {
		if cfg.Verbose {
			inputs[0].OnProgress = progressPrinter(out)
		}
		result, err := engine.Run(ctx, inputs[0])
		if err != nil {
			return err
		}
		printer.PrintScorecard("BEST SCORECARD", result.BestScorecard(cfg.RubricVersion))
		printer.PrintResult(result)
		_, _ = fmt.Fprintf(out, "\n%s\n", stopColor(result.StopReason)(fmt.Sprintf("Stopped: %s at %d/100", result.StopReason, result.Best.CompositeScore)))

		if refineOut != "" {
			if err := os.WriteFile(refineOut, []byte(result.Best.Text+"\n"), 0644); err != nil {
				return fmt.Errorf("failed to write best text: %w", err)
			}
			_, _ = fmt.Fprintf(out, "Best text written to %s\n", refineOut)
		} else {
			_, _ = fmt.Fprintf(out, "\n%s\n", result.Best.Text)
		}
		return nil
	}

	red := color.New(color.FgRed).SprintFunc()
	failed := 0
	for _, br := range engine.RunBatch(ctx, inputs, cfg.BatchConcurrency) {
		path := args[br.Index]
		if br.Err != nil {
			failed++
			_, _ = fmt.Fprintf(out, "%s %s: %v\n", red("✗"), path, br.Err)
			continue
		}
		paint := stopColor(br.Result.StopReason)
		_, _ = fmt.Fprintf(out, "%s %s: %s, best %d/100 after %d refinements\n",
			paint("✓"), path, paint(string(br.Result.StopReason)), br.Result.Best.CompositeScore, br.Result.Refinements)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d essays failed", failed, len(inputs))
	}
	return nil
}
