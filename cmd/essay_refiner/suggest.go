package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jonathan/essay-refiner/internal/observability"
	"github.com/jonathan/essay-refiner/internal/pipeline"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <essay>",
	Short: "Propose validated rewrites for individual passages",
	Long: `Scores the essay, picks a strategy for its weakest category and asks for
rewrites of each passage. Each suggestion is validated on its own; passages
whose suggestions all fail are reported as dropped or abandoned.

Passages default to the essay's paragraphs when --passage is not given.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

var (
	suggestProfile     string
	suggestPassages    []string
	suggestMaxPassages int
)

func init() {
	suggestCmd.Flags().StringVarP(&suggestProfile, "profile", "p", "", "Path to source profile (YAML or JSON)")
	suggestCmd.Flags().StringArrayVar(&suggestPassages, "passage", nil, "Passage to rewrite (repeatable)")
	suggestCmd.Flags().IntVar(&suggestMaxPassages, "max-passages", 0, "Maximum passages to rewrite")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	text, err := readText(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	profile, err := readProfile(suggestProfile)
	if err != nil {
		return err
	}

	engine, _, closeAll, err := openEngine(ctx, cfg, pipeline.EngineOptions{Logger: newLogger(cfg.Verbose, slog.LevelWarn)})
	if err != nil {
		return err
	}
	defer closeAll()

	opts := pipeline.SuggestOptions{
		Text:        text,
		Profile:     profile,
		Passages:    suggestPassages,
		MaxPassages: suggestMaxPassages,
	}
	if cfg.Verbose {
		opts.OnProgress = progressPrinter(cmd.OutOrStdout())
	}

	result, err := engine.Suggest(ctx, opts)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintSuggestions(result)
	return nil
}
