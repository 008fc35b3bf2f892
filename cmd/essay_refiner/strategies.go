package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/essay-refiner/internal/observability"
	"github.com/jonathan/essay-refiner/internal/pipeline"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the strategy library in selection order",
	Long:  `Lists the built-in strategies after applying strategy_file overrides and the strategies allowlist from the config.`,
	Args:  cobra.NoArgs,
	RunE:  runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	library, err := pipeline.LoadLibrary(cfg)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintStrategies(library)
	return nil
}
