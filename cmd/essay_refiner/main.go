// Package main provides the command line entry point for the essay refiner.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	verbose     bool
	provider    string
	model       string
	apiKey      string
	databaseURL string
)

var rootCmd = &cobra.Command{
	Use:   "essay_refiner",
	Short: "Score-guided iterative essay refinement",
	Long: `Essay Refiner scores an essay against a weighted rubric, targets its weakest
category with a rewrite strategy, validates each candidate and keeps the best
version it has seen.

Configuration can be loaded from a JSON file using --config. Command-line flags override config file values.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "LLM provider: gemini, anthropic or openai")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Model name used for every tier (optional)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Provider API key (optional, defaults to the provider's env var)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
