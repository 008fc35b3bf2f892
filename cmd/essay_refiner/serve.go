package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jonathan/essay-refiner/internal/pipeline"
	"github.com/jonathan/essay-refiner/internal/server"
	"github.com/jonathan/essay-refiner/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes refinement, scoring and suggestion endpoints.
Runs are persisted when DATABASE_URL (or --db-url) is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose, slog.LevelInfo)

	engine, database, closeAll, err := openEngine(ctx, cfg, pipeline.EngineOptions{
		Logger:     logger,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}
	defer closeAll()

	// A nil *db.DB must not become a non-nil interface.
	var runs server.RunReader
	if database != nil {
		runs = database
	} else {
		logger.Warn("DATABASE_URL not set; runs will not be persisted")
	}

	rateLimit, err := ratelimit.LoadConfig()
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:      servePort,
		RateLimit: rateLimit,
		Logger:    logger,
	}, engine, runs)
	return srv.Start()
}
