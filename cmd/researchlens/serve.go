// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hagnberger/researchlens/internal/enrich"
	"github.com/hagnberger/researchlens/internal/feed"
	"github.com/hagnberger/researchlens/internal/graph"
	"github.com/hagnberger/researchlens/internal/jobs"
	"github.com/hagnberger/researchlens/internal/pipeline"
	"github.com/hagnberger/researchlens/internal/server"
	"github.com/hagnberger/researchlens/internal/store"
	"github.com/hagnberger/researchlens/pkg/logger"
	"github.com/hagnberger/researchlens/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve runs the researchlens HTTP API. Ingestion is triggered through
POST /api/papers/fetch and runs on a background worker; the catalog is
queried through GET /api/papers and GET /api/papers/:id/related.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().String("db", "", "SQLite database path (default researchlens.db)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}

	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	pipe, err := buildPipeline(ctx, s, cfg, log)
	if err != nil {
		return err
	}

	queue := jobs.New(cfg.Server.QueueSize, log)
	queue.Start(ctx)
	defer queue.Wait()
	defer queue.Stop()

	srv := server.New(s, queue, pipe, cfg.Server, log)
	return srv.Run(ctx)
}

// buildPipeline wires the feed client, enrichment passes, and graph
// builder around the store.
func buildPipeline(ctx context.Context, s *store.Store, cfg types.Config, log *logger.Logger) (*pipeline.Pipeline, error) {
	embedder, err := enrich.NewOpenAIEmbedder(ctx, cfg.Enrich.Embedding)
	if err != nil {
		return nil, err
	}
	enricher := enrich.New(s, enrich.NewFrequencyExtractor(), embedder, cfg.Enrich, log)
	builder := graph.New(s, cfg.Graph, log)
	client := feed.New(cfg.Feed)
	return pipeline.New(client, s, enricher, builder, cfg.Pipeline, log), nil
}
