// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hagnberger/researchlens/internal/store"
	"github.com/hagnberger/researchlens/pkg/logger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, enrich, and graph papers in one pass",
	Long: `Ingest runs one synchronous ingestion pass: fetch paper metadata from
the feed for each requested category, extract keywords and embeddings
for new papers, and extend the similarity graph. The same pass runs in
the background when the API's fetch endpoint is called.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("number-articles", 10, "papers to fetch per category")
	ingestCmd.Flags().String("categories", "cs,math", "comma-separated category codes")
	ingestCmd.Flags().String("db", "", "SQLite database path (default researchlens.db)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	numberArticles, _ := cmd.Flags().GetInt("number-articles")
	if numberArticles < 1 {
		return fmt.Errorf("number-articles must be a positive integer")
	}
	rawCategories, _ := cmd.Flags().GetString("categories")
	var categories []string
	for _, part := range strings.Split(rawCategories, ",") {
		if part = strings.TrimSpace(part); part != "" {
			categories = append(categories, part)
		}
	}
	if len(categories) == 0 {
		return fmt.Errorf("provide at least one category code")
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

	stats, err := pipe.Run(ctx, numberArticles, categories)
	if err != nil {
		return err
	}
	fmt.Printf("fetched %d papers (%d new), %d keyword updates, %d embeddings, %d graph edges\n",
		stats.PapersFetched, stats.PapersCreated, stats.KeywordsUpdated,
		stats.EmbeddingsUpdated, stats.EdgesCreated)
	return nil
}
