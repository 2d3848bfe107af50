// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates a full ingestion run: fetch feed windows
// per category, upsert papers and authors, run the enrichment passes, and
// rebuild the similarity graph.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hagnberger/researchlens/internal/enrich"
	"github.com/hagnberger/researchlens/internal/feed"
	"github.com/hagnberger/researchlens/internal/graph"
	"github.com/hagnberger/researchlens/internal/store"
	"github.com/hagnberger/researchlens/pkg/logger"
	"github.com/hagnberger/researchlens/pkg/types"
)

// categoryNames maps feed category codes to display labels. Papers are
// stored with the label of the category they were fetched under.
var categoryNames = map[string]string{
	"cs":      "Computer Science",
	"math":    "Mathematics",
	"stat":    "Statistics",
	"econ":    "Economics",
	"physics": "Physics",
	"q-bio":   "Quantitative Biology",
	"q-fin":   "Quantitative Finance",
}

// CategoryLabel returns the display label for a category code. Unknown
// codes are returned unchanged so an unmapped category still round-trips.
func CategoryLabel(code string) string {
	if label, ok := categoryNames[code]; ok {
		return label
	}
	return code
}

// Stats summarizes one ingestion run.
type Stats struct {
	PapersFetched     int
	PapersCreated     int
	KeywordsUpdated   int
	EmbeddingsUpdated int
	EdgesCreated      int
}

// Pipeline wires the feed client, store, enricher and graph builder into
// one ingestion flow.
type Pipeline struct {
	feed       *feed.Client
	store      *store.Store
	enricher   *enrich.Enricher
	graph      *graph.Builder
	windowSize int
	fetchDelay time.Duration
	log        *logger.Logger
}

// New builds a Pipeline. Non-positive window size and negative delay fall
// back to the defaults.
func New(f *feed.Client, s *store.Store, e *enrich.Enricher, g *graph.Builder, cfg types.PipelineConfig, log *logger.Logger) *Pipeline {
	defaults := types.DefaultConfig().Pipeline
	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = defaults.WindowSize
	}
	fetchDelay := cfg.FetchDelay
	if fetchDelay < 0 {
		fetchDelay = defaults.FetchDelay
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		feed:       f,
		store:      s,
		enricher:   e,
		graph:      g,
		windowSize: windowSize,
		fetchDelay: fetchDelay,
		log:        log,
	}
}

// Run ingests up to numberArticles papers for each category. Requests are
// issued in windows of at most the configured window size, with a pause
// between windows so the feed endpoint is not hammered. Each window is
// upserted, enriched and graphed before the next is fetched; a fetch
// failure aborts the whole run.
func (p *Pipeline) Run(ctx context.Context, numberArticles int, categories []string) (Stats, error) {
	var stats Stats
	for _, category := range categories {
		if err := p.runCategory(ctx, category, numberArticles, &stats); err != nil {
			return stats, err
		}
	}
	p.log.Info("ingestion run finished",
		"fetched", stats.PapersFetched,
		"created", stats.PapersCreated,
		"keywords_updated", stats.KeywordsUpdated,
		"embeddings_updated", stats.EmbeddingsUpdated,
		"edges_created", stats.EdgesCreated,
	)
	return stats, nil
}

func (p *Pipeline) runCategory(ctx context.Context, category string, numberArticles int, stats *Stats) error {
	label := CategoryLabel(category)
	start := 0
	for start < numberArticles {
		window := numberArticles - start
		if window > p.windowSize {
			window = p.windowSize
		}

		entries, err := p.feed.Fetch(ctx, category, start, window)
		if err != nil {
			return fmt.Errorf("fetch %s [%d,%d): %w", category, start, start+window, err)
		}
		p.log.Info("feed window fetched", "category", category, "start", start, "entries", len(entries))

		if err := p.upsertEntries(ctx, entries, label, stats); err != nil {
			return err
		}
		if err := p.enrichAndGraph(ctx, stats); err != nil {
			return err
		}

		// A short window means the feed has no more results for this
		// category.
		if len(entries) < window {
			break
		}
		start += window
		if start < numberArticles {
			if err := p.pause(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) upsertEntries(ctx context.Context, entries []feed.Entry, label string, stats *Stats) error {
	for _, entry := range entries {
		paper, created, err := p.store.GetOrCreatePaper(ctx, entry.ArxivID, store.PaperFields{
			Title:         entry.Title,
			Abstract:      entry.Abstract,
			PublishedDate: entry.PublishedDate,
			Categories:    label,
			Link:          entry.Link,
		})
		if err != nil {
			return fmt.Errorf("upsert paper %s: %w", entry.ArxivID, err)
		}

		paper.Authors = make([]*types.Author, 0, len(entry.Authors))
		for _, name := range entry.Authors {
			paper.Authors = append(paper.Authors, &types.Author{Name: name})
		}
		if err := p.store.UpdatePaper(ctx, paper); err != nil {
			return fmt.Errorf("update paper %s: %w", entry.ArxivID, err)
		}

		stats.PapersFetched++
		if created {
			stats.PapersCreated++
		}
	}
	return nil
}

func (p *Pipeline) enrichAndGraph(ctx context.Context, stats *Stats) error {
	keywords, err := p.enricher.KeywordPass(ctx)
	if err != nil {
		return fmt.Errorf("keyword pass: %w", err)
	}
	stats.KeywordsUpdated += keywords

	embeddings, err := p.enricher.EmbeddingPass(ctx)
	if err != nil {
		return fmt.Errorf("embedding pass: %w", err)
	}
	stats.EmbeddingsUpdated += embeddings

	edges, err := p.graph.Build(ctx)
	if err != nil {
		return fmt.Errorf("similarity graph: %w", err)
	}
	stats.EdgesCreated += edges
	return nil
}

func (p *Pipeline) pause(ctx context.Context) error {
	if p.fetchDelay == 0 {
		return nil
	}
	timer := time.NewTimer(p.fetchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
