// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich computes derived paper fields: ranked keywords and
// embedding vectors. Each pass selects its input set fresh from the store,
// so a re-run after a crash or partial pass picks up exactly the papers
// still missing the field.
package enrich

import (
	"context"
	"fmt"

	"github.com/hagnberger/researchlens/internal/store"
	"github.com/hagnberger/researchlens/pkg/logger"
	"github.com/hagnberger/researchlens/pkg/types"
)

// Enricher runs the keyword and embedding passes over the stored corpus.
type Enricher struct {
	store    *store.Store
	keywords KeywordExtractor
	embedder Embedder
	topN     int
	log      *logger.Logger
}

// New builds an Enricher. topN of zero falls back to the default keyword
// count.
func New(s *store.Store, kw KeywordExtractor, emb Embedder, cfg types.EnrichConfig, log *logger.Logger) *Enricher {
	topN := cfg.KeywordCount
	if topN <= 0 {
		topN = types.DefaultConfig().Enrich.KeywordCount
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Enricher{store: s, keywords: kw, embedder: emb, topN: topN, log: log}
}

// KeywordPass extracts keywords for every paper whose keyword list is
// still empty and persists them. Papers already keyworded are not
// selected, so re-running over an enriched corpus is a no-op. Returns the
// number of papers updated.
func (e *Enricher) KeywordPass(ctx context.Context) (int, error) {
	papers, err := e.store.PapersWhere(ctx, store.KeywordsEmpty)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, p := range papers {
		keywords, err := e.keywords.Extract(ctx, p.Abstract, e.topN)
		if err != nil {
			return updated, fmt.Errorf("extracting keywords for paper %d: %w", p.ID, err)
		}
		p.Keywords = keywords
		if err := e.store.UpdatePaper(ctx, p); err != nil {
			return updated, err
		}
		updated++
	}

	if updated > 0 {
		e.log.Info("keyword pass complete", "papers", updated)
	}
	return updated, nil
}

// EmbeddingPass computes an embedding for every paper without one and
// persists it. Same idempotence property as KeywordPass. Returns the
// number of papers updated.
func (e *Enricher) EmbeddingPass(ctx context.Context) (int, error) {
	papers, err := e.store.PapersWhere(ctx, store.EmbeddingMissing)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, p := range papers {
		vec, err := e.embedder.Embed(ctx, p.Abstract)
		if err != nil {
			return updated, fmt.Errorf("embedding paper %d: %w", p.ID, err)
		}
		p.Embedding = vec
		if err := e.store.UpdatePaper(ctx, p); err != nil {
			return updated, err
		}
		updated++
	}

	if updated > 0 {
		e.log.Info("embedding pass complete", "papers", updated, "dim", e.embedder.Dim())
	}
	return updated, nil
}
