// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph builds the paper similarity graph from stored embeddings.
package graph

import (
	"context"
	"math"

	"github.com/hagnberger/researchlens/internal/store"
	"github.com/hagnberger/researchlens/pkg/logger"
	"github.com/hagnberger/researchlens/pkg/types"
)

// Builder computes pairwise cosine similarity across all embedded papers
// and persists edges at or above the threshold.
type Builder struct {
	store     *store.Store
	threshold float64
	log       *logger.Logger
}

// New builds a Builder. A non-positive threshold falls back to the
// default (0.75).
func New(s *store.Store, cfg types.GraphConfig, log *logger.Logger) *Builder {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = types.DefaultConfig().Graph.Threshold
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{store: s, threshold: threshold, log: log}
}

// Build scans every unordered pair of embedded papers in index order
// (i < j), so only one of (a,b)/(b,a) is ever created for a pair, and
// persists edges whose cosine similarity meets the threshold. Existing
// edges are left untouched, which makes re-running over an unchanged
// corpus a no-op. The cost is quadratic in the number of embedded papers;
// that is the accepted trade-off at the corpus scale this serves.
// Returns the number of edges created.
func (b *Builder) Build(ctx context.Context) (int, error) {
	papers, err := b.store.PapersWhere(ctx, store.EmbeddingPresent)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range papers {
		for j := i + 1; j < len(papers); j++ {
			if err := ctx.Err(); err != nil {
				return created, err
			}
			score := Cosine(papers[i].Embedding, papers[j].Embedding)
			if score < b.threshold {
				continue
			}
			_, isNew, err := b.store.GetOrCreateSimilarity(ctx, papers[i].ID, papers[j].ID, score)
			if err != nil {
				return created, err
			}
			if isNew {
				created++
			}
		}
	}

	if created > 0 {
		b.log.Info("similarity graph updated", "edges_created", created, "papers", len(papers))
	}
	return created, nil
}

// Cosine returns the cosine similarity of two vectors, in [-1, 1]. A
// zero-magnitude vector yields 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
