// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagnberger/researchlens/internal/store"
	"github.com/hagnberger/researchlens/pkg/types"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(types.StoreConfig{Path: filepath.Join(t.TempDir(), "graph.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustEmbedPaper(t *testing.T, s *store.Store, arxivID string, embedding []float32) *types.Paper {
	t.Helper()
	ctx := context.Background()
	p, _, err := s.GetOrCreatePaper(ctx, arxivID, store.PaperFields{
		Title:         "Paper " + arxivID,
		Abstract:      "Abstract for " + arxivID,
		PublishedDate: "2026-01-15",
		Categories:    "cs.LG",
	})
	require.NoError(t, err)
	p.Embedding = embedding
	require.NoError(t, s.UpdatePaper(ctx, p))
	return p
}

func TestBuildPersistsEdgesAtThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// a and b are identical (cosine 1.0); c is orthogonal to both.
	a := mustEmbedPaper(t, s, "2601.00001", []float32{1, 0, 0})
	b := mustEmbedPaper(t, s, "2601.00002", []float32{1, 0, 0})
	c := mustEmbedPaper(t, s, "2601.00003", []float32{0, 1, 0})

	builder := New(s, types.GraphConfig{Threshold: 0.75}, nil)
	created, err := builder.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edge, err := s.GetSimilarityByIDs(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.InDelta(t, 1.0, edge.SimilarityScore, 1e-9)

	for _, pair := range [][2]int64{{a.ID, c.ID}, {b.ID, c.ID}} {
		edge, err := s.GetSimilarityByIDs(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Nil(t, edge)
	}
}

func TestBuildThresholdBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// cos(u, v) with unit u=(1,0) and near-unit v=(x, y) is close to x.
	mustEmbedPaper(t, s, "2601.00010", []float32{1, 0})
	mustEmbedPaper(t, s, "2601.00011", []float32{0.75, 0.6614}) // cosine ~= 0.75002

	builder := New(s, types.GraphConfig{Threshold: 0.75}, nil)
	created, err := builder.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created, "score at the threshold is kept")

	s2 := newTestStore(t)
	mustEmbedPaper(t, s2, "2601.00012", []float32{1, 0})
	mustEmbedPaper(t, s2, "2601.00013", []float32{0.7499, 0.66156}) // cosine just below 0.75

	created, err = New(s2, types.GraphConfig{Threshold: 0.75}, nil).Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created, "score below the threshold is discarded")
}

func TestBuildSingleEdgePerPair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustEmbedPaper(t, s, "2601.00020", []float32{1, 1})
	b := mustEmbedPaper(t, s, "2601.00021", []float32{1, 1})

	builder := New(s, types.GraphConfig{Threshold: 0.75}, nil)
	_, err := builder.Build(ctx)
	require.NoError(t, err)

	count, err := s.CountSimilarities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Only the (lower, higher) orientation exists.
	edge, err := s.GetSimilarityByIDs(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, edge)
}

func TestBuildIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		mustEmbedPaper(t, s, fmt.Sprintf("2601.0003%d", i), []float32{1, 0.1 * float32(i)})
	}

	builder := New(s, types.GraphConfig{Threshold: 0.75}, nil)
	first, err := builder.Build(ctx)
	require.NoError(t, err)
	assert.Greater(t, first, 0)

	second, err := builder.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second, "re-running over an unchanged corpus creates nothing")

	count, err := s.CountSimilarities(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, count)
}

func TestBuildSkipsUnembeddedPapers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustEmbedPaper(t, s, "2601.00040", []float32{1, 0})
	_, _, err := s.GetOrCreatePaper(ctx, "2601.00041", store.PaperFields{
		Title:         "No embedding yet",
		Abstract:      "Pending enrichment.",
		PublishedDate: "2026-02-01",
	})
	require.NoError(t, err)

	created, err := New(s, types.GraphConfig{Threshold: 0.75}, nil).Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both zero", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}
