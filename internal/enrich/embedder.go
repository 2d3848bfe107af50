// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/embedding/openai"

	"github.com/hagnberger/researchlens/pkg/types"
)

// Embedder turns text into a fixed-length vector. Implementations are
// black boxes to the pipeline; only the dimension is contractual.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// OpenAIEmbedder calls an OpenAI-compatible embedding endpoint.
type OpenAIEmbedder struct {
	cfg   types.EmbeddingConfig
	inner *openai.Embedder
}

// NewOpenAIEmbedder builds an embedder from configuration. The API key is
// required; model and dimension fall back to the defaults.
func NewOpenAIEmbedder(ctx context.Context, cfg types.EmbeddingConfig) (*OpenAIEmbedder, error) {
	def := types.DefaultConfig().Enrich.Embedding
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Dim <= 0 {
		cfg.Dim = def.Dim
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is not configured")
	}

	dim := cfg.Dim
	inner, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		Dimensions: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return &OpenAIEmbedder{cfg: cfg, inner: inner}, nil
}

// Dim returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dim() int { return e.cfg.Dim }

// Embed returns the embedding vector for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text to embed is empty")
	}
	vecs, err := e.inner.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding endpoint returned no vectors")
	}
	vec := toFloat32(vecs[0])
	if len(vec) != e.cfg.Dim {
		return nil, fmt.Errorf("embedding dimension %d, expected %d", len(vec), e.cfg.Dim)
	}
	return vec, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
