// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FeedConfig holds settings for the external bibliographic feed client.
type FeedConfig struct {
	// BaseURL is the feed query endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with feed requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries is the number of retry attempts on transient feed errors
	// (default 3, backoff 1s, 2s, 4s).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// StoreConfig holds settings for the paper store.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// EmbeddingConfig holds settings for the embedding model endpoint.
type EmbeddingConfig struct {
	// BaseURL is an optional OpenAI-compatible endpoint override.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey authenticates against the embedding endpoint. Usually loaded
	// from .secrets/openai-api-key rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the embedding model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Dim is the fixed embedding dimension (default 384).
	Dim int `json:"dim" yaml:"dim" mapstructure:"dim"`
}

// EnrichConfig holds settings for the enrichment passes.
type EnrichConfig struct {
	// KeywordCount is the number of ranked keywords extracted per abstract
	// (default 10).
	KeywordCount int `json:"keyword_count" yaml:"keyword_count" mapstructure:"keyword_count"`

	// Embedding configures the embedding model.
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
}

// GraphConfig holds settings for the similarity graph builder.
type GraphConfig struct {
	// Threshold is the minimum cosine similarity for an edge to be
	// persisted (default 0.75).
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
}

// PipelineConfig holds settings for the ingestion orchestrator.
type PipelineConfig struct {
	// WindowSize is the maximum number of feed entries fetched per request
	// (default 100, the feed's page-size ceiling).
	WindowSize int `json:"window_size" yaml:"window_size" mapstructure:"window_size"`

	// FetchDelay is the courtesy sleep between fetch windows (default 3s).
	FetchDelay time.Duration `json:"fetch_delay" yaml:"fetch_delay" mapstructure:"fetch_delay"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// Mode selects the logger profile: "dev" or "prod".
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	// AllowOrigins lists CORS origins permitted to call the API.
	AllowOrigins []string `json:"allow_origins" yaml:"allow_origins" mapstructure:"allow_origins"`

	// QueueSize is the background job queue capacity (default 16).
	QueueSize int `json:"queue_size" yaml:"queue_size" mapstructure:"queue_size"`
}

// Config groups all component configurations.
type Config struct {
	Feed     FeedConfig     `json:"feed" yaml:"feed" mapstructure:"feed"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Enrich   EnrichConfig   `json:"enrich" yaml:"enrich" mapstructure:"enrich"`
	Graph    GraphConfig    `json:"graph" yaml:"graph" mapstructure:"graph"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
}

// DefaultConfig returns the configuration used when no config file is
// present. Every field can be overridden via researchlens.yaml or
// RESEARCHLENS_* environment variables.
func DefaultConfig() Config {
	return Config{
		Feed: FeedConfig{
			BaseURL:    "https://export.arxiv.org/api/query",
			Timeout:    30 * time.Second,
			UserAgent:  "researchlens/0.1",
			MaxRetries: 3,
		},
		Store: StoreConfig{
			Path: "researchlens.db",
		},
		Enrich: EnrichConfig{
			KeywordCount: 10,
			Embedding: EmbeddingConfig{
				Model: "text-embedding-3-small",
				Dim:   384,
			},
		},
		Graph: GraphConfig{
			Threshold: 0.75,
		},
		Pipeline: PipelineConfig{
			WindowSize: 100,
			FetchDelay: 3 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			Mode:         "dev",
			AllowOrigins: []string{"http://localhost:3000"},
			QueueSize:    16,
		},
	}
}
