// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Author is a paper author. Authors are deduplicated by exact name match:
// two authors are the same author iff their names compare equal.
type Author struct {
	// ID is the database row identifier.
	ID int64 `json:"id" yaml:"id"`

	// Name is the author's full name as reported by the feed.
	Name string `json:"name" yaml:"name"`

	// Institution is an optional affiliation. The ingestion pipeline never
	// sets it; it exists for manual backfill.
	Institution string `json:"institution,omitempty" yaml:"institution,omitempty"`
}

// Paper holds the metadata of one scholarly paper. ArxivID is the natural
// key for ingestion: re-ingesting the same ArxivID must never create a
// second row.
type Paper struct {
	// ID is the database row identifier.
	ID int64 `json:"id" yaml:"id"`

	// ArxivID is the globally unique feed identifier, taken from the last
	// path segment of the entry URL (version suffix kept, e.g. "2301.07041v2").
	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`

	// Title is the paper title with embedded newlines collapsed to spaces
	// and surrounding whitespace trimmed.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract, normalized the same way as Title.
	Abstract string `json:"abstract" yaml:"abstract"`

	// PublishedDate is the publication date as an ISO date (YYYY-MM-DD),
	// the first ten characters of the feed's published timestamp.
	PublishedDate string `json:"published_date" yaml:"published_date"`

	// Categories is the human-readable category label assigned at
	// ingestion time (e.g. "Computer Science").
	Categories string `json:"categories" yaml:"categories"`

	// Keywords is a ranked keyword list, empty until the keyword
	// enrichment pass runs.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// Embedding is a fixed-length vector over the abstract, nil until the
	// embedding enrichment pass runs. Its dimension is set by the
	// embedding model.
	Embedding []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`

	// Link is the source URL of the entry.
	Link string `json:"link" yaml:"link"`

	// Authors lists the paper's authors. Persisting a paper replaces its
	// full author association with exactly this list.
	Authors []*Author `json:"authors" yaml:"authors"`
}

// PaperSimilarity is a directed similarity edge between two papers.
// Uniqueness is keyed on the ordered (source, target) pair; the graph
// builder iterates pairs in one fixed order so only one of (a,b)/(b,a)
// is ever materialized for an unordered pair.
type PaperSimilarity struct {
	// ID is the database row identifier.
	ID int64 `json:"id" yaml:"id"`

	// SourcePaperID is the paper with the smaller iteration index.
	SourcePaperID int64 `json:"source_paper_id" yaml:"source_paper_id"`

	// TargetPaperID is the other paper of the pair.
	TargetPaperID int64 `json:"target_paper_id" yaml:"target_paper_id"`

	// SimilarityScore is the cosine similarity of the two embeddings at
	// the time the edge was created. Edges are never updated afterwards.
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`
}
