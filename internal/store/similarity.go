// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hagnberger/researchlens/pkg/types"
)

// GetOrCreateSimilarity inserts a similarity edge for the ordered pair
// (sourceID, targetID) unless one already exists, in which case the
// existing edge is returned untouched — the score is not updated even if a
// recomputation would differ. Safe under concurrent invocation.
func (s *Store) GetOrCreateSimilarity(ctx context.Context, sourceID, targetID int64, score float64) (*types.PaperSimilarity, bool, error) {
	existing, err := s.GetSimilarityByIDs(ctx, sourceID, targetID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO paper_similarity (source_paper_id, target_paper_id, similarity_score)
		 VALUES (?, ?, ?)
		 ON CONFLICT(source_paper_id, target_paper_id) DO NOTHING`,
		sourceID, targetID, score)
	if err != nil {
		return nil, false, fmt.Errorf("inserting similarity (%d, %d): %w", sourceID, targetID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("inserting similarity (%d, %d): %w", sourceID, targetID, err)
	}

	edge, err := s.GetSimilarityByIDs(ctx, sourceID, targetID)
	if err != nil {
		return nil, false, err
	}
	if edge == nil {
		return nil, false, fmt.Errorf("similarity (%d, %d) vanished after insert", sourceID, targetID)
	}
	return edge, inserted > 0, nil
}

// GetSimilarityByIDs fetches the edge for the ordered pair. Returns
// (nil, nil) when no edge exists.
func (s *Store) GetSimilarityByIDs(ctx context.Context, sourceID, targetID int64) (*types.PaperSimilarity, error) {
	var edge types.PaperSimilarity
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_paper_id, target_paper_id, similarity_score
		 FROM paper_similarity
		 WHERE source_paper_id = ? AND target_paper_id = ?`,
		sourceID, targetID,
	).Scan(&edge.ID, &edge.SourcePaperID, &edge.TargetPaperID, &edge.SimilarityScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying similarity (%d, %d): %w", sourceID, targetID, err)
	}
	return &edge, nil
}

// CountSimilarities returns the number of persisted similarity edges.
func (s *Store) CountSimilarities(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM paper_similarity`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting similarities: %w", err)
	}
	return n, nil
}
