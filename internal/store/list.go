// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hagnberger/researchlens/pkg/types"
)

// ListOptions are the listing filters. Zero values disable a filter.
type ListOptions struct {
	// Page is 1-based; PageSize is the number of papers per page.
	Page     int
	PageSize int

	// Search is free text matched against title, abstract, and author
	// names via the full-text index.
	Search string

	// StartDate and EndDate bound published_date inclusively (ISO dates).
	StartDate string
	EndDate   string

	// Categories restricts to papers whose category label is in the list.
	Categories []string
}

// ListPage returns one page of papers ordered by publication date
// descending, plus the total number of distinct matching papers.
//
// Each paper joins to 1..N authors, so LIMIT/OFFSET over the joined rowset
// would undercount distinct papers. Instead: (a) collect the distinct
// matching paper ids in date order, (b) slice out the requested page,
// (c) re-query only those ids joined to authors and assemble each paper
// with every author attached exactly once. The total is the size of the
// full id set, not the page. Returns (0, nil) when nothing matches.
func (s *Store) ListPage(ctx context.Context, opts ListOptions) (int, []*types.Paper, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		return 0, nil, fmt.Errorf("page size must be positive, got %d", opts.PageSize)
	}

	var (
		filters []string
		args    []any
	)
	if opts.Search != "" {
		match := matchQuery(opts.Search)
		if match == "" {
			return 0, nil, nil
		}
		filters = append(filters, `p.id IN (SELECT rowid FROM papers_fts WHERE papers_fts MATCH ?)`)
		args = append(args, match)
	}
	if opts.StartDate != "" {
		filters = append(filters, `p.published_date >= ?`)
		args = append(args, opts.StartDate)
	}
	if opts.EndDate != "" {
		filters = append(filters, `p.published_date <= ?`)
		args = append(args, opts.EndDate)
	}
	if len(opts.Categories) > 0 {
		placeholders := strings.Repeat("?, ", len(opts.Categories))
		filters = append(filters, `p.categories IN (`+placeholders[:len(placeholders)-2]+`)`)
		for _, c := range opts.Categories {
			args = append(args, c)
		}
	}

	// Distinct matching paper ids in date order. The author join makes the
	// full-text and counting semantics match the hydration query below.
	query := `SELECT DISTINCT p.id, p.published_date
		FROM papers p
		JOIN paper_authors pa ON p.id = pa.paper_id
		JOIN authors a ON pa.author_id = a.id`
	if len(filters) > 0 {
		query += ` WHERE ` + strings.Join(filters, ` AND `)
	}
	query += ` ORDER BY p.published_date DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("querying matching paper ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var (
			id   int64
			date string
		)
		if err := rows.Scan(&id, &date); err != nil {
			return 0, nil, fmt.Errorf("scanning paper id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	total := len(ids)
	if total == 0 {
		return 0, nil, nil
	}

	lo := (opts.Page - 1) * opts.PageSize
	if lo >= total {
		return total, nil, nil
	}
	hi := lo + opts.PageSize
	if hi > total {
		hi = total
	}

	papers, err := s.papersByIDs(ctx, ids[lo:hi])
	if err != nil {
		return 0, nil, err
	}
	return total, papers, nil
}

// papersByIDs hydrates full Paper objects for the given ids in a single
// join query. Authors are deduplicated by author id while assembling, and
// the result order follows the ids argument, not the query's row order —
// callers pass ids in the order they want back (date order for listing,
// distance order for related papers).
func (s *Store) papersByIDs(ctx context.Context, ids []int64) ([]*types.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.arxiv_id, p.title, p.abstract, p.published_date, p.categories, p.keywords, p.embedding, p.link,
			a.id, a.name, a.institution
		 FROM papers p
		 LEFT JOIN paper_authors pa ON p.id = pa.paper_id
		 LEFT JOIN authors a ON pa.author_id = a.id
		 WHERE p.id IN (`+placeholders[:len(placeholders)-2]+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers by id: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*types.Paper, len(ids))
	seenAuthor := make(map[int64]map[int64]bool, len(ids))

	for rows.Next() {
		var (
			p          types.Paper
			keywords   string
			emb        []byte
			link       sql.NullString
			authorID   sql.NullInt64
			authorName sql.NullString
			inst       sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.ArxivID, &p.Title, &p.Abstract, &p.PublishedDate,
			&p.Categories, &keywords, &emb, &link,
			&authorID, &authorName, &inst); err != nil {
			return nil, fmt.Errorf("scanning paper row: %w", err)
		}

		paper, ok := byID[p.ID]
		if !ok {
			if keywords != "" {
				if err := json.Unmarshal([]byte(keywords), &p.Keywords); err != nil {
					return nil, fmt.Errorf("decoding keywords for paper %d: %w", p.ID, err)
				}
			}
			if p.Keywords == nil {
				p.Keywords = []string{}
			}
			p.Embedding = unpackEmbedding(emb)
			if link.Valid {
				p.Link = link.String
			}
			paper = &p
			byID[p.ID] = paper
			seenAuthor[p.ID] = make(map[int64]bool)
		}

		// Dedup authors by id, not by struct equality.
		if authorID.Valid && !seenAuthor[paper.ID][authorID.Int64] {
			seenAuthor[paper.ID][authorID.Int64] = true
			author := &types.Author{ID: authorID.Int64, Name: authorName.String}
			if inst.Valid {
				author.Institution = inst.String
			}
			paper.Authors = append(paper.Authors, author)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	papers := make([]*types.Paper, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// NearestNeighbors returns up to limit papers closest to the embedding of
// the given paper under L2 distance, nearest first, excluding the paper
// itself. A paper with no embedding, or an unknown id, yields an empty
// result rather than an error. The distance ranking is authoritative: the
// hydration step preserves it instead of re-sorting by date.
func (s *Store) NearestNeighbors(ctx context.Context, paperID int64, limit int) ([]*types.Paper, error) {
	if limit <= 0 {
		limit = 10
	}

	var emb []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding FROM papers WHERE id = ?`, paperID).Scan(&emb)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying embedding for paper %d: %w", paperID, err)
	}
	origin := unpackEmbedding(emb)
	if origin == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM papers WHERE embedding IS NOT NULL AND id <> ?`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying candidate embeddings: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		id   int64
		dist float64
	}
	var candidates []candidate
	for rows.Next() {
		var (
			id  int64
			buf []byte
		)
		if err := rows.Scan(&id, &buf); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		vec := unpackEmbedding(buf)
		if vec == nil {
			continue
		}
		candidates = append(candidates, candidate{id: id, dist: l2Distance(origin, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].id < candidates[j].id
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return s.papersByIDs(ctx, ids)
}
