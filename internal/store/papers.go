// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hagnberger/researchlens/pkg/types"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PaperFields carries the ingestion-time fields of a new paper. Title and
// Abstract are normalized before storage.
type PaperFields struct {
	Title         string
	Abstract      string
	PublishedDate string
	Categories    string
	Link          string
}

// GetOrCreatePaper looks a paper up by its natural key and inserts it with
// the supplied fields and an empty keyword list if absent. Safe to call
// repeatedly and concurrently with the same arxivID: uniqueness is enforced
// by the database, and a second writer observes the first writer's row.
// The returned paper carries its stored keywords, embedding, and authors,
// so a follow-up UpdatePaper does not wipe prior enrichment.
func (s *Store) GetOrCreatePaper(ctx context.Context, arxivID string, fields PaperFields) (*types.Paper, bool, error) {
	if arxivID == "" {
		return nil, false, fmt.Errorf("arxiv id is empty")
	}

	existing, err := s.GetByArxivID(ctx, arxivID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	title := normalizeText(fields.Title)
	abstract := normalizeText(fields.Abstract)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (arxiv_id, title, abstract, published_date, categories, keywords, link)
		 VALUES (?, ?, ?, ?, ?, '[]', ?)
		 ON CONFLICT(arxiv_id) DO NOTHING`,
		arxivID, title, abstract, fields.PublishedDate, fields.Categories, fields.Link,
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting paper %s: %w", arxivID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("inserting paper %s: %w", arxivID, err)
	}

	paper, err := s.GetByArxivID(ctx, arxivID)
	if err != nil {
		return nil, false, err
	}
	if paper == nil {
		return nil, false, fmt.Errorf("paper %s vanished after insert", arxivID)
	}

	if inserted > 0 {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO papers_fts (rowid, title, abstract, authors) VALUES (?, ?, ?, '')`,
			paper.ID, title, abstract,
		); err != nil {
			return nil, false, fmt.Errorf("indexing paper %s: %w", arxivID, err)
		}
	}

	return paper, inserted > 0, nil
}

// GetByArxivID fetches one paper with its authors by natural key. Returns
// (nil, nil) when no paper matches.
func (s *Store) GetByArxivID(ctx context.Context, arxivID string) (*types.Paper, error) {
	return s.getPaper(ctx, `arxiv_id = ?`, arxivID)
}

// GetPaper fetches one paper with its authors by row id. Returns
// (nil, nil) when no paper matches.
func (s *Store) GetPaper(ctx context.Context, id int64) (*types.Paper, error) {
	return s.getPaper(ctx, `id = ?`, id)
}

func (s *Store) getPaper(ctx context.Context, where string, arg any) (*types.Paper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, arxiv_id, title, abstract, published_date, categories, keywords, embedding, link
		 FROM papers WHERE `+where, arg)

	paper, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying paper: %w", err)
	}

	if err := s.loadAuthors(ctx, paper); err != nil {
		return nil, err
	}
	return paper, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(sc scanner) (*types.Paper, error) {
	var (
		p        types.Paper
		keywords string
		emb      []byte
		link     sql.NullString
	)
	if err := sc.Scan(&p.ID, &p.ArxivID, &p.Title, &p.Abstract, &p.PublishedDate,
		&p.Categories, &keywords, &emb, &link); err != nil {
		return nil, err
	}
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
	return &p, nil
}

func (s *Store) loadAuthors(ctx context.Context, paper *types.Paper) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.name, a.institution
		 FROM authors a
		 JOIN paper_authors pa ON a.id = pa.author_id
		 WHERE pa.paper_id = ?
		 ORDER BY a.id`, paper.ID)
	if err != nil {
		return fmt.Errorf("querying authors for paper %d: %w", paper.ID, err)
	}
	defer rows.Close()

	paper.Authors = nil
	for rows.Next() {
		var (
			a    types.Author
			inst sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &inst); err != nil {
			return fmt.Errorf("scanning author: %w", err)
		}
		if inst.Valid {
			a.Institution = inst.String
		}
		paper.Authors = append(paper.Authors, &a)
	}
	return rows.Err()
}

// GetOrCreateAuthor looks an author up by exact name match and creates one
// if absent. Safe under concurrent invocation.
func (s *Store) GetOrCreateAuthor(ctx context.Context, name string) (*types.Author, bool, error) {
	return getOrCreateAuthor(ctx, s.db, name)
}

func getOrCreateAuthor(ctx context.Context, q querier, name string) (*types.Author, bool, error) {
	if name == "" {
		return nil, false, fmt.Errorf("author name is empty")
	}

	if a, err := findAuthor(ctx, q, name); err != nil || a != nil {
		return a, false, err
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO authors (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return nil, false, fmt.Errorf("inserting author %q: %w", name, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("inserting author %q: %w", name, err)
	}

	a, err := findAuthor(ctx, q, name)
	if err != nil {
		return nil, false, err
	}
	if a == nil {
		return nil, false, fmt.Errorf("author %q vanished after insert", name)
	}
	return a, inserted > 0, nil
}

func findAuthor(ctx context.Context, q querier, name string) (*types.Author, error) {
	var (
		a    types.Author
		inst sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, institution FROM authors WHERE name = ?`, name,
	).Scan(&a.ID, &a.Name, &inst)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying author %q: %w", name, err)
	}
	if inst.Valid {
		a.Institution = inst.String
	}
	return &a, nil
}

// UpdatePaper persists the paper's keywords and embedding and replaces its
// full author association: existing associations are deleted and one row is
// re-inserted per entry in p.Authors, each resolved by name. Passing a
// subset of the previous authors therefore drops the rest. The full-text
// index row is refreshed to reflect the new author list.
func (s *Store) UpdatePaper(ctx context.Context, p *types.Paper) error {
	if p == nil || p.ID == 0 {
		return fmt.Errorf("paper has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	keywords := p.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE papers SET keywords = ?, embedding = ? WHERE id = ?`,
		string(keywordsJSON), packEmbedding(p.Embedding), p.ID)
	if err != nil {
		return fmt.Errorf("updating paper %d: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("updating paper %d: %w", p.ID, err)
	} else if n == 0 {
		return fmt.Errorf("paper %d not found", p.ID)
	}

	// Replace the author association wholesale.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM paper_authors WHERE paper_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clearing authors for paper %d: %w", p.ID, err)
	}

	names := make([]string, 0, len(p.Authors))
	for _, author := range p.Authors {
		resolved, _, err := getOrCreateAuthor(ctx, tx, author.Name)
		if err != nil {
			return err
		}
		author.ID = resolved.ID
		author.Institution = resolved.Institution
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO paper_authors (paper_id, author_id) VALUES (?, ?)
			 ON CONFLICT(paper_id, author_id) DO NOTHING`,
			p.ID, resolved.ID); err != nil {
			return fmt.Errorf("associating author %d with paper %d: %w", resolved.ID, p.ID, err)
		}
		names = append(names, resolved.Name)
	}

	// Refresh the full-text row from the stored title/abstract so the
	// index never drifts from the table.
	var title, abstract string
	if err := tx.QueryRowContext(ctx,
		`SELECT title, abstract FROM papers WHERE id = ?`, p.ID,
	).Scan(&title, &abstract); err != nil {
		return fmt.Errorf("reading paper %d for indexing: %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM papers_fts WHERE rowid = ?`, p.ID); err != nil {
		return fmt.Errorf("deindexing paper %d: %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO papers_fts (rowid, title, abstract, authors) VALUES (?, ?, ?, ?)`,
		p.ID, title, abstract, strings.Join(names, " ")); err != nil {
		return fmt.Errorf("indexing paper %d: %w", p.ID, err)
	}

	return tx.Commit()
}

// PaperPredicate enumerates the narrow filters the enrichment and graph
// stages need. Only these variants exist; the store does not support
// arbitrary predicates.
type PaperPredicate int

const (
	// KeywordsEmpty selects papers whose keyword list is still empty.
	KeywordsEmpty PaperPredicate = iota

	// EmbeddingMissing selects papers without a stored embedding.
	EmbeddingMissing

	// EmbeddingPresent selects papers with a stored embedding.
	EmbeddingPresent
)

func (p PaperPredicate) where() (string, error) {
	switch p {
	case KeywordsEmpty:
		return `keywords = '[]'`, nil
	case EmbeddingMissing:
		return `embedding IS NULL`, nil
	case EmbeddingPresent:
		return `embedding IS NOT NULL`, nil
	}
	return "", fmt.Errorf("unknown paper predicate %d", p)
}

// PapersWhere returns all papers matching the predicate, authors attached,
// ordered by row id. The enrichment passes use this to select their input
// fresh from the store on every run.
func (s *Store) PapersWhere(ctx context.Context, pred PaperPredicate) ([]*types.Paper, error) {
	where, err := pred.where()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, arxiv_id, title, abstract, published_date, categories, keywords, embedding, link
		 FROM papers WHERE `+where+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []*types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range papers {
		if err := s.loadAuthors(ctx, p); err != nil {
			return nil, err
		}
	}
	return papers, nil
}
