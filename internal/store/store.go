// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store is the data-access layer for papers, authors, and
// similarity edges. It owns all SQL construction: deduplicated upserts by
// natural key, pagination over the paper-author join, full-text filtering,
// and nearest-neighbor retrieval over stored embeddings. No ORM sits
// between this package and the database.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hagnberger/researchlens/pkg/types"
)

// Store manages the SQLite database holding the paper corpus.
type Store struct {
	db *sql.DB
}

// New opens or creates the database at cfg.Path and bootstraps the schema.
// Use ":memory:" for throwaway stores in tests.
func New(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultConfig().Store.Path
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection; pin the pool to one so
	// every query sees the same schema.
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS authors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			institution TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			arxiv_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			abstract TEXT NOT NULL,
			published_date TEXT NOT NULL DEFAULT '',
			categories TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '[]',
			embedding BLOB,
			link TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_published_date ON papers(published_date)`,
		`CREATE TABLE IF NOT EXISTS paper_authors (
			paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
			PRIMARY KEY (paper_id, author_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_authors_author ON paper_authors(author_id)`,
		`CREATE TABLE IF NOT EXISTS paper_similarity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
			target_paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
			similarity_score REAL NOT NULL,
			UNIQUE (source_paper_id, target_paper_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 index over title, abstract, and author names, kept in sync by
	// the store on every paper create/update. rowid doubles as paper id.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists == 0 {
		if _, err := s.db.Exec(
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, authors)`,
		); err != nil {
			return fmt.Errorf("creating FTS table: %w", err)
		}
	}

	return nil
}

// normalizeText collapses whitespace runs (including newlines and carriage
// returns) to single spaces and trims the ends. Stored titles and
// abstracts are always normalized.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// matchQuery turns free text into an FTS5 MATCH expression: each term is
// quoted (implicit AND), so user input cannot inject FTS syntax.
func matchQuery(search string) string {
	fields := strings.Fields(search)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f != "" {
			terms = append(terms, `"`+f+`"`)
		}
	}
	return strings.Join(terms, " ")
}
