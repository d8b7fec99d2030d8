// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence persists retrieved web snippets in a local SQLite cache
// so repeated sub-question queries skip the search provider while the
// evidence is still fresh. Only raw snippets are cached; analyses are
// never persisted.
//
// See docs/ARCHITECTURE.md § Evidence Cache.
package evidence

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/analysis-engine/pkg/types"
)

const dbFile = "evidence.db"

// Store manages the snippet cache database.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// NewStore opens or creates the cache database at cfg.Dir/evidence.db and
// creates the schema if it does not exist.
func NewStore(cfg types.CacheConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	s := &Store{db: db, ttl: ttl}
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
		`CREATE TABLE IF NOT EXISTS queries (
			query_hash TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snippets (
			query_hash TEXT NOT NULL REFERENCES queries(query_hash),
			rank INTEGER NOT NULL,
			title TEXT,
			url TEXT,
			snippet TEXT,
			PRIMARY KEY (query_hash, rank)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Lookup returns the cached snippets for a query if a fresh entry exists.
// Stale entries are treated as misses; the caller re-fetches and Put
// replaces them.
func (s *Store) Lookup(ctx context.Context, query string) ([]types.SearchResult, bool, error) {
	hash := queryHash(query)

	var fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM queries WHERE query_hash = ?`, hash,
	).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cache: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil || time.Since(t) > s.ttl {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, title, url, snippet FROM snippets WHERE query_hash = ? ORDER BY rank`, hash,
	)
	if err != nil {
		return nil, false, fmt.Errorf("querying snippets: %w", err)
	}
	defer rows.Close()

	var results []types.SearchResult
	for rows.Next() {
		var r types.SearchResult
		if err := rows.Scan(&r.Rank, &r.Title, &r.URL, &r.Snippet); err != nil {
			return nil, false, fmt.Errorf("scanning snippet: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating snippets: %w", err)
	}
	return results, true, nil
}

// Put stores a query's snippets, replacing any previous entry.
func (s *Store) Put(ctx context.Context, query string, results []types.SearchResult) error {
	hash := queryHash(query)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snippets WHERE query_hash = ?`, hash); err != nil {
		return fmt.Errorf("clearing snippets: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO queries (query_hash, query, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(query_hash) DO UPDATE SET fetched_at = excluded.fetched_at`,
		hash, query, now,
	); err != nil {
		return fmt.Errorf("storing query: %w", err)
	}
	for _, r := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snippets (query_hash, rank, title, url, snippet) VALUES (?, ?, ?, ?, ?)`,
			hash, r.Rank, r.Title, r.URL, r.Snippet,
		); err != nil {
			return fmt.Errorf("storing snippet: %w", err)
		}
	}

	return tx.Commit()
}

// Prune deletes every entry older than the TTL and returns the number of
// queries removed.
func (s *Store) Prune(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.ttl).Format(time.RFC3339Nano)

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snippets WHERE query_hash IN (SELECT query_hash FROM queries WHERE fetched_at < ?)`, cutoff,
	); err != nil {
		return 0, fmt.Errorf("pruning snippets: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM queries WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning queries: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// queryHash returns a stable key for a query: the first 16 hex characters
// of SHA-256 over the lowercased, whitespace-collapsed text.
func queryHash(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)[:16]
}
