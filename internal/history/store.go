// Package history persists answered queries in SQLite with full-text search
// over past questions and answers.
package history

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

// Entry is one answered query.
type Entry struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Tools     []string  `json:"tools,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the SQLite-backed answer history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: wal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

// migrate creates tables on first run.
func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS answers (
			id           TEXT PRIMARY KEY,
			query        TEXT NOT NULL,
			answer       TEXT NOT NULL,
			tools        TEXT NOT NULL DEFAULT '[]',
			content_hash TEXT NOT NULL UNIQUE,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS answers_fts USING fts5(
			id, query, answer
		)`,
		`CREATE INDEX IF NOT EXISTS idx_answers_created ON answers(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// contentHash derives the dedupe key for a query/answer pair.
func contentHash(query, answer string) string {
	sum := blake2b.Sum256([]byte(query + "\x00" + answer))
	return hex.EncodeToString(sum[:])
}

// Save records an answered query. Saving an identical query/answer pair
// again returns the existing entry's ID without inserting a duplicate.
func (s *Store) Save(ctx context.Context, query, answer string, tools []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := contentHash(query, answer)

	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM answers WHERE content_hash = ?`, hash,
	).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("history: dedupe lookup: %w", err)
	}

	id := uuid.NewString()
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		return "", fmt.Errorf("history: marshal tools: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO answers(id, query, answer, tools, content_hash, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		id, query, answer, string(toolsJSON), hash, time.Now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("history: insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO answers_fts(id, query, answer) VALUES(?, ?, ?)`,
		id, query, answer,
	); err != nil {
		return "", fmt.Errorf("history: index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, answer, tools, created_at
		 FROM answers
		 ORDER BY created_at DESC, id
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search performs BM25-ranked full-text search over past queries and
// answers.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.query, a.answer, a.tools, a.created_at
		 FROM answers_fts f
		 JOIN answers a ON a.id = f.id
		 WHERE answers_fts MATCH ?
		 ORDER BY bm25(answers_fts)
		 LIMIT ?`, query, limit,
	)
	if err != nil {
		// FTS may fail on special chars; treat as empty
		return nil, nil
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Get returns one entry by ID.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, answer, tools, created_at FROM answers WHERE id = ?`, id,
	)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history: entry %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var toolsJSON string
	var createdAt int64
	if err := row.Scan(&e.ID, &e.Query, &e.Answer, &toolsJSON, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(toolsJSON), &e.Tools); err != nil {
		e.Tools = nil
	}
	e.CreatedAt = time.Unix(0, createdAt)
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
