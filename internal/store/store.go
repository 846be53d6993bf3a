package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// maxErrorLen bounds the error detail kept on a status row.
const maxErrorLen = 2000

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath and applies
// the schema.
func New(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS comments (
		comment_id       TEXT PRIMARY KEY,
		subreddit        TEXT NOT NULL,
		submission_id    TEXT NOT NULL,
		submission_title TEXT,
		author           TEXT,
		created_utc      INTEGER NOT NULL,
		score            INTEGER,
		body             TEXT NOT NULL,
		scraped_at       INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS comment_analysis (
		analysis_tag TEXT NOT NULL,
		comment_id   TEXT NOT NULL,
		model        TEXT NOT NULL,
		analyzed_at  INTEGER NOT NULL,
		status       TEXT NOT NULL,
		error        TEXT,
		PRIMARY KEY (analysis_tag, comment_id)
	);

	CREATE TABLE IF NOT EXISTS mentions (
		analysis_tag TEXT NOT NULL,
		comment_id   TEXT NOT NULL,
		ticker       TEXT NOT NULL,
		sentiment    TEXT NOT NULL CHECK (sentiment IN ('bullish', 'bearish', 'neutral')),
		model        TEXT NOT NULL,
		analyzed_at  INTEGER NOT NULL,
		PRIMARY KEY (analysis_tag, comment_id, ticker),
		FOREIGN KEY (comment_id) REFERENCES comments(comment_id)
	);

	CREATE TABLE IF NOT EXISTS app_state (
		key   TEXT PRIMARY KEY,
		value TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_comments_subreddit_created ON comments(subreddit, created_utc);
	CREATE INDEX IF NOT EXISTS idx_comments_created ON comments(created_utc);
	CREATE INDEX IF NOT EXISTS idx_comment_analysis_tag_status ON comment_analysis(analysis_tag, status);
	CREATE INDEX IF NOT EXISTS idx_mentions_tag_ticker ON mentions(analysis_tag, ticker);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
