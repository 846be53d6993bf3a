package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jad-chahin/stock-sentiment/internal/types"
)

// SaveRecords inserts records that are not already stored. Existing rows are
// left untouched since records are immutable. It returns how many rows were
// new.
func (s *Store) SaveRecords(ctx context.Context, records []types.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO comments (comment_id, subreddit, submission_id, submission_title,
			author, created_utc, score, body, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		scraped := r.ScrapedAt
		if scraped.IsZero() {
			scraped = time.Now()
		}
		res, err := stmt.ExecContext(ctx, r.ID, r.Subreddit, r.SubmissionID, r.SubmissionTitle,
			nullString(r.Author), r.CreatedAt.Unix(), r.Score, r.Body, scraped.Unix())
		if err != nil {
			return 0, fmt.Errorf("insert record %s: %w", r.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetRecord returns one record by id.
func (s *Store) GetRecord(ctx context.Context, id string) (*types.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT comment_id, subreddit, submission_id, submission_title, author,
			created_utc, score, body, scraped_at
		FROM comments WHERE comment_id = ?
	`, id)

	var (
		r                types.Record
		title, author    sql.NullString
		score            sql.NullInt64
		created, scraped int64
	)
	err := row.Scan(&r.ID, &r.Subreddit, &r.SubmissionID, &title, &author,
		&created, &score, &r.Body, &scraped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.SubmissionTitle = title.String
	r.Author = author.String
	r.Score = int(score.Int64)
	r.CreatedAt = time.Unix(created, 0).UTC()
	r.ScrapedAt = time.Unix(scraped, 0).UTC()
	return &r, nil
}

// CountRecords returns the number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n)
	return n, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
