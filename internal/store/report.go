package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// TickerSummary returns per-ticker sentiment totals for a tag, highest
// score first, then most mentioned.
func (s *Store) TickerSummary(ctx context.Context, f SummaryFilter) ([]TickerSummary, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}

	args := []any{f.Tag}
	var conds []string
	if len(f.Subreddits) > 0 {
		conds = append(conds, fmt.Sprintf("c.subreddit IN (%s)", placeholders(len(f.Subreddits))))
		for _, sub := range f.Subreddits {
			args = append(args, sub)
		}
	}
	if !f.Since.IsZero() {
		conds = append(conds, "c.created_utc >= ?")
		args = append(args, f.Since.Unix())
	}
	args = append(args, limit)

	filter := ""
	if len(conds) > 0 {
		filter = " AND " + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			m.ticker,
			SUM(CASE WHEN m.sentiment = 'bullish' THEN 1 ELSE 0 END) AS bullish,
			SUM(CASE WHEN m.sentiment = 'bearish' THEN 1 ELSE 0 END) AS bearish,
			SUM(CASE WHEN m.sentiment = 'neutral' THEN 1 ELSE 0 END) AS neutral,
			COUNT(*) AS mentions,
			SUM(CASE WHEN m.sentiment = 'bullish' THEN 1 WHEN m.sentiment = 'bearish' THEN -1 ELSE 0 END) AS score
		FROM mentions m
		JOIN comments c ON c.comment_id = m.comment_id
		WHERE m.analysis_tag = ?`+filter+`
		GROUP BY m.ticker
		ORDER BY score DESC, mentions DESC, m.ticker
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("ticker summary: %w", err)
	}
	defer rows.Close()

	var out []TickerSummary
	for rows.Next() {
		var t TickerSummary
		if err := rows.Scan(&t.Ticker, &t.Bullish, &t.Bearish, &t.Neutral, &t.Mentions, &t.Score); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// StatusCounts tallies ok/skipped/error rows for a tag.
func (s *Store) StatusCounts(ctx context.Context, tag string) (StatusCounts, error) {
	var c StatusCounts
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM comment_analysis
		WHERE analysis_tag = ?
		GROUP BY status
	`, tag)
	if err != nil {
		return c, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return c, err
		}
		switch status {
		case "ok":
			c.OK = n
		case "skipped":
			c.Skipped = n
		case "error":
			c.Error = n
		}
	}
	return c, rows.Err()
}

// LatestModelForTag returns the model used by the most recent status row
// under tag.
func (s *Store) LatestModelForTag(ctx context.Context, tag string) (string, error) {
	var model string
	err := s.db.QueryRowContext(ctx, `
		SELECT model FROM comment_analysis
		WHERE analysis_tag = ?
		ORDER BY analyzed_at DESC
		LIMIT 1
	`, tag).Scan(&model)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return model, err
}
