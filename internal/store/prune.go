package store

import (
	"context"
	"fmt"
)

// deleteChunk keeps each DELETE under SQLite's bound-parameter limit.
const deleteChunk = 900

// DistinctTickers returns every ticker with at least one mention under tag.
func (s *Store) DistinctTickers(ctx context.Context, tag string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ticker FROM mentions
		WHERE analysis_tag = ?
		ORDER BY ticker
	`, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		if t != "" {
			out = append(out, t)
		}
	}
	return out, rows.Err()
}

// DeleteMentionsForTickers removes the tag's mentions of the given tickers.
// Status rows are not touched. It returns the number of rows deleted.
func (s *Store) DeleteMentionsForTickers(ctx context.Context, tag string, tickers []string) (int64, error) {
	seen := make(map[string]bool, len(tickers))
	uniq := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		uniq = append(uniq, t)
	}
	if len(uniq) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var deleted int64
	for start := 0; start < len(uniq); start += deleteChunk {
		end := min(start+deleteChunk, len(uniq))
		chunk := uniq[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, tag)
		for _, t := range chunk {
			args = append(args, t)
		}

		res, err := tx.ExecContext(ctx, fmt.Sprintf(
			`DELETE FROM mentions WHERE analysis_tag = ? AND ticker IN (%s)`,
			placeholders(len(chunk))), args...)
		if err != nil {
			return deleted, fmt.Errorf("delete mentions: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}
