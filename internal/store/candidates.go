package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jad-chahin/stock-sentiment/internal/types"
)

// CandidateQuery selects records needing (re-)analysis under a tag.
type CandidateQuery struct {
	Tag            string
	Limit          int
	RetryErrors    bool
	IncludeSkipped bool
	Subreddits     []string
}

// FetchCandidates returns records with no status row for the tag, plus
// errored and/or skipped ones when asked, newest first. Records marked ok
// are never returned.
func (s *Store) FetchCandidates(ctx context.Context, q CandidateQuery) ([]types.Candidate, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	statuses := make([]string, 0, 2)
	if q.RetryErrors {
		statuses = append(statuses, string(types.StatusError))
	}
	if q.IncludeSkipped {
		statuses = append(statuses, string(types.StatusSkipped))
	}

	args := []any{q.Tag}
	where := "ca.comment_id IS NULL"
	if len(statuses) > 0 {
		where = fmt.Sprintf("(ca.comment_id IS NULL OR ca.status IN (%s))", placeholders(len(statuses)))
		for _, st := range statuses {
			args = append(args, st)
		}
	}

	subs := make([]string, 0, len(q.Subreddits))
	for _, sub := range q.Subreddits {
		if sub = strings.TrimSpace(sub); sub != "" {
			subs = append(subs, sub)
		}
	}
	if len(subs) > 0 {
		where += fmt.Sprintf(" AND c.subreddit IN (%s)", placeholders(len(subs)))
		for _, sub := range subs {
			args = append(args, sub)
		}
	}
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.comment_id, c.body
		FROM comments c
		LEFT JOIN comment_analysis ca
			ON ca.comment_id = c.comment_id AND ca.analysis_tag = ?
		WHERE `+where+`
		ORDER BY c.created_utc DESC, c.comment_id
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	defer rows.Close()

	var out []types.Candidate
	for rows.Next() {
		var c types.Candidate
		if err := rows.Scan(&c.ID, &c.Body); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
