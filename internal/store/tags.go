package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const currentTagKey = "current_analysis_tag"

// ListTags returns every tag with status rows, most recently active first,
// followed by tags that only have mentions.
func (s *Store) ListTags(ctx context.Context) ([]TagInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.analysis_tag, MAX(t.last_seen), SUM(t.analyzed), SUM(t.mentions)
		FROM (
			SELECT analysis_tag, MAX(analyzed_at) AS last_seen, COUNT(*) AS analyzed, 0 AS mentions, 1 AS has_status
			FROM comment_analysis GROUP BY analysis_tag
			UNION ALL
			SELECT analysis_tag, MAX(analyzed_at), 0, COUNT(*), 0
			FROM mentions GROUP BY analysis_tag
		) t
		GROUP BY t.analysis_tag
		ORDER BY MAX(t.has_status) DESC, MAX(t.last_seen) DESC, t.analysis_tag
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TagInfo
	for rows.Next() {
		var info TagInfo
		var last int64
		if err := rows.Scan(&info.Tag, &last, &info.Analyzed, &info.Mentions); err != nil {
			return nil, err
		}
		info.LastSeen = time.Unix(last, 0).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// LatestTag returns the tag with the most recent activity.
func (s *Store) LatestTag(ctx context.Context) (string, error) {
	for _, q := range []string{
		`SELECT analysis_tag FROM comment_analysis ORDER BY analyzed_at DESC LIMIT 1`,
		`SELECT analysis_tag FROM mentions ORDER BY analyzed_at DESC LIMIT 1`,
	} {
		var tag string
		err := s.db.QueryRowContext(ctx, q).Scan(&tag)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", err
		}
		return tag, nil
	}
	return "", ErrNotFound
}

// GetState reads an app_state value.
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var v sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v.String, err
}

// SetState writes an app_state value.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// CurrentTag returns the tag the CLI last selected.
func (s *Store) CurrentTag(ctx context.Context) (string, error) {
	return s.GetState(ctx, currentTagKey)
}

// SetCurrentTag records the tag the CLI should default to.
func (s *Store) SetCurrentTag(ctx context.Context, tag string) error {
	return s.SetState(ctx, currentTagKey, tag)
}
