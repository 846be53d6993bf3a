package store

import (
	"context"
	"database/sql"
)

// ClearTag deletes every status and mention row for tag. Records stay.
func (s *Store) ClearTag(ctx context.Context, tag string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mentions WHERE analysis_tag = ?`, tag); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comment_analysis WHERE analysis_tag = ?`, tag); err != nil {
		return err
	}
	if cur, err := currentTagIn(ctx, tx); err == nil && cur == tag {
		if _, err := tx.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, currentTagKey); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearAll deletes every row in every table, records included.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"mentions", "comment_analysis", "comments", "app_state"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func currentTagIn(ctx context.Context, tx *sql.Tx) (string, error) {
	var v sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, currentTagKey).Scan(&v)
	return v.String, err
}
