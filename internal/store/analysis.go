package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jad-chahin/stock-sentiment/internal/types"
)

// Tx groups status and mention writes between two checkpoints. All writes
// are upserts on their natural keys, so replaying a batch is harmless.
type Tx struct {
	tx *sql.Tx
}

// Begin opens a write batch. Pass a context that outlives cancellation of
// the run if the batch must still be committed after a stop.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Commit makes the batch durable.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback discards the batch. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// MarkOK records a successful analysis of the record under tag.
func (t *Tx) MarkOK(ctx context.Context, tag, recordID, model string, at time.Time) error {
	return t.setStatus(ctx, tag, recordID, model, types.StatusOK, "", at)
}

// MarkSkipped records that the record was deliberately not analyzed.
func (t *Tx) MarkSkipped(ctx context.Context, tag, recordID, model string, at time.Time) error {
	return t.setStatus(ctx, tag, recordID, model, types.StatusSkipped, "", at)
}

// MarkError records a failed attempt. detail is truncated.
func (t *Tx) MarkError(ctx context.Context, tag, recordID, model, detail string, at time.Time) error {
	return t.setStatus(ctx, tag, recordID, model, types.StatusError, truncate(detail, maxErrorLen), at)
}

func (t *Tx) setStatus(ctx context.Context, tag, recordID, model string, status types.Status, detail string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO comment_analysis (analysis_tag, comment_id, model, analyzed_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(analysis_tag, comment_id) DO UPDATE SET
			model = excluded.model,
			analyzed_at = excluded.analyzed_at,
			status = excluded.status,
			error = excluded.error
	`, tag, recordID, model, at.Unix(), string(status), nullString(detail))
	return err
}

// ReplaceMentions swaps the record's mention set under tag for mentions.
func (t *Tx) ReplaceMentions(ctx context.Context, tag, recordID, model string, mentions []types.Mention, at time.Time) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM mentions WHERE analysis_tag = ? AND comment_id = ?`, tag, recordID); err != nil {
		return err
	}
	for _, m := range mentions {
		if err := t.UpsertMention(ctx, tag, recordID, model, m, at); err != nil {
			return err
		}
	}
	return nil
}

// UpsertMention writes one mention, overwriting any row with the same
// (tag, record, ticker).
func (t *Tx) UpsertMention(ctx context.Context, tag, recordID, model string, m types.Mention, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO mentions (analysis_tag, comment_id, ticker, sentiment, model, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(analysis_tag, comment_id, ticker) DO UPDATE SET
			sentiment = excluded.sentiment,
			model = excluded.model,
			analyzed_at = excluded.analyzed_at
	`, tag, recordID, m.Ticker, string(m.Sentiment), model, at.Unix())
	return err
}

// StatusRow is one comment_analysis row.
type StatusRow struct {
	Tag        string
	RecordID   string
	Model      string
	AnalyzedAt time.Time
	Status     types.Status
	Error      string
}

// GetStatus returns the status row for (tag, recordID).
func (s *Store) GetStatus(ctx context.Context, tag, recordID string) (*StatusRow, error) {
	var (
		r      StatusRow
		at     int64
		status string
		detail sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT analysis_tag, comment_id, model, analyzed_at, status, error
		FROM comment_analysis WHERE analysis_tag = ? AND comment_id = ?
	`, tag, recordID).Scan(&r.Tag, &r.RecordID, &r.Model, &at, &status, &detail)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.AnalyzedAt = time.Unix(at, 0).UTC()
	r.Status = types.Status(status)
	r.Error = detail.String
	return &r, nil
}

// MentionsFor returns the mentions stored for one record under tag,
// ordered by ticker.
func (s *Store) MentionsFor(ctx context.Context, tag, recordID string) ([]types.Mention, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, sentiment FROM mentions
		WHERE analysis_tag = ? AND comment_id = ?
		ORDER BY ticker
	`, tag, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Mention
	for rows.Next() {
		var m types.Mention
		var sentiment string
		if err := rows.Scan(&m.Ticker, &sentiment); err != nil {
			return nil, err
		}
		m.Sentiment = types.Sentiment(sentiment)
		out = append(out, m)
	}
	return out, rows.Err()
}
