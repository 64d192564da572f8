package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"offer-tracker/internal/domain"
)

func insertSpendLog(ctx context.Context, q querier, l domain.SpendLog) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO spend_logs (id, offer_id, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			offer_id = excluded.offer_id,
			amount = excluded.amount,
			note = excluded.note,
			created_at = excluded.created_at
	`, l.ID, l.OfferID, l.Amount, nullableString(sanitizeString(l.Note)), formatTime(l.CreatedAt))
	if err != nil {
		return classify(fmt.Errorf("insert spend log: %w", err))
	}
	return nil
}

func listSpendLogs(ctx context.Context, q querier, offerID string) ([]domain.SpendLog, error) {
	query := `SELECT id, offer_id, amount, note, created_at FROM spend_logs`
	var args []any
	if offerID != "" {
		query += ` WHERE offer_id = ?`
		args = append(args, offerID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query spend logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.SpendLog
	for rows.Next() {
		var l domain.SpendLog
		var note sql.NullString
		var createdAt string
		if err := rows.Scan(&l.ID, &l.OfferID, &l.Amount, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan spend log: %w", err)
		}
		l.Note = note.String
		if l.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// === SpendLogs ===

// ListSpendLogs lists the logs of one offer, or of every offer when offerID is empty.
func (s *Storage) ListSpendLogs(ctx context.Context, offerID string) ([]domain.SpendLog, error) {
	return listSpendLogs(ctx, s.db, offerID)
}

func (t *txStorage) ListSpendLogs(ctx context.Context, offerID string) ([]domain.SpendLog, error) {
	return listSpendLogs(ctx, t.q, offerID)
}

func (t *txStorage) InsertSpendLog(ctx context.Context, l domain.SpendLog) error {
	return insertSpendLog(ctx, t.q, l)
}

func (t *txStorage) DeleteSpendLogsByOffer(ctx context.Context, offerID string) (int64, error) {
	res, err := t.q.ExecContext(ctx, `DELETE FROM spend_logs WHERE offer_id = ?`, offerID)
	if err != nil {
		return 0, classify(fmt.Errorf("delete spend logs of %s: %w", offerID, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
