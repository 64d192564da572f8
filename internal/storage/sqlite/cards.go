package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/storage"
)

func scanCard(row rowScanner) (domain.Card, error) {
	var c domain.Card
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Issuer, &c.Name, &createdAt, &updatedAt); err != nil {
		return domain.Card{}, err
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Card{}, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Card{}, err
	}
	return c, nil
}

func listCards(ctx context.Context, q querier) ([]domain.Card, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, issuer, name, created_at, updated_at FROM cards ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func putCard(ctx context.Context, q querier, c domain.Card) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO cards (id, issuer, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			issuer = excluded.issuer,
			name = excluded.name,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, c.ID, string(c.Issuer), sanitizeString(c.Name), formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return classify(fmt.Errorf("upsert card %s: %w", c.ID, err))
	}
	return nil
}

// === CardStorage ===

func (s *Storage) CreateCard(ctx context.Context, c domain.Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, issuer, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
	`, c.ID, string(c.Issuer), sanitizeString(c.Name), formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return classify(fmt.Errorf("create card: %w", err))
	}
	return nil
}

func (s *Storage) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, issuer, name, created_at, updated_at FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find card: %w", err)
	}
	return &c, nil
}

func (s *Storage) ListCards(ctx context.Context) ([]domain.Card, error) {
	return listCards(ctx, s.db)
}

func (s *Storage) UpdateCard(ctx context.Context, c domain.Card) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cards SET issuer = ?, name = ?, updated_at = ? WHERE id = ?
	`, string(c.Issuer), sanitizeString(c.Name), formatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return classify(fmt.Errorf("update card: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %s: %w", c.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteCard removes the card only; offers that reference it are kept.
func (s *Storage) DeleteCard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return classify(fmt.Errorf("delete card: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (t *txStorage) PutCard(ctx context.Context, c domain.Card) error {
	return putCard(ctx, t.q, c)
}

func (t *txStorage) ListCards(ctx context.Context) ([]domain.Card, error) {
	return listCards(ctx, t.q)
}
