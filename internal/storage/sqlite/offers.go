package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/storage"
)

const offerColumns = `id, card_id, category, merchant, note, reward_type, rate, cashback_cap,
	spend_threshold, reward_amount, total_spend_tracked, cashback_earned, status,
	archived_at, credited_to_lifetime, expire_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (domain.Offer, error) {
	var (
		o                                    domain.Offer
		note, rewardType, status, archivedAt sql.NullString
		rate, capAmount, threshold, reward   sql.NullFloat64
		credited                             sql.NullBool
		expireAt, createdAt, updatedAt       string
	)
	err := row.Scan(
		&o.ID, &o.CardID, &o.Category, &o.Merchant, &note, &rewardType, &rate, &capAmount,
		&threshold, &reward, &o.TotalSpendTracked, &o.CashbackEarned, &status,
		&archivedAt, &credited, &expireAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Offer{}, err
	}

	o.Note = note.String
	o.Type = domain.RewardType(rewardType.String)
	if o.Type == "" {
		o.Type = domain.RewardPercentage
	}
	o.Rate = rate.Float64
	o.CashbackCap = capAmount.Float64
	o.SpendThreshold = threshold.Float64
	o.RewardAmount = reward.Float64
	o.Status = domain.OfferStatus(status.String)
	o.CreditedToLifetime = credited.Bool

	if archivedAt.Valid && archivedAt.String != "" {
		at, err := parseTime(archivedAt.String)
		if err != nil {
			return domain.Offer{}, err
		}
		o.ArchivedAt = &at
	}
	if o.ExpireAt, err = parseTime(expireAt); err != nil {
		return domain.Offer{}, err
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Offer{}, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Offer{}, err
	}
	return o, nil
}

func getOffer(ctx context.Context, q querier, id string) (*domain.Offer, error) {
	row := q.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = ?`, id)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find offer: %w", err)
	}
	return &o, nil
}

func listOffers(ctx context.Context, q querier, f storage.OfferFilter) ([]domain.Offer, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ",")+")")
	}
	if f.Open {
		where = append(where, "(status IS NULL OR status != ?)")
		args = append(args, string(domain.StatusArchived))
	}
	if f.CardID != "" {
		where = append(where, "card_id = ?")
		args = append(args, f.CardID)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if m := sanitizeString(f.Merchant); m != "" {
		where = append(where, "merchant LIKE '%' || ? || '%'")
		args = append(args, m)
	}

	query := `SELECT ` + offerColumns + ` FROM offers`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY expire_at, created_at, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	var offers []domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return offers, nil
}

func putOffer(ctx context.Context, q querier, o domain.Offer) error {
	var archivedAt any
	if o.ArchivedAt != nil {
		archivedAt = formatTime(*o.ArchivedAt)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO offers (`+offerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			card_id = excluded.card_id,
			category = excluded.category,
			merchant = excluded.merchant,
			note = excluded.note,
			reward_type = excluded.reward_type,
			rate = excluded.rate,
			cashback_cap = excluded.cashback_cap,
			spend_threshold = excluded.spend_threshold,
			reward_amount = excluded.reward_amount,
			total_spend_tracked = excluded.total_spend_tracked,
			cashback_earned = excluded.cashback_earned,
			status = excluded.status,
			archived_at = excluded.archived_at,
			credited_to_lifetime = excluded.credited_to_lifetime,
			expire_at = excluded.expire_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`,
		o.ID, o.CardID, string(o.Category), sanitizeString(o.Merchant), nullableString(o.Note),
		string(o.Type), o.Rate, o.CashbackCap, o.SpendThreshold, o.RewardAmount,
		o.TotalSpendTracked, o.CashbackEarned, string(o.Status), archivedAt,
		o.CreditedToLifetime, formatTime(o.ExpireAt), formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		return classify(fmt.Errorf("upsert offer %s: %w", o.ID, err))
	}
	return nil
}

func deleteOffer(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM offers WHERE id = ?`, id); err != nil {
		return classify(fmt.Errorf("delete offer %s: %w", id, err))
	}
	return nil
}

// === OfferStorage ===

func (s *Storage) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	return getOffer(ctx, s.db, id)
}

func (s *Storage) ListOffers(ctx context.Context, f storage.OfferFilter) ([]domain.Offer, error) {
	return listOffers(ctx, s.db, f)
}

func (t *txStorage) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	return getOffer(ctx, t.q, id)
}

func (t *txStorage) ListOffers(ctx context.Context, f storage.OfferFilter) ([]domain.Offer, error) {
	return listOffers(ctx, t.q, f)
}

func (t *txStorage) PutOffer(ctx context.Context, o domain.Offer) error {
	return putOffer(ctx, t.q, o)
}

func (t *txStorage) DeleteOffer(ctx context.Context, id string) error {
	return deleteOffer(ctx, t.q, id)
}
