package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// v1: cards, offers with percentage fields only, spend logs.
func upInitial(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			issuer TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_issuer ON cards(issuer)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_name ON cards(name)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_created_at ON cards(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_updated_at ON cards(updated_at)`,

		`CREATE TABLE IF NOT EXISTS offers (
			id TEXT PRIMARY KEY,
			card_id TEXT NOT NULL,
			category TEXT NOT NULL,
			merchant TEXT NOT NULL,
			note TEXT,
			rate REAL,
			cashback_cap REAL,
			total_spend_tracked REAL NOT NULL DEFAULT 0,
			cashback_earned REAL NOT NULL DEFAULT 0,
			expire_at TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_card_id ON offers(card_id)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_category ON offers(category)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_expire_at ON offers(expire_at)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_created_at ON offers(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_updated_at ON offers(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_cashback_earned ON offers(cashback_earned)`,

		`CREATE TABLE IF NOT EXISTS spend_logs (
			id TEXT PRIMARY KEY,
			offer_id TEXT NOT NULL,
			amount REAL NOT NULL,
			note TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spend_logs_offer_id ON spend_logs(offer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_spend_logs_created_at ON spend_logs(created_at)`,
	})
}

// v2: lifecycle fields on offers and the lifetime stats singleton.
func upLifecycle(ctx context.Context, tx *sql.Tx) error {
	err := execAll(ctx, tx, []string{
		`ALTER TABLE offers ADD COLUMN status TEXT`,
		`ALTER TABLE offers ADD COLUMN credited_to_lifetime INTEGER`,
		`ALTER TABLE offers ADD COLUMN archived_at TEXT`,
		`CREATE INDEX IF NOT EXISTS idx_offers_status ON offers(status)`,
		`CREATE TABLE IF NOT EXISTS stats (
			id TEXT PRIMARY KEY,
			lifetime_cashback_earned REAL NOT NULL DEFAULT 0,
			last_updated_at TEXT NOT NULL
		)`,
	})
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, status, credited_to_lifetime FROM offers`)
	if err != nil {
		return fmt.Errorf("read offers for v2 backfill: %w", err)
	}
	var records []OfferRecord
	for rows.Next() {
		var r OfferRecord
		var status sql.NullString
		var credited sql.NullBool
		if err := rows.Scan(&r.ID, &status, &credited); err != nil {
			rows.Close()
			return fmt.Errorf("scan offer: %w", err)
		}
		if status.Valid {
			r.Status = ptr(status.String)
		}
		if credited.Valid {
			r.CreditedToLifetime = ptr(credited.Bool)
		}
		records = append(records, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	for _, r := range records {
		r = BackfillOfferV2(r)
		_, err := tx.ExecContext(ctx,
			`UPDATE offers SET status = ?, credited_to_lifetime = ? WHERE id = ?`,
			*r.Status, *r.CreditedToLifetime, r.ID)
		if err != nil {
			return fmt.Errorf("backfill offer %s: %w", r.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stats (id, lifetime_cashback_earned, last_updated_at)
		VALUES ('app', 0, ?)
		ON CONFLICT(id) DO NOTHING
	`, time.Now().UTC().Format(TimeLayout))
	if err != nil {
		return fmt.Errorf("seed stats: %w", err)
	}
	return nil
}

// v3: reward types.
func upRewardTypes(ctx context.Context, tx *sql.Tx) error {
	err := execAll(ctx, tx, []string{
		`ALTER TABLE offers ADD COLUMN reward_type TEXT`,
		`ALTER TABLE offers ADD COLUMN spend_threshold REAL`,
		`ALTER TABLE offers ADD COLUMN reward_amount REAL`,
		`CREATE INDEX IF NOT EXISTS idx_offers_reward_type ON offers(reward_type)`,
	})
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, reward_type, rate, cashback_cap, spend_threshold, reward_amount FROM offers
	`)
	if err != nil {
		return fmt.Errorf("read offers for v3 backfill: %w", err)
	}
	var records []OfferRecord
	for rows.Next() {
		var r OfferRecord
		var rewardType sql.NullString
		var rate, capAmount, threshold, reward sql.NullFloat64
		if err := rows.Scan(&r.ID, &rewardType, &rate, &capAmount, &threshold, &reward); err != nil {
			rows.Close()
			return fmt.Errorf("scan offer: %w", err)
		}
		r.RewardType = nullString(rewardType)
		r.Rate = nullFloat(rate)
		r.CashbackCap = nullFloat(capAmount)
		r.SpendThreshold = nullFloat(threshold)
		r.RewardAmount = nullFloat(reward)
		records = append(records, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	for _, r := range records {
		r = BackfillOfferV3(r)
		_, err := tx.ExecContext(ctx,
			`UPDATE offers SET reward_type = ?, spend_threshold = ?, reward_amount = ? WHERE id = ?`,
			*r.RewardType, r.SpendThreshold, r.RewardAmount, r.ID)
		if err != nil {
			return fmt.Errorf("backfill offer %s: %w", r.ID, err)
		}
	}
	return nil
}

// TimeLayout is the fixed-width UTC text form of every stored instant, so
// lexical order on indexed columns matches time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return ptr(v.String)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return ptr(v.Float64)
}
