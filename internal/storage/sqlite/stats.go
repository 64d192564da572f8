package sqlite

import (
	"context"
	"fmt"
	"time"

	"offer-tracker/internal/domain"
)

func getStats(ctx context.Context, q querier) (domain.AppStats, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO stats (id, lifetime_cashback_earned, last_updated_at)
		VALUES (?, 0, ?)
		ON CONFLICT(id) DO NOTHING
	`, domain.StatsID, formatTime(time.Now()))
	if err != nil {
		return domain.AppStats{}, classify(fmt.Errorf("ensure stats: %w", err))
	}

	var st domain.AppStats
	var updatedAt string
	err = q.QueryRowContext(ctx, `
		SELECT id, lifetime_cashback_earned, last_updated_at FROM stats WHERE id = ?
	`, domain.StatsID).Scan(&st.ID, &st.LifetimeCashbackEarned, &updatedAt)
	if err != nil {
		return domain.AppStats{}, fmt.Errorf("read stats: %w", err)
	}
	if st.LastUpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.AppStats{}, err
	}
	return st, nil
}

func (s *Storage) GetStats(ctx context.Context) (domain.AppStats, error) {
	return getStats(ctx, s.db)
}

func (t *txStorage) GetStats(ctx context.Context) (domain.AppStats, error) {
	return getStats(ctx, t.q)
}

func (t *txStorage) PutStats(ctx context.Context, st domain.AppStats) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO stats (id, lifetime_cashback_earned, last_updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lifetime_cashback_earned = excluded.lifetime_cashback_earned,
			last_updated_at = excluded.last_updated_at
	`, domain.StatsID, st.LifetimeCashbackEarned, formatTime(st.LastUpdatedAt))
	if err != nil {
		return classify(fmt.Errorf("update stats: %w", err))
	}
	return nil
}
