package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/offer"
	"offer-tracker/internal/storage"
)

// normalizeOnRead re-derives the status of every offer read and persists the
// corrections in one transaction. Each corrected offer is re-read inside the
// transaction so a concurrent write is never overwritten with a stale copy.
func (s *Service) normalizeOnRead(ctx context.Context, offers []domain.Offer) ([]domain.Offer, error) {
	now := s.clock()
	var stale []string
	for i, o := range offers {
		next, changed := offer.Normalize(o, now)
		if changed {
			offers[i] = next
			stale = append(stale, o.ID)
		}
	}
	if len(stale) == 0 {
		return offers, nil
	}

	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		for _, id := range stale {
			cur, err := tx.GetOffer(ctx, id)
			if err != nil {
				return err
			}
			if cur == nil {
				continue
			}
			if _, err := persistNormalized(ctx, tx, *cur, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist status corrections: %w", err)
	}
	return offers, nil
}

func persistNormalized(ctx context.Context, tx storage.Tx, o domain.Offer, now time.Time) (bool, error) {
	next, changed := offer.Normalize(o, now)
	if !changed {
		return false, nil
	}
	if err := tx.PutOffer(ctx, next); err != nil {
		return false, err
	}
	slog.Info("Offer status corrected", "offer_id", o.ID, "from", o.Status, "to", next.Status)
	return true, nil
}

// NormalizeAll sweeps every non-archived offer in one transaction and returns
// how many statuses were corrected.
func (s *Service) NormalizeAll(ctx context.Context) (n int, err error) {
	ctx, span := s.start(ctx, "NormalizeAll")
	defer finish(span, &err)

	now := s.clock()
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		offers, err := tx.ListOffers(ctx, storage.OfferFilter{Open: true})
		if err != nil {
			return err
		}
		for _, o := range offers {
			changed, err := persistNormalized(ctx, tx, o, now)
			if err != nil {
				return err
			}
			if changed {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("normalize offers: %w", err)
	}
	return n, nil
}

// RunNormalizer calls NormalizeAll every interval until ctx is done. A
// non-positive interval disables the sweep.
func (s *Service) RunNormalizer(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		slog.Info("Periodic normalizer disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Periodic normalizer started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Periodic normalizer stopped")
			return
		case <-ticker.C:
			n, err := s.NormalizeAll(ctx)
			if err != nil {
				slog.Error("Normalization sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Normalization sweep done", "corrected", n)
			}
		}
	}
}
