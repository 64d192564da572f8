package service

import (
	"context"
	"fmt"
	"log/slog"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/money"
	"offer-tracker/internal/offer"
	"offer-tracker/internal/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type SpendInput struct {
	Amount float64 `json:"amount" validate:"gt=0,lte=1000000"`
	Note   string  `json:"note" validate:"max=500"`
}

// LogSpend appends a spend entry and adds its amount to the offer's tracked
// total in the same transaction, then recomputes progress and status.
func (s *Service) LogSpend(ctx context.Context, offerID string, in SpendInput) (log domain.SpendLog, updated domain.Offer, err error) {
	ctx, span := s.start(ctx, "LogSpend", attribute.String("offer.id", offerID))
	defer finish(span, &err)

	if err := validateStruct(in); err != nil {
		return domain.SpendLog{}, domain.Offer{}, err
	}

	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		cur, err := tx.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrOfferNotFound
		}
		if cur.Status == domain.StatusArchived {
			return ErrOfferArchived
		}

		now := s.clock()
		log = domain.SpendLog{
			ID:        uuid.NewString(),
			OfferID:   offerID,
			Amount:    money.Round(in.Amount),
			Note:      in.Note,
			CreatedAt: now,
		}
		if err := tx.InsertSpendLog(ctx, log); err != nil {
			return err
		}

		o := *cur
		o.TotalSpendTracked = money.Add(o.TotalSpendTracked, log.Amount)
		o = offer.RecalcProgress(o)
		o.Status = offer.ComputeStatus(o, now)
		o.UpdatedAt = now
		updated = o
		return tx.PutOffer(ctx, o)
	})
	if err != nil {
		return domain.SpendLog{}, domain.Offer{}, fmt.Errorf("log spend on %s: %w", offerID, err)
	}
	slog.Info("Spend logged", "offer_id", offerID, "amount", log.Amount,
		"total_spend", updated.TotalSpendTracked, "status", updated.Status)
	return log, updated, nil
}

func (s *Service) ListSpendLogs(ctx context.Context, offerID string) (logs []domain.SpendLog, err error) {
	ctx, span := s.start(ctx, "ListSpendLogs", attribute.String("offer.id", offerID))
	defer finish(span, &err)

	o, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	if o == nil {
		return nil, ErrOfferNotFound
	}
	logs, err = s.store.ListSpendLogs(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("list spend logs: %w", err)
	}
	return logs, nil
}

// ArchiveOffer freezes an offer and credits its final earned amount to the
// lifetime total. The credit happens at most once per offer. Archiving a
// missing offer is a no-op.
func (s *Service) ArchiveOffer(ctx context.Context, id string) (err error) {
	ctx, span := s.start(ctx, "ArchiveOffer", attribute.String("offer.id", id))
	defer finish(span, &err)

	var credited float64
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		cur, err := tx.GetOffer(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return nil
		}

		now := s.clock()
		o := offer.RecalcProgress(*cur)
		o.Status = domain.StatusArchived
		if o.ArchivedAt == nil {
			o.ArchivedAt = &now
		}
		o.UpdatedAt = now

		if !o.CreditedToLifetime {
			stats, err := tx.GetStats(ctx)
			if err != nil {
				return err
			}
			stats.LifetimeCashbackEarned = money.Add(stats.LifetimeCashbackEarned, o.CashbackEarned)
			stats.LastUpdatedAt = now
			if err := tx.PutStats(ctx, stats); err != nil {
				return err
			}
			o.CreditedToLifetime = true
			credited = o.CashbackEarned
		}
		return tx.PutOffer(ctx, o)
	})
	if err != nil {
		return fmt.Errorf("archive offer %s: %w", id, err)
	}
	slog.Info("Offer archived", "offer_id", id, "credited", credited)
	return nil
}

// DeleteOfferPermanently removes an offer and every spend log that references
// it. Deleting a missing offer is a no-op.
func (s *Service) DeleteOfferPermanently(ctx context.Context, id string) (err error) {
	ctx, span := s.start(ctx, "DeleteOfferPermanently", attribute.String("offer.id", id))
	defer finish(span, &err)

	var logs int64
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		n, err := tx.DeleteSpendLogsByOffer(ctx, id)
		if err != nil {
			return err
		}
		logs = n
		return tx.DeleteOffer(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete offer %s: %w", id, err)
	}
	slog.Info("Offer deleted", "offer_id", id, "spend_logs", logs)
	return nil
}

// Summary is the lifetime total plus a snapshot of the current offers.
type Summary struct {
	domain.AppStats
	Offers map[domain.OfferStatus]int `json:"offers"`
	// PendingCashback is earned on offers not yet credited to the lifetime total.
	PendingCashback float64 `json:"pendingCashback"`
}

func (s *Service) Stats(ctx context.Context) (sum Summary, err error) {
	ctx, span := s.start(ctx, "Stats")
	defer finish(span, &err)

	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("get stats: %w", err)
	}
	offers, err := s.store.ListOffers(ctx, storage.OfferFilter{})
	if err != nil {
		return Summary{}, fmt.Errorf("list offers: %w", err)
	}
	offers, err = s.normalizeOnRead(ctx, offers)
	if err != nil {
		return Summary{}, err
	}

	sum = Summary{
		AppStats: stats,
		Offers:   make(map[domain.OfferStatus]int),
	}
	var pending []float64
	for _, o := range offers {
		sum.Offers[o.Status]++
		if !o.CreditedToLifetime {
			pending = append(pending, o.CashbackEarned)
		}
	}
	sum.PendingCashback = money.Sum(pending...)
	return sum, nil
}
