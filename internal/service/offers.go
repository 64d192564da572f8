package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"offer-tracker/internal/dates"
	"offer-tracker/internal/domain"
	"offer-tracker/internal/offer"
	"offer-tracker/internal/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// OfferInput creates or replaces the editable fields of an offer. Rate and
// CashbackCap apply to percentage offers, SpendThreshold and RewardAmount to
// threshold offers. RewardType defaults to percentage.
type OfferInput struct {
	CardID         string  `json:"cardId" validate:"required,notblank"`
	Merchant       string  `json:"merchant" validate:"required,notblank,max=200"`
	Note           string  `json:"note" validate:"max=500"`
	Category       string  `json:"category" validate:"required,category"`
	RewardType     string  `json:"rewardType" validate:"omitempty,rewardtype"`
	Rate           float64 `json:"rate" validate:"gte=0,lte=1"`
	CashbackCap    float64 `json:"cashbackCap" validate:"gte=0,lte=1000000"`
	SpendThreshold float64 `json:"spendThreshold" validate:"gte=0,lte=1000000"`
	RewardAmount   float64 `json:"rewardAmount" validate:"gte=0,lte=1000000"`
	ExpireDay      string  `json:"expireDay" validate:"required,calendarday"`

	TotalSpendTracked *float64 `json:"totalSpendTracked,omitempty" validate:"omitempty,gte=0,lte=100000000"`
	// CashbackEarned is a manual override, honored on edit only.
	CashbackEarned *float64 `json:"cashbackEarned,omitempty" validate:"omitempty,gte=0,lte=1000000"`
}

func (in OfferInput) rewardType() domain.RewardType {
	if in.RewardType == "" {
		return domain.RewardPercentage
	}
	return domain.RewardType(in.RewardType)
}

func (in OfferInput) validate() error {
	if err := validateStruct(in); err != nil {
		return err
	}
	switch in.rewardType() {
	case domain.RewardThreshold:
		if in.SpendThreshold <= 0 {
			return invalid("spendThreshold must be greater than 0")
		}
		if in.RewardAmount <= 0 {
			return invalid("rewardAmount must be greater than 0")
		}
	default:
		if in.Rate <= 0 {
			return invalid("rate must be greater than 0")
		}
		if in.CashbackCap <= 0 {
			return invalid("cashbackCap must be greater than 0")
		}
	}
	return nil
}

// apply copies the editable fields onto o. The derived reward fields of the
// other type are filled the same way the schema backfill fills them.
func (in OfferInput) apply(o domain.Offer, expireAt time.Time) domain.Offer {
	o.CardID = in.CardID
	o.Merchant = in.Merchant
	o.Note = in.Note
	o.Category = domain.Category(in.Category)
	o.Type = in.rewardType()
	o.ExpireAt = expireAt

	if o.Type == domain.RewardThreshold {
		o.SpendThreshold = in.SpendThreshold
		o.RewardAmount = in.RewardAmount
		o.CashbackCap = in.RewardAmount
		o.Rate = 0
	} else {
		o.Rate = in.Rate
		o.CashbackCap = in.CashbackCap
		o.RewardAmount = in.CashbackCap
		o.SpendThreshold = in.CashbackCap / in.Rate
	}
	if in.TotalSpendTracked != nil {
		o.TotalSpendTracked = *in.TotalSpendTracked
	}
	return o
}

// OfferView is an offer as shown to a user: normalized, with its card and
// derived progress.
type OfferView struct {
	domain.Offer
	CardName  string        `json:"cardName"`
	Issuer    domain.Issuer `json:"issuer,omitempty"`
	ExpireDay string        `json:"expireDay"`
	Stats     offer.Stats   `json:"stats"`
}

func (s *Service) view(o domain.Offer, cards map[string]domain.Card) OfferView {
	v := OfferView{
		Offer:     o,
		CardName:  CardUnavailable,
		ExpireDay: dates.DayOf(o.ExpireAt, s.loc),
		Stats:     offer.ComputeStats(o),
	}
	if c, ok := cards[o.CardID]; ok {
		v.CardName = c.Name
		v.Issuer = c.Issuer
	}
	return v
}

func (s *Service) cardIndex(ctx context.Context) (map[string]domain.Card, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	idx := make(map[string]domain.Card, len(cards))
	for _, c := range cards {
		idx[c.ID] = c
	}
	return idx, nil
}

func (s *Service) requireCard(ctx context.Context, id string) error {
	c, err := s.store.GetCard(ctx, id)
	if err != nil {
		return fmt.Errorf("get card: %w", err)
	}
	if c == nil {
		return ErrCardNotFound
	}
	return nil
}

func (s *Service) CreateOffer(ctx context.Context, in OfferInput) (v OfferView, err error) {
	ctx, span := s.start(ctx, "CreateOffer")
	defer finish(span, &err)

	if err := in.validate(); err != nil {
		return OfferView{}, err
	}
	expireAt, err := dates.EndOfDay(in.ExpireDay, s.loc)
	if err != nil {
		return OfferView{}, invalid("%v", err)
	}
	if err := s.requireCard(ctx, in.CardID); err != nil {
		return OfferView{}, err
	}

	now := s.clock()
	o := in.apply(domain.Offer{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}, expireAt)
	o = offer.RecalcProgress(o)
	o.Status = offer.ComputeStatus(o, now)

	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		return tx.PutOffer(ctx, o)
	})
	if err != nil {
		return OfferView{}, fmt.Errorf("create offer: %w", err)
	}
	slog.Info("Offer created", "offer_id", o.ID, "merchant", o.Merchant, "reward_type", o.Type)

	cards, err := s.cardIndex(ctx)
	if err != nil {
		return OfferView{}, err
	}
	return s.view(o, cards), nil
}

// UpdateOffer replaces the editable fields of an existing offer. A
// CashbackEarned override on a percentage offer back-solves the tracked spend.
func (s *Service) UpdateOffer(ctx context.Context, id string, in OfferInput) (v OfferView, err error) {
	ctx, span := s.start(ctx, "UpdateOffer", attribute.String("offer.id", id))
	defer finish(span, &err)

	if err := in.validate(); err != nil {
		return OfferView{}, err
	}
	expireAt, err := dates.EndOfDay(in.ExpireDay, s.loc)
	if err != nil {
		return OfferView{}, invalid("%v", err)
	}

	var updated domain.Offer
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		cur, err := tx.GetOffer(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrOfferNotFound
		}
		if cur.Status == domain.StatusArchived {
			return ErrOfferArchived
		}
		if in.CardID != cur.CardID {
			if err := s.requireCard(ctx, in.CardID); err != nil {
				return err
			}
		}

		now := s.clock()
		o := offer.RecalcProgress(in.apply(*cur, expireAt))
		if in.CashbackEarned != nil {
			var overridden bool
			if o, overridden = offer.ApplyManualEarned(o, *in.CashbackEarned); overridden {
				slog.Info("Tracked spend back-solved from manual earned",
					"offer_id", id, "earned", o.CashbackEarned, "total_spend", o.TotalSpendTracked)
			}
		}
		o.Status = offer.ComputeStatus(o, now)
		o.UpdatedAt = now
		updated = o
		return tx.PutOffer(ctx, o)
	})
	if err != nil {
		return OfferView{}, fmt.Errorf("update offer %s: %w", id, err)
	}

	cards, err := s.cardIndex(ctx)
	if err != nil {
		return OfferView{}, err
	}
	return s.view(updated, cards), nil
}

// GetOffer returns one normalized offer.
func (s *Service) GetOffer(ctx context.Context, id string) (v OfferView, err error) {
	ctx, span := s.start(ctx, "GetOffer", attribute.String("offer.id", id))
	defer finish(span, &err)

	o, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return OfferView{}, fmt.Errorf("get offer: %w", err)
	}
	if o == nil {
		return OfferView{}, ErrOfferNotFound
	}
	offers, err := s.normalizeOnRead(ctx, []domain.Offer{*o})
	if err != nil {
		return OfferView{}, err
	}
	cards, err := s.cardIndex(ctx)
	if err != nil {
		return OfferView{}, err
	}
	return s.view(offers[0], cards), nil
}

// ListOffers returns normalized offers in display order. The status filter is
// applied after normalization.
func (s *Service) ListOffers(ctx context.Context, f storage.OfferFilter) (views []OfferView, err error) {
	ctx, span := s.start(ctx, "ListOffers")
	defer finish(span, &err)

	statuses := f.Statuses
	f.Statuses = nil
	offers, err := s.store.ListOffers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	offers, err = s.normalizeOnRead(ctx, offers)
	if err != nil {
		return nil, err
	}
	if len(statuses) > 0 {
		offers = slices.DeleteFunc(offers, func(o domain.Offer) bool {
			return !slices.Contains(statuses, o.Status)
		})
	}
	offer.Sort(offers)

	cards, err := s.cardIndex(ctx)
	if err != nil {
		return nil, err
	}
	views = make([]OfferView, 0, len(offers))
	for _, o := range offers {
		views = append(views, s.view(o, cards))
	}
	return views, nil
}
