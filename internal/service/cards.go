package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type CardInput struct {
	Issuer string `json:"issuer" validate:"required,issuer"`
	Name   string `json:"name" validate:"required,notblank,max=100"`
}

func (s *Service) CreateCard(ctx context.Context, in CardInput) (card domain.Card, err error) {
	ctx, span := s.start(ctx, "CreateCard")
	defer finish(span, &err)

	if err := validateStruct(in); err != nil {
		return domain.Card{}, err
	}
	now := s.clock()
	card = domain.Card{
		ID:        uuid.NewString(),
		Issuer:    domain.Issuer(in.Issuer),
		Name:      in.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCard(ctx, card); err != nil {
		return domain.Card{}, fmt.Errorf("create card: %w", err)
	}
	slog.Info("Card created", "card_id", card.ID, "issuer", card.Issuer)
	return card, nil
}

func (s *Service) ListCards(ctx context.Context) (cards []domain.Card, err error) {
	ctx, span := s.start(ctx, "ListCards")
	defer finish(span, &err)

	cards, err = s.store.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

func (s *Service) UpdateCard(ctx context.Context, id string, in CardInput) (card domain.Card, err error) {
	ctx, span := s.start(ctx, "UpdateCard", attribute.String("card.id", id))
	defer finish(span, &err)

	if err := validateStruct(in); err != nil {
		return domain.Card{}, err
	}
	cur, err := s.store.GetCard(ctx, id)
	if err != nil {
		return domain.Card{}, fmt.Errorf("get card: %w", err)
	}
	if cur == nil {
		return domain.Card{}, ErrCardNotFound
	}

	card = *cur
	card.Issuer = domain.Issuer(in.Issuer)
	card.Name = in.Name
	card.UpdatedAt = s.clock()
	if err := s.store.UpdateCard(ctx, card); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Card{}, ErrCardNotFound
		}
		return domain.Card{}, fmt.Errorf("update card: %w", err)
	}
	return card, nil
}

// DeleteCard removes a card. Offers on it stay and show CardUnavailable.
// Deleting a missing card is a no-op.
func (s *Service) DeleteCard(ctx context.Context, id string) (err error) {
	ctx, span := s.start(ctx, "DeleteCard", attribute.String("card.id", id))
	defer finish(span, &err)

	if err := s.store.DeleteCard(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete card: %w", err)
	}
	slog.Info("Card deleted", "card_id", id)
	return nil
}
