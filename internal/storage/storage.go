// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"offer-tracker/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrBusy marks failures caused by another writer holding the store.
	ErrBusy = errors.New("store busy")
)

type CardStorage interface {
	CreateCard(ctx context.Context, card domain.Card) error
	GetCard(ctx context.Context, id string) (*domain.Card, error)
	ListCards(ctx context.Context) ([]domain.Card, error)
	UpdateCard(ctx context.Context, card domain.Card) error
	DeleteCard(ctx context.Context, id string) error
}

// OfferFilter narrows ListOffers. Zero value lists everything.
type OfferFilter struct {
	Statuses []domain.OfferStatus
	// Open keeps every offer that is not archived, including rows whose
	// status is blank or missing.
	Open     bool
	CardID   string
	Category domain.Category
	Merchant string // case-insensitive substring
}

type OfferStorage interface {
	GetOffer(ctx context.Context, id string) (*domain.Offer, error)
	ListOffers(ctx context.Context, filter OfferFilter) ([]domain.Offer, error)
	ListSpendLogs(ctx context.Context, offerID string) ([]domain.SpendLog, error)
	GetStats(ctx context.Context) (domain.AppStats, error)
}

// Tx is the set of reads and writes available inside one transaction. Nothing
// written through it is visible to other readers until the transaction commits.
type Tx interface {
	GetOffer(ctx context.Context, id string) (*domain.Offer, error)
	ListOffers(ctx context.Context, filter OfferFilter) ([]domain.Offer, error)
	PutOffer(ctx context.Context, offer domain.Offer) error
	DeleteOffer(ctx context.Context, id string) error

	InsertSpendLog(ctx context.Context, log domain.SpendLog) error
	ListSpendLogs(ctx context.Context, offerID string) ([]domain.SpendLog, error)
	DeleteSpendLogsByOffer(ctx context.Context, offerID string) (int64, error)

	PutCard(ctx context.Context, card domain.Card) error
	ListCards(ctx context.Context) ([]domain.Card, error)

	// GetStats creates the singleton on first access.
	GetStats(ctx context.Context) (domain.AppStats, error)
	PutStats(ctx context.Context, stats domain.AppStats) error
}

// Store is everything the service layer needs. InTx commits when fn returns
// nil and rolls back otherwise; fn's error is returned unchanged.
type Store interface {
	CardStorage
	OfferStorage
	InTx(ctx context.Context, fn func(tx Tx) error) error
	SchemaVersion(ctx context.Context) (int64, error)
}
