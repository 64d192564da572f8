// Package backup exports the whole store as one JSON document and imports such
// documents back. Documents written by older schema versions are upgraded
// record by record through the migration backfills before they are stored.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/migrations"
	"offer-tracker/internal/offer"
	"offer-tracker/internal/storage"
)

// Format identifies backup documents.
const Format = "offer-tracker-backup"

var (
	ErrUnsupportedVersion = errors.New("unsupported backup schema version")
	ErrInvalidDocument    = errors.New("invalid backup document")
)

type Document struct {
	Format        string                   `json:"format"`
	SchemaVersion int64                    `json:"schemaVersion"`
	ExportedAt    time.Time                `json:"exportedAt"`
	Cards         []domain.Card            `json:"cards"`
	Offers        []migrations.OfferRecord `json:"offers"`
	SpendLogs     []domain.SpendLog        `json:"spendLogs"`
	// Stats is absent in version 1 documents.
	Stats *domain.AppStats `json:"stats,omitempty"`
}

// Result counts the records written by Import.
type Result struct {
	SchemaVersion int64 `json:"schemaVersion"`
	Cards         int   `json:"cards"`
	Offers        int   `json:"offers"`
	SpendLogs     int   `json:"spendLogs"`
}

type Backup struct {
	store storage.Store
	now   func() time.Time
}

func New(store storage.Store) *Backup {
	return &Backup{store: store, now: time.Now}
}

// Export reads every collection in one transaction.
func (b *Backup) Export(ctx context.Context) (Document, error) {
	doc := Document{
		Format:        Format,
		SchemaVersion: migrations.TargetVersion,
		ExportedAt:    b.now().UTC(),
	}
	err := b.store.InTx(ctx, func(tx storage.Tx) error {
		cards, err := tx.ListCards(ctx)
		if err != nil {
			return err
		}
		offers, err := tx.ListOffers(ctx, storage.OfferFilter{})
		if err != nil {
			return err
		}
		logs, err := tx.ListSpendLogs(ctx, "")
		if err != nil {
			return err
		}
		stats, err := tx.GetStats(ctx)
		if err != nil {
			return err
		}

		doc.Cards = cards
		doc.SpendLogs = logs
		doc.Stats = &stats
		for _, o := range offers {
			doc.Offers = append(doc.Offers, migrations.RecordFromOffer(o))
		}
		return nil
	})
	if err != nil {
		return Document{}, fmt.Errorf("export backup: %w", err)
	}
	if doc.Cards == nil {
		doc.Cards = []domain.Card{}
	}
	if doc.Offers == nil {
		doc.Offers = []migrations.OfferRecord{}
	}
	if doc.SpendLogs == nil {
		doc.SpendLogs = []domain.SpendLog{}
	}
	return doc, nil
}

// Decode reads a document from r.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

// Import upserts every record of doc by id in one transaction. Offer records
// are upgraded from doc.SchemaVersion first. When the document carries stats,
// its lifetime total replaces the stored one.
func (b *Backup) Import(ctx context.Context, doc Document) (Result, error) {
	if doc.Format != "" && doc.Format != Format {
		return Result{}, fmt.Errorf("%w: format %q", ErrInvalidDocument, doc.Format)
	}
	if doc.SchemaVersion < 1 || doc.SchemaVersion > migrations.TargetVersion {
		return Result{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.SchemaVersion)
	}

	now := b.now().UTC()
	offers := make([]domain.Offer, 0, len(doc.Offers))
	for i, r := range doc.Offers {
		o, err := upgradeOffer(r, doc.SchemaVersion, now)
		if err != nil {
			return Result{}, fmt.Errorf("%w: offer %d: %v", ErrInvalidDocument, i, err)
		}
		offers = append(offers, o)
	}
	for i, c := range doc.Cards {
		if c.ID == "" {
			return Result{}, fmt.Errorf("%w: card %d has no id", ErrInvalidDocument, i)
		}
	}
	for i, l := range doc.SpendLogs {
		if l.ID == "" || l.OfferID == "" {
			return Result{}, fmt.Errorf("%w: spend log %d has no id or offer id", ErrInvalidDocument, i)
		}
	}

	err := b.store.InTx(ctx, func(tx storage.Tx) error {
		for _, c := range doc.Cards {
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
			if c.UpdatedAt.IsZero() {
				c.UpdatedAt = c.CreatedAt
			}
			if err := tx.PutCard(ctx, c); err != nil {
				return err
			}
		}
		for _, o := range offers {
			if err := tx.PutOffer(ctx, o); err != nil {
				return err
			}
		}
		for _, l := range doc.SpendLogs {
			if l.CreatedAt.IsZero() {
				l.CreatedAt = now
			}
			if err := tx.InsertSpendLog(ctx, l); err != nil {
				return err
			}
		}
		if doc.Stats != nil {
			stats := *doc.Stats
			stats.ID = domain.StatsID
			if stats.LastUpdatedAt.IsZero() {
				stats.LastUpdatedAt = now
			}
			if err := tx.PutStats(ctx, stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("import backup: %w", err)
	}

	res := Result{
		SchemaVersion: doc.SchemaVersion,
		Cards:         len(doc.Cards),
		Offers:        len(offers),
		SpendLogs:     len(doc.SpendLogs),
	}
	slog.Info("Backup imported", "schema_version", res.SchemaVersion,
		"cards", res.Cards, "offers", res.Offers, "spend_logs", res.SpendLogs)
	return res, nil
}

// upgradeOffer runs the backfill chain on r and re-derives the stored progress.
// A record without cashbackEarned gets it from the accrual formula; an explicit
// value is kept as a manual override. Status is recomputed unless archived.
func upgradeOffer(r migrations.OfferRecord, from int64, now time.Time) (domain.Offer, error) {
	if r.ID == "" {
		return domain.Offer{}, errors.New("missing id")
	}
	if r.ExpireAt == nil || r.ExpireAt.IsZero() {
		return domain.Offer{}, errors.New("missing expireAt")
	}
	up := migrations.UpgradeOffer(r, from)
	o := up.Offer()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = o.ExpireAt
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	if o.Category == "" {
		o.Category = domain.CategoryOther
	}
	if up.CashbackEarned == nil {
		o = offer.RecalcProgress(o)
	}
	if o.Status != domain.StatusArchived {
		o.Status = offer.ComputeStatus(o, now)
	}
	return o, nil
}
