package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/migrations"
	"offer-tracker/internal/storage"
	"offer-tracker/internal/storage/sqlite"
)

func setupTestStore(t *testing.T) *sqlite.Storage {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "offers.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *sqlite.Storage) {
	t.Helper()
	ctx := context.Background()
	err := s.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.PutCard(ctx, domain.Card{ID: "c1", Issuer: domain.IssuerCiti, Name: "Custom Cash", CreatedAt: base, UpdatedAt: base}); err != nil {
			return err
		}
		o := domain.Offer{
			ID: "o1", CardID: "c1", Merchant: "Shell", Category: domain.CategoryGas,
			Type: domain.RewardPercentage, Rate: 0.1, CashbackCap: 15, SpendThreshold: 150, RewardAmount: 15,
			TotalSpendTracked: 40, CashbackEarned: 4, Status: domain.StatusActive,
			ExpireAt: base.Add(72 * time.Hour), CreatedAt: base, UpdatedAt: base,
		}
		if err := tx.PutOffer(ctx, o); err != nil {
			return err
		}
		if err := tx.InsertSpendLog(ctx, domain.SpendLog{ID: "l1", OfferID: "o1", Amount: 40, CreatedAt: base}); err != nil {
			return err
		}
		return tx.PutStats(ctx, domain.AppStats{ID: domain.StatsID, LifetimeCashbackEarned: 99.5, LastUpdatedAt: base})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := setupTestStore(t)
	seed(t, src)

	doc, err := New(src).Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.SchemaVersion != migrations.TargetVersion || doc.Format != Format {
		t.Errorf("Unexpected header %q v%d", doc.Format, doc.SchemaVersion)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	dst := setupTestStore(t)
	res, err := New(dst).Import(ctx, decoded)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Cards != 1 || res.Offers != 1 || res.SpendLogs != 1 {
		t.Errorf("Unexpected result %+v", res)
	}

	o, err := dst.GetOffer(ctx, "o1")
	if err != nil || o == nil {
		t.Fatalf("GetOffer: %v %v", o, err)
	}
	if o.Merchant != "Shell" || o.TotalSpendTracked != 40 || o.SpendThreshold != 150 || !o.ExpireAt.Equal(base.Add(72*time.Hour)) {
		t.Errorf("Offer changed in transit: %+v", o)
	}
	st, err := dst.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.LifetimeCashbackEarned != 99.5 {
		t.Errorf("Expected lifetime 99.5, got %v", st.LifetimeCashbackEarned)
	}

	// importing the same document again upserts instead of duplicating
	if _, err := New(dst).Import(ctx, decoded); err != nil {
		t.Fatalf("second Import: %v", err)
	}
	logs, err := dst.ListSpendLogs(ctx, "")
	if err != nil {
		t.Fatalf("ListSpendLogs: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("Expected 1 spend log, got %d", len(logs))
	}
}

const v1Document = `{
  "schemaVersion": 1,
  "cards": [{"id": "c1", "issuer": "Chase", "name": "Freedom"}],
  "offers": [{
    "id": "old",
    "cardId": "c1",
    "merchant": "Starbucks",
    "category": "dining",
    "rate": 0.05,
    "cashbackCap": 10,
    "totalSpendTracked": 50,
    "cashbackEarned": 2.5,
    "expireAt": "2025-06-30T06:59:59Z"
  }],
  "spendLogs": [{"id": "l1", "offerId": "old", "amount": 50, "createdAt": "2025-03-01T12:00:00Z"}]
}`

func TestImportUpgradesV1Document(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	doc, err := Decode(strings.NewReader(v1Document))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b := New(s)
	b.now = func() time.Time { return base }
	if _, err := b.Import(ctx, doc); err != nil {
		t.Fatalf("Import: %v", err)
	}

	o, err := s.GetOffer(ctx, "old")
	if err != nil || o == nil {
		t.Fatalf("GetOffer: %v %v", o, err)
	}
	if o.Status != domain.StatusActive || o.CreditedToLifetime {
		t.Errorf("Expected v2 backfill, got status %q credited %v", o.Status, o.CreditedToLifetime)
	}
	if o.Type != domain.RewardPercentage || o.RewardAmount != 10 || o.SpendThreshold != 200 {
		t.Errorf("Expected v3 backfill, got %q reward %v threshold %v", o.Type, o.RewardAmount, o.SpendThreshold)
	}
	if o.CreatedAt.IsZero() || o.UpdatedAt.IsZero() {
		t.Errorf("Expected timestamps filled in")
	}

	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.LifetimeCashbackEarned != 0 {
		t.Errorf("Expected stats untouched by a v1 document, got %v", st.LifetimeCashbackEarned)
	}
}

func TestImportRecomputesProgress(t *testing.T) {
	ctx := context.Background()
	exp := time.Date(2025, 6, 30, 6, 59, 59, 0, time.UTC)
	past := time.Date(2025, 2, 1, 7, 59, 59, 0, time.UTC)

	tests := []struct {
		name       string
		version    int64
		rec        migrations.OfferRecord
		wantEarned float64
		wantStatus domain.OfferStatus
	}{
		{
			name:       "v1 spend past cap without earned",
			version:    1,
			rec:        migrations.OfferRecord{Rate: ptr(0.05), CashbackCap: ptr(50.0), TotalSpendTracked: ptr(1200.0)},
			wantEarned: 50,
			wantStatus: domain.StatusMaxed,
		},
		{
			name:       "v1 partial spend without earned",
			version:    1,
			rec:        migrations.OfferRecord{Rate: ptr(0.05), CashbackCap: ptr(50.0), TotalSpendTracked: ptr(300.0)},
			wantEarned: 15,
			wantStatus: domain.StatusActive,
		},
		{
			name:       "explicit earned is kept",
			version:    1,
			rec:        migrations.OfferRecord{Rate: ptr(0.05), CashbackCap: ptr(50.0), TotalSpendTracked: ptr(300.0), CashbackEarned: ptr(20.0)},
			wantEarned: 20,
			wantStatus: domain.StatusActive,
		},
		{
			name:       "v3 threshold reached without status",
			version:    3,
			rec:        migrations.OfferRecord{RewardType: ptr("threshold"), SpendThreshold: ptr(125.0), RewardAmount: ptr(25.0), TotalSpendTracked: ptr(130.0)},
			wantEarned: 25,
			wantStatus: domain.StatusMaxed,
		},
		{
			name:       "stale active past expiry",
			version:    2,
			rec:        migrations.OfferRecord{Rate: ptr(0.05), CashbackCap: ptr(50.0), Status: ptr("active"), ExpireAt: &past},
			wantEarned: 0,
			wantStatus: domain.StatusExpired,
		},
		{
			name:       "archived stays archived",
			version:    2,
			rec:        migrations.OfferRecord{Rate: ptr(0.05), CashbackCap: ptr(50.0), TotalSpendTracked: ptr(1200.0), Status: ptr("archived"), CreditedToLifetime: ptr(true)},
			wantEarned: 50,
			wantStatus: domain.StatusArchived,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			b := New(s)
			b.now = func() time.Time { return base }

			rec := tt.rec
			rec.ID = "o1"
			if rec.ExpireAt == nil {
				rec.ExpireAt = &exp
			}
			if _, err := b.Import(ctx, Document{SchemaVersion: tt.version, Offers: []migrations.OfferRecord{rec}}); err != nil {
				t.Fatalf("Import: %v", err)
			}
			o, err := s.GetOffer(ctx, "o1")
			if err != nil || o == nil {
				t.Fatalf("GetOffer: %v %v", o, err)
			}
			if o.CashbackEarned != tt.wantEarned || o.Status != tt.wantStatus {
				t.Errorf("Expected earned %v status %q, got %v %q", tt.wantEarned, tt.wantStatus, o.CashbackEarned, o.Status)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestImportRejectsBadDocuments(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	b := New(s)

	exp := base
	tests := []struct {
		name string
		doc  Document
		want error
	}{
		{"version zero", Document{SchemaVersion: 0}, ErrUnsupportedVersion},
		{"future version", Document{SchemaVersion: migrations.TargetVersion + 1}, ErrUnsupportedVersion},
		{"foreign format", Document{Format: "other", SchemaVersion: 3}, ErrInvalidDocument},
		{"offer without id", Document{SchemaVersion: 3, Offers: []migrations.OfferRecord{{ExpireAt: &exp}}}, ErrInvalidDocument},
		{"offer without expiry", Document{SchemaVersion: 3, Offers: []migrations.OfferRecord{{ID: "x"}}}, ErrInvalidDocument},
		{"orphan log", Document{SchemaVersion: 3, SpendLogs: []domain.SpendLog{{ID: "l"}}}, ErrInvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Import(ctx, tt.doc); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := Decode(strings.NewReader("{not json")); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("Expected ErrInvalidDocument from Decode, got %v", err)
	}
}
