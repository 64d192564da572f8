package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/migrations"
	"offer-tracker/internal/storage"
)

func setupTestStore(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "offers.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// openAt opens a raw database migrated to version only.
func openAt(t *testing.T, version int64) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", DSN(filepath.Join(t.TempDir(), "legacy.db")))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.UpTo(context.Background(), db, version); err != nil {
		t.Fatalf("Failed to migrate to v%d: %v", version, err)
	}
	return db
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func ts(t time.Time) string {
	return t.UTC().Format(migrations.TimeLayout)
}

func testOffer(id string) domain.Offer {
	return domain.Offer{
		ID:                id,
		CardID:            "card-1",
		Merchant:          "Blue Bottle",
		Category:          domain.CategoryDining,
		Type:              domain.RewardPercentage,
		Rate:              0.05,
		CashbackCap:       50,
		SpendThreshold:    1000,
		RewardAmount:      50,
		TotalSpendTracked: 120,
		CashbackEarned:    6,
		Status:            domain.StatusActive,
		ExpireAt:          base.Add(30 * 24 * time.Hour),
		CreatedAt:         base,
		UpdatedAt:         base,
	}
}

func putOffers(t *testing.T, s *Storage, offers ...domain.Offer) {
	t.Helper()
	err := s.InTx(context.Background(), func(tx storage.Tx) error {
		for _, o := range offers {
			if err := tx.PutOffer(context.Background(), o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to put offers: %v", err)
	}
}

func TestOpenMigratesToTarget(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	v, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != migrations.TargetVersion {
		t.Errorf("Expected version %d, got %d", migrations.TargetVersion, v)
	}

	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.ID != domain.StatsID || st.LifetimeCashbackEarned != 0 {
		t.Errorf("Expected seeded stats, got %+v", st)
	}
}

func TestMigrateV1Offers(t *testing.T) {
	db := openAt(t, 1)
	ctx := context.Background()

	insert := `INSERT INTO offers (id, card_id, category, merchant, rate, cashback_cap,
		total_spend_tracked, cashback_earned, expire_at, created_at, updated_at)
		VALUES (?, 'card-1', 'dining', ?, ?, ?, ?, ?, ?, ?, ?)`
	exp := base.Add(48 * time.Hour)
	if _, err := db.Exec(insert, "pct", "Cafe", 0.05, 50.0, 100.0, 5.0, ts(exp), ts(base), ts(base)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Exec(insert, "norate", "Deli", 0.0, 20.0, 0.0, 0.0, ts(exp), ts(base), ts(base)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := migrations.Up(ctx, db); err != nil {
		t.Fatalf("Up: %v", err)
	}
	s := NewStorage(db)

	pct, err := s.GetOffer(ctx, "pct")
	if err != nil || pct == nil {
		t.Fatalf("GetOffer: %v %v", pct, err)
	}
	if pct.Status != domain.StatusActive {
		t.Errorf("Expected status active, got %q", pct.Status)
	}
	if pct.CreditedToLifetime {
		t.Error("Expected creditedToLifetime false")
	}
	if pct.Type != domain.RewardPercentage {
		t.Errorf("Expected percentage, got %q", pct.Type)
	}
	if pct.RewardAmount != 50 || pct.SpendThreshold != 1000 {
		t.Errorf("Expected reward 50 and threshold 1000, got %v and %v", pct.RewardAmount, pct.SpendThreshold)
	}
	if !pct.ExpireAt.Equal(exp) {
		t.Errorf("Expected expireAt %v, got %v", exp, pct.ExpireAt)
	}

	norate, err := s.GetOffer(ctx, "norate")
	if err != nil || norate == nil {
		t.Fatalf("GetOffer: %v %v", norate, err)
	}
	if norate.RewardAmount != 20 {
		t.Errorf("Expected reward 20, got %v", norate.RewardAmount)
	}
	var threshold sql.NullFloat64
	if err := db.QueryRow(`SELECT spend_threshold FROM offers WHERE id = 'norate'`).Scan(&threshold); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if threshold.Valid {
		t.Errorf("Expected spend_threshold unset for zero rate, got %v", threshold.Float64)
	}

	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.LifetimeCashbackEarned != 0 {
		t.Errorf("Expected zero lifetime, got %v", st.LifetimeCashbackEarned)
	}
}

func TestMigrateV2KeepsExistingValues(t *testing.T) {
	db := openAt(t, 2)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO offers (id, card_id, category, merchant, rate, cashback_cap,
		total_spend_tracked, cashback_earned, expire_at, created_at, updated_at,
		status, credited_to_lifetime, archived_at)
		VALUES ('arch', 'card-1', 'travel', 'Airline', 0.1, 30, 300, 30, ?, ?, ?, 'archived', 1, ?)`,
		ts(base), ts(base), ts(base), ts(base))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Exec(`UPDATE stats SET lifetime_cashback_earned = 30`); err != nil {
		t.Fatalf("update stats: %v", err)
	}

	if err := migrations.Up(ctx, db); err != nil {
		t.Fatalf("Up: %v", err)
	}
	s := NewStorage(db)

	o, err := s.GetOffer(ctx, "arch")
	if err != nil || o == nil {
		t.Fatalf("GetOffer: %v %v", o, err)
	}
	if o.Status != domain.StatusArchived || !o.CreditedToLifetime || o.ArchivedAt == nil {
		t.Errorf("Expected archived credited offer to survive, got %+v", o)
	}
	if o.SpendThreshold != 300 || o.RewardAmount != 30 {
		t.Errorf("Expected threshold 300 and reward 30, got %v and %v", o.SpendThreshold, o.RewardAmount)
	}

	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.LifetimeCashbackEarned != 30 {
		t.Errorf("Expected lifetime 30, got %v", st.LifetimeCashbackEarned)
	}
}

func TestOfferRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	archivedAt := base.Add(time.Hour)
	o := testOffer("o1")
	o.Note = "weekdays only"
	o.Status = domain.StatusArchived
	o.ArchivedAt = &archivedAt
	o.CreditedToLifetime = true
	putOffers(t, s, o)

	got, err := s.GetOffer(ctx, "o1")
	if err != nil || got == nil {
		t.Fatalf("GetOffer: %v %v", got, err)
	}
	if got.Merchant != o.Merchant || got.Note != o.Note || got.Category != o.Category || got.Type != o.Type {
		t.Errorf("Text fields differ: %+v", got)
	}
	if got.Rate != o.Rate || got.CashbackCap != o.CashbackCap || got.TotalSpendTracked != o.TotalSpendTracked ||
		got.CashbackEarned != o.CashbackEarned || got.SpendThreshold != o.SpendThreshold || got.RewardAmount != o.RewardAmount {
		t.Errorf("Money fields differ: %+v", got)
	}
	if got.Status != o.Status || !got.CreditedToLifetime {
		t.Errorf("Lifecycle fields differ: %+v", got)
	}
	if got.ArchivedAt == nil || !got.ArchivedAt.Equal(archivedAt) {
		t.Errorf("Expected archivedAt %v, got %v", archivedAt, got.ArchivedAt)
	}
	if !got.ExpireAt.Equal(o.ExpireAt) || !got.CreatedAt.Equal(o.CreatedAt) {
		t.Errorf("Times differ: %+v", got)
	}

	missing, err := s.GetOffer(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for missing offer, got %v, %v", missing, err)
	}
}

func TestListOffersFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := testOffer("a")
	b := testOffer("b")
	b.Merchant = "Whole Foods"
	b.Category = domain.CategoryGroceries
	b.Status = domain.StatusExpired
	c := testOffer("c")
	c.CardID = "card-2"
	d := testOffer("d")
	d.Status = domain.StatusArchived
	e := testOffer("e")
	e.Status = ""
	putOffers(t, s, a, b, c, d, e)
	if _, err := s.db.Exec(`UPDATE offers SET status = NULL WHERE id = 'e'`); err != nil {
		t.Fatalf("clear status: %v", err)
	}

	tests := []struct {
		name   string
		filter storage.OfferFilter
		want   int
	}{
		{"all", storage.OfferFilter{}, 5},
		{"open includes missing status", storage.OfferFilter{Open: true}, 4},
		{"status", storage.OfferFilter{Statuses: []domain.OfferStatus{domain.StatusExpired}}, 1},
		{"two statuses", storage.OfferFilter{Statuses: []domain.OfferStatus{domain.StatusActive, domain.StatusExpired}}, 3},
		{"card", storage.OfferFilter{CardID: "card-2"}, 1},
		{"category", storage.OfferFilter{Category: domain.CategoryDining}, 4},
		{"merchant case-insensitive", storage.OfferFilter{Merchant: "whole"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListOffers(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListOffers: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d offers, got %d", tt.want, len(got))
			}
		})
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.PutOffer(ctx, testOffer("o1")); err != nil {
			return err
		}
		if err := tx.InsertSpendLog(ctx, domain.SpendLog{ID: "l1", OfferID: "o1", Amount: 10, CreatedAt: base}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected fn error back, got %v", err)
	}

	if o, _ := s.GetOffer(ctx, "o1"); o != nil {
		t.Error("Expected offer to be rolled back")
	}
	logs, err := s.ListSpendLogs(ctx, "o1")
	if err != nil {
		t.Fatalf("ListSpendLogs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("Expected no spend logs, got %d", len(logs))
	}
}

func TestSpendLogs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	putOffers(t, s, testOffer("o1"), testOffer("o2"))

	var deleted int64
	err := s.InTx(ctx, func(tx storage.Tx) error {
		logs := []domain.SpendLog{
			{ID: "l2", OfferID: "o1", Amount: 20, CreatedAt: base.Add(time.Minute)},
			{ID: "l1", OfferID: "o1", Amount: 10, Note: "lunch", CreatedAt: base},
			{ID: "l3", OfferID: "o2", Amount: 5, CreatedAt: base},
		}
		for _, l := range logs {
			if err := tx.InsertSpendLog(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}

	logs, err := s.ListSpendLogs(ctx, "o1")
	if err != nil {
		t.Fatalf("ListSpendLogs: %v", err)
	}
	if len(logs) != 2 || logs[0].ID != "l1" || logs[0].Note != "lunch" {
		t.Errorf("Expected l1 then l2, got %+v", logs)
	}

	err = s.InTx(ctx, func(tx storage.Tx) error {
		n, err := tx.DeleteSpendLogsByOffer(ctx, "o1")
		deleted = n
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted)
	}
	all, err := s.ListSpendLogs(ctx, "")
	if err != nil {
		t.Fatalf("ListSpendLogs: %v", err)
	}
	if len(all) != 1 || all[0].OfferID != "o2" {
		t.Errorf("Expected only o2's log left, got %+v", all)
	}
}

func TestCards(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	card := domain.Card{ID: "c1", Issuer: domain.IssuerAmex, Name: "  Gold\tCard ", CreatedAt: base, UpdatedAt: base}
	if err := s.CreateCard(ctx, card); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	got, err := s.GetCard(ctx, "c1")
	if err != nil || got == nil {
		t.Fatalf("GetCard: %v %v", got, err)
	}
	if got.Name != "Gold Card" {
		t.Errorf("Expected sanitized name, got %q", got.Name)
	}

	got.Name = "Platinum"
	got.UpdatedAt = base.Add(time.Hour)
	if err := s.UpdateCard(ctx, *got); err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	cards, err := s.ListCards(ctx)
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(cards) != 1 || cards[0].Name != "Platinum" {
		t.Errorf("Expected renamed card, got %+v", cards)
	}

	if err := s.UpdateCard(ctx, domain.Card{ID: "missing", UpdatedAt: base}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteCard(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if err := s.DeleteCard(ctx, "c1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStatsPut(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx storage.Tx) error {
		st, err := tx.GetStats(ctx)
		if err != nil {
			return err
		}
		st.LifetimeCashbackEarned = 12.5
		st.LastUpdatedAt = base
		return tx.PutStats(ctx, st)
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.LifetimeCashbackEarned != 12.5 || !st.LastUpdatedAt.Equal(base) {
		t.Errorf("Unexpected stats %+v", st)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(errors.New("plain")) {
		t.Error("Expected plain error not retryable")
	}
	if !IsRetryable(classify(storage.ErrBusy)) {
		t.Error("Expected ErrBusy retryable")
	}
	if classify(nil) != nil {
		t.Error("Expected classify(nil) == nil")
	}
}
