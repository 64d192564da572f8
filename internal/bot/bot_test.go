package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"offer-tracker/internal/service"
	"offer-tracker/internal/storage/sqlite"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func setupTestBot(t *testing.T) (*Bot, *service.Service, *fakeSender) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "offers.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	svc := service.New(store, service.WithClock(func() time.Time { return now }))
	sender := &fakeSender{}
	return New(svc, sender, 42), svc, sender
}

func createOffer(t *testing.T, svc *service.Service, merchant string) service.OfferView {
	t.Helper()
	ctx := context.Background()
	card, err := svc.CreateCard(ctx, service.CardInput{Issuer: "Citi", Name: "Double Cash"})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	v, err := svc.CreateOffer(ctx, service.OfferInput{
		CardID:      card.ID,
		Merchant:    merchant,
		Category:    "groceries",
		Rate:        0.05,
		CashbackCap: 10,
		ExpireDay:   "2025-04-15",
	})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	return v
}

func TestHandleTextCommands(t *testing.T) {
	b, svc, _ := setupTestBot(t)
	ctx := context.Background()
	v := createOffer(t, svc, "Trader_Joes")
	prefix := v.ID[:8]

	if got := b.HandleText(ctx, "/help"); !strings.Contains(got, "/spend") {
		t.Errorf("Expected help text, got %q", got)
	}
	if got := b.HandleText(ctx, "/offers"); !strings.Contains(got, prefix) || !strings.Contains(got, `Trader\_Joes`) {
		t.Errorf("Expected offer listed with escaped merchant, got %q", got)
	}

	got := b.HandleText(ctx, "/spend "+prefix+" 40,50 weekly shop")
	if !strings.Contains(got, "Logged $40.50") {
		t.Errorf("Expected spend confirmation, got %q", got)
	}
	logs, err := svc.ListSpendLogs(ctx, v.ID)
	if err != nil {
		t.Fatalf("ListSpendLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Amount != 40.5 || logs[0].Note != "weekly shop" {
		t.Errorf("Unexpected logs %+v", logs)
	}

	if got := b.HandleText(ctx, "/archive "+prefix); !strings.Contains(got, "Archived") {
		t.Errorf("Expected archive confirmation, got %q", got)
	}
	if got := b.HandleText(ctx, "/stats"); !strings.Contains(got, "$2.02") && !strings.Contains(got, "$2.03") {
		t.Errorf("Expected lifetime cashback in stats, got %q", got)
	}
	if got := b.HandleText(ctx, "/spend "+prefix+" 5"); got != "❌ Offer is archived" {
		t.Errorf("Expected archived error, got %q", got)
	}
	if got := b.HandleText(ctx, "/delete "+prefix); !strings.Contains(got, "Deleted") {
		t.Errorf("Expected delete confirmation, got %q", got)
	}
	if got := b.HandleText(ctx, "/cards"); !strings.Contains(got, "Double Cash") {
		t.Errorf("Expected card listed, got %q", got)
	}
}

func TestHandleTextErrors(t *testing.T) {
	b, svc, _ := setupTestBot(t)
	ctx := context.Background()

	if got := b.HandleText(ctx, "/offers"); got != "📭 No open offers" {
		t.Errorf("Expected empty reply, got %q", got)
	}
	createOffer(t, svc, "A")
	createOffer(t, svc, "B")

	tests := []struct {
		text string
		want string
	}{
		{"/spend", "Use: /spend"},
		{"/spend zzzz 10", "Offer not found"},
		{"/spend  10", "Use: /spend"},
		{"/spend zzzz ten", "Offer not found"},
		{"/archive", "Use: /archive"},
		{"/whatever", "Unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := b.HandleText(ctx, tt.text); !strings.Contains(got, tt.want) {
				t.Errorf("Expected %q in reply, got %q", tt.want, got)
			}
		})
	}
}

func TestResolveAmbiguousPrefix(t *testing.T) {
	b, svc, _ := setupTestBot(t)
	ctx := context.Background()
	a := createOffer(t, svc, "A")
	createOffer(t, svc, "B")

	if _, err := b.resolve(ctx, ""); !errors.Is(err, service.ErrValidation) {
		t.Errorf("Expected ErrValidation for a prefix matching two offers, got %v", err)
	}
	got, err := b.resolve(ctx, strings.ToUpper(a.ID))
	if err != nil || got.ID != a.ID {
		t.Errorf("Expected full id to resolve case-insensitively, got %v %v", got.ID, err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"12", 12, false},
		{"$12.50", 12.5, false},
		{"7,25", 7.25, false},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseAmount(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestHandleUpdateAllowedChatOnly(t *testing.T) {
	b, _, sender := setupTestBot(t)
	ctx := context.Background()

	b.HandleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}, Text: "/help"}})
	if len(sender.sent) != 0 {
		t.Fatalf("Expected message from unknown chat ignored, sent %d", len(sender.sent))
	}

	b.HandleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}, Text: "/help@offer_bot"}})
	if len(sender.sent) != 1 {
		t.Fatalf("Expected one reply, got %d", len(sender.sent))
	}
	if sender.sent[0].ChatID != 42 || sender.sent[0].ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("Unexpected reply %+v", sender.sent[0])
	}
}

func TestFixEncoding(t *testing.T) {
	if got := fixEncoding("/spend abc 10"); got != "/spend abc 10" {
		t.Errorf("Expected UTF-8 input unchanged, got %q", got)
	}
	cp1251 := string([]byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2})
	if got := fixEncoding(cp1251); got != "Привет" {
		t.Errorf("Expected windows-1251 decoded, got %q", got)
	}
}
