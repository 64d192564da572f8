// Package bot is the Telegram command surface. It answers one allowed chat and
// forwards every command to the service.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/service"
	"offer-tracker/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/encoding/charmap"
)

const helpText = "💳 *Offer tracker*\n\n" +
	"Commands:\n" +
	"`/offers` - open offers with progress\n" +
	"`/spend <id> <amount> [note]` - log a purchase\n" +
	"`/archive <id>` - archive an offer\n" +
	"`/delete <id>` - delete an offer and its spend\n" +
	"`/stats` - lifetime cashback\n" +
	"`/cards` - your cards\n\n" +
	"`<id>` is any unique prefix of the offer id shown by /offers."

// Sender is the part of tgbotapi.BotAPI the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	svc         *service.Service
	api         Sender
	allowedChat int64
}

// New builds a bot. allowedChat 0 accepts every chat.
func New(svc *service.Service, api Sender, allowedChat int64) *Bot {
	return &Bot{svc: svc, api: api, allowedChat: allowedChat}
}

// HandleUpdate answers one incoming update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if b.allowedChat != 0 && chatID != b.allowedChat {
		slog.Warn("Message from unknown chat ignored", "chat_id", chatID)
		return
	}

	text := strings.TrimSpace(fixEncoding(update.Message.Text))
	slog.Info("Received message", "chat_id", chatID, "text", text)

	msg := tgbotapi.NewMessage(chatID, b.HandleText(ctx, text))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("Failed to send reply", "chat_id", chatID, "error", err)
	}
}

// Run consumes updates until ctx is done or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleText runs one command and returns the Markdown reply.
func (b *Bot) HandleText(ctx context.Context, text string) string {
	cmd, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)
	// "/offers@my_bot" in group chats
	cmd, _, _ = strings.Cut(cmd, "@")

	var reply string
	var err error
	switch cmd {
	case "/start", "/help":
		reply = helpText
	case "/offers":
		reply, err = b.offers(ctx)
	case "/spend":
		reply, err = b.spend(ctx, args)
	case "/archive":
		reply, err = b.archive(ctx, args)
	case "/delete":
		reply, err = b.delete(ctx, args)
	case "/stats":
		reply, err = b.stats(ctx)
	case "/cards":
		reply, err = b.cards(ctx)
	default:
		reply = "Unknown command. Send /help"
	}
	if err != nil {
		return errorReply(err)
	}
	return reply
}

func errorReply(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		return "❌ " + esc(err.Error())
	case errors.Is(err, service.ErrOfferNotFound):
		return "❌ Offer not found"
	case errors.Is(err, service.ErrOfferArchived):
		return "❌ Offer is archived"
	case errors.Is(err, storage.ErrBusy):
		return "❌ Store is busy, please retry"
	default:
		slog.Error("Bot command failed", "error", err)
		return "❌ Something went wrong, please retry"
	}
}

func (b *Bot) offers(ctx context.Context) (string, error) {
	views, err := b.svc.ListOffers(ctx, storage.OfferFilter{
		Statuses: []domain.OfferStatus{domain.StatusActive, domain.StatusMaxed},
	})
	if err != nil {
		return "", err
	}
	if len(views) == 0 {
		return "📭 No open offers", nil
	}

	lines := []string{"💳 *Open offers*"}
	for _, v := range views {
		lines = append(lines, formatOffer(v))
	}
	return strings.Join(lines, "\n\n"), nil
}

func formatOffer(v service.OfferView) string {
	head := fmt.Sprintf("`%s` *%s* (%s)", shortID(v.ID), esc(v.Merchant), esc(v.CardName))
	var progress string
	if v.Type == domain.RewardThreshold {
		progress = fmt.Sprintf("spend $%.2f of $%.2f for $%.2f", v.TotalSpendTracked, v.SpendThreshold, v.RewardAmount)
	} else {
		progress = fmt.Sprintf("%.4g%% back, earned $%.2f of $%.2f", v.Rate*100, v.Stats.Earned, v.CashbackCap)
	}
	tail := fmt.Sprintf("expires %s", v.ExpireDay)
	if v.Status == domain.StatusMaxed {
		tail += " - maxed"
	} else if v.Stats.RemainSpendToCap > 0 {
		tail += fmt.Sprintf(", $%.2f to go", v.Stats.RemainSpendToCap)
	}
	return head + "\n" + progress + "\n" + tail
}

func (b *Bot) spend(ctx context.Context, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "❌ Use: /spend <id> <amount> [note]", nil
	}
	o, err := b.resolve(ctx, fields[0])
	if err != nil {
		return "", err
	}
	amount, err := parseAmount(fields[1])
	if err != nil {
		return "❌ " + esc(err.Error()), nil
	}

	_, updated, err := b.svc.LogSpend(ctx, o.ID, service.SpendInput{
		Amount: amount,
		Note:   strings.Join(fields[2:], " "),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Logged $%.2f on *%s*\nTotal $%.2f, earned $%.2f (%s)",
		amount, esc(updated.Merchant), updated.TotalSpendTracked, updated.CashbackEarned, updated.Status), nil
}

func (b *Bot) archive(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "❌ Use: /archive <id>", nil
	}
	o, err := b.resolve(ctx, args)
	if err != nil {
		return "", err
	}
	if err := b.svc.ArchiveOffer(ctx, o.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Archived *%s*", esc(o.Merchant)), nil
}

func (b *Bot) delete(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "❌ Use: /delete <id>", nil
	}
	o, err := b.resolve(ctx, args)
	if err != nil {
		return "", err
	}
	if err := b.svc.DeleteOfferPermanently(ctx, o.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Deleted *%s*", esc(o.Merchant)), nil
}

func (b *Bot) stats(ctx context.Context) (string, error) {
	sum, err := b.svc.Stats(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📊 *Lifetime cashback* $%.2f\nPending on open offers $%.2f\nActive %d, maxed %d, expired %d, archived %d",
		sum.LifetimeCashbackEarned, sum.PendingCashback,
		sum.Offers[domain.StatusActive], sum.Offers[domain.StatusMaxed],
		sum.Offers[domain.StatusExpired], sum.Offers[domain.StatusArchived]), nil
}

func (b *Bot) cards(ctx context.Context) (string, error) {
	cards, err := b.svc.ListCards(ctx)
	if err != nil {
		return "", err
	}
	if len(cards) == 0 {
		return "📭 No cards yet", nil
	}
	lines := []string{"💳 *Cards*"}
	for _, c := range cards {
		lines = append(lines, fmt.Sprintf("- %s (%s)", esc(c.Name), c.Issuer))
	}
	return strings.Join(lines, "\n"), nil
}

// resolve finds the single offer whose id starts with prefix.
func (b *Bot) resolve(ctx context.Context, prefix string) (service.OfferView, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	views, err := b.svc.ListOffers(ctx, storage.OfferFilter{})
	if err != nil {
		return service.OfferView{}, err
	}
	var found []service.OfferView
	for _, v := range views {
		if strings.HasPrefix(v.ID, prefix) {
			found = append(found, v)
		}
	}
	switch len(found) {
	case 0:
		return service.OfferView{}, service.ErrOfferNotFound
	case 1:
		return found[0], nil
	default:
		return service.OfferView{}, fmt.Errorf("%w: id prefix %q matches %d offers", service.ErrValidation, prefix, len(found))
	}
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimPrefix(strings.ReplaceAll(s, ",", "."), "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// fixEncoding repairs text that arrived as windows-1251 instead of UTF-8.
func fixEncoding(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	fixed, err := charmap.Windows1251.NewDecoder().String(s)
	if err == nil && utf8.ValidString(fixed) {
		return fixed
	}
	return strings.ToValidUTF8(s, "")
}
