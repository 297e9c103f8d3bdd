package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/seongjae-dev/optionpulse/internal/models"
)

// MessageSender is the single messaging-transport operation the
// broadcaster needs, satisfied by *bot.Bot.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// SubscriberLister is the persistence-layer view of the recipient set.
type SubscriberLister interface {
	ListActiveSubscribers(ctx context.Context) ([]models.Subscriber, error)
}

// Broadcaster fans a rendered signal message out to the admin chat and
// every eligible subscriber. Recipient sends are independent: one
// failure is recorded and never cancels or delays the others.
type Broadcaster struct {
	sender      MessageSender
	subscribers SubscriberLister
	adminChatID int64
	logger      *logrus.Logger
}

func NewBroadcaster(sender MessageSender, subscribers SubscriberLister, adminChatID int64, logger *logrus.Logger) *Broadcaster {
	return &Broadcaster{
		sender:      sender,
		subscribers: subscribers,
		adminChatID: adminChatID,
		logger:      logger,
	}
}

// Broadcast delivers text to the deduplicated recipient set and waits
// for every send to settle. Returns the number of recipients attempted.
func (b *Broadcaster) Broadcast(ctx context.Context, text string) int {
	if b.sender == nil {
		b.logger.Warn("Telegram bot not configured, skipping broadcast")
		return 0
	}

	recipients := b.recipients(ctx)
	if len(recipients) == 0 {
		b.logger.Info("No eligible recipients for broadcast")
		return 0
	}

	var wg sync.WaitGroup
	var failed int64

	for _, chatID := range recipients {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			_, err := b.sender.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      text,
				ParseMode: tgmodels.ParseModeMarkdown,
			})
			if err != nil {
				atomic.AddInt64(&failed, 1)
				b.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to send signal notification")
			}
		}(chatID)
	}
	wg.Wait()

	b.logger.WithFields(logrus.Fields{
		"attempted": len(recipients),
		"failed":    atomic.LoadInt64(&failed),
	}).Info("Signal broadcast settled")

	return len(recipients)
}

// recipients builds the deduplicated chat ID set: the fixed admin chat
// plus every subscriber with messaging linked, notifications enabled
// and an active subscription.
func (b *Broadcaster) recipients(ctx context.Context) []int64 {
	seen := make(map[int64]struct{})
	var out []int64

	add := func(chatID int64) {
		if chatID == 0 {
			return
		}
		if _, ok := seen[chatID]; ok {
			return
		}
		seen[chatID] = struct{}{}
		out = append(out, chatID)
	}

	add(b.adminChatID)

	subs, err := b.subscribers.ListActiveSubscribers(ctx)
	if err != nil {
		b.logger.WithError(err).Error("Failed to list subscribers, broadcasting to admin only")
		return out
	}

	for _, sub := range subs {
		if !sub.HasMessagingLinked() || !sub.NotifyEnabled || !sub.SubscriptionActive {
			continue
		}
		chatID, err := strconv.ParseInt(*sub.TelegramChatID, 10, 64)
		if err != nil {
			b.logger.WithField("subscriber", sub.ID).Warn("Subscriber has an invalid chat ID")
			continue
		}
		add(chatID)
	}

	return out
}

var sideTitle = cases.Title(language.English)

// FormatSignalMessage renders the Telegram Markdown body for one signal.
func FormatSignalMessage(sig *models.Signal) string {
	var b strings.Builder

	b.WriteString("🎯 *Options Signal*\n\n")

	marketState := "closed"
	if sig.MarketOpen {
		marketState = "open"
	}
	fmt.Fprintf(&b, "🕐 %s (market %s)\n", sig.CreatedAt.Format("2006-01-02 15:04"), marketState)
	if sig.Sentiment != "" {
		fmt.Fprintf(&b, "📊 %s\n", sig.Sentiment)
	}
	b.WriteString("\n")

	writeSuggestion(&b, "📈", models.SideCall, sig.CallSuggestion)
	b.WriteString("\n")
	writeSuggestion(&b, "📉", models.SidePut, sig.PutSuggestion)

	if len(sig.SuperCalls) > 0 || len(sig.SuperPuts) > 0 {
		b.WriteString("\n⭐ *High-conviction contracts*\n")
		for _, c := range sig.SuperCalls {
			fmt.Fprintf(&b, "• %s (call): gearing %.1fx, IV %.1f%%\n", c.Symbol, c.Gearing, c.ImpliedVol*100)
		}
		for _, c := range sig.SuperPuts {
			fmt.Fprintf(&b, "• %s (put): gearing %.1fx, IV %.1f%%\n", c.Symbol, c.Gearing, c.ImpliedVol*100)
		}
	}

	b.WriteString("\n⚡ *Trade wisely!* Always manage your risk and position size.")

	return b.String()
}

func writeSuggestion(b *strings.Builder, emoji string, side models.OptionSide, sug models.Suggestion) {
	title := sideTitle.String(string(side))

	if sug.Decision != models.DecisionBuy {
		fmt.Fprintf(b, "%s *%s:* WAIT - %s\n", emoji, title, sug.Reasoning)
		return
	}

	fmt.Fprintf(b, "%s *%s: BUY %s*\n", emoji, title, sug.Symbol)
	if !sug.EntryPrice.IsZero() {
		fmt.Fprintf(b, "💰 Entry: %s\n", sug.EntryPrice.StringFixed(2))
	}
	fmt.Fprintf(b, "💬 %s\n", sug.Reasoning)
	for _, field := range sug.Display {
		fmt.Fprintf(b, "• %s: %s\n", field.Label, field.Value)
	}
}
