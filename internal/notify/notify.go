// Package notify publishes a run's detected events to subscribed Telegram
// chats. The client is send-only: the job is short-lived and never polls.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/awatari/storewatch/internal/models"
	"github.com/awatari/storewatch/internal/repository"
	"gopkg.in/telebot.v4"
)

// maxDigestItems bounds how many events one announcement message lists.
const maxDigestItems = 10

// Notifier sends run digests to every subscribed chat.
type Notifier struct {
	log  *slog.Logger
	api  API
	subs repository.SubscriberRegistry
}

// NewNotifier creates a Telegram notifier from a bot token.
func NewNotifier(log *slog.Logger, token string, subs repository.SubscriberRegistry) (*Notifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token, Offline: false})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	return &Notifier{log: log, api: bot, subs: subs}, nil
}

// NewNotifierWithAPI wires a notifier over an existing API client; used by
// tests.
func NewNotifierWithAPI(log *slog.Logger, api API, subs repository.SubscriberRegistry) *Notifier {
	return &Notifier{log: log, api: api, subs: subs}
}

// EnsureSubscriptions registers the statically configured chats as
// announcement targets, so a fresh deployment needs no separate enrollment
// step. Registration is idempotent; per-chat failures are logged and
// skipped.
func (n *Notifier) EnsureSubscriptions(ctx context.Context, chats []int64) {
	const opn = "notify.EnsureSubscriptions"

	for _, chatID := range chats {
		if err := n.subs.SubscribeChat(ctx, chatID); err != nil {
			n.log.WarnContext(ctx, "Failed to enroll chat", "op", opn, "chat_id", chatID, "err", err)
		}
	}
}

// AnnounceRun sends one digest message of the run's emitted events to every
// subscribed chat. Per-chat send failures are logged and skipped; one dead
// chat must not block the rest.
func (n *Notifier) AnnounceRun(ctx context.Context, emitted []models.Event) error {
	const opn = "notify.AnnounceRun"

	if len(emitted) == 0 {
		return nil
	}

	chats, err := n.subs.GetSubscribedChats(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to load subscribers: %w", opn, err)
	}
	if len(chats) == 0 {
		return nil
	}

	text := digest(emitted)

	for _, chatID := range chats {
		if _, err = n.api.Send(telebot.ChatID(chatID), text, telebot.NoPreview); err != nil {
			n.log.WarnContext(ctx, "Failed to notify chat", "op", opn, "chat_id", chatID, "err", err)
		}
	}

	return nil
}

// digest renders the announcement text, at most maxDigestItems lines plus
// an overflow note.
func digest(emitted []models.Event) string {
	var sb strings.Builder
	sb.WriteString("Store scan results:\n")

	shown := emitted
	if len(shown) > maxDigestItems {
		shown = shown[:maxDigestItems]
	}

	for _, ev := range shown {
		switch ev.Kind {
		case models.EventNew:
			fmt.Fprintf(&sb, "NEW %s\n%s\n", ev.Title, ev.Link)
		case models.EventChanged:
			fmt.Fprintf(&sb, "UPD %s (%s)\n%s\n", ev.Title, ev.Summary, ev.Link)
		}
	}

	if extra := len(emitted) - len(shown); extra > 0 {
		fmt.Fprintf(&sb, "...and %d more", extra)
	}

	return sb.String()
}
