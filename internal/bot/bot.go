// Package bot runs the Telegram command surface: confirmation buttons and a
// small command set acting on behalf of the admin account. Authorization is
// by chat id against the configured destination list.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/reminderd/internal/ai"
	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/settings"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	core     *core.Service
	resolver *settings.Resolver
	ai       *ai.Client // nil disables free-text parsing
	// Reminders created through the bot belong to this account.
	adminUserID int64
}

func New(token string, coreSvc *core.Service, resolver *settings.Resolver, aiClient *ai.Client, adminUserID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &Bot{
		api:         api,
		core:        coreSvc,
		resolver:    resolver,
		ai:          aiClient,
		adminUserID: adminUserID,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	slog.Info("bot authorized", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}

	if !b.authorized(ctx, update.Message.Chat.ID) {
		b.sendMessage(update.Message.Chat.ID, "⛔ Not authorized.")
		return
	}

	if update.Message.IsCommand() {
		b.handleCommand(ctx, update.Message)
		return
	}
	b.handleFreeText(ctx, update.Message)
}

func (b *Bot) authorized(ctx context.Context, chatID int64) bool {
	chatIDs, err := b.resolver.ChatIDs(ctx)
	if err != nil {
		slog.Error("failed to resolve authorized chats", "error", err)
		return false
	}
	for _, id := range chatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("failed to send bot message", "chat_id", chatID, "error", err)
	}
}
