// Package notify delivers reminder notifications to Telegram chats.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers one message to one destination. The confirm token is the
// execution's opaque public id; it rides in the inline button's callback
// data so any channel can acknowledge the firing.
type Sender interface {
	Send(ctx context.Context, chatID int64, text, confirmToken string) error
}

// TokenSource yields the bot token at send time, so a token saved through
// the settings UI takes effect without a restart.
type TokenSource interface {
	TelegramToken(ctx context.Context) (string, error)
}

const sendTimeout = 5 * time.Second

// Telegram sends notifications through the Bot API with a confirm button.
// API clients are rebuilt when the token changes. Safe for concurrent use:
// the scheduler and the web handlers share one instance.
type Telegram struct {
	tokens TokenSource

	mu        sync.Mutex
	lastToken string
	api       *tgbotapi.BotAPI

	newAPI func(token string) (*tgbotapi.BotAPI, error)
}

func NewTelegram(tokens TokenSource) *Telegram {
	return &Telegram{
		tokens: tokens,
		newAPI: func(token string) (*tgbotapi.BotAPI, error) {
			return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: sendTimeout})
		},
	}
}

func (t *Telegram) client(ctx context.Context) (*tgbotapi.BotAPI, error) {
	token, err := t.tokens.TelegramToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve telegram token: %w", err)
	}
	if token == "" {
		return nil, fmt.Errorf("telegram token not configured")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.api != nil && token == t.lastToken {
		return t.api, nil
	}
	api, err := t.newAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}
	t.api = api
	t.lastToken = token
	return api, nil
}

func (t *Telegram) Send(ctx context.Context, chatID int64, text, confirmToken string) error {
	api, err := t.client(ctx)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, "🔔 "+text)
	msg.ParseMode = tgbotapi.ModeHTML
	if confirmToken != "" {
		button := tgbotapi.NewInlineKeyboardButtonData("✔ Confirm", "confirm:"+confirmToken)
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(button))
	}

	if _, err := api.Send(msg); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}

// Probe sends a plain test message without a confirm button.
func (t *Telegram) Probe(ctx context.Context, chatID int64, text string) error {
	api, err := t.client(ctx)
	if err != nil {
		return err
	}
	if _, err := api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}

// VerifyToken checks a candidate bot token against the Bot API and returns
// the bot's username. Used before persisting a token from the settings UI.
func VerifyToken(token string) (string, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: sendTimeout})
	if err != nil {
		return "", fmt.Errorf("token rejected by telegram: %w", err)
	}
	return api.Self.UserName, nil
}
