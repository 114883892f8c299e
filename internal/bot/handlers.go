package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/reminderd/internal/models"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendMessage(msg.Chat.ID,
			"👋 Hi! I am your reminder bot.\n"+
				"You will get notifications with a ✔ button to confirm them.\n"+
				"Use /remind HH:MM text to add one, /reminders to list.")
	case "help":
		b.sendMessage(msg.Chat.ID,
			"/remind HH:MM text - add a reminder for today (or tomorrow if past)\n"+
				"/reminders - list active reminders\n"+
				"Or just describe a reminder in plain words.")
	case "remind":
		b.handleRemind(ctx, msg)
	case "reminders":
		b.handleReminderList(ctx, msg)
	default:
		b.sendMessage(msg.Chat.ID, "Unknown command, use /help.")
	}
}

func (b *Bot) handleRemind(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	parts := strings.SplitN(args, " ", 2)
	if len(parts) < 2 {
		b.sendMessage(msg.Chat.ID, "Usage: /remind HH:MM text\nExample: /remind 15:30 team meeting")
		return
	}

	due, err := parseTimeToday(parts[0])
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Bad time, use HH:MM (e.g. 15:30)")
		return
	}

	reminder, err := b.core.CreateReminder(ctx, b.adminUserID, parts[1], due, "")
	if err != nil {
		slog.Error("failed to create reminder from bot", "error", err)
		b.sendMessage(msg.Chat.ID, "Could not create the reminder, try again later.")
		return
	}

	b.sendMessage(msg.Chat.ID, fmt.Sprintf("⏰ Reminder #%d set for %s UTC:\n%s",
		reminder.ID, reminder.NextExecution.Format("2006-01-02 15:04"), reminder.Message))
}

func (b *Bot) handleReminderList(ctx context.Context, msg *tgbotapi.Message) {
	reminders, err := b.core.ListReminders(ctx, b.adminUserID, models.ListOptions{})
	if err != nil {
		slog.Error("failed to list reminders from bot", "error", err)
		b.sendMessage(msg.Chat.ID, "Could not load reminders, try again later.")
		return
	}
	if len(reminders) == 0 {
		b.sendMessage(msg.Chat.ID, "⏰ No reminders yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("⏰ Reminders\n\n")
	for _, r := range reminders {
		sb.WriteString(fmt.Sprintf("#%d [%s] %s\n   📅 %s UTC", r.ID, r.Status, r.Message,
			r.NextExecution.Format("2006-01-02 15:04")))
		if r.IsRecurring() {
			sb.WriteString(fmt.Sprintf(" 🔄 every %d %s", r.Recurrence.Interval, unitName(r.Recurrence)))
		}
		sb.WriteString("\n\n")
	}
	b.sendMessage(msg.Chat.ID, sb.String())
}

// handleFreeText runs non-command messages through the AI parser when it is
// configured.
func (b *Bot) handleFreeText(ctx context.Context, msg *tgbotapi.Message) {
	if b.ai == nil {
		return
	}

	draft, err := b.ai.ParseReminder(ctx, msg.Text, time.Now().UTC())
	if err != nil {
		slog.Error("failed to parse reminder text", "error", err)
		b.sendMessage(msg.Chat.ID, "Could not understand that, try /remind HH:MM text.")
		return
	}
	if draft == nil {
		b.sendMessage(msg.Chat.ID, "That does not look like a reminder. Use /help.")
		return
	}

	recurrence := ""
	if draft.Recurrence != nil {
		raw, err := json.Marshal(draft.Recurrence)
		if err == nil {
			recurrence = string(raw)
		}
	}

	reminder, err := b.core.CreateReminder(ctx, b.adminUserID, draft.Message, draft.NextExecution, recurrence)
	if err != nil {
		slog.Error("failed to create reminder from free text", "error", err)
		b.sendMessage(msg.Chat.ID, "Could not create the reminder, try again later.")
		return
	}

	text := fmt.Sprintf("⏰ Reminder #%d set for %s UTC:\n%s",
		reminder.ID, reminder.NextExecution.Format("2006-01-02 15:04"), reminder.Message)
	if reminder.IsRecurring() {
		text += fmt.Sprintf("\n🔄 every %d %s", reminder.Recurrence.Interval, unitName(reminder.Recurrence))
	}
	b.sendMessage(msg.Chat.ID, text)
}

// handleCallback confirms an execution from its opaque token in the inline
// button. Stale taps on already confirmed executions get a distinct reply.
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		slog.Debug("failed to answer callback", "error", err)
	}

	if query.Message == nil {
		return
	}
	if !b.authorized(ctx, query.Message.Chat.ID) {
		b.editMessage(query, "⛔ Not authorized.")
		return
	}

	token, ok := strings.CutPrefix(query.Data, "confirm:")
	if !ok {
		return
	}

	already, err := b.core.ConfirmByToken(ctx, token)
	if err != nil {
		slog.Error("failed to confirm execution", "error", err)
		b.editMessage(query, "❌ Reminder not found.")
		return
	}
	if already {
		b.editMessage(query, "✅ Already confirmed.")
		return
	}

	slog.Info("execution confirmed via bot", "token", token)
	b.editMessage(query, "✅ Reminder confirmed, thanks!")
}

func (b *Bot) editMessage(query *tgbotapi.CallbackQuery, text string) {
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		slog.Error("failed to edit message", "error", err)
	}
}

func unitName(rec *models.Recurrence) string {
	switch rec.Type {
	case models.Minutely:
		return "minute(s)"
	case models.Hourly:
		return "hour(s)"
	case models.Daily:
		return "day(s)"
	case models.Weekly:
		return "week(s)"
	case models.Monthly:
		return "month(s)"
	case models.Yearly:
		return "year(s)"
	}
	return string(rec.Type)
}

func parseTimeToday(timeStr string) (time.Time, error) {
	now := time.Now().UTC()
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return time.Time{}, err
	}

	result := time.Date(now.Year(), now.Month(), now.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC)

	// If time already passed today, set for tomorrow
	if result.Before(now) {
		result = result.Add(24 * time.Hour)
	}

	return result, nil
}
