package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reminderd/internal/models"
	"github.com/example/reminderd/internal/recurrence"
)

// Recover repairs reminders left inconsistent by an unclean shutdown. It
// must run before the first tick. Two passes:
//
//  1. pending reminders whose due time passed while the process was down
//     are fired immediately with a "missed" annotation, then rescheduled;
//  2. recurring reminders stuck in sent whose next slot is also overdue are
//     rolled forward to the next future occurrence and set back to pending,
//     without redelivery; their old unconfirmed execution still exists and
//     feeds the escalation path.
func (s *Scheduler) Recover(ctx context.Context) {
	now := s.now()

	missed, err := s.reminders.MissedPending(ctx, now)
	if err != nil {
		slog.Error("recovery: failed to load missed reminders", "error", err)
	}
	for _, r := range missed {
		delay := formatDelay(now.Sub(r.NextExecution))
		if !s.fireExecution(ctx, r.ID, fmt.Sprintf("⏰ MISSED (%s): %s", delay, r.Message)) {
			// Left pending; the ordinary fire tick retries it.
			continue
		}

		if next := recurrence.NextAfter(r, now); next != nil {
			r.NextExecution = *next
		}
		r.Status = models.StatusSent
		sentAt := now
		r.LastSentAt = &sentAt
		if err := s.reminders.Update(ctx, r); err != nil {
			slog.Error("recovery: failed to update missed reminder", "reminder_id", r.ID, "error", err)
			continue
		}
		slog.Info("recovery: missed reminder delivered", "reminder_id", r.ID, "delay", delay)
		s.record(ctx, "INFO", fmt.Sprintf("reminder %d delivered in recovery (%s late)", r.ID, delay))
	}

	stuck, err := s.reminders.StuckSent(ctx, now)
	if err != nil {
		slog.Error("recovery: failed to load stuck reminders", "error", err)
	}
	for _, r := range stuck {
		if next := recurrence.NextAfter(r, now); next != nil {
			r.NextExecution = *next
		}
		r.Status = models.StatusPending
		r.LastSentAt = nil
		if err := s.reminders.Update(ctx, r); err != nil {
			slog.Error("recovery: failed to roll forward stuck reminder", "reminder_id", r.ID, "error", err)
			continue
		}
		slog.Info("recovery: stuck reminder rolled forward", "reminder_id", r.ID, "next_execution", r.NextExecution)
	}
}

// ResendOnStartup sends one immediate escalation-style resend for every
// reminder with outstanding unconfirmed executions, regardless of how
// recently it fired. This covers escalation ticks missed entirely while the
// process was down.
func (s *Scheduler) ResendOnStartup(ctx context.Context) {
	candidates, err := s.executions.UnconfirmedReminders(ctx)
	if err != nil {
		slog.Error("startup resend: failed to load unconfirmed reminders", "error", err)
		return
	}

	for _, c := range candidates {
		if !s.fireExecution(ctx, c.ReminderID, escalationText(c.Message)) {
			continue
		}
		slog.Info("startup resend sent", "reminder_id", c.ReminderID)
		s.record(ctx, "INFO", fmt.Sprintf("startup resend for reminder %d", c.ReminderID))
	}
}

func formatDelay(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 120 {
		return fmt.Sprintf("%d min ago", minutes)
	}
	return fmt.Sprintf("%dh ago", minutes/60)
}
