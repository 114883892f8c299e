package scheduler_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/reminderd/internal/models"
)

func TestRecoverMissedPending(t *testing.T) {
	// Daily reminder scheduled three days ago while the process was down:
	// one annotated delivery, then rescheduled to the next future slot.
	s, store, sender := newScheduler(t)
	ctx := context.Background()
	scheduled := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := scheduled.AddDate(0, 0, 3).Add(time.Hour)
	s.SetNow(fixedNow(now))

	r := addReminder(t, store, &models.Reminder{
		Message:       "water the plants",
		NextExecution: scheduled,
		Recurrence:    &models.Recurrence{Type: models.Daily, Interval: 1},
	})

	s.Recover(ctx)

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d deliveries, want exactly one despite three missed days", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "MISSED") || !strings.Contains(msgs[0].Text, "73h ago") {
		t.Errorf("missed annotation wrong: %q", msgs[0].Text)
	}

	got, _ := store.GetByID(ctx, r.ID)
	if got.Status != models.StatusSent {
		t.Errorf("status = %s, want sent", got.Status)
	}
	if want := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC); !got.NextExecution.Equal(want) {
		t.Errorf("next_execution = %v, want %v", got.NextExecution, want)
	}
}

func TestRecoverMissedPendingRecentDelay(t *testing.T) {
	s, store, sender := newScheduler(t)
	ctx := context.Background()
	scheduled := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.SetNow(fixedNow(scheduled.Add(45 * time.Minute)))

	addReminder(t, store, &models.Reminder{Message: "call back", NextExecution: scheduled})
	s.Recover(ctx)

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "45 min ago") {
		t.Errorf("short delays are shown in minutes: %q", msgs[0].Text)
	}
}

func TestRecoverMissedDeliveryFailureLeavesPending(t *testing.T) {
	s, store, sender := newScheduler(t)
	ctx := context.Background()
	scheduled := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.SetNow(fixedNow(scheduled.Add(time.Hour)))
	sender.setFail(true)

	r := addReminder(t, store, &models.Reminder{Message: "call back", NextExecution: scheduled})
	s.Recover(ctx)

	got, _ := store.GetByID(ctx, r.ID)
	if got.Status != models.StatusPending {
		t.Errorf("status = %s, want pending for the fire tick to retry", got.Status)
	}
	if execs := store.ExecutionsFor(r.ID); len(execs) != 0 {
		t.Fatalf("failed recovery delivery must not leave executions, got %d", len(execs))
	}
}

func TestRecoverStuckSent(t *testing.T) {
	// Recurring reminder fired before the crash and never confirmed; its
	// next slot also passed. Recovery rolls it forward without redelivering.
	s, store, sender := newScheduler(t)
	ctx := context.Background()
	firedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := firedAt.AddDate(0, 0, 2).Add(time.Hour)
	s.SetNow(fixedNow(now))

	r := addReminder(t, store, &models.Reminder{
		Message:       "stand up",
		NextExecution: firedAt.AddDate(0, 0, 1),
		Recurrence:    &models.Recurrence{Type: models.Daily, Interval: 1},
		Status:        models.StatusSent,
		LastSentAt:    &firedAt,
	})
	if err := store.CreateExecution(ctx, &models.Execution{ReminderID: r.ID, SentAt: firedAt}); err != nil {
		t.Fatal(err)
	}

	s.Recover(ctx)

	if len(sender.messages()) != 0 {
		t.Fatalf("stuck-sent pass must not redeliver, got %d messages", len(sender.messages()))
	}
	got, _ := store.GetByID(ctx, r.ID)
	if got.Status != models.StatusPending || got.LastSentAt != nil {
		t.Errorf("after roll forward: %+v", got)
	}
	if !got.NextExecution.After(now) {
		t.Errorf("next_execution = %v, must be in the future", got.NextExecution)
	}
	// The old execution is untouched; the startup resend handles nagging.
	execs := store.ExecutionsFor(r.ID)
	if len(execs) != 1 || execs[0].Confirmed {
		t.Fatalf("old execution must stay unconfirmed: %+v", execs)
	}
}

func TestResendOnStartup(t *testing.T) {
	s, store, sender := newScheduler(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetNow(fixedNow(now))

	r := addReminder(t, store, &models.Reminder{
		Message:       "take medication",
		NextExecution: now.Add(-30 * time.Minute),
		Status:        models.StatusSent,
	})
	// Fired only minutes before the crash; the startup resend ignores the
	// hourly cutoff on purpose.
	if err := store.CreateExecution(ctx, &models.Execution{ReminderID: r.ID, SentAt: now.Add(-5 * time.Minute)}); err != nil {
		t.Fatal(err)
	}

	s.ResendOnStartup(ctx)

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d resends, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "OVERDUE") {
		t.Errorf("resend text %q", msgs[0].Text)
	}
}

func TestMissedOneShotFullLifecycle(t *testing.T) {
	// Missed one-shot: recovery delivers it, then a confirmation resolves it
	// for good.
	s, store, sender := newScheduler(t)
	ctx := context.Background()
	scheduled := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := scheduled.Add(4 * time.Hour)
	s.SetNow(fixedNow(now))

	r := addReminder(t, store, &models.Reminder{Message: "renew passport", NextExecution: scheduled})
	s.Recover(ctx)

	got, _ := store.GetByID(ctx, r.ID)
	if got.Status != models.StatusSent {
		t.Fatalf("status = %s, want sent", got.Status)
	}
	if len(sender.messages()) != 1 {
		t.Fatalf("deliveries = %d", len(sender.messages()))
	}

	execs := store.ExecutionsFor(r.ID)
	if len(execs) != 1 {
		t.Fatalf("executions = %d", len(execs))
	}
	// No further escalation once confirmed.
	if err := store.ConfirmAllForReminder(ctx, r.ID, now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	s.SetNow(fixedNow(now.Add(2 * time.Hour)))
	s.ResendUnconfirmed(ctx)
	if len(sender.messages()) != 1 {
		t.Fatalf("confirmed reminder escalated anyway: %d deliveries", len(sender.messages()))
	}
}
