package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/reminderd/internal/core/coretest"
	"github.com/example/reminderd/internal/models"
)

func sentReminder(t *testing.T, store *coretest.MemStore, recurrence *models.Recurrence) *models.Reminder {
	t.Helper()
	sentAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := &models.Reminder{
		UserID:        1,
		Message:       "take medication",
		NextExecution: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Recurrence:    recurrence,
		Status:        models.StatusSent,
		LastSentAt:    &sentAt,
	}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	return r
}

func addExecution(t *testing.T, store *coretest.MemStore, reminderID int64, sentAt time.Time) *models.Execution {
	t.Helper()
	e := &models.Execution{ReminderID: reminderID, SentAt: sentAt}
	if err := store.CreateExecution(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestApplyConfirmationOneShot(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	r := sentReminder(t, store, nil)
	e := addExecution(t, store, r.ID, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	if err := svc.ApplyConfirmation(ctx, r.ID, e.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetByID(ctx, r.ID)
	if got.Status != models.StatusResolved {
		t.Errorf("one-shot must resolve, got %s", got.Status)
	}
	for _, ex := range store.ExecutionsFor(r.ID) {
		if !ex.Confirmed || ex.ConfirmedAt == nil {
			t.Errorf("execution %d not confirmed", ex.ID)
		}
	}
}

func TestApplyConfirmationConfirmsAllExecutions(t *testing.T) {
	// Escalation resends pile up execution rows; one acknowledgment settles
	// every outstanding row so none of them feeds another escalation.
	svc, store := newService(t)
	ctx := context.Background()

	r := sentReminder(t, store, nil)
	first := addExecution(t, store, r.ID, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	addExecution(t, store, r.ID, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	if err := svc.ApplyConfirmation(ctx, r.ID, first.ID); err != nil {
		t.Fatal(err)
	}
	for _, ex := range store.ExecutionsFor(r.ID) {
		if !ex.Confirmed {
			t.Errorf("execution %d left unconfirmed", ex.ID)
		}
	}
	candidates, err := store.UnconfirmedReminders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 0 {
		t.Fatalf("no escalation candidates expected, got %d", len(candidates))
	}
}

func TestApplyConfirmationRecurring(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	r := sentReminder(t, store, &models.Recurrence{Type: models.Daily, Interval: 1})
	e := addExecution(t, store, r.ID, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	next := r.NextExecution

	if err := svc.ApplyConfirmation(ctx, r.ID, e.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetByID(ctx, r.ID)
	if got.Status != models.StatusPending {
		t.Errorf("recurring must roll back to pending, got %s", got.Status)
	}
	if got.LastSentAt != nil {
		t.Error("last_sent_at must be cleared")
	}
	// next_execution was advanced at fire time and is left alone here.
	if !got.NextExecution.Equal(next) {
		t.Errorf("next_execution changed: %v, want %v", got.NextExecution, next)
	}
}

func TestApplyConfirmationAlreadyPending(t *testing.T) {
	// The fire tick can supersede a sent occurrence and roll the reminder
	// over before the user taps confirm; the late tap is then a no-op.
	svc, store := newService(t)
	ctx := context.Background()

	r := sentReminder(t, store, &models.Recurrence{Type: models.Daily, Interval: 1})
	r.Status = models.StatusPending
	r.LastSentAt = nil
	if err := store.Update(ctx, r); err != nil {
		t.Fatal(err)
	}
	e := addExecution(t, store, r.ID, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	if err := svc.ApplyConfirmation(ctx, r.ID, e.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByID(ctx, r.ID)
	if got.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestApplyConfirmationMissingReminder(t *testing.T) {
	// The reminder may have been hard-removed; confirming its stray
	// executions still succeeds.
	svc, store := newService(t)
	ctx := context.Background()

	e := addExecution(t, store, 42, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	if err := svc.ApplyConfirmation(ctx, 42, e.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetExecution(ctx, e.ID)
	if !got.Confirmed {
		t.Error("execution should be confirmed")
	}
}

func TestConfirmByToken(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	r := sentReminder(t, store, nil)
	e := addExecution(t, store, r.ID, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	already, err := svc.ConfirmByToken(ctx, e.PublicID)
	if err != nil {
		t.Fatal(err)
	}
	if already {
		t.Error("first confirmation reported as duplicate")
	}

	already, err = svc.ConfirmByToken(ctx, e.PublicID)
	if err != nil {
		t.Fatal(err)
	}
	if !already {
		t.Error("second confirmation should report already confirmed")
	}

	if _, err := svc.ConfirmByToken(ctx, "no-such-token"); err == nil {
		t.Error("unknown token should fail")
	}
}
