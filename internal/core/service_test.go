package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/core/coretest"
	"github.com/example/reminderd/internal/models"
)

func newService(t *testing.T) (*core.Service, *coretest.MemStore) {
	t.Helper()
	store := coretest.NewMemStore()
	return core.NewService(store.ReminderStore(), store.ExecutionStore()), store
}

func ptr[T any](v T) *T { return &v }

func TestCreateReminder(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	r, err := svc.CreateReminder(ctx, 1, "  water the plants  ", due, `{"type":"daily","interval":1}`)
	if err != nil {
		t.Fatal(err)
	}
	if r.ID == 0 {
		t.Error("expected assigned id")
	}
	if r.Message != "water the plants" {
		t.Errorf("message not trimmed: %q", r.Message)
	}
	if r.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", r.Status)
	}
	if !r.IsRecurring() || r.Recurrence.Type != models.Daily {
		t.Errorf("recurrence not stored: %+v", r.Recurrence)
	}
}

func TestCreateReminderValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if _, err := svc.CreateReminder(ctx, 1, "   ", due, ""); !core.IsValidation(err) {
		t.Errorf("empty message: got %v, want validation error", err)
	}
	long := strings.Repeat("x", models.MaxMessageLength+1)
	if _, err := svc.CreateReminder(ctx, 1, long, due, ""); !core.IsValidation(err) {
		t.Errorf("long message: got %v, want validation error", err)
	}
	if _, err := svc.CreateReminder(ctx, 1, "ok", time.Time{}, ""); !core.IsValidation(err) {
		t.Errorf("zero due time: got %v, want validation error", err)
	}
	if _, err := svc.CreateReminder(ctx, 1, "ok", due, `{"type":"bogus"}`); !core.IsValidation(err) {
		t.Errorf("bad recurrence: got %v, want validation error", err)
	}
}

func TestUpdateReminderPatch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	r, err := svc.CreateReminder(ctx, 1, "original", due, `{"type":"daily","interval":1}`)
	if err != nil {
		t.Fatal(err)
	}

	// Clearing recurrence with an empty descriptor turns it into a one-shot.
	updated, err := svc.UpdateReminder(ctx, r.ID, 1, core.ReminderPatch{
		Message:    ptr("changed"),
		Recurrence: ptr(""),
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Message != "changed" {
		t.Errorf("message = %q", updated.Message)
	}
	if updated.IsRecurring() {
		t.Error("recurrence should be cleared")
	}
	if !updated.NextExecution.Equal(due) {
		t.Errorf("untouched field changed: %v", updated.NextExecution)
	}
}

func TestUpdateReminderStatusDeleted(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	r, err := svc.CreateReminder(ctx, 1, "x", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "")
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateReminder(ctx, r.ID, 1, core.ReminderPatch{Status: ptr("deleted")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.StatusDeleted || updated.DeletedAt == nil {
		t.Fatalf("deleted status must set deleted_at: %+v", updated)
	}

	// Moving out of deleted clears the mark again.
	updated, err = svc.UpdateReminder(ctx, r.ID, 1, core.ReminderPatch{Status: ptr("pending")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.DeletedAt != nil {
		t.Fatal("deleted_at must be cleared on undelete")
	}

	if _, err := svc.UpdateReminder(ctx, r.ID, 1, core.ReminderPatch{Status: ptr("archived")}); !core.IsValidation(err) {
		t.Errorf("invalid status: got %v, want validation error", err)
	}
}

func TestUpdateReminderOwnership(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	r, err := svc.CreateReminder(ctx, 1, "mine", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateReminder(ctx, r.ID, 2, core.ReminderPatch{Message: ptr("stolen")}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("other user's update: got %v, want ErrNotFound", err)
	}
}

func TestSoftDeleteAndResolve(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	r, err := svc.CreateReminder(ctx, 1, "x", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.SoftDeleteReminder(ctx, r.ID, 1); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusDeleted || got.DeletedAt == nil {
		t.Fatalf("after soft delete: %+v", got)
	}

	// Resolve is the terminal override; it clears the delete mark.
	if err := svc.ResolveReminder(ctx, r.ID, 1); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusResolved || got.DeletedAt != nil {
		t.Fatalf("after resolve: %+v", got)
	}
}

func TestListRemindersSorting(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	late, _ := svc.CreateReminder(ctx, 1, "late", base.Add(2*time.Hour), "")
	early, _ := svc.CreateReminder(ctx, 1, "early", base, "")
	deleted, _ := svc.CreateReminder(ctx, 1, "gone", base.Add(time.Hour), "")
	if err := svc.SoftDeleteReminder(ctx, deleted.ID, 1); err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListReminders(ctx, 1, models.ListOptions{Sort: "date"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("deleted reminders must be hidden, got %d entries", len(list))
	}
	if list[0].ID != early.ID || list[1].ID != late.ID {
		t.Errorf("date sort order wrong: %d, %d", list[0].ID, list[1].ID)
	}

	list, err = svc.ListReminders(ctx, 1, models.ListOptions{IncludeDeleted: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("include_deleted: got %d entries", len(list))
	}
	// Default sort ranks deleted last.
	if list[2].ID != deleted.ID {
		t.Errorf("deleted should sort last, got %d", list[2].ID)
	}
}

func TestGetExecutionForUser(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	r, err := svc.CreateReminder(ctx, 1, "x", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "")
	if err != nil {
		t.Fatal(err)
	}
	exec := &models.Execution{ReminderID: r.ID, SentAt: time.Now().UTC()}
	if err := store.CreateExecution(ctx, exec); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetExecutionForUser(ctx, exec.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetExecutionForUser(ctx, exec.ID, 2); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("other user's execution: got %v, want ErrNotFound", err)
	}
}
