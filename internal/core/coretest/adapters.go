package coretest

import (
	"context"
	"time"

	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/models"
)

// ReminderStore returns the MemStore viewed as a core.ReminderStore.
func (m *MemStore) ReminderStore() core.ReminderStore { return remView{m} }

// ExecutionStore returns the MemStore viewed as a core.ExecutionStore.
func (m *MemStore) ExecutionStore() core.ExecutionStore { return execView{m} }

type remView struct{ m *MemStore }

func (v remView) Create(ctx context.Context, r *models.Reminder) error { return v.m.Create(ctx, r) }
func (v remView) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	return v.m.GetByID(ctx, id)
}
func (v remView) GetForUser(ctx context.Context, id, userID int64) (*models.Reminder, error) {
	return v.m.GetForUser(ctx, id, userID)
}
func (v remView) Update(ctx context.Context, r *models.Reminder) error { return v.m.Update(ctx, r) }
func (v remView) ListByUser(ctx context.Context, userID int64, opts models.ListOptions) ([]*models.Reminder, error) {
	return v.m.ListByUser(ctx, userID, opts)
}
func (v remView) DueForFire(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	return v.m.DueForFire(ctx, now)
}
func (v remView) MissedPending(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	return v.m.MissedPending(ctx, now)
}
func (v remView) StuckSent(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	return v.m.StuckSent(ctx, now)
}

type execView struct{ m *MemStore }

func (v execView) Create(ctx context.Context, e *models.Execution) error {
	return v.m.CreateExecution(ctx, e)
}
func (v execView) Delete(ctx context.Context, id int64) error {
	return v.m.DeleteExecution(ctx, id)
}
func (v execView) GetByID(ctx context.Context, id int64) (*models.Execution, error) {
	return v.m.GetExecution(ctx, id)
}
func (v execView) GetByPublicID(ctx context.Context, publicID string) (*models.Execution, error) {
	return v.m.GetByPublicID(ctx, publicID)
}
func (v execView) ConfirmAllForReminder(ctx context.Context, reminderID int64, at time.Time) error {
	return v.m.ConfirmAllForReminder(ctx, reminderID, at)
}
func (v execView) EscalationCandidates(ctx context.Context, cutoff time.Time) ([]*models.EscalationCandidate, error) {
	return v.m.EscalationCandidates(ctx, cutoff)
}
func (v execView) UnconfirmedReminders(ctx context.Context) ([]*models.EscalationCandidate, error) {
	return v.m.UnconfirmedReminders(ctx)
}
