package core

import (
	"context"
	"time"

	"github.com/example/reminderd/internal/models"
)

// ReminderStore is the persistence surface the core and the scheduler write
// through. The pgx repositories satisfy it; tests use an in-memory fake.
type ReminderStore interface {
	Create(ctx context.Context, r *models.Reminder) error
	GetByID(ctx context.Context, id int64) (*models.Reminder, error)
	GetForUser(ctx context.Context, id, userID int64) (*models.Reminder, error)
	Update(ctx context.Context, r *models.Reminder) error
	ListByUser(ctx context.Context, userID int64, opts models.ListOptions) ([]*models.Reminder, error)

	// DueForFire selects fire-tick candidates: not deleted, due, and either
	// pending or a recurring reminder stuck in sent past its next slot.
	DueForFire(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	// MissedPending selects pending reminders whose due time has passed.
	MissedPending(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	// StuckSent selects recurring sent reminders whose next slot has passed.
	StuckSent(ctx context.Context, now time.Time) ([]*models.Reminder, error)
}

type ExecutionStore interface {
	Create(ctx context.Context, e *models.Execution) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Execution, error)
	GetByPublicID(ctx context.Context, publicID string) (*models.Execution, error)
	// ConfirmAllForReminder marks every unconfirmed execution of the
	// reminder confirmed at the given time. Idempotent.
	ConfirmAllForReminder(ctx context.Context, reminderID int64, at time.Time) error
	// EscalationCandidates returns reminders with unconfirmed executions
	// whose most recent sent_at is at or before cutoff, excluding paused,
	// resolved and deleted reminders.
	EscalationCandidates(ctx context.Context, cutoff time.Time) ([]*models.EscalationCandidate, error)
	// UnconfirmedReminders returns every reminder with any unconfirmed
	// execution, with the same status exclusions.
	UnconfirmedReminders(ctx context.Context) ([]*models.EscalationCandidate, error)
}
