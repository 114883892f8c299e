package core

import (
	"context"
	"fmt"
	"time"

	"github.com/example/reminderd/internal/models"
)

// Service exposes the reminder operations invoked by the web and bot layers.
// The scheduler and the confirmation resolver are the only writers of
// status/next_execution; collaborators go through these methods and never
// touch the store directly.
type Service struct {
	reminders  ReminderStore
	executions ExecutionStore
	now        func() time.Time
}

func NewService(reminders ReminderStore, executions ExecutionStore) *Service {
	return &Service{
		reminders:  reminders,
		executions: executions,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock. Tests only.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

func validateMessage(message string) (string, error) {
	message = models.SanitizeMessage(message)
	if message == "" {
		return "", invalid("message", "must not be empty")
	}
	if len([]rune(message)) > models.MaxMessageLength {
		return "", invalid("message", fmt.Sprintf("longer than %d characters", models.MaxMessageLength))
	}
	return message, nil
}

// CreateReminder validates and stores a new pending reminder. The recurrence
// argument is the descriptor's JSON form; empty means one-shot.
func (s *Service) CreateReminder(ctx context.Context, userID int64, message string, nextExecution time.Time, recurrence string) (*models.Reminder, error) {
	message, err := validateMessage(message)
	if err != nil {
		return nil, err
	}
	if nextExecution.IsZero() {
		return nil, invalid("next_execution", "must be set")
	}
	rec, err := models.ParseRecurrence(recurrence)
	if err != nil {
		return nil, invalid("recurrence", err.Error())
	}

	r := &models.Reminder{
		UserID:        userID,
		Message:       message,
		NextExecution: nextExecution.UTC(),
		Recurrence:    rec,
		Status:        models.StatusPending,
	}
	if err := s.reminders.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return r, nil
}

// ReminderPatch is a partial update; nil fields are left unchanged. An empty
// Recurrence string clears the descriptor.
type ReminderPatch struct {
	Message       *string
	NextExecution *time.Time
	Recurrence    *string
	Status        *string
}

// UpdateReminder applies a partial update to a reminder owned by userID.
func (s *Service) UpdateReminder(ctx context.Context, id, userID int64, patch ReminderPatch) (*models.Reminder, error) {
	r, err := s.reminders.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if patch.Message != nil {
		message, err := validateMessage(*patch.Message)
		if err != nil {
			return nil, err
		}
		r.Message = message
	}
	if patch.NextExecution != nil {
		if patch.NextExecution.IsZero() {
			return nil, invalid("next_execution", "must be set")
		}
		r.NextExecution = patch.NextExecution.UTC()
	}
	if patch.Recurrence != nil {
		rec, err := models.ParseRecurrence(*patch.Recurrence)
		if err != nil {
			return nil, invalid("recurrence", err.Error())
		}
		r.Recurrence = rec
	}
	if patch.Status != nil {
		status := models.Status(*patch.Status)
		if !models.ValidStatus(status) {
			return nil, invalid("status", fmt.Sprintf("%q is not a valid status", *patch.Status))
		}
		r.Status = status
		if status == models.StatusDeleted {
			now := s.now()
			r.DeletedAt = &now
		} else {
			r.DeletedAt = nil
		}
	}

	if err := s.reminders.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}
	return r, nil
}

// SoftDeleteReminder marks a reminder deleted without removing its rows.
func (s *Service) SoftDeleteReminder(ctx context.Context, id, userID int64) error {
	r, err := s.reminders.GetForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	now := s.now()
	r.Status = models.StatusDeleted
	r.DeletedAt = &now
	if err := s.reminders.Update(ctx, r); err != nil {
		return fmt.Errorf("soft delete reminder: %w", err)
	}
	return nil
}

// ResolveReminder forces a reminder into the terminal resolved state,
// clearing any pending delete mark. Manual override for recurring reminders
// that should stop firing.
func (s *Service) ResolveReminder(ctx context.Context, id, userID int64) error {
	r, err := s.reminders.GetForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	r.Status = models.StatusResolved
	r.DeletedAt = nil
	if err := s.reminders.Update(ctx, r); err != nil {
		return fmt.Errorf("resolve reminder: %w", err)
	}
	return nil
}

// ListReminders is the read-only projection used by the web and bot layers.
func (s *Service) ListReminders(ctx context.Context, userID int64, opts models.ListOptions) ([]*models.Reminder, error) {
	return s.reminders.ListByUser(ctx, userID, opts)
}

// GetExecutionForUser loads an execution after checking that its reminder
// belongs to userID.
func (s *Service) GetExecutionForUser(ctx context.Context, executionID, userID int64) (*models.Execution, error) {
	e, err := s.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	r, err := s.reminders.GetByID(ctx, e.ReminderID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, ErrNotFound
	}
	return e, nil
}
