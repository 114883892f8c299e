package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/reminderd/internal/models"
)

// ApplyConfirmation is the single state-transition routine behind every
// acknowledgment source (web endpoint, bot callback). It confirms ALL
// outstanding unconfirmed executions of the reminder, not just the one the
// user tapped, so stale rows cannot trigger phantom escalations.
//
// A recurring reminder that is still sent rolls back to pending; its
// next_execution was already advanced when it fired, so it is left alone.
// If it is already pending the firing path rolled it over first and this is
// a no-op. A one-shot reminder becomes resolved and never fires again.
func (s *Service) ApplyConfirmation(ctx context.Context, reminderID, executionID int64) error {
	if err := s.executions.ConfirmAllForReminder(ctx, reminderID, s.now()); err != nil {
		return fmt.Errorf("confirm executions: %w", err)
	}

	r, err := s.reminders.GetByID(ctx, reminderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	if r.IsRecurring() {
		if r.Status == models.StatusPending {
			return nil
		}
		r.Status = models.StatusPending
		r.LastSentAt = nil
	} else {
		r.Status = models.StatusResolved
	}

	if err := s.reminders.Update(ctx, r); err != nil {
		return fmt.Errorf("apply confirmation: %w", err)
	}
	return nil
}

// ConfirmByToken resolves the opaque execution token carried by the
// notification's confirm button and applies the confirmation. The returned
// bool reports whether the execution had already been confirmed, so callers
// can answer a stale button tap differently.
func (s *Service) ConfirmByToken(ctx context.Context, publicID string) (alreadyConfirmed bool, err error) {
	e, err := s.executions.GetByPublicID(ctx, publicID)
	if err != nil {
		return false, err
	}
	if e.Confirmed {
		return true, nil
	}
	return false, s.ApplyConfirmation(ctx, e.ReminderID, e.ID)
}
