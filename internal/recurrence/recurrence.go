// Package recurrence computes the next due time for a reminder's
// recurrence descriptor.
//
// Minute and hour recurrences drift forward from the reference time (the
// moment the reminder actually fired), so a delayed send does not pile up
// occurrences. Calendar-unit recurrences advance from the originally
// scheduled timestamp instead, preserving the time of day.
package recurrence

import (
	"time"

	"github.com/example/reminderd/internal/models"
)

// Next returns the occurrence that follows r.NextExecution, relative to ref
// for minute/hour types. It returns nil when the reminder has no recurrence
// descriptor. The result is not guaranteed to be in the future; callers that
// need a future slot must use NextAfter.
func Next(r *models.Reminder, ref time.Time) *time.Time {
	rec := r.Recurrence
	if rec == nil || rec.Interval < 1 {
		return nil
	}

	var next time.Time
	switch rec.Type {
	case models.Minutely:
		next = ref.Add(time.Duration(rec.Interval) * time.Minute)
	case models.Hourly:
		next = ref.Add(time.Duration(rec.Interval) * time.Hour)
	case models.Daily:
		next = r.NextExecution.AddDate(0, 0, rec.Interval)
	case models.Weekly:
		next = r.NextExecution.AddDate(0, 0, 7*rec.Interval)
	case models.Monthly:
		next = r.NextExecution.AddDate(0, rec.Interval, 0)
	case models.Yearly:
		next = r.NextExecution.AddDate(rec.Interval, 0, 0)
	default:
		return nil
	}
	next = next.UTC()
	return &next
}

// NextAfter repeatedly advances r.NextExecution until the computed occurrence
// is strictly after ref, skipping any number of missed occurrences. It
// mutates r.NextExecution only for the skipped steps; the returned value is
// the first future slot, or nil when the reminder does not recur.
func NextAfter(r *models.Reminder, ref time.Time) *time.Time {
	next := Next(r, ref)
	for next != nil && !next.After(ref) {
		r.NextExecution = *next
		next = Next(r, ref)
	}
	return next
}
