// Package scheduler drives reminder delivery: a fast fire tick for due
// reminders, a slow escalation tick for unacknowledged ones, a daily backup
// tick, and the startup recovery passes.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/reminderd/internal/backup"
	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/models"
	"github.com/example/reminderd/internal/notify"
	"github.com/example/reminderd/internal/recurrence"
)

const (
	// MinTickInterval bounds database load regardless of configuration.
	MinTickInterval = 10 * time.Second
	// antiDupWindow guards against double fires from tick overlap or
	// clock jitter. Fixed at 60s even if the tick interval is larger, in
	// which case the guard is inert.
	antiDupWindow = 60 * time.Second
	// escalationAge is how long an execution may sit unconfirmed before
	// the escalation tick resends it.
	escalationAge = time.Hour
)

// DestinationSource yields the chat ids to fan out to at send time.
type DestinationSource interface {
	ChatIDs(ctx context.Context) ([]int64, error)
}

// EventRecorder mirrors significant events into the event_log table.
type EventRecorder interface {
	Record(ctx context.Context, level, message string) error
}

type Options struct {
	TickInterval       time.Duration  // floor MinTickInterval
	EscalationInterval time.Duration  // default 1h
	BackupInterval     time.Duration  // default 24h
	Events             EventRecorder  // optional
	Backups            *backup.Runner // optional
}

// Scheduler owns its tick mutexes and lifecycle; there is no package-level
// state. One instance runs per process.
type Scheduler struct {
	reminders    core.ReminderStore
	executions   core.ExecutionStore
	sender       notify.Sender
	destinations DestinationSource
	events       EventRecorder
	backups      *backup.Runner

	tickInterval       time.Duration
	escalationInterval time.Duration
	backupInterval     time.Duration

	fireMu     sync.Mutex
	escalateMu sync.Mutex
	notifyCh   chan struct{}
	now        func() time.Time
}

func New(reminders core.ReminderStore, executions core.ExecutionStore, sender notify.Sender, destinations DestinationSource, opts Options) *Scheduler {
	if opts.TickInterval < MinTickInterval {
		opts.TickInterval = MinTickInterval
	}
	if opts.EscalationInterval <= 0 {
		opts.EscalationInterval = time.Hour
	}
	if opts.BackupInterval <= 0 {
		opts.BackupInterval = 24 * time.Hour
	}
	return &Scheduler{
		reminders:          reminders,
		executions:         executions,
		sender:             sender,
		destinations:       destinations,
		events:             opts.Events,
		backups:            opts.Backups,
		tickInterval:       opts.TickInterval,
		escalationInterval: opts.EscalationInterval,
		backupInterval:     opts.BackupInterval,
		notifyCh:           make(chan struct{}, 1),
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock. Tests only.
func (s *Scheduler) SetNow(now func() time.Time) { s.now = now }

// Notify triggers an immediate fire check. Non-blocking if one is pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs recovery, then ticks until ctx is cancelled. Errors inside a
// tick are logged and never stop the loop.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("scheduler started", "tick_interval", s.tickInterval)

	s.Recover(ctx)
	s.ResendOnStartup(ctx)

	fireTicker := time.NewTicker(s.tickInterval)
	defer fireTicker.Stop()
	escalationTicker := time.NewTicker(s.escalationInterval)
	defer escalationTicker.Stop()
	backupTicker := time.NewTicker(s.backupInterval)
	defer backupTicker.Stop()

	s.CheckAndSend(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-fireTicker.C:
			s.CheckAndSend(ctx)
		case <-s.notifyCh:
			s.CheckAndSend(ctx)
		case <-escalationTicker.C:
			s.ResendUnconfirmed(ctx)
		case <-backupTicker.C:
			s.runBackup(ctx)
		}
	}
}

// CheckAndSend is the main fire tick. A tick that is still running when the
// next is due is skipped, not queued.
func (s *Scheduler) CheckAndSend(ctx context.Context) {
	if !s.fireMu.TryLock() {
		slog.Debug("fire tick already running, skipping")
		return
	}
	defer s.fireMu.Unlock()

	now := s.now()
	due, err := s.reminders.DueForFire(ctx, now)
	if err != nil {
		slog.Error("failed to load due reminders", "error", err)
		return
	}

	for _, r := range due {
		// A sent recurring reminder whose next slot has come due was
		// never acknowledged: the old occurrence is superseded. Stop
		// its nagging and fire the new one.
		if r.Status == models.StatusSent {
			if err := s.executions.ConfirmAllForReminder(ctx, r.ID, now); err != nil {
				slog.Error("failed to supersede executions", "reminder_id", r.ID, "error", err)
				continue
			}
			s.record(ctx, "INFO", fmt.Sprintf("reminder %d: previous occurrence superseded", r.ID))
		}

		if r.LastSentAt != nil && now.Sub(*r.LastSentAt) < antiDupWindow {
			continue
		}

		if !s.fireExecution(ctx, r.ID, r.Message) {
			continue
		}

		if next := recurrence.NextAfter(r, now); next != nil {
			r.NextExecution = *next
		}
		r.Status = models.StatusSent
		sentAt := now
		r.LastSentAt = &sentAt
		if err := s.reminders.Update(ctx, r); err != nil {
			slog.Error("failed to update fired reminder", "reminder_id", r.ID, "error", err)
			continue
		}
		slog.Info("reminder fired", "reminder_id", r.ID, "next_execution", r.NextExecution)
		s.record(ctx, "INFO", fmt.Sprintf("reminder %d fired", r.ID))
	}
}

// ResendUnconfirmed is the escalation tick: any reminder whose newest
// unconfirmed execution is older than an hour gets a fresh resend,
// recurring or not, until the user confirms.
func (s *Scheduler) ResendUnconfirmed(ctx context.Context) {
	if !s.escalateMu.TryLock() {
		slog.Debug("escalation tick already running, skipping")
		return
	}
	defer s.escalateMu.Unlock()

	cutoff := s.now().Add(-escalationAge)
	candidates, err := s.executions.EscalationCandidates(ctx, cutoff)
	if err != nil {
		slog.Error("failed to load escalation candidates", "error", err)
		return
	}

	for _, c := range candidates {
		if !s.fireExecution(ctx, c.ReminderID, escalationText(c.Message)) {
			continue
		}
		slog.Info("escalation sent", "reminder_id", c.ReminderID)
		s.record(ctx, "INFO", fmt.Sprintf("escalation sent for reminder %d", c.ReminderID))
	}
}

func escalationText(message string) string {
	return "⚠️ OVERDUE: " + message
}

// fireExecution creates an execution row, fans delivery out to every
// destination, and rolls the row back on total failure so the attempt is
// invisible and will be retried.
func (s *Scheduler) fireExecution(ctx context.Context, reminderID int64, text string) bool {
	exec := &models.Execution{ReminderID: reminderID, SentAt: s.now()}
	if err := s.executions.Create(ctx, exec); err != nil {
		slog.Error("failed to create execution", "reminder_id", reminderID, "error", err)
		return false
	}

	if s.deliver(ctx, text, exec.PublicID) {
		return true
	}

	if err := s.executions.Delete(ctx, exec.ID); err != nil {
		slog.Error("failed to roll back execution", "execution_id", exec.ID, "error", err)
	}
	s.record(ctx, "WARN", fmt.Sprintf("delivery failed for reminder %d, will retry", reminderID))
	return false
}

// deliver sends to every configured destination; overall success means at
// least one accepted.
func (s *Scheduler) deliver(ctx context.Context, text, confirmToken string) bool {
	chatIDs, err := s.destinations.ChatIDs(ctx)
	if err != nil {
		slog.Error("failed to resolve destinations", "error", err)
		return false
	}
	if len(chatIDs) == 0 {
		slog.Warn("no destinations configured, delivery skipped")
		return false
	}

	success := false
	for _, chatID := range chatIDs {
		if err := s.sender.Send(ctx, chatID, text, confirmToken); err != nil {
			slog.Warn("delivery failed", "chat_id", chatID, "error", err)
			continue
		}
		success = true
	}
	return success
}

func (s *Scheduler) runBackup(ctx context.Context) {
	if s.backups == nil {
		return
	}
	if err := s.backups.Run(ctx); err != nil {
		slog.Error("backup failed", "error", err)
		s.record(ctx, "ERROR", fmt.Sprintf("backup failed: %v", err))
		return
	}
	slog.Info("backup completed")
	s.record(ctx, "INFO", "backup completed")
}

func (s *Scheduler) record(ctx context.Context, level, message string) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, level, message); err != nil {
		slog.Debug("failed to record event", "error", err)
	}
}
