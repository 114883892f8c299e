package repository

import (
	"context"

	"github.com/example/reminderd/internal/backup"
	"github.com/example/reminderd/internal/database"
)

// Snapshotter implements backup.Source over the live store.
type Snapshotter struct {
	reminders  *ReminderRepository
	executions *ExecutionRepository
	settings   *SettingRepository
}

func NewSnapshotter(db *database.DB) *Snapshotter {
	return &Snapshotter{
		reminders:  NewReminderRepository(db),
		executions: NewExecutionRepository(db),
		settings:   NewSettingRepository(db),
	}
}

func (s *Snapshotter) Snapshot(ctx context.Context) (*backup.Snapshot, error) {
	reminders, err := s.reminders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	executions, err := s.executions.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.All(ctx)
	if err != nil {
		return nil, err
	}
	return &backup.Snapshot{
		Reminders:  reminders,
		Executions: executions,
		Settings:   settings,
	}, nil
}
