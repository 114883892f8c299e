package repository

import (
	"context"

	"github.com/example/reminderd/internal/database"
)

// EventLogRepository records operational events in the database so they are
// visible from the web UI alongside the process logs.
type EventLogRepository struct {
	db *database.DB
}

func NewEventLogRepository(db *database.DB) *EventLogRepository {
	return &EventLogRepository{db: db}
}

func (repo *EventLogRepository) Record(ctx context.Context, level, message string) error {
	_, err := repo.db.Pool.Exec(ctx,
		`INSERT INTO event_log (level, message) VALUES ($1, $2)`, level, message)
	return err
}
