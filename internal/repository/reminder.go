package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/database"
	"github.com/example/reminderd/internal/models"
)

const reminderColumns = `id, user_id, message, next_execution, recurrence_type, recurrence_interval, status, created_at, deleted_at, last_sent_at`

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	r := &models.Reminder{}
	var recType *string
	var recInterval *int
	err := row.Scan(&r.ID, &r.UserID, &r.Message, &r.NextExecution, &recType, &recInterval,
		&r.Status, &r.CreatedAt, &r.DeletedAt, &r.LastSentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	if recType != nil && recInterval != nil {
		r.Recurrence = &models.Recurrence{Type: models.RecurrenceType(*recType), Interval: *recInterval}
	}
	return r, nil
}

func recurrenceColumns(r *models.Reminder) (recType *string, recInterval *int) {
	if r.Recurrence != nil {
		t := string(r.Recurrence.Type)
		i := r.Recurrence.Interval
		return &t, &i
	}
	return nil, nil
}

func (repo *ReminderRepository) Create(ctx context.Context, r *models.Reminder) error {
	recType, recInterval := recurrenceColumns(r)
	return repo.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (user_id, message, next_execution, recurrence_type, recurrence_interval, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		r.UserID, r.Message, r.NextExecution, recType, recInterval, r.Status,
	).Scan(&r.ID, &r.CreatedAt)
}

func (repo *ReminderRepository) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	return scanReminder(repo.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1`, id))
}

func (repo *ReminderRepository) GetForUser(ctx context.Context, id, userID int64) (*models.Reminder, error) {
	return scanReminder(repo.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1 AND user_id = $2`, id, userID))
}

func (repo *ReminderRepository) Update(ctx context.Context, r *models.Reminder) error {
	recType, recInterval := recurrenceColumns(r)
	_, err := repo.db.Pool.Exec(ctx,
		`UPDATE reminders
		 SET message = $1, next_execution = $2, recurrence_type = $3, recurrence_interval = $4,
		     status = $5, deleted_at = $6, last_sent_at = $7
		 WHERE id = $8`,
		r.Message, r.NextExecution, recType, recInterval, r.Status, r.DeletedAt, r.LastSentAt, r.ID,
	)
	return err
}

func (repo *ReminderRepository) ListByUser(ctx context.Context, userID int64, opts models.ListOptions) ([]*models.Reminder, error) {
	where := `WHERE user_id = $1`
	if !opts.IncludeDeleted {
		where += ` AND status != 'deleted'`
	}

	var order string
	switch opts.Sort {
	case "date":
		order = `ORDER BY next_execution ASC`
	case "date_desc":
		order = `ORDER BY next_execution DESC`
	case "id":
		order = `ORDER BY id ASC`
	case "id_desc":
		order = `ORDER BY id DESC`
	default:
		order = `ORDER BY
			CASE status
				WHEN 'pending' THEN 1
				WHEN 'sent' THEN 2
				WHEN 'completed' THEN 3
				WHEN 'paused' THEN 4
				WHEN 'resolved' THEN 5
				WHEN 'deleted' THEN 6
				ELSE 7
			END, next_execution ASC`
	}

	return repo.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders `+where+` `+order, userID)
}

func (repo *ReminderRepository) DueForFire(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	return repo.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE deleted_at IS NULL
		   AND next_execution <= $1
		   AND (status = 'pending' OR (status = 'sent' AND recurrence_type IS NOT NULL))
		 ORDER BY next_execution ASC`, now)
}

func (repo *ReminderRepository) MissedPending(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	return repo.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE deleted_at IS NULL AND status = 'pending' AND next_execution <= $1
		 ORDER BY next_execution ASC`, now)
}

func (repo *ReminderRepository) StuckSent(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	return repo.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE deleted_at IS NULL AND status = 'sent' AND recurrence_type IS NOT NULL
		   AND next_execution <= $1
		 ORDER BY next_execution ASC`, now)
}

func (repo *ReminderRepository) ListAll(ctx context.Context) ([]*models.Reminder, error) {
	return repo.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders ORDER BY id ASC`)
}

func (repo *ReminderRepository) queryReminders(ctx context.Context, sql string, args ...any) ([]*models.Reminder, error) {
	rows, err := repo.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}
