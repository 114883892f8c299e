package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/database"
	"github.com/example/reminderd/internal/models"
)

const executionColumns = `id, public_id, reminder_id, sent_at, confirmed, confirmed_at`

type ExecutionRepository struct {
	db *database.DB
}

func NewExecutionRepository(db *database.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	e := &models.Execution{}
	err := row.Scan(&e.ID, &e.PublicID, &e.ReminderID, &e.SentAt, &e.Confirmed, &e.ConfirmedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (repo *ExecutionRepository) Create(ctx context.Context, e *models.Execution) error {
	if e.PublicID == "" {
		e.PublicID = uuid.NewString()
	}
	return repo.db.Pool.QueryRow(ctx,
		`INSERT INTO executions (public_id, reminder_id, sent_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		e.PublicID, e.ReminderID, e.SentAt,
	).Scan(&e.ID)
}

// Delete rolls back an execution row whose delivery failed.
func (repo *ExecutionRepository) Delete(ctx context.Context, id int64) error {
	_, err := repo.db.Pool.Exec(ctx, `DELETE FROM executions WHERE id = $1`, id)
	return err
}

func (repo *ExecutionRepository) GetByID(ctx context.Context, id int64) (*models.Execution, error) {
	return scanExecution(repo.db.Pool.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE id = $1`, id))
}

func (repo *ExecutionRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Execution, error) {
	if _, err := uuid.Parse(publicID); err != nil {
		return nil, core.ErrNotFound
	}
	return scanExecution(repo.db.Pool.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE public_id = $1`, publicID))
}

func (repo *ExecutionRepository) ConfirmAllForReminder(ctx context.Context, reminderID int64, at time.Time) error {
	_, err := repo.db.Pool.Exec(ctx,
		`UPDATE executions SET confirmed = TRUE, confirmed_at = $1
		 WHERE reminder_id = $2 AND NOT confirmed`,
		at, reminderID,
	)
	return err
}

func (repo *ExecutionRepository) EscalationCandidates(ctx context.Context, cutoff time.Time) ([]*models.EscalationCandidate, error) {
	return repo.queryCandidates(ctx,
		`SELECT e.reminder_id, r.message
		 FROM executions e
		 JOIN reminders r ON r.id = e.reminder_id
		 WHERE NOT e.confirmed
		   AND r.deleted_at IS NULL
		   AND r.status NOT IN ('paused', 'resolved', 'deleted')
		 GROUP BY e.reminder_id, r.message
		 HAVING MAX(e.sent_at) <= $1
		 ORDER BY e.reminder_id ASC`, cutoff)
}

func (repo *ExecutionRepository) UnconfirmedReminders(ctx context.Context) ([]*models.EscalationCandidate, error) {
	return repo.queryCandidates(ctx,
		`SELECT e.reminder_id, r.message
		 FROM executions e
		 JOIN reminders r ON r.id = e.reminder_id
		 WHERE NOT e.confirmed
		   AND r.deleted_at IS NULL
		   AND r.status NOT IN ('paused', 'resolved', 'deleted')
		 GROUP BY e.reminder_id, r.message
		 ORDER BY e.reminder_id ASC`)
}

func (repo *ExecutionRepository) queryCandidates(ctx context.Context, sql string, args ...any) ([]*models.EscalationCandidate, error) {
	rows, err := repo.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []*models.EscalationCandidate
	for rows.Next() {
		c := &models.EscalationCandidate{}
		if err := rows.Scan(&c.ReminderID, &c.Message); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (repo *ExecutionRepository) ListAll(ctx context.Context) ([]*models.Execution, error) {
	rows, err := repo.db.Pool.Query(ctx,
		`SELECT `+executionColumns+` FROM executions ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []*models.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, e)
	}
	return executions, rows.Err()
}
