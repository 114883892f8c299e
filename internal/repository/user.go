package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/database"
	"github.com/example/reminderd/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo *UserRepository) Create(ctx context.Context, u *models.User) error {
	return repo.db.Pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, timezone)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.Timezone,
	).Scan(&u.ID, &u.CreatedAt)
}

func (repo *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return repo.scanUser(repo.db.Pool.QueryRow(ctx,
		`SELECT id, username, password_hash, timezone, created_at FROM users WHERE id = $1`, id))
}

func (repo *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return repo.scanUser(repo.db.Pool.QueryRow(ctx,
		`SELECT id, username, password_hash, timezone, created_at FROM users WHERE username = $1`, username))
}

func (repo *UserRepository) scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Timezone, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
