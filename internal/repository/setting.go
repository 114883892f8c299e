package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/example/reminderd/internal/database"
)

type SettingRepository struct {
	db *database.DB
}

func NewSettingRepository(db *database.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns the value for key, or an empty string when the key is unset.
func (repo *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := repo.db.Pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (repo *SettingRepository) Set(ctx context.Context, key, value string) error {
	_, err := repo.db.Pool.Exec(ctx,
		`INSERT INTO settings (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	return err
}

// All returns every key/value pair, used by the backup snapshot.
func (repo *SettingRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := repo.db.Pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
