package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepository хранилище настроек ключ-значение (app_settings)
type SettingsRepository interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) error
}

type settingsRepository struct {
	db *PostgresDB
}

// NewSettingsRepository создаёт репозиторий настроек
func NewSettingsRepository(db *PostgresDB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (json.RawMessage, error) {
	query := `SELECT value FROM app_settings WHERE key = $1`

	var value []byte
	if err := r.db.Pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to get setting %q: %w", key, err)
	}

	return json.RawMessage(value), nil
}

func (r *settingsRepository) Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) error {
	query := `
		INSERT INTO app_settings (key, value, updated_at, updated_by)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by
	`

	if _, err := r.db.Pool.Exec(ctx, query, key, []byte(value), updatedBy); err != nil {
		return fmt.Errorf("failed to upsert setting %q: %w", key, err)
	}

	return nil
}
