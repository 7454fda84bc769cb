package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SettingsRepository stores domain settings as one JSON-encoded value per key
type SettingsRepository struct {
	db *PostgresDB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *PostgresDB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// All returns every stored key with its raw JSON value
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	records := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		records[key] = value
	}
	return records, rows.Err()
}

// Upsert writes every record in one transaction
func (r *SettingsRepository) Upsert(ctx context.Context, records map[string]string) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		for key, value := range records {
			_, err := tx.Exec(ctx, `
				INSERT INTO settings (key, value, updated_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
			`, key, value)
			if err != nil {
				return fmt.Errorf("failed to upsert setting %s: %w", key, err)
			}
		}
		return nil
	})
}
