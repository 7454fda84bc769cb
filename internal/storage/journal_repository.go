package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/portfolio-dashboard/internal/models"
)

// JournalRepository stores investment journal entries
type JournalRepository struct {
	db *PostgresDB
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *PostgresDB) *JournalRepository {
	return &JournalRepository{db: db}
}

// List returns every entry, newest first
func (r *JournalRepository) List(ctx context.Context) ([]models.JournalEntry, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, asset_name, created_at FROM journal_entries ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.AssetName, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries
func (r *JournalRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return n, nil
}

// Create stores a new entry
func (r *JournalRepository) Create(ctx context.Context, e *models.JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO journal_entries (id, asset_name, created_at) VALUES ($1, $2, $3)
	`, e.ID, e.AssetName, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (r *JournalRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("journal entry %s: %w", id, ErrNotFound)
	}
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	return expectOne(tag, "journal entry", id)
}
