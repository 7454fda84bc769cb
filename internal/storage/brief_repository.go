package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/portfolio-dashboard/internal/models"
)

// BriefRepository stores generated reports. Briefs are immutable once written.
type BriefRepository struct {
	db *PostgresDB
}

// NewBriefRepository creates a new brief repository
func NewBriefRepository(db *PostgresDB) *BriefRepository {
	return &BriefRepository{db: db}
}

func scanBrief(row pgx.Row) (*models.Brief, error) {
	var b models.Brief
	var data []byte
	if err := row.Scan(&b.ID, &b.CreatedAt, &b.ReportType, &b.SnapshotID, &data); err != nil {
		return nil, err
	}
	b.Data = data
	return &b, nil
}

// Create stores a brief
func (r *BriefRepository) Create(ctx context.Context, b *models.Brief) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO briefs (id, created_at, report_type, snapshot_id, data)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.CreatedAt, b.ReportType, b.SnapshotID, []byte(b.Data))
	if err != nil {
		return fmt.Errorf("failed to create brief: %w", err)
	}
	return nil
}

// List returns the newest briefs, at most limit
func (r *BriefRepository) List(ctx context.Context, limit int) ([]models.Brief, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, created_at, report_type, snapshot_id, data
		FROM briefs
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list briefs: %w", err)
	}
	defer rows.Close()

	briefs := []models.Brief{}
	for rows.Next() {
		b, err := scanBrief(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan brief: %w", err)
		}
		briefs = append(briefs, *b)
	}
	return briefs, rows.Err()
}

// GetByID returns one brief
func (r *BriefRepository) GetByID(ctx context.Context, id string) (*models.Brief, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("brief %s: %w", id, ErrNotFound)
	}
	b, err := scanBrief(r.db.Pool().QueryRow(ctx, `
		SELECT id, created_at, report_type, snapshot_id, data FROM briefs WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFoundIfNoRows(err, "brief", id)
	}
	return b, nil
}

// Delete removes a brief
func (r *BriefRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("brief %s: %w", id, ErrNotFound)
	}
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM briefs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete brief: %w", err)
	}
	return expectOne(tag, "brief", id)
}
