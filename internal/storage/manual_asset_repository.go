package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/portfolio-dashboard/internal/models"
)

const manualAssetColumns = `id, type, name, value_aud, currency, quantity, notes, investment_date,
	investment_amount, investment_valuation, tradfi_system, exposure_type, updated_at`

// ManualAssetRepository stores user-entered assets
type ManualAssetRepository struct {
	db *PostgresDB
}

// NewManualAssetRepository creates a new manual asset repository
func NewManualAssetRepository(db *PostgresDB) *ManualAssetRepository {
	return &ManualAssetRepository{db: db}
}

func scanManualAsset(row pgx.Row) (*models.ManualAsset, error) {
	var a models.ManualAsset
	err := row.Scan(
		&a.ID,
		&a.Type,
		&a.Name,
		&a.NativeAmount,
		&a.Currency,
		&a.Quantity,
		&a.Notes,
		&a.InvestmentDate,
		&a.InvestmentAmount,
		&a.InvestmentValuation,
		&a.TradfiSystem,
		&a.ExposureType,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns every manual asset, most recently updated first
func (r *ManualAssetRepository) List(ctx context.Context) ([]models.ManualAsset, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT `+manualAssetColumns+` FROM manual_assets ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual assets: %w", err)
	}
	defer rows.Close()

	assets := []models.ManualAsset{}
	for rows.Next() {
		a, err := scanManualAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manual asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// GetByID returns one manual asset
func (r *ManualAssetRepository) GetByID(ctx context.Context, id string) (*models.ManualAsset, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("manual asset %s: %w", id, ErrNotFound)
	}
	a, err := scanManualAsset(r.db.Pool().QueryRow(ctx, `SELECT `+manualAssetColumns+` FROM manual_assets WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundIfNoRows(err, "manual asset", id)
	}
	return a, nil
}

// Count returns the number of manual assets
func (r *ManualAssetRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM manual_assets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count manual assets: %w", err)
	}
	return n, nil
}

// Create stores a new manual asset
func (r *ManualAssetRepository) Create(ctx context.Context, a *models.ManualAsset) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.UpdatedAt = time.Now().UTC()

	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO manual_assets (`+manualAssetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		a.ID, a.Type, a.Name, a.NativeAmount, a.Currency, a.Quantity, a.Notes, a.InvestmentDate,
		a.InvestmentAmount, a.InvestmentValuation, a.TradfiSystem, a.ExposureType, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create manual asset: %w", err)
	}
	return nil
}

// Update replaces every editable field of an existing manual asset
func (r *ManualAssetRepository) Update(ctx context.Context, a *models.ManualAsset) error {
	if _, err := uuid.Parse(a.ID); err != nil {
		return fmt.Errorf("manual asset %s: %w", a.ID, ErrNotFound)
	}
	a.UpdatedAt = time.Now().UTC()

	tag, err := r.db.Pool().Exec(ctx, `
		UPDATE manual_assets SET
			type = $2,
			name = $3,
			value_aud = $4,
			currency = $5,
			quantity = $6,
			notes = $7,
			investment_date = $8,
			investment_amount = $9,
			investment_valuation = $10,
			tradfi_system = $11,
			exposure_type = $12,
			updated_at = $13
		WHERE id = $1
	`,
		a.ID, a.Type, a.Name, a.NativeAmount, a.Currency, a.Quantity, a.Notes, a.InvestmentDate,
		a.InvestmentAmount, a.InvestmentValuation, a.TradfiSystem, a.ExposureType, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update manual asset: %w", err)
	}
	return expectOne(tag, "manual asset", a.ID)
}

// Delete removes a manual asset
func (r *ManualAssetRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("manual asset %s: %w", id, ErrNotFound)
	}
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM manual_assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete manual asset: %w", err)
	}
	return expectOne(tag, "manual asset", id)
}
