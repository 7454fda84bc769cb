package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/portfolio-dashboard/internal/models"
)

const snapshotColumns = `id, created_at, fx_usd_aud, total_aud, cash_aud, crypto_aud,
	collectibles_aud, evm_total_aud, sol_total_aud, manual_total_aud`

const holdingColumns = `id, snapshot_id, asset_key, source, wallet_id, symbol, quantity,
	price_usd, value_aud, liquidity_tier, exposure_type`

// SnapshotListOptions filters and pages snapshot history
type SnapshotListOptions struct {
	Since  *time.Time
	Limit  int
	Offset int
}

// SnapshotRepository stores snapshots and their holdings
type SnapshotRepository struct {
	db *PostgresDB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create stores a snapshot and all of its holdings in one transaction. Missing ids are
// generated.
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot.ID == "" || snapshot.ID == models.LiveSnapshotID {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO snapshots (`+snapshotColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			snapshot.ID,
			snapshot.CreatedAt,
			snapshot.FxUsdAud,
			snapshot.TotalAud,
			snapshot.CashAud,
			snapshot.CryptoAud,
			snapshot.CollectiblesAud,
			snapshot.EVMTotalAud,
			snapshot.SOLTotalAud,
			snapshot.ManualTotalAud,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		if len(snapshot.Holdings) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i := range snapshot.Holdings {
			h := &snapshot.Holdings[i]
			if h.ID == "" {
				h.ID = uuid.New().String()
			}
			h.SnapshotID = snapshot.ID
			batch.Queue(`
				INSERT INTO holdings (`+holdingColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`,
				h.ID, h.SnapshotID, h.AssetKey, h.Source, h.WalletID, h.Symbol, h.Quantity,
				h.PriceUsd, h.ValueAud, h.LiquidityTier, h.ExposureType,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert holdings: %w", err)
		}
		return nil
	})
}

func scanSnapshot(row pgx.Row) (*models.Snapshot, error) {
	var s models.Snapshot
	err := row.Scan(
		&s.ID,
		&s.CreatedAt,
		&s.FxUsdAud,
		&s.TotalAud,
		&s.CashAud,
		&s.CryptoAud,
		&s.CollectiblesAud,
		&s.EVMTotalAud,
		&s.SOLTotalAud,
		&s.ManualTotalAud,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns a snapshot with its holdings
func (r *SnapshotRepository) GetByID(ctx context.Context, id string) (*models.Snapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}

	row := r.db.Pool().QueryRow(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = $1`, id)
	snapshot, err := scanSnapshot(row)
	if err != nil {
		return nil, notFoundIfNoRows(err, "snapshot", id)
	}
	return r.withHoldings(ctx, snapshot)
}

// Latest returns the newest snapshot with its holdings
func (r *SnapshotRepository) Latest(ctx context.Context) (*models.Snapshot, error) {
	row := r.db.Pool().QueryRow(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`)
	snapshot, err := scanSnapshot(row)
	if err != nil {
		return nil, notFoundIfNoRows(err, "snapshot", "latest")
	}
	return r.withHoldings(ctx, snapshot)
}

// Previous returns the newest snapshot taken strictly before t, with its holdings
func (r *SnapshotRepository) Previous(ctx context.Context, before time.Time) (*models.Snapshot, error) {
	row := r.db.Pool().QueryRow(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE created_at < $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, before)
	snapshot, err := scanSnapshot(row)
	if err != nil {
		return nil, notFoundIfNoRows(err, "snapshot", "previous")
	}
	return r.withHoldings(ctx, snapshot)
}

// LatestCreatedAt returns the time of the newest snapshot, or nil when there is none
func (r *SnapshotRepository) LatestCreatedAt(ctx context.Context) (*time.Time, error) {
	var t *time.Time
	if err := r.db.Pool().QueryRow(ctx, `SELECT MAX(created_at) FROM snapshots`).Scan(&t); err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot time: %w", err)
	}
	return t, nil
}

// List returns snapshot totals without holdings, newest first
func (r *SnapshotRepository) List(ctx context.Context, opts SnapshotListOptions) ([]models.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		ORDER BY created_at DESC, id DESC`
	args := []interface{}{opts.Since}
	if opts.Limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, *s)
	}
	return snapshots, rows.Err()
}

// Count returns the number of stored snapshots
func (r *SnapshotRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

// ListWithHoldings returns every snapshot with holdings, oldest first
func (r *SnapshotRepository) ListWithHoldings(ctx context.Context) ([]models.Snapshot, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT `+snapshotColumns+` FROM snapshots ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var snapshots []models.Snapshot
	index := make(map[string]int)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		index[s.ID] = len(snapshots)
		snapshots = append(snapshots, *s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	holdings, err := r.queryHoldings(ctx, `SELECT `+holdingColumns+` FROM holdings`)
	if err != nil {
		return nil, err
	}
	for _, h := range holdings {
		if i, ok := index[h.SnapshotID]; ok {
			snapshots[i].Holdings = append(snapshots[i].Holdings, h)
		}
	}
	return snapshots, nil
}

// Points returns the (id, createdAt, totalAud) series, oldest first
func (r *SnapshotRepository) Points(ctx context.Context) ([]models.ValuePoint, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT id, created_at, total_aud FROM snapshots ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query value points: %w", err)
	}
	defer rows.Close()

	var points []models.ValuePoint
	for rows.Next() {
		var p models.ValuePoint
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.TotalAud); err != nil {
			return nil, fmt.Errorf("failed to scan value point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Delete removes a snapshot; its holdings cascade
func (r *SnapshotRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return expectOne(tag, "snapshot", id)
}

func (r *SnapshotRepository) withHoldings(ctx context.Context, snapshot *models.Snapshot) (*models.Snapshot, error) {
	holdings, err := r.queryHoldings(ctx, `SELECT `+holdingColumns+` FROM holdings WHERE snapshot_id = $1`, snapshot.ID)
	if err != nil {
		return nil, err
	}
	snapshot.Holdings = holdings
	return snapshot, nil
}

func (r *SnapshotRepository) queryHoldings(ctx context.Context, query string, args ...interface{}) ([]models.Holding, error) {
	rows, err := r.db.Pool().Query(ctx, query+` ORDER BY value_aud DESC, asset_key ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		err := rows.Scan(
			&h.ID,
			&h.SnapshotID,
			&h.AssetKey,
			&h.Source,
			&h.WalletID,
			&h.Symbol,
			&h.Quantity,
			&h.PriceUsd,
			&h.ValueAud,
			&h.LiquidityTier,
			&h.ExposureType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}
