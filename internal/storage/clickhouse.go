package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/portfolio-dashboard/internal/config"
	"github.com/portfolio-dashboard/internal/models"
)

// ClickHouseDB wraps the ClickHouse connection used for the value history store
type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB opens and pings a ClickHouse connection
func NewClickHouseDB(cfg *config.ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 30,
		},
		DialTimeout:      5 * time.Second,
		MaxOpenConns:     4,
		MaxIdleConns:     2,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Ping checks if the database is reachable
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	return db.conn.Ping(ctx)
}

// Exec executes a statement without returning rows
func (db *ClickHouseDB) Exec(ctx context.Context, query string, args ...interface{}) error {
	return db.conn.Exec(ctx, query, args...)
}

// ValueHistoryRepository appends snapshot totals to an append-only ClickHouse series
type ValueHistoryRepository struct {
	db *ClickHouseDB
}

// NewValueHistoryRepository creates a new value history repository
func NewValueHistoryRepository(db *ClickHouseDB) *ValueHistoryRepository {
	return &ValueHistoryRepository{db: db}
}

// Append writes the totals of the given snapshots
func (r *ValueHistoryRepository) Append(ctx context.Context, snapshots ...*models.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := r.db.conn.PrepareBatch(ctx, `
		INSERT INTO portfolio_value_history (
			snapshot_id, created_at, total_aud, cash_aud, crypto_aud, collectibles_aud,
			evm_total_aud, sol_total_aud, manual_total_aud, fx_usd_aud
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, s := range snapshots {
		err := batch.Append(
			s.ID,
			s.CreatedAt.UTC(),
			s.TotalAud,
			s.CashAud,
			s.CryptoAud,
			s.CollectiblesAud,
			s.EVMTotalAud,
			s.SOLTotalAud,
			s.ManualTotalAud,
			s.FxUsdAud,
		)
		if err != nil {
			return fmt.Errorf("failed to append value history row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send value history batch: %w", err)
	}
	return nil
}

// Points returns the (id, createdAt, totalAud) series, oldest first
func (r *ValueHistoryRepository) Points(ctx context.Context) ([]models.ValuePoint, error) {
	rows, err := r.db.conn.Query(ctx, `
		SELECT snapshot_id, created_at, total_aud
		FROM portfolio_value_history FINAL
		ORDER BY created_at ASC, snapshot_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query value history: %w", err)
	}
	defer rows.Close()

	var points []models.ValuePoint
	for rows.Next() {
		var p models.ValuePoint
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.TotalAud); err != nil {
			return nil, fmt.Errorf("failed to scan value history row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Delete removes a snapshot's row from the series
func (r *ValueHistoryRepository) Delete(ctx context.Context, snapshotID string) error {
	if err := r.db.Exec(ctx, `DELETE FROM portfolio_value_history WHERE snapshot_id = ?`, snapshotID); err != nil {
		return fmt.Errorf("failed to delete value history row: %w", err)
	}
	return nil
}
