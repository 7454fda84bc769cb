package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-dashboard/internal/config"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

// newTestPostgres connects to the database configured in the environment and applies the
// migrations, skipping the test when no database is reachable
func newTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("Skipping test - config not loadable: %v", err)
	}
	db, err := NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	if err := RunMigrations(cfg.Database.Postgres.PostgresURL(), "../../migrations/postgres"); err != nil {
		t.Skipf("Skipping test - migrations failed: %v", err)
	}
	return db
}

func TestSnapshotRepository_Integration(t *testing.T) {
	db := newTestPostgres(t)
	ctx := testContext(t)
	repo := NewSnapshotRepository(db)

	price := 3000.0
	snapshot := &models.Snapshot{
		CreatedAt: time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond),
		FxUsdAud:  1.5,
		SnapshotTotals: models.SnapshotTotals{
			TotalAud:  4500,
			CryptoAud: 4500,
		},
		Holdings: []models.Holding{{
			AssetKey:      "crypto:ETH",
			Source:        types.SourceEVM,
			Symbol:        "ETH",
			Quantity:      1,
			PriceUsd:      &price,
			ValueAud:      4500,
			LiquidityTier: types.TierFast,
			ExposureType:  types.ExposureETH,
		}},
	}
	require.NoError(t, repo.Create(ctx, snapshot))
	t.Cleanup(func() { _ = repo.Delete(ctx, snapshot.ID) })

	got, err := repo.GetByID(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, 4500.0, got.TotalAud)
	require.Len(t, got.Holdings, 1)
	assert.Equal(t, snapshot.ID, got.Holdings[0].SnapshotID)
	assert.Equal(t, price, *got.Holdings[0].PriceUsd)

	require.NoError(t, repo.Delete(ctx, snapshot.ID))
	_, err = repo.GetByID(ctx, snapshot.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRepositories_RejectMalformedIDs(t *testing.T) {
	db := newTestPostgres(t)
	ctx := testContext(t)

	_, err := NewSnapshotRepository(db).GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, NewWalletRepository(db).Delete(ctx, "nope"), ErrNotFound)
	assert.ErrorIs(t, NewJournalRepository(db).Delete(ctx, "nope"), ErrNotFound)
}
