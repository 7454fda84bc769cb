// Package app wires storage, chain adapters and services from configuration. The server and
// the snapshot command share it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/portfolio-dashboard/internal/adapter"
	"github.com/portfolio-dashboard/internal/api"
	"github.com/portfolio-dashboard/internal/circuitbreaker"
	"github.com/portfolio-dashboard/internal/config"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/ratelimit"
	"github.com/portfolio-dashboard/internal/service"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/storage"
)

// Migration directories, relative to the working directory
const (
	PostgresMigrationsPath   = "migrations/postgres"
	ClickHouseMigrationsPath = "migrations/clickhouse"
)

const hyperliquidTimeout = 15 * time.Second

// App holds every long-lived dependency. Close releases them in reverse order.
type App struct {
	Config *config.Config

	Postgres   *storage.PostgresDB
	Redis      *storage.RedisCache
	ClickHouse *storage.ClickHouseDB // nil when the value history store is disabled
	Breakers   *circuitbreaker.Registry

	Settings     *service.SettingsService
	Portfolio    *service.PortfolioService
	Snapshots    *service.SnapshotService
	Analytics    *service.AnalyticsService
	Briefs       *service.BriefService
	ManualAssets *service.ManualAssetService
	Wallets      *service.WalletService
	Journal      *service.JournalService

	closers []func()
}

// Options control optional startup steps
type Options struct {
	// Migrate applies pending migrations before services are built
	Migrate bool
}

// New connects to every store and builds the services
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Breakers: circuitbreaker.NewRegistry()}
	if err := a.init(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) (err error) {
	logger := logging.FromContext(ctx)
	cfg := a.Config

	logger.Info("Connecting to Postgres...")
	a.Postgres, err = storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	a.closers = append(a.closers, a.Postgres.Close)

	if opts.Migrate {
		if err := storage.RunMigrations(cfg.Database.Postgres.PostgresURL(), PostgresMigrationsPath); err != nil {
			return err
		}
		logger.Info("Postgres migrations applied")
	}

	logger.Info("Connecting to Redis...")
	a.Redis, err = storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = a.Redis.Close() })

	if cfg.Database.ClickHouse.Enabled {
		logger.Info("Connecting to ClickHouse...")
		a.ClickHouse, err = storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		a.closers = append(a.closers, func() { _ = a.ClickHouse.Close() })

		if opts.Migrate {
			if err := storage.RunClickHouseMigrations(ctx, a.ClickHouse, ClickHouseMigrationsPath); err != nil {
				return err
			}
		}
	}

	snapshotRepo := storage.NewSnapshotRepository(a.Postgres)
	walletRepo := storage.NewWalletRepository(a.Postgres)
	manualRepo := storage.NewManualAssetRepository(a.Postgres)
	analyticsCache := storage.NewAnalyticsCache(a.Redis, cfg.Cache.AnalyticsTTL)

	a.Settings = service.NewSettingsService(storage.NewSettingsRepository(a.Postgres)).WithCache(analyticsCache)
	resolved, err := a.Settings.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}

	fetchers, err := a.buildFetchers(ctx, resolved)
	if err != nil {
		return err
	}

	prices := adapter.NewPriceClient(
		cfg.Prices,
		storage.NewPriceCache(a.Redis, cfg.Cache.PriceTTL),
		a.Breakers.Get("coingecko"),
	)

	a.Portfolio = service.NewPortfolioService(
		walletRepo, manualRepo, snapshotRepo, a.Settings, fetchers, prices, cfg.Snapshot.MinInterval,
	).WithCache(analyticsCache)
	a.Snapshots = service.NewSnapshotService(snapshotRepo).WithCache(analyticsCache)
	a.Analytics = service.NewAnalyticsService(snapshotRepo, walletRepo, a.Settings).WithCache(analyticsCache)
	if a.ClickHouse != nil {
		history := storage.NewValueHistoryRepository(a.ClickHouse)
		a.Portfolio.WithValueHistory(history)
		a.Snapshots.WithValueHistory(history)
		a.Analytics.WithValueHistory(history)
	}
	a.Briefs = service.NewBriefService(storage.NewBriefRepository(a.Postgres), snapshotRepo, a.Settings)
	a.ManualAssets = service.NewManualAssetService(manualRepo)
	a.Wallets = service.NewWalletService(walletRepo)
	a.Journal = service.NewJournalService(storage.NewJournalRepository(a.Postgres))

	return nil
}

// buildFetchers creates one balance fetcher per chain. Configured RPC endpoints win over the
// ones saved in settings.
func (a *App) buildFetchers(ctx context.Context, resolved settings.AppSettings) ([]adapter.BalanceFetcher, error) {
	logger := logging.FromContext(ctx)
	chains := a.Config.Chains

	evmURLs := chains.EVMRPCURLs
	if len(evmURLs) == 0 {
		evmURLs = resolved.EVMRPCURLs
	}
	solanaURLs := chains.SolanaRPCURLs
	if len(solanaURLs) == 0 {
		solanaURLs = resolved.SolanaRPCURLs
	}

	evmPool, err := adapter.NewEVMPool(evmURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to create EVM RPC pool: %w", err)
	}
	a.closers = append(a.closers, evmPool.Close)

	solanaPool, err := adapter.NewSolanaPool(solanaURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to create Solana RPC pool: %w", err)
	}
	a.closers = append(a.closers, solanaPool.Close)

	var discovery *adapter.AlchemyClient
	if chains.AlchemyAPIKey != "" {
		discovery, err = adapter.NewAlchemyClientFromKey(ctx, chains.AlchemyAPIKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, discovery.Close)

		tracker, err := ratelimit.NewCUBudgetTracker(&ratelimit.CUBudgetTrackerConfig{
			Redis:          a.Redis.Client(),
			TotalBudget:    chains.AlchemyCUBudget,
			ReservedBudget: chains.AlchemyCUReserved,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create CU budget tracker: %w", err)
		}
		discovery.WithBudget(ratelimit.NewLimiter(tracker, nil, ratelimit.DefaultMaxWait))
		logger.WithFields(map[string]interface{}{
			"cu_budget":   chains.AlchemyCUBudget,
			"cu_reserved": chains.AlchemyCUReserved,
		}).Info("Alchemy token discovery enabled")
	}

	return []adapter.BalanceFetcher{
		adapter.NewEVMFetcher(evmPool, discovery),
		adapter.NewSolanaFetcher(solanaPool),
		adapter.NewHyperliquidClient(chains.HyperliquidURL, hyperliquidTimeout),
	}, nil
}

// APIServices returns the services the HTTP API dispatches to
func (a *App) APIServices() api.Services {
	return api.Services{
		Portfolio:    a.Portfolio,
		Snapshots:    a.Snapshots,
		Analytics:    a.Analytics,
		Briefs:       a.Briefs,
		ManualAssets: a.ManualAssets,
		Wallets:      a.Wallets,
		Settings:     a.Settings,
		Journal:      a.Journal,
	}
}

// HealthChecks returns a probe per connected store
func (a *App) HealthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"postgres": a.Postgres.Ping,
		"redis":    a.Redis.Ping,
	}
	if a.ClickHouse != nil {
		checks["clickhouse"] = a.ClickHouse.Ping
	}
	return checks
}

// Scheduler returns a snapshot scheduler driven by the portfolio service
func (a *App) Scheduler() *service.SnapshotScheduler {
	return service.NewSnapshotScheduler(
		a.Portfolio,
		storage.NewSnapshotRepository(a.Postgres),
		a.Config.Snapshot.ScheduleInterval,
		"",
	)
}

// Close releases every connection opened by New
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
