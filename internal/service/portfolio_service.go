package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/portfolio-dashboard/internal/adapter"
	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

// DefaultMinSnapshotInterval is the minimum age of the latest snapshot before a refresh
const DefaultMinSnapshotInterval = 48 * time.Hour

// maxConcurrentFetches bounds the number of wallets read at once
const maxConcurrentFetches = 4

// PriceProvider resolves USD prices for symbols; a nil price means unpriced
type PriceProvider interface {
	GetBatchPrices(ctx context.Context, requests []adapter.PriceRequest) map[string]*float64
}

// PortfolioService values the portfolio: it reads every wallet, prices the positions, adds
// the manual assets and aggregates the result into a snapshot
type PortfolioService struct {
	walletRepo   WalletRepository
	manualRepo   ManualAssetRepository
	snapshotRepo SnapshotRepository
	settingsSvc  *SettingsService
	fetchers     map[types.ChainType]adapter.BalanceFetcher
	prices       PriceProvider
	history      ValueHistoryStore
	cache        CacheInvalidator
	minInterval  time.Duration
	now          func() time.Time
	refreshMu    sync.Mutex
}

// NewPortfolioService creates a new portfolio service. minInterval <= 0 uses
// DefaultMinSnapshotInterval.
func NewPortfolioService(
	walletRepo WalletRepository,
	manualRepo ManualAssetRepository,
	snapshotRepo SnapshotRepository,
	settingsSvc *SettingsService,
	fetchers []adapter.BalanceFetcher,
	prices PriceProvider,
	minInterval time.Duration,
) *PortfolioService {
	if minInterval <= 0 {
		minInterval = DefaultMinSnapshotInterval
	}
	byChain := make(map[types.ChainType]adapter.BalanceFetcher, len(fetchers))
	for _, f := range fetchers {
		byChain[f.ChainType()] = f
	}
	return &PortfolioService{
		walletRepo:   walletRepo,
		manualRepo:   manualRepo,
		snapshotRepo: snapshotRepo,
		settingsSvc:  settingsSvc,
		fetchers:     byChain,
		prices:       prices,
		minInterval:  minInterval,
		now:          time.Now,
	}
}

// WithValueHistory appends refreshed snapshots to the value history store
func (s *PortfolioService) WithValueHistory(history ValueHistoryStore) *PortfolioService {
	s.history = history
	return s
}

// WithCache invalidates cached analytics after a refresh
func (s *PortfolioService) WithCache(cache CacheInvalidator) *PortfolioService {
	s.cache = cache
	return s
}

// Calculate values the portfolio without persisting it. Wallets that cannot be read are
// reported in the result's Errors and contribute nothing.
func (s *PortfolioService) Calculate(ctx context.Context) (*models.ValuationResult, error) {
	return s.calculate(ctx, s.now())
}

// Refresh values the portfolio and stores the result as a new snapshot. It fails with
// SNAPSHOT_TOO_RECENT when the latest snapshot is younger than the minimum interval.
func (s *PortfolioService) Refresh(ctx context.Context) (*models.ValuationResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	now := s.now()
	last, err := s.snapshotRepo.LatestCreatedAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check latest snapshot: %w", err)
	}
	if last != nil {
		if age := now.Sub(*last); age < s.minInterval {
			remaining := math.Ceil((s.minInterval - age).Hours())
			return nil, apperrors.NewSnapshotTooRecentError(remaining)
		}
	}

	result, err := s.calculate(ctx, now)
	if err != nil {
		return nil, err
	}

	snapshot := result.Snapshot
	snapshot.ID = ""
	if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	log := logging.FromContext(ctx).WithField("snapshot_id", snapshot.ID)
	if s.history != nil {
		if err := s.history.Append(ctx, snapshot); err != nil {
			log.WithError(err).Warn("Failed to append snapshot to value history")
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			log.WithError(err).Warn("Failed to invalidate analytics cache")
		}
	}

	log.WithFields(map[string]interface{}{
		"total_aud":     snapshot.TotalAud,
		"holdings":      len(snapshot.Holdings),
		"wallet_errors": len(result.Errors),
	}).Info("Snapshot created")

	return result, nil
}

// walletFetch is the outcome of reading one wallet
type walletFetch struct {
	wallet models.Wallet
	result *adapter.FetchResult
	err    error
}

func (s *PortfolioService) calculate(ctx context.Context, at time.Time) (*models.ValuationResult, error) {
	log := logging.FromContext(ctx)

	appSettings, err := s.settingsSvc.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	manualAssets, err := s.manualRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual assets: %w", err)
	}

	fetches := s.fetchWallets(ctx, wallets)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &models.ValuationResult{
		PerpPositions: []models.PerpPosition{},
		Errors:        []models.WalletError{},
	}

	var positions []valuation.MarketPosition
	priceIDs := make(map[string]string)
	for _, f := range fetches {
		if f.err != nil {
			log.WithError(f.err).WithFields(map[string]interface{}{
				"wallet_id": f.wallet.ID,
				"chain":     f.wallet.ChainType,
			}).Warn("Failed to fetch wallet balances")
			result.Errors = append(result.Errors, models.WalletError{
				WalletID:  f.wallet.ID,
				Address:   f.wallet.Address,
				ChainType: f.wallet.ChainType,
				Error:     f.err.Error(),
			})
			continue
		}
		for _, pos := range f.result.Positions {
			if err := valuation.ValidatePosition(pos); err != nil {
				log.WithError(err).WithField("wallet_id", f.wallet.ID).Warn("Dropping invalid position")
				continue
			}
			positions = append(positions, pos)
		}
		for symbol, id := range f.result.PriceIDs {
			priceIDs[symbol] = id
		}
		result.PerpPositions = append(result.PerpPositions, f.result.Perps...)
	}

	prices := s.prices.GetBatchPrices(ctx, priceRequests(positions, priceIDs))

	holdings := make([]models.Holding, 0, len(positions)+len(manualAssets))
	for _, pos := range positions {
		price := prices[pos.Symbol]
		if err := valuation.ValidatePrice(pos.Symbol, price); err != nil {
			log.WithError(err).Warn("Ignoring invalid price")
			price = nil
		}
		h := valuation.NewMarketHolding(pos, price, appSettings)
		if belowSPLMinimum(h, appSettings) {
			continue
		}
		holdings = append(holdings, h)
	}

	ethPrice := settings.ResolveEthPrice(appSettings, prices["ETH"])
	for i := range manualAssets {
		asset := &manualAssets[i]
		if err := valuation.ValidateManualAsset(asset); err != nil {
			log.WithError(err).WithField("manual_asset_id", asset.ID).Warn("Skipping invalid manual asset")
			continue
		}
		holdings = append(holdings, valuation.NewManualHolding(asset, appSettings, ethPrice))
	}

	result.Snapshot = valuation.NewSnapshot(models.LiveSnapshotID, at, appSettings.FxUsdAud, holdings)
	return result, nil
}

// fetchWallets reads every wallet concurrently. Results keep the wallet order.
func (s *PortfolioService) fetchWallets(ctx context.Context, wallets []models.Wallet) []walletFetch {
	fetches := make([]walletFetch, len(wallets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, w := range wallets {
		fetches[i].wallet = w
		fetcher, ok := s.fetchers[w.ChainType]
		if !ok {
			fetches[i].err = fmt.Errorf("no balance fetcher for chain %s", w.ChainType)
			continue
		}
		g.Go(func() error {
			res, err := fetcher.FetchBalances(gctx, w)
			if err == nil && res == nil {
				res = &adapter.FetchResult{}
			}
			fetches[i].result, fetches[i].err = res, err
			return nil
		})
	}
	_ = g.Wait()

	return fetches
}

// priceRequests lists each position symbol once, plus ETH for ETH-denominated manual assets
func priceRequests(positions []valuation.MarketPosition, priceIDs map[string]string) []adapter.PriceRequest {
	seen := map[string]bool{"ETH": true}
	requests := []adapter.PriceRequest{{Symbol: "ETH", CoingeckoID: priceIDs["ETH"]}}
	for _, pos := range positions {
		if seen[pos.Symbol] {
			continue
		}
		seen[pos.Symbol] = true
		requests = append(requests, adapter.PriceRequest{Symbol: pos.Symbol, CoingeckoID: priceIDs[pos.Symbol]})
	}
	sort.Slice(requests[1:], func(i, j int) bool { return requests[i+1].Symbol < requests[j+1].Symbol })
	return requests
}

// belowSPLMinimum reports priced SPL token holdings worth less than solMinValueAud
func belowSPLMinimum(h models.Holding, s settings.AppSettings) bool {
	if h.Source != types.SourceSOL || !strings.HasPrefix(h.AssetKey, "spl:") || h.IsUnpriced() {
		return false
	}
	return h.ValueAud < s.SolMinValueAud
}
