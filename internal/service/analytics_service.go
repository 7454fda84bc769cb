package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/portfolio-dashboard/internal/analytics"
	"github.com/portfolio-dashboard/internal/health"
	"github.com/portfolio-dashboard/internal/liquidity"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/storage"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

// AnalyticsCacheStore caches computed payloads tagged with the snapshot they came from
type AnalyticsCacheStore interface {
	Get(ctx context.Context, key, snapshotID string, dest interface{}) (bool, error)
	Set(ctx context.Context, key, snapshotID string, value interface{}) error
	InvalidateAll(ctx context.Context) error
}

// AnalyticsService derives the read-only views of the latest snapshot and the history
type AnalyticsService struct {
	snapshotRepo SnapshotRepository
	walletRepo   WalletRepository
	settingsSvc  *SettingsService
	history      ValueHistoryStore
	cache        AnalyticsCacheStore
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(
	snapshotRepo SnapshotRepository,
	walletRepo WalletRepository,
	settingsSvc *SettingsService,
) *AnalyticsService {
	return &AnalyticsService{
		snapshotRepo: snapshotRepo,
		walletRepo:   walletRepo,
		settingsSvc:  settingsSvc,
	}
}

// WithValueHistory reads the value series from the value history store first
func (s *AnalyticsService) WithValueHistory(history ValueHistoryStore) *AnalyticsService {
	s.history = history
	return s
}

// WithCache caches analytics and health payloads
func (s *AnalyticsService) WithCache(cache AnalyticsCacheStore) *AnalyticsService {
	s.cache = cache
	return s
}

// LiquidityView is the liquidity summary of the latest snapshot
type LiquidityView struct {
	SnapshotID string    `json:"snapshotId"`
	CreatedAt  time.Time `json:"createdAt"`
	TotalAud   float64   `json:"totalAud"`
	liquidity.Summary
}

// ExposureView breaks the latest snapshot down by asset, chain and custody
type ExposureView struct {
	SnapshotID     string                       `json:"snapshotId"`
	CreatedAt      time.Time                    `json:"createdAt"`
	TotalAud       float64                      `json:"totalAud"`
	TopExposures   []valuation.TopExposure      `json:"topExposures"`
	ChainBreakdown []valuation.ChainBreakdown   `json:"chainBreakdown"`
	Custody        []valuation.CustodyBreakdown `json:"custodyBreakdown"`
	Unpriced       []valuation.UnpricedAsset    `json:"unpricedAssets"`
}

// HealthView is the health assessment of the latest snapshot
type HealthView struct {
	SnapshotID    string   `json:"snapshotId"`
	RiskNarrative string   `json:"riskNarrative"`
	ActionItems   []string `json:"actionItems"`
	health.Scores
}

// Liquidity buckets the latest snapshot by tier and runs the stress scenarios. Runway is
// measured against the monthly burn net of monthlyIncome.
func (s *AnalyticsService) Liquidity(ctx context.Context, monthlyIncome float64) (*LiquidityView, error) {
	if monthlyIncome < 0 {
		return nil, invalidInput("monthlyIncome must not be negative")
	}
	snapshot, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	appSettings, err := s.settingsSvc.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	return &LiquidityView{
		SnapshotID: snapshot.ID,
		CreatedAt:  snapshot.CreatedAt,
		TotalAud:   snapshot.TotalAud,
		Summary:    liquidity.Summarize(snapshot, appSettings, monthlyIncome),
	}, nil
}

// Exposures returns the top exposures and the chain, custody and unpriced breakdowns of the
// latest snapshot
func (s *AnalyticsService) Exposures(ctx context.Context) (*ExposureView, error) {
	snapshot, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	return &ExposureView{
		SnapshotID:     snapshot.ID,
		CreatedAt:      snapshot.CreatedAt,
		TotalAud:       snapshot.TotalAud,
		TopExposures:   valuation.TopExposures(snapshot, valuation.DefaultTopExposureLimit),
		ChainBreakdown: valuation.ChainBreakdowns(snapshot),
		Custody:        valuation.CustodyBreakdowns(snapshot, wallets),
		Unpriced:       valuation.UnpricedAssets(snapshot),
	}, nil
}

// Analytics computes the time-series analytics over a range of the history. Results are
// cached per latest snapshot.
func (s *AnalyticsService) Analytics(ctx context.Context, r types.TimeRange) (*analytics.Report, error) {
	if !r.Valid() {
		return nil, invalidInput(fmt.Sprintf("range must be one of 1M, 3M, 6M, 1Y, ALL; got %q", r))
	}
	if r == "" {
		r = types.RangeAll
	}

	latestID, err := s.latestID(ctx)
	if err != nil {
		return nil, err
	}

	key := storage.AnalyticsKey("report", string(r))
	var report analytics.Report
	if s.cachedInto(ctx, key, latestID, &report) {
		return &report, nil
	}

	points, err := s.points(ctx)
	if err != nil {
		return nil, err
	}
	report = analytics.Compute(points, r)
	s.store(ctx, key, latestID, report)
	return &report, nil
}

// HealthScores scores the latest snapshot. It fails with SNAPSHOT_NOT_FOUND when there is
// none.
func (s *AnalyticsService) HealthScores(ctx context.Context) (*HealthView, error) {
	latestID, err := s.latestID(ctx)
	if err != nil {
		return nil, err
	}
	if latestID == "" {
		return nil, noSnapshotFound()
	}

	key := storage.AnalyticsKey("health", string(types.RangeAll))
	var view HealthView
	if s.cachedInto(ctx, key, latestID, &view) {
		return &view, nil
	}

	snapshot, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	appSettings, err := s.settingsSvc.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	points, err := s.points(ctx)
	if err != nil {
		return nil, err
	}

	scores := health.ForSnapshot(snapshot, appSettings.MonthlyBurnAud, points)
	view = HealthView{
		SnapshotID:    snapshot.ID,
		RiskNarrative: health.RiskNarrative(snapshot.Holdings, snapshot.TotalAud),
		ActionItems:   health.ActionItems(snapshot.Holdings, snapshot.TotalAud, scores),
		Scores:        scores,
	}
	s.store(ctx, key, snapshot.ID, view)
	return &view, nil
}

// latest returns the newest snapshot with holdings, or SNAPSHOT_NOT_FOUND
func (s *AnalyticsService) latest(ctx context.Context) (*models.Snapshot, error) {
	snapshot, err := s.snapshotRepo.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, noSnapshotFound()
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return snapshot, nil
}

// latestID returns the id of the newest snapshot, or "" when there is none
func (s *AnalyticsService) latestID(ctx context.Context) (string, error) {
	snapshots, err := s.snapshotRepo.List(ctx, storage.SnapshotListOptions{Limit: 1})
	if err != nil {
		return "", fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	if len(snapshots) == 0 {
		return "", nil
	}
	return snapshots[0].ID, nil
}

// points reads the value series from the value history store when it holds data, and from
// Postgres otherwise
func (s *AnalyticsService) points(ctx context.Context) ([]models.ValuePoint, error) {
	if s.history != nil {
		points, err := s.history.Points(ctx)
		if err == nil && len(points) > 0 {
			return points, nil
		}
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Value history unavailable, reading Postgres")
		}
	}

	points, err := s.snapshotRepo.Points(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load value history: %w", err)
	}
	return points, nil
}

func (s *AnalyticsService) cachedInto(ctx context.Context, key, snapshotID string, dest interface{}) bool {
	if s.cache == nil || snapshotID == "" {
		return false
	}
	hit, err := s.cache.Get(ctx, key, snapshotID, dest)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("key", key).Warn("Analytics cache read failed")
		return false
	}
	return hit
}

func (s *AnalyticsService) store(ctx context.Context, key, snapshotID string, value interface{}) {
	if s.cache == nil || snapshotID == "" {
		return
	}
	if err := s.cache.Set(ctx, key, snapshotID, value); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("key", key).Warn("Analytics cache write failed")
	}
}

func noSnapshotFound() *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeSnapshotNotFound,
		Message: "no snapshots found",
	}
}
