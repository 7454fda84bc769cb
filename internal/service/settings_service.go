package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
)

// SettingsRepository interface for settings data operations
type SettingsRepository interface {
	All(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, records map[string]string) error
}

// SettingsService reads and writes the stored domain settings
type SettingsService struct {
	settingsRepo SettingsRepository
	cache        CacheInvalidator
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingsRepo SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// WithCache drops cached analytics whenever stored settings change
func (s *SettingsService) WithCache(cache CacheInvalidator) *SettingsService {
	s.cache = cache
	return s
}

// Resolve loads the stored overrides and merges them onto the defaults. Records that do not
// decode are logged and ignored.
func (s *SettingsService) Resolve(ctx context.Context) (settings.AppSettings, error) {
	records, err := s.settingsRepo.All(ctx)
	if err != nil {
		return settings.AppSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	overrides, skipped := settings.FromRecords(records)
	if len(skipped) > 0 {
		sort.Strings(skipped)
		logging.FromContext(ctx).WithField("keys", strings.Join(skipped, ",")).
			Warn("Ignoring unreadable settings")
	}
	return settings.Resolve(overrides), nil
}

// Update validates the merged result of the stored and the new overrides, then stores the
// new overrides. It returns the resolved settings.
func (s *SettingsService) Update(ctx context.Context, overrides settings.Overrides) (settings.AppSettings, error) {
	records, err := s.settingsRepo.All(ctx)
	if err != nil {
		return settings.AppSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	stored, _ := settings.FromRecords(records)

	merged := settings.Resolve(mergeOverrides(stored, overrides))
	if err := merged.Validate(); err != nil {
		return settings.AppSettings{}, &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: err.Error(),
		}
	}

	updates, err := settings.ToRecords(overrides)
	if err != nil {
		return settings.AppSettings{}, fmt.Errorf("failed to encode settings: %w", err)
	}
	if len(updates) > 0 {
		if err := s.settingsRepo.Upsert(ctx, updates); err != nil {
			return settings.AppSettings{}, fmt.Errorf("failed to store settings: %w", err)
		}
		// burn, prices and haircuts feed the cached liquidity and health views
		if s.cache != nil {
			if err := s.cache.InvalidateAll(ctx); err != nil {
				logging.FromContext(ctx).WithError(err).Warn("Failed to invalidate analytics cache")
			}
		}
	}

	return merged, nil
}

// mergeOverrides lays next over base field by field
func mergeOverrides(base, next settings.Overrides) settings.Overrides {
	out := base
	if next.FxUsdAud != nil {
		out.FxUsdAud = next.FxUsdAud
	}
	if next.EthPriceUsd != nil {
		out.EthPriceUsd = next.EthPriceUsd
	}
	if next.MonthlyBurnAud != nil {
		out.MonthlyBurnAud = next.MonthlyBurnAud
	}
	if next.HaircutImmediate != nil {
		out.HaircutImmediate = next.HaircutImmediate
	}
	if next.HaircutFast != nil {
		out.HaircutFast = next.HaircutFast
	}
	if next.HaircutSlow != nil {
		out.HaircutSlow = next.HaircutSlow
	}
	if next.Stablecoins != nil {
		out.Stablecoins = next.Stablecoins
	}
	if next.MajorTokens != nil {
		out.MajorTokens = next.MajorTokens
	}
	if next.EVMRPCURLs != nil {
		out.EVMRPCURLs = next.EVMRPCURLs
	}
	if next.SolanaRPCURLs != nil {
		out.SolanaRPCURLs = next.SolanaRPCURLs
	}
	if next.SolMinValueAud != nil {
		out.SolMinValueAud = next.SolMinValueAud
	}
	return out
}
