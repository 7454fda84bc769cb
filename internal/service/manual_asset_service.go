package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/storage"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

// MaxManualAssets caps the number of stored manual assets
const MaxManualAssets = 200

// ManualAssetRepository interface for manual asset data operations
type ManualAssetRepository interface {
	List(ctx context.Context) ([]models.ManualAsset, error)
	GetByID(ctx context.Context, id string) (*models.ManualAsset, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, a *models.ManualAsset) error
	Update(ctx context.Context, a *models.ManualAsset) error
	Delete(ctx context.Context, id string) error
}

// ManualAssetService manages user-entered assets
type ManualAssetService struct {
	manualRepo ManualAssetRepository
}

// NewManualAssetService creates a new manual asset service
func NewManualAssetService(manualRepo ManualAssetRepository) *ManualAssetService {
	return &ManualAssetService{manualRepo: manualRepo}
}

// ManualAssetInput represents input for creating or replacing a manual asset. Currency
// defaults to AUD.
type ManualAssetInput struct {
	Type                types.HoldingSource `json:"type"`
	Name                string              `json:"name"`
	ValueAud            float64             `json:"valueAud"`
	Currency            types.Currency      `json:"currency"`
	Quantity            *float64            `json:"quantity"`
	Notes               *string             `json:"notes"`
	InvestmentDate      *time.Time          `json:"investmentDate"`
	InvestmentAmount    *float64            `json:"investmentAmount"`
	InvestmentValuation *float64            `json:"investmentValuation"`
	TradfiSystem        bool                `json:"tradfiSystem"`
	ExposureType        *types.ExposureType `json:"exposureType"`
}

func (in ManualAssetInput) toModel(id string) *models.ManualAsset {
	currency := in.Currency
	if currency == "" {
		currency = types.CurrencyAUD
	}
	exposure := in.ExposureType
	if exposure != nil && *exposure == "" {
		exposure = nil
	}
	return &models.ManualAsset{
		ID:                  id,
		Type:                in.Type,
		Name:                strings.TrimSpace(in.Name),
		NativeAmount:        in.ValueAud,
		Currency:            currency,
		Quantity:            in.Quantity,
		Notes:               trimmed(in.Notes),
		InvestmentDate:      in.InvestmentDate,
		InvestmentAmount:    in.InvestmentAmount,
		InvestmentValuation: in.InvestmentValuation,
		TradfiSystem:        in.TradfiSystem,
		ExposureType:        exposure,
	}
}

// List returns every manual asset
func (s *ManualAssetService) List(ctx context.Context) ([]models.ManualAsset, error) {
	assets, err := s.manualRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual assets: %w", err)
	}
	if assets == nil {
		assets = []models.ManualAsset{}
	}
	return assets, nil
}

// Create validates and stores a new manual asset
func (s *ManualAssetService) Create(ctx context.Context, input ManualAssetInput) (*models.ManualAsset, error) {
	asset := input.toModel("")
	if err := valuation.ValidateManualAsset(asset); err != nil {
		return nil, invalidInput(err.Error())
	}

	count, err := s.manualRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count manual assets: %w", err)
	}
	if count >= MaxManualAssets {
		return nil, apperrors.NewLimitReachedError(types.CodeManualAssetLimitReached, "manual asset", MaxManualAssets)
	}

	if err := s.manualRepo.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to create manual asset: %w", err)
	}
	return asset, nil
}

// Update replaces a manual asset
func (s *ManualAssetService) Update(ctx context.Context, id string, input ManualAssetInput) (*models.ManualAsset, error) {
	asset := input.toModel(id)
	if err := valuation.ValidateManualAsset(asset); err != nil {
		return nil, invalidInput(err.Error())
	}

	if err := s.manualRepo.Update(ctx, asset); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, manualAssetNotFound(id)
		}
		return nil, fmt.Errorf("failed to update manual asset: %w", err)
	}
	return asset, nil
}

// Delete removes a manual asset
func (s *ManualAssetService) Delete(ctx context.Context, id string) error {
	if err := s.manualRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return manualAssetNotFound(id)
		}
		return fmt.Errorf("failed to delete manual asset: %w", err)
	}
	return nil
}

func manualAssetNotFound(id string) *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeManualAssetNotFound,
		Message: fmt.Sprintf("manual asset %s not found", id),
		Details: map[string]interface{}{"id": id},
	}
}
