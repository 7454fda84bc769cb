package valuation

import (
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
)

// MarketPosition is a raw on-chain balance before pricing and classification
type MarketPosition struct {
	AssetKey string
	Source   types.HoldingSource
	WalletID *string
	Symbol   string
	Quantity float64
}

// ValueMarket converts a market position to AUD. Nil and zero prices contribute nothing.
func ValueMarket(quantity float64, priceUsd *float64, fxUsdAud float64) float64 {
	if priceUsd == nil || *priceUsd <= 0 {
		return 0
	}
	return *priceUsd * fxUsdAud * quantity
}

// ValueManualAsset converts a manual asset's native amount to AUD
func ValueManualAsset(asset *models.ManualAsset, fxUsdAud, ethPriceUsd float64) float64 {
	if IsZeroValued(asset.Type) {
		return 0
	}

	amount := asset.NativeAmount * asset.EffectiveQuantity()
	switch asset.Currency {
	case types.CurrencyETH:
		return amount * ethPriceUsd * fxUsdAud
	case types.CurrencyUSD:
		return amount * fxUsdAud
	default:
		return amount
	}
}

// IsZeroValued reports whether a manual asset type is informational only and excluded from
// net worth
func IsZeroValued(assetType types.HoldingSource) bool {
	return assetType == types.SourceAirdrop || assetType == types.SourcePrivateInvestment
}

// NewMarketHolding prices and classifies a market position
func NewMarketHolding(pos MarketPosition, priceUsd *float64, s settings.AppSettings) models.Holding {
	var price *float64
	if priceUsd != nil {
		p := *priceUsd
		price = &p
	}

	return models.Holding{
		AssetKey:      pos.AssetKey,
		Source:        pos.Source,
		WalletID:      pos.WalletID,
		Symbol:        pos.Symbol,
		Quantity:      pos.Quantity,
		PriceUsd:      price,
		ValueAud:      ValueMarket(pos.Quantity, price, s.FxUsdAud),
		LiquidityTier: ClassifyMarketLiquidity(pos.Symbol, pos.Source, s),
		ExposureType:  ClassifyExposure(pos.Symbol, pos.Source),
	}
}

// NewManualHolding values and classifies a manual asset. The asset name doubles as the symbol.
func NewManualHolding(asset *models.ManualAsset, s settings.AppSettings, ethPriceUsd float64) models.Holding {
	exposure := ClassifyExposure(asset.Name, asset.Type)
	if asset.ExposureType != nil && *asset.ExposureType != "" {
		exposure = *asset.ExposureType
	}

	var price *float64
	if asset.Currency == types.CurrencyETH {
		p := ethPriceUsd
		price = &p
	}

	return models.Holding{
		AssetKey:      ManualKey(asset),
		Source:        asset.Type,
		Symbol:        asset.Name,
		Quantity:      asset.EffectiveQuantity(),
		PriceUsd:      price,
		ValueAud:      ValueManualAsset(asset, s.FxUsdAud, ethPriceUsd),
		LiquidityTier: ClassifyManualLiquidity(asset.Type),
		ExposureType:  exposure,
	}
}
