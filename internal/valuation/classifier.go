// Package valuation classifies holdings, converts them to AUD and aggregates them into
// snapshot totals and breakdowns. Every function here is pure.
package valuation

import (
	"slices"
	"strings"

	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
)

// ExposureRule maps a matching (symbol, source) pair to an exposure type.
// Symbols are upper-cased before matching.
type ExposureRule struct {
	Name     string
	Match    func(symbol string, source types.HoldingSource) bool
	Exposure types.ExposureType
}

// KnownStablecoins is the fixed stablecoin vocabulary used for exposure. It is independent of
// the configurable settings list, which only drives liquidity tiers.
var KnownStablecoins = []string{"USDC", "USDT", "DAI", "FRAX", "BUSD", "TUSD", "USDP", "GUSD"}

var majorAltcoins = []string{"SOL", "BNB", "MATIC", "AVAX", "HYPE"}

func symbolIn(set ...string) func(string, types.HoldingSource) bool {
	return func(symbol string, _ types.HoldingSource) bool {
		return slices.Contains(set, symbol)
	}
}

func sourceIn(set ...types.HoldingSource) func(string, types.HoldingSource) bool {
	return func(_ string, source types.HoldingSource) bool {
		return slices.Contains(set, source)
	}
}

// ExposureRules is evaluated top to bottom; the first match wins. Symbol checks precede
// source checks, specific before generic.
var ExposureRules = []ExposureRule{
	{"bitcoin", symbolIn("BTC", "WBTC"), types.ExposureBTC},
	{"ether", symbolIn("ETH", "WETH"), types.ExposureETH},
	{"jlp", symbolIn("JLP"), types.ExposureJLP},
	{"stablecoin symbol", symbolIn(KnownStablecoins...), types.ExposureStablecoin},
	{"cash source", sourceIn(types.SourceBank, types.SourceCash, types.SourceGiftcard), types.ExposureCash},
	{"real estate", sourceIn(types.SourceRealEstate), types.ExposureRealEstate},
	{"nft", sourceIn(types.SourceNFT), types.ExposureNFT},
	{"car", sourceIn(types.SourceCar), types.ExposureCar},
	{"collectible", sourceIn(types.SourceCollectible), types.ExposureCollectible},
	{"equity", sourceIn(types.SourceEquities, types.SourceSuperannuation), types.ExposureEquity},
	{"misc", sourceIn(types.SourceMisc), types.ExposureOthers},
	{"major altcoin", symbolIn(majorAltcoins...), types.ExposureCrypto},
	{"stablecoin source", sourceIn(types.SourceStablecoin), types.ExposureStablecoin},
}

// ClassifyExposure returns the exposure type for a symbol and source. Unknown inputs fall back
// to CRYPTO.
func ClassifyExposure(symbol string, source types.HoldingSource) types.ExposureType {
	upper := strings.ToUpper(symbol)
	for _, rule := range ExposureRules {
		if rule.Match(upper, source) {
			return rule.Exposure
		}
	}
	return types.ExposureCrypto
}

// ClassifyLiquidity returns the tier for a market-sourced symbol. Matching is case-sensitive
// against the configured lists.
func ClassifyLiquidity(symbol string, s settings.AppSettings) types.LiquidityTier {
	if slices.Contains(s.Stablecoins, symbol) {
		return types.TierImmediate
	}
	if slices.Contains(s.MajorTokens, symbol) {
		return types.TierFast
	}
	return types.TierSlow
}

var manualTiers = map[types.HoldingSource]types.LiquidityTier{
	types.SourceBank:       types.TierImmediate,
	types.SourceCash:       types.TierImmediate,
	types.SourceStablecoin: types.TierImmediate,
	types.SourceGiftcard:   types.TierImmediate,
	types.SourceCrypto:     types.TierFast,
}

// ClassifyManualLiquidity returns the tier for a manual asset, keyed by its type.
// Anything not cash-like or crypto is SLOW.
func ClassifyManualLiquidity(assetType types.HoldingSource) types.LiquidityTier {
	if tier, ok := manualTiers[assetType]; ok {
		return tier
	}
	return types.TierSlow
}

// ClassifyHyperliquidSpot returns the tier for a Hyperliquid spot balance
func ClassifyHyperliquidSpot(symbol string) types.LiquidityTier {
	if symbol == "USDC" {
		return types.TierImmediate
	}
	return types.TierFast
}

// ClassifyMarketLiquidity picks the rule path for a market-sourced holding
func ClassifyMarketLiquidity(symbol string, source types.HoldingSource, s settings.AppSettings) types.LiquidityTier {
	if source == types.SourceHYPE {
		return ClassifyHyperliquidSpot(symbol)
	}
	return ClassifyLiquidity(symbol, s)
}
