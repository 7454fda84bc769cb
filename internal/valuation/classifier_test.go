package valuation

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
)

func TestClassifyExposure(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		source types.HoldingSource
		want   types.ExposureType
	}{
		{"wbtc", "WBTC", types.SourceEVM, types.ExposureBTC},
		{"lowercase eth", "eth", types.SourceEVM, types.ExposureETH},
		{"weth", "WETH", types.SourceEVM, types.ExposureETH},
		{"jlp", "JLP", types.SourceSOL, types.ExposureJLP},
		{"frax", "FRAX", types.SourceEVM, types.ExposureStablecoin},
		{"symbol beats source", "USDC", types.SourceBank, types.ExposureStablecoin},
		{"bank", "Savings", types.SourceBank, types.ExposureCash},
		{"giftcard", "Voucher", types.SourceGiftcard, types.ExposureCash},
		{"real estate", "House", types.SourceRealEstate, types.ExposureRealEstate},
		{"nft", "Punk", types.SourceNFT, types.ExposureNFT},
		{"car", "Ute", types.SourceCar, types.ExposureCar},
		{"collectible", "Watch", types.SourceCollectible, types.ExposureCollectible},
		{"superannuation", "Super", types.SourceSuperannuation, types.ExposureEquity},
		{"equities", "VAS", types.SourceEquities, types.ExposureEquity},
		{"misc", "Stuff", types.SourceMisc, types.ExposureOthers},
		{"sol", "SOL", types.SourceSOL, types.ExposureCrypto},
		{"hype", "HYPE", types.SourceHYPE, types.ExposureCrypto},
		{"manual stablecoin", "PYUSD", types.SourceStablecoin, types.ExposureStablecoin},
		{"source rule beats altcoin list", "SOL", types.SourceEquities, types.ExposureEquity},
		{"unknown token", "PEPE", types.SourceEVM, types.ExposureCrypto},
		{"airdrop", "Claim", types.SourceAirdrop, types.ExposureCrypto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyExposure(tt.symbol, tt.source); got != tt.want {
				t.Errorf("ClassifyExposure(%q, %q) = %v, want %v", tt.symbol, tt.source, got, tt.want)
			}
		})
	}
}

func TestClassifyLiquidity(t *testing.T) {
	s := settings.Defaults()

	tests := []struct {
		symbol string
		want   types.LiquidityTier
	}{
		{"USDC", types.TierImmediate},
		{"DAI", types.TierImmediate},
		{"ETH", types.TierFast},
		{"WBTC", types.TierFast},
		{"usdc", types.TierSlow},
		{"FRAX", types.TierSlow},
		{"PEPE", types.TierSlow},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			if got := ClassifyLiquidity(tt.symbol, s); got != tt.want {
				t.Errorf("ClassifyLiquidity(%q) = %v, want %v", tt.symbol, got, tt.want)
			}
		})
	}
}

func TestClassifyManualLiquidity(t *testing.T) {
	tests := []struct {
		assetType types.HoldingSource
		want      types.LiquidityTier
	}{
		{types.SourceBank, types.TierImmediate},
		{types.SourceCash, types.TierImmediate},
		{types.SourceStablecoin, types.TierImmediate},
		{types.SourceGiftcard, types.TierImmediate},
		{types.SourceCrypto, types.TierFast},
		{types.SourceSuperannuation, types.TierSlow},
		{types.SourceRealEstate, types.TierSlow},
		{types.SourceMisc, types.TierSlow},
		{types.SourceAirdrop, types.TierSlow},
	}

	for _, tt := range tests {
		t.Run(string(tt.assetType), func(t *testing.T) {
			if got := ClassifyManualLiquidity(tt.assetType); got != tt.want {
				t.Errorf("ClassifyManualLiquidity(%q) = %v, want %v", tt.assetType, got, tt.want)
			}
		})
	}
}

func TestClassifyMarketLiquidityHyperliquid(t *testing.T) {
	s := settings.Defaults()
	if got := ClassifyMarketLiquidity("USDC", types.SourceHYPE, s); got != types.TierImmediate {
		t.Errorf("hyperliquid USDC = %v, want IMMEDIATE", got)
	}
	if got := ClassifyMarketLiquidity("PURR", types.SourceHYPE, s); got != types.TierFast {
		t.Errorf("hyperliquid PURR = %v, want FAST", got)
	}
	if got := ClassifyMarketLiquidity("PURR", types.SourceEVM, s); got != types.TierSlow {
		t.Errorf("evm PURR = %v, want SLOW", got)
	}
}

func TestClassifierTotality(t *testing.T) {
	s := settings.Defaults()
	properties := gopter.NewProperties(nil)

	properties.Property("exposure is always in the vocabulary", prop.ForAll(
		func(symbol, source string) bool {
			return ClassifyExposure(symbol, types.HoldingSource(source)).Valid()
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("liquidity is always a known tier", prop.ForAll(
		func(symbol string) bool {
			return ClassifyLiquidity(symbol, s).Valid()
		},
		gen.AnyString(),
	))

	properties.Property("unknown symbols and sources default to CRYPTO and SLOW", prop.ForAll(
		func(symbol string) bool {
			sym := "ZZ" + symbol
			return ClassifyExposure(sym, "UNKNOWN") == types.ExposureCrypto &&
				ClassifyLiquidity(sym, s) == types.TierSlow
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
