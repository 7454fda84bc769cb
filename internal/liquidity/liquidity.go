// Package liquidity buckets holdings by liquidity tier, applies haircuts and runs stress
// scenarios against a monthly burn rate.
package liquidity

import (
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
)

// FreezeSlowHaircut replaces the SLOW haircut in the liquidity freeze scenario
const FreezeSlowHaircut = 0.7

// Bucket is the value held in one liquidity tier
type Bucket struct {
	Tier         types.LiquidityTier `json:"tier"`
	AssetsAud    float64             `json:"assetsAud"`
	AfterHaircut float64             `json:"afterHaircut"`
	RunwayMonths float64             `json:"runwayMonths"`
}

// Scenario is the outcome of a stress test
type Scenario struct {
	Name               string  `json:"name"`
	NetWorth           float64 `json:"netWorth"`
	ImmediateLiquidity float64 `json:"immediateLiquidity"`
	Runway             float64 `json:"runway"`
}

// ValueTransform returns the stressed value of a holding
type ValueTransform func(h models.Holding) float64

// Haircuts maps each tier to its haircut fraction
type Haircuts map[types.LiquidityTier]float64

// HaircutsFrom reads the configured haircuts
func HaircutsFrom(s settings.AppSettings) Haircuts {
	return Haircuts{
		types.TierImmediate: s.HaircutImmediate,
		types.TierFast:      s.HaircutFast,
		types.TierSlow:      s.HaircutSlow,
	}
}

func runway(amount, burn float64) float64 {
	if burn > 0 {
		return amount / burn
	}
	return 0
}

// Bucketize returns one bucket per tier in IMMEDIATE, FAST, SLOW order
func Bucketize(holdings []models.Holding, s settings.AppSettings) []Bucket {
	totals := make(map[types.LiquidityTier]float64, len(types.LiquidityTiers))
	for _, h := range holdings {
		totals[h.LiquidityTier] += h.ValueAud
	}

	haircuts := HaircutsFrom(s)
	buckets := make([]Bucket, 0, len(types.LiquidityTiers))
	for _, tier := range types.LiquidityTiers {
		assets := totals[tier]
		after := assets * (1 - haircuts[tier])
		buckets = append(buckets, Bucket{
			Tier:         tier,
			AssetsAud:    assets,
			AfterHaircut: after,
			RunwayMonths: runway(after, s.MonthlyBurnAud),
		})
	}
	return buckets
}

// RunScenario applies a value transform to every holding and recomputes net worth and
// IMMEDIATE+FAST liquidity after haircuts. freezeSlow raises the SLOW haircut to
// FreezeSlowHaircut; SLOW value never counts toward liquidity, so it only matters to callers
// that read the haircut table.
func RunScenario(holdings []models.Holding, s settings.AppSettings, transform ValueTransform, freezeSlow bool) Scenario {
	haircuts := HaircutsFrom(s)
	if freezeSlow {
		haircuts[types.TierSlow] = FreezeSlowHaircut
	}

	var netWorth, liquid float64
	for _, h := range holdings {
		v := transform(h)
		netWorth += v
		if h.LiquidityTier == types.TierImmediate || h.LiquidityTier == types.TierFast {
			liquid += v * (1 - haircuts[h.LiquidityTier])
		}
	}

	return Scenario{
		NetWorth:           netWorth,
		ImmediateLiquidity: liquid,
		Runway:             runway(liquid, s.MonthlyBurnAud),
	}
}

func isChainCrypto(h models.Holding) bool {
	return h.Source == types.SourceEVM || h.Source == types.SourceSOL
}

// ShockCrypto scales EVM and SOL holdings by factor
func ShockCrypto(factor float64) ValueTransform {
	return func(h models.Holding) float64 {
		if isChainCrypto(h) {
			return h.ValueAud * factor
		}
		return h.ValueAud
	}
}

// ShockSymbol scales every holding carrying symbol by factor
func ShockSymbol(symbol string, factor float64) ValueTransform {
	return func(h models.Holding) float64 {
		if h.Symbol == symbol {
			return h.ValueAud * factor
		}
		return h.ValueAud
	}
}

// Unchanged leaves values as they are
func Unchanged(h models.Holding) float64 {
	return h.ValueAud
}

// largestChainHolding finds the most valuable single EVM or SOL holding
func largestChainHolding(holdings []models.Holding) (string, float64) {
	var symbol string
	var value float64
	for _, h := range holdings {
		if isChainCrypto(h) && h.ValueAud > value {
			symbol, value = h.Symbol, h.ValueAud
		}
	}
	return symbol, value
}

// StressScenarios runs the four canonical scenarios against a snapshot. The liquidity freeze
// reports the unstressed net worth since it models a market freeze rather than a price shock.
func StressScenarios(snapshot *models.Snapshot, s settings.AppSettings) []Scenario {
	largest, _ := largestChainHolding(snapshot.Holdings)

	crypto30 := RunScenario(snapshot.Holdings, s, ShockCrypto(0.7), false)
	crypto30.Name = "Crypto -30%"

	crypto50 := RunScenario(snapshot.Holdings, s, ShockCrypto(0.5), false)
	crypto50.Name = "Crypto -50%"

	largest60 := RunScenario(snapshot.Holdings, s, ShockSymbol(largest, 0.4), false)
	largest60.Name = "Largest (" + largest + ") -60%"

	freeze := RunScenario(snapshot.Holdings, s, Unchanged, true)
	freeze.Name = "Liquidity freeze (SLOW → 70% haircut)"
	freeze.NetWorth = snapshot.TotalAud

	return []Scenario{crypto30, crypto50, largest60, freeze}
}
