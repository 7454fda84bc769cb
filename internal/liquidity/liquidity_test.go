package liquidity

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

func withBurn(burn float64) settings.AppSettings {
	return settings.Resolve(settings.Overrides{MonthlyBurnAud: &burn})
}

func TestBucketize(t *testing.T) {
	holdings := []models.Holding{
		{Symbol: "USDC", ValueAud: 1000, Source: types.SourceEVM, LiquidityTier: types.TierImmediate},
		{Symbol: "ETH", ValueAud: 9000, Source: types.SourceEVM, LiquidityTier: types.TierFast},
	}

	buckets := Bucketize(holdings, withBurn(2000))

	require.Len(t, buckets, 3)
	assert.Equal(t, types.TierImmediate, buckets[0].Tier)
	assert.Equal(t, 1000.0, buckets[0].AssetsAud)
	assert.Equal(t, 1000.0, buckets[0].AfterHaircut)
	assert.InDelta(t, 0.5, buckets[0].RunwayMonths, 1e-9)

	assert.Equal(t, types.TierFast, buckets[1].Tier)
	assert.Equal(t, 9000.0, buckets[1].AssetsAud)
	assert.InDelta(t, 8100, buckets[1].AfterHaircut, 1e-9)
	assert.InDelta(t, 4.05, buckets[1].RunwayMonths, 1e-9)

	assert.Equal(t, types.TierSlow, buckets[2].Tier)
	assert.Equal(t, 0.0, buckets[2].AssetsAud)
}

func TestBucketizeZeroBurn(t *testing.T) {
	holdings := []models.Holding{{ValueAud: 1000, LiquidityTier: types.TierImmediate}}
	for _, b := range Bucketize(holdings, withBurn(0)) {
		assert.Equal(t, 0.0, b.RunwayMonths)
	}
}

func TestRunwayMonotonicity(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("higher burn never lengthens runway", prop.ForAll(
		func(values []float64, burn, extra float64) bool {
			holdings := make([]models.Holding, len(values))
			for i, v := range values {
				holdings[i] = models.Holding{ValueAud: v, LiquidityTier: types.LiquidityTiers[i%3]}
			}
			low := Bucketize(holdings, withBurn(burn))
			high := Bucketize(holdings, withBurn(burn+extra))
			for i := range low {
				if high[i].RunwayMonths > low[i].RunwayMonths {
					return false
				}
				if low[i].AfterHaircut > 0 && !(high[i].RunwayMonths < low[i].RunwayMonths) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 1e6)),
		gen.Float64Range(1, 1e5),
		gen.Float64Range(1, 1e5),
	))

	properties.TestingRun(t)
}

func stressSnapshot() *models.Snapshot {
	return valuation.NewSnapshot("s1", time.Now(), 1.5, []models.Holding{
		{Symbol: "USDC", ValueAud: 1000, Source: types.SourceEVM, LiquidityTier: types.TierImmediate},
		{Symbol: "ETH", ValueAud: 9000, Source: types.SourceEVM, LiquidityTier: types.TierFast},
		{Symbol: "SOL", ValueAud: 2000, Source: types.SourceSOL, LiquidityTier: types.TierFast},
		{Symbol: "Savings", ValueAud: 5000, Source: types.SourceBank, LiquidityTier: types.TierImmediate},
		{Symbol: "House", ValueAud: 100000, Source: types.SourceRealEstate, LiquidityTier: types.TierSlow},
	})
}

func TestStressScenarios(t *testing.T) {
	snap := stressSnapshot()
	s := withBurn(2000)

	scenarios := StressScenarios(snap, s)
	require.Len(t, scenarios, 4)

	crypto30 := scenarios[0]
	assert.Equal(t, "Crypto -30%", crypto30.Name)
	assert.InDelta(t, 117000-12000*0.3, crypto30.NetWorth, 1e-6)
	// USDC 700 + ETH 6300*0.9 + SOL 1400*0.9 + bank 5000
	assert.InDelta(t, 700+5670+1260+5000, crypto30.ImmediateLiquidity, 1e-6)
	assert.InDelta(t, (700+5670+1260+5000)/2000.0, crypto30.Runway, 1e-9)

	crypto50 := scenarios[1]
	assert.Equal(t, "Crypto -50%", crypto50.Name)
	assert.InDelta(t, 117000-6000, crypto50.NetWorth, 1e-6)

	largest := scenarios[2]
	assert.Equal(t, "Largest (ETH) -60%", largest.Name)
	assert.InDelta(t, 117000-5400, largest.NetWorth, 1e-6)

	freeze := scenarios[3]
	assert.Equal(t, "Liquidity freeze (SLOW → 70% haircut)", freeze.Name)
	assert.Equal(t, snap.TotalAud, freeze.NetWorth)
	assert.InDelta(t, 1000+8100+1800+5000, freeze.ImmediateLiquidity, 1e-6)
}

func TestRunScenarioZeroBurn(t *testing.T) {
	got := RunScenario(stressSnapshot().Holdings, withBurn(0), Unchanged, false)
	assert.Equal(t, 0.0, got.Runway)
	assert.Greater(t, got.ImmediateLiquidity, 0.0)
}

func TestSummarize(t *testing.T) {
	snap := stressSnapshot()

	t.Run("bounded", func(t *testing.T) {
		sum := Summarize(snap, withBurn(2000), 0)
		assert.Equal(t, StatusCaution, sum.Status)
		assert.Equal(t, "8 months", sum.FastRunway)
		assert.Equal(t, "3 months", sum.ImmediateRunway)
		assert.Equal(t, 2000.0, sum.NetBurnAud)
		assert.Len(t, sum.Buckets, 3)
		assert.Len(t, sum.Scenarios, 4)
		assert.Contains(t, sum.Insights.Strengths, "3 months in instant-access funds")
		assert.Contains(t, sum.Insights.Considerations, "Runway of 8 months is adequate but could be stronger")
		assert.Contains(t, sum.Insights.Warnings, "Warning: Only 13.6% of assets are liquid")
	})

	t.Run("income covers burn", func(t *testing.T) {
		sum := Summarize(snap, withBurn(2000), 2500)
		assert.Equal(t, Unbounded, sum.FastRunway)
		assert.Equal(t, StatusHealthy, sum.Status)
		assert.Contains(t, sum.Insights.Strengths, "Strong runway of ∞")
	})
}

func TestFormatRunway(t *testing.T) {
	tests := []struct {
		months float64
		want   string
	}{
		{0, "0 months"},
		{math.NaN(), "0 months"},
		{math.Inf(1), "0 months"},
		{1, "1 month"},
		{4.05, "4 months"},
		{12, "1 year"},
		{24.2, "2 years"},
		{15, "1y 3mo"},
		{11.7, "1 year"},
		{30.4, "2y 6mo"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatRunway(tt.months); got != tt.want {
				t.Errorf("FormatRunway(%v) = %q, want %q", tt.months, got, tt.want)
			}
		})
	}
}

func TestFormatNetRunway(t *testing.T) {
	assert.Equal(t, Unbounded, FormatNetRunway(10000, 3000, 3000))
	assert.Equal(t, Unbounded, FormatNetRunway(10000, 3000, 4000))
	assert.Equal(t, "5 months", FormatNetRunway(10000, 3000, 1000))
}
