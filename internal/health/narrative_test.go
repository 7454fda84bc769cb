package health

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

func TestRiskNarrative(t *testing.T) {
	tests := []struct {
		name     string
		holdings []models.Holding
		want     string
	}{
		{
			name:     "empty",
			holdings: nil,
			want:     "No holdings to analyze.",
		},
		{
			name: "crypto heavy",
			holdings: []models.Holding{
				holding("PEPE", 80, types.TierSlow, types.ExposureCrypto, types.SourceEVM),
				holding("USDC", 20, types.TierImmediate, types.ExposureStablecoin, types.SourceEVM),
			},
			want: "Your portfolio is currently positioned for: continued crypto bull market and risk-on environment, outsized performance from PEPE, with concentrated downside risk.",
		},
		{
			name: "defensive",
			holdings: []models.Holding{
				holding("Savings", 60, types.TierImmediate, types.ExposureCash, types.SourceBank),
				holding("USDC", 25, types.TierImmediate, types.ExposureStablecoin, types.SourceEVM),
				holding("SOL", 15, types.TierFast, types.ExposureCrypto, types.SourceSOL),
			},
			want: "Your portfolio is currently positioned for: balanced liquidity for opportunistic deployment, outsized performance from Savings, with concentrated downside risk, capital preservation and defensive positioning.",
		},
		{
			name: "balanced",
			holdings: []models.Holding{
				holding("ETH", 20, types.TierFast, types.ExposureETH, types.SourceEVM),
				holding("WBTC", 20, types.TierFast, types.ExposureBTC, types.SourceEVM),
				holding("Savings", 20, types.TierImmediate, types.ExposureCash, types.SourceBank),
				holding("VAS", 20, types.TierSlow, types.ExposureEquity, types.SourceEquities),
				holding("House", 20, types.TierSlow, types.ExposureRealEstate, types.SourceRealEstate),
			},
			want: "Your portfolio is currently positioned for: balanced market exposure across multiple asset classes.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskNarrative(tt.holdings, sum(tt.holdings)); got != tt.want {
				t.Errorf("RiskNarrative() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionItems(t *testing.T) {
	cryptoOnly := []models.Holding{
		holding("PEPE", 90, types.TierSlow, types.ExposureCrypto, types.SourceEVM),
		holding("SOL", 10, types.TierFast, types.ExposureCrypto, types.SourceSOL),
	}

	t.Run("capped at three", func(t *testing.T) {
		scores := Scores{
			Liquidity:       LiquidityScore{Score: 30, MonthsRunway: 1},
			Concentration:   ConcentrationScore{Score: 40},
			Diversification: DiversificationScore{Score: 20},
			Volatility:      VolatilityScore{Score: 30, MaxDrawdown: 45.5},
		}
		got := ActionItems(cryptoOnly, 100, scores)
		assert.Equal(t, []string{
			"Liquidity is low (1 months runway) — consider increasing stablecoin allocation",
			"Consider taking profits on PEPE — it represents 90% of portfolio",
			"Portfolio has no non-crypto assets — consider diversification for risk management",
		}, got)
	})

	t.Run("volatility", func(t *testing.T) {
		scores := Scores{
			Liquidity:       LiquidityScore{Score: 60},
			Concentration:   ConcentrationScore{Score: 90},
			Diversification: DiversificationScore{Score: 90},
			Volatility:      VolatilityScore{Score: 20, MaxDrawdown: 45.5},
		}
		got := ActionItems(cryptoOnly, 100, scores)
		assert.Equal(t, []string{"High volatility (45.5% max drawdown) — consider increasing stable allocations"}, got)

		scores.Volatility.MaxDrawdown = 60
		got = ActionItems(cryptoOnly, 100, scores)
		assert.Equal(t, []string{"High volatility (60% max drawdown) — consider increasing stable allocations"}, got)
	})

	t.Run("non-crypto assets suppress diversification item", func(t *testing.T) {
		holdings := append([]models.Holding{holding("Car", 5, types.TierSlow, types.ExposureCar, types.SourceCar)}, cryptoOnly...)
		scores := Scores{
			Liquidity:       LiquidityScore{Score: 90},
			Concentration:   ConcentrationScore{Score: 90},
			Diversification: DiversificationScore{Score: 20},
			Volatility:      VolatilityScore{Score: 90},
		}
		got := ActionItems(holdings, 105, scores)
		assert.Equal(t, []string{"No immediate actions recommended. Portfolio health is good."}, got)
	})
}
