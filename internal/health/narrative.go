package health

import (
	"fmt"
	"strings"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

// MaxActionItems caps the recommendations returned by ActionItems
const MaxActionItems = 3

const narrativePrefix = "Your portfolio is currently positioned for: "

// exposureShares returns each exposure type's percentage of totalValue
func exposureShares(holdings []models.Holding, totalValue float64) map[types.ExposureType]float64 {
	shares := make(map[types.ExposureType]float64)
	for _, g := range valuation.GroupByExposure(holdings) {
		shares[types.ExposureType(g.Key)] = percentOf(g.ValueAud, totalValue)
	}
	return shares
}

// RiskNarrative describes what the current allocation is positioned for
func RiskNarrative(holdings []models.Holding, totalValue float64) string {
	if len(holdings) == 0 || totalValue == 0 {
		return noHoldings + "."
	}

	shares := exposureShares(holdings, totalValue)
	crypto := shares[types.ExposureCrypto]
	stable := shares[types.ExposureStablecoin]
	equity := shares[types.ExposureEquity]
	cash := shares[types.ExposureCash]
	top, _ := valuation.LargestHolding(holdings)
	topPercent := percentOf(top.ValueAud, totalValue)

	var phrases []string
	switch {
	case crypto > 70:
		phrases = append(phrases, "continued crypto bull market and risk-on environment")
	case crypto > 40:
		phrases = append(phrases, "moderate crypto exposure with upside in digital assets")
	}
	switch {
	case stable > 40:
		phrases = append(phrases, "market uncertainty or anticipated buying opportunity")
	case stable > 20:
		phrases = append(phrases, "balanced liquidity for opportunistic deployment")
	}
	if equity > 20 {
		phrases = append(phrases, "correlation between traditional and crypto markets remaining low")
	}
	if topPercent > 30 {
		phrases = append(phrases, fmt.Sprintf("outsized performance from %s, with concentrated downside risk", top.Symbol))
	}
	if cash > 50 {
		phrases = append(phrases, "capital preservation and defensive positioning")
	}
	if len(phrases) == 0 {
		phrases = append(phrases, "balanced market exposure across multiple asset classes")
	}

	return narrativePrefix + strings.Join(phrases, ", ") + "."
}

// ActionItems turns weak sub-scores into at most MaxActionItems recommendations
func ActionItems(holdings []models.Holding, totalValue float64, scores Scores) []string {
	var items []string

	if scores.Liquidity.Score < 50 {
		items = append(items, fmt.Sprintf("Liquidity is low (%d months runway) — consider increasing stablecoin allocation", scores.Liquidity.MonthsRunway))
	}

	if scores.Concentration.Score < 60 && totalValue > 0 {
		if groups := valuation.GroupBySymbol(holdings); len(groups) > 0 {
			topPercent := percentOf(groups[0].ValueAud, totalValue)
			if topPercent > 25 {
				items = append(items, fmt.Sprintf("Consider taking profits on %s — it represents %d%% of portfolio", groups[0].Symbol, int(round(topPercent))))
			}
		}
	}

	if scores.Diversification.Score < 50 && totalValue > 0 {
		shares := exposureShares(holdings, totalValue)
		hasNonCrypto := false
		for exposure := range shares {
			if exposure != types.ExposureCrypto && exposure != types.ExposureStablecoin {
				hasNonCrypto = true
				break
			}
		}
		if shares[types.ExposureCrypto] > 70 && !hasNonCrypto {
			items = append(items, "Portfolio has no non-crypto assets — consider diversification for risk management")
		}
	}

	if scores.Volatility.Score < 50 && scores.Liquidity.Score < 70 {
		items = append(items, fmt.Sprintf("High volatility (%s%% max drawdown) — consider increasing stable allocations", formatNumber(scores.Volatility.MaxDrawdown)))
	}

	if len(items) == 0 {
		items = append(items, "No immediate actions recommended. Portfolio health is good.")
	}
	if len(items) > MaxActionItems {
		items = items[:MaxActionItems]
	}
	return items
}

// formatNumber prints a one-decimal value without a trailing ".0"
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
