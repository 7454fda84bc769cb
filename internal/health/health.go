// Package health scores a portfolio on liquidity, concentration, diversification and
// volatility. Breakpoints and rounding are fixed contracts; changing them changes stored
// reports.
package health

import (
	"fmt"
	"math"

	"github.com/portfolio-dashboard/internal/analytics"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

const (
	// UnboundedRunwayMonths stands in for runway when there is no burn
	UnboundedRunwayMonths = 999
	// VolatilityWindow is the number of most recent snapshots used for return dispersion
	VolatilityWindow = 30

	noHoldings = "No holdings to analyze"
)

// Color bands the overall score
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

// LiquidityScore rates IMMEDIATE-tier coverage of the monthly burn
type LiquidityScore struct {
	Score         int     `json:"score"`
	Explanation   string  `json:"explanation"`
	MonthsRunway  int     `json:"monthsRunway"`
	LiquidPercent float64 `json:"liquidPercent"`
}

// ConcentrationScore rates how much of the portfolio sits in the largest symbols
type ConcentrationScore struct {
	Score             int     `json:"score"`
	Explanation       string  `json:"explanation"`
	TopHoldingPercent float64 `json:"topHoldingPercent"`
	Top3Percent       float64 `json:"top3Percent"`
}

// DiversificationScore rates the spread across exposure types
type DiversificationScore struct {
	Score           int     `json:"score"`
	Explanation     string  `json:"explanation"`
	AssetClassCount int     `json:"assetClassCount"`
	TopClassPercent float64 `json:"topClassPercent"`
}

// VolatilityScore rates drawdown depth and return dispersion
type VolatilityScore struct {
	Score           int     `json:"score"`
	Explanation     string  `json:"explanation"`
	MaxDrawdown     float64 `json:"maxDrawdown"`
	MonthlyVariance float64 `json:"monthlyVariance"` // population std-dev of step returns, in percent
}

// Overall is the equal-weighted average of the four scores
type Overall struct {
	Score int   `json:"score"`
	Color Color `json:"color"`
}

// Scores is the full health assessment
type Scores struct {
	Liquidity       LiquidityScore       `json:"liquidity"`
	Concentration   ConcentrationScore   `json:"concentration"`
	Diversification DiversificationScore `json:"diversification"`
	Volatility      VolatilityScore      `json:"volatility"`
	Overall         Overall              `json:"overall"`
}

// round matches half-up rounding of the stored reports
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}

func round1(x float64) float64 {
	return round(x*10) / 10
}

func floorInt(x float64) int {
	return int(math.Floor(x))
}

func percentOf(value, total float64) float64 {
	return value / total * 100
}

// Liquidity scores IMMEDIATE-tier assets against total value and monthly burn
func Liquidity(holdings []models.Holding, totalValue, monthlyBurn float64) LiquidityScore {
	var liquid float64
	for _, h := range holdings {
		if h.LiquidityTier == types.TierImmediate {
			liquid += h.ValueAud
		}
	}

	var liquidPercent float64
	if totalValue > 0 {
		liquidPercent = percentOf(liquid, totalValue)
	}
	months := float64(UnboundedRunwayMonths)
	if monthlyBurn > 0 {
		months = liquid / monthlyBurn
	}
	whole := floorInt(months)

	var score int
	var explanation string
	switch {
	case months >= 24 && liquidPercent >= 30:
		score = 80 + min(20, floorInt((months-24)/12*10))
		explanation = fmt.Sprintf("Excellent liquidity with %d months runway", whole)
	case months >= 12 || liquidPercent >= 20:
		score = 60 + min(19, floorInt(months-12))
		explanation = fmt.Sprintf("Strong liquidity with %d months runway", whole)
	case months >= 6:
		score = 40 + min(19, floorInt((months-6)*3))
		explanation = fmt.Sprintf("Moderate liquidity with %d months runway", whole)
	default:
		score = min(39, floorInt(months*6))
		explanation = fmt.Sprintf("Low liquidity with only %d months runway", whole)
	}

	return LiquidityScore{
		Score:         score,
		Explanation:   explanation,
		MonthsRunway:  whole,
		LiquidPercent: round1(liquidPercent),
	}
}

// Concentration scores the largest and top three symbols by grouped value
func Concentration(holdings []models.Holding, totalValue float64) ConcentrationScore {
	if len(holdings) == 0 || totalValue == 0 {
		return ConcentrationScore{Score: 100, Explanation: noHoldings}
	}

	groups := valuation.GroupBySymbol(holdings)
	top := percentOf(groups[0].ValueAud, totalValue)
	var top3Value float64
	for i := 0; i < len(groups) && i < 3; i++ {
		top3Value += groups[i].ValueAud
	}
	top3 := percentOf(top3Value, totalValue)

	var score int
	var label string
	switch {
	case top <= 15 && top3 <= 40:
		score = 80 + min(20, floorInt((15-top)*2))
		label = "Well-diversified holdings"
	case top <= 25 && top3 <= 50:
		score = 60 + min(19, floorInt((25-top)*2))
		label = "Moderate concentration"
	case top <= 35 || top3 <= 65:
		score = 40 + min(19, floorInt(35-top))
		label = "High concentration"
	default:
		score = max(0, floorInt((50-top)*2))
		label = "Very high concentration"
	}

	return ConcentrationScore{
		Score:             score,
		Explanation:       fmt.Sprintf("%s, top asset is %d%%", label, int(round(top))),
		TopHoldingPercent: round1(top),
		Top3Percent:       round1(top3),
	}
}

func multipleChains(holdings []models.Holding) bool {
	chains := make(map[types.HoldingSource]bool)
	for _, h := range holdings {
		if h.Source.IsChain() {
			chains[h.Source] = true
		}
	}
	return len(chains) > 1
}

// Diversification scores the number of exposure types and the share of the largest one.
// Holdings spread over more than one chain earn a small bonus in the middle bands.
func Diversification(holdings []models.Holding, totalValue float64) DiversificationScore {
	if len(holdings) == 0 || totalValue == 0 {
		return DiversificationScore{Score: 100, Explanation: noHoldings}
	}

	groups := valuation.GroupByExposure(holdings)
	count := len(groups)
	topClass := percentOf(groups[0].ValueAud, totalValue)
	bonus := 0.0
	if multipleChains(holdings) {
		bonus = 5
	}
	n := float64(count)

	var score float64
	var explanation string
	switch {
	case count >= 5 && topClass <= 50:
		score = 80 + math.Min(20, (n-5)*4)
		explanation = fmt.Sprintf("Excellent diversification across %d asset classes", count)
	case count >= 4 && topClass <= 60:
		score = 70 + math.Min(9, (n-4)*5+bonus)
		explanation = fmt.Sprintf("Very good diversification with %d asset classes", count)
	case count >= 3 && topClass <= 70:
		score = 55 + math.Min(14, (n-3)*7+bonus)
		explanation = fmt.Sprintf("Good diversification with %d asset classes", count)
	case count >= 2 && topClass <= 80:
		score = 35 + math.Min(19, (n-2)*10+(100-topClass)/5)
		explanation = fmt.Sprintf("Moderate diversification across %d asset classes", count)
	case count >= 2:
		score = 20 + math.Min(14, (n-2)*5)
		explanation = fmt.Sprintf("Limited diversification, %d%% concentrated in one class", int(round(topClass)))
	default:
		score = math.Max(0, 20-math.Floor((topClass-80)/2))
		explanation = fmt.Sprintf("Very limited: only %d asset class with %d%% concentration", count, int(round(topClass)))
	}

	return DiversificationScore{
		Score:           int(round(score)),
		Explanation:     explanation,
		AssetClassCount: count,
		TopClassPercent: round1(topClass),
	}
}

// Volatility scores the full-history max drawdown and the dispersion of the most recent step
// returns. Fewer than two snapshots score 100 for lack of data.
func Volatility(history []models.ValuePoint) VolatilityScore {
	sorted := analytics.Sorted(history)
	if len(sorted) < 2 {
		return VolatilityScore{Score: 100, Explanation: "Insufficient history to calculate volatility"}
	}

	maxDD := 0.0
	for _, p := range analytics.DrawdownSeries(sorted) {
		if -p.Drawdown > maxDD {
			maxDD = -p.Drawdown
		}
	}

	recent := sorted
	if len(recent) > VolatilityWindow {
		recent = recent[len(recent)-VolatilityWindow:]
	}
	dispersion := analytics.StdDev(analytics.StepReturns(recent))

	var score int
	var label string
	switch {
	case maxDD < 15 && dispersion < 10:
		score = 80 + min(20, floorInt((15-maxDD)*2))
		label = "Low"
	case maxDD < 25 && dispersion < 15:
		score = 60 + min(19, floorInt(25-maxDD))
		label = "Moderate"
	case maxDD < 40 && dispersion < 20:
		score = 40 + min(19, floorInt((40-maxDD)/2))
		label = "High"
	default:
		score = max(0, 40-floorInt((maxDD-40)/2))
		label = "Very high"
	}

	return VolatilityScore{
		Score:           score,
		Explanation:     fmt.Sprintf("%s volatility with %d%% max drawdown", label, int(round(maxDD))),
		MaxDrawdown:     round1(maxDD),
		MonthlyVariance: round1(dispersion),
	}
}

// ColorFor bands an overall score
func ColorFor(score int) Color {
	switch {
	case score < 50:
		return ColorRed
	case score < 70:
		return ColorYellow
	default:
		return ColorGreen
	}
}

// Calculate computes every sub-score and the overall band
func Calculate(holdings []models.Holding, totalValue, monthlyBurn float64, history []models.ValuePoint) Scores {
	s := Scores{
		Liquidity:       Liquidity(holdings, totalValue, monthlyBurn),
		Concentration:   Concentration(holdings, totalValue),
		Diversification: Diversification(holdings, totalValue),
		Volatility:      Volatility(history),
	}
	avg := float64(s.Liquidity.Score+s.Concentration.Score+s.Diversification.Score+s.Volatility.Score) / 4
	overall := int(round(avg))
	s.Overall = Overall{Score: overall, Color: ColorFor(overall)}
	return s
}

// ForSnapshot scores a snapshot against its history
func ForSnapshot(snapshot *models.Snapshot, monthlyBurn float64, history []models.ValuePoint) Scores {
	return Calculate(snapshot.Holdings, snapshot.TotalAud, monthlyBurn, history)
}
