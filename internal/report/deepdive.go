package report

import (
	"math"
	"sort"
	"time"

	"github.com/portfolio-dashboard/internal/analytics"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

const (
	// MaxAnalyzedAssets caps the per-asset section of a deep dive
	MaxAnalyzedAssets = 10

	drawdownThreshold = 20.0
	daysPerMonth      = 30
)

// Recommendation is the per-asset suggestion of a deep dive
type Recommendation string

const (
	Hold             Recommendation = "Hold"
	ConsiderReducing Recommendation = "Consider Reducing"
	ConsiderAdding   Recommendation = "Consider Adding"
)

// AssetAnalysis is one symbol's weight and recent performance
type AssetAnalysis struct {
	Symbol           string         `json:"symbol"`
	CurrentValue     float64        `json:"currentValue"`
	PortfolioPercent float64        `json:"portfolioPercent"`
	Change30d        float64        `json:"change30d"`
	Change90d        float64        `json:"change90d"`
	Recommendation   Recommendation `json:"recommendation"`
}

// Correlation is a rough BTC sensitivity estimate derived from crypto weight alone. It is not a
// statistical correlation; no price series is involved.
type Correlation struct {
	BTCCorrelation float64 `json:"btcCorrelation"`
	BTCImpact      float64 `json:"btcImpact"` // portfolio percent lost if BTC drops 10%
}

// ScenarioResult is one row of the deep dive scenario table
type ScenarioResult struct {
	Scenario string  `json:"scenario"`
	Result   float64 `json:"result"`
	Impact   float64 `json:"impact"`
}

// HistoricalContext summarizes the tracked history
type HistoricalContext struct {
	TrackingMonths    int     `json:"trackingMonths"`
	GrowthPercent     float64 `json:"growthPercent"`
	DrawdownCount     int     `json:"drawdownCount"`
	AvgRecoveryMonths int     `json:"avgRecoveryMonths"` // naive estimate, not measured recoveries
}

// DeepDive extends the weekly brief with per-asset, correlation, scenario and history sections
type DeepDive struct {
	WeeklyBrief
	AssetAnalysis       []AssetAnalysis   `json:"assetAnalysis"`
	CorrelationAnalysis Correlation       `json:"correlationAnalysis"`
	ScenarioAnalysis    []ScenarioResult  `json:"scenarioAnalysis"`
	HistoricalContext   HistoricalContext `json:"historicalContext"`
}

// NewDeepDive builds the weekly brief and the extra deep dive sections. history must carry
// holdings for the per-asset look-backs.
func NewDeepDive(current, previous *models.Snapshot, history []models.Snapshot, monthlyBurn float64) DeepDive {
	weekly := NewWeeklyBrief(current, previous, history, monthlyBurn)
	weekly.Type = types.ReportDeepDive
	return DeepDive{
		WeeklyBrief:         weekly,
		AssetAnalysis:       AnalyzeAssets(current, history),
		CorrelationAnalysis: CorrelationProxy(current),
		ScenarioAnalysis:    Scenarios(current),
		HistoricalContext:   History(models.Points(history)),
	}
}

func sortedSnapshots(history []models.Snapshot) []models.Snapshot {
	sorted := make([]models.Snapshot, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// ClosestTo returns the snapshot nearest to daysAgo days before the latest one in sorted.
// Earlier snapshots win ties.
func ClosestTo(sorted []models.Snapshot, daysAgo int) *models.Snapshot {
	if len(sorted) == 0 {
		return nil
	}
	target := sorted[len(sorted)-1].CreatedAt.AddDate(0, 0, -daysAgo)

	closest := &sorted[0]
	best := absDuration(closest.CreatedAt.Sub(target))
	for i := range sorted {
		if d := absDuration(sorted[i].CreatedAt.Sub(target)); d < best {
			best = d
			closest = &sorted[i]
		}
	}
	return closest
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func changeFrom(past map[string]float64, symbol string, value float64) float64 {
	if before := past[symbol]; before > 0 {
		return (value - before) / before * 100
	}
	return 0
}

// AnalyzeAssets reviews the largest symbols of current against the snapshots closest to 30
// and 90 days before the latest one in history
func AnalyzeAssets(current *models.Snapshot, history []models.Snapshot) []AssetAnalysis {
	groups := valuation.GroupBySymbol(current.Holdings)
	if len(groups) > MaxAnalyzedAssets {
		groups = groups[:MaxAnalyzedAssets]
	}

	sorted := sortedSnapshots(history)
	past30 := map[string]float64{}
	if s := ClosestTo(sorted, 30); s != nil {
		past30 = valuation.SymbolValues(s.Holdings)
	}
	past90 := map[string]float64{}
	if s := ClosestTo(sorted, 90); s != nil {
		past90 = valuation.SymbolValues(s.Holdings)
	}

	analysis := make([]AssetAnalysis, 0, len(groups))
	for _, g := range groups {
		weight := percentOf(g.ValueAud, current.TotalAud)
		change30 := changeFrom(past30, g.Symbol, g.ValueAud)

		rec := Hold
		switch {
		case weight > 30:
			rec = ConsiderReducing
		case weight < 5 && change30 > 20:
			rec = ConsiderAdding
		}

		analysis = append(analysis, AssetAnalysis{
			Symbol:           g.Symbol,
			CurrentValue:     g.ValueAud,
			PortfolioPercent: round1(weight),
			Change30d:        round1(change30),
			Change90d:        round1(changeFrom(past90, g.Symbol, g.ValueAud)),
			Recommendation:   rec,
		})
	}
	return analysis
}

func exposureValue(holdings []models.Holding, exposure types.ExposureType) float64 {
	for _, g := range valuation.GroupByExposure(holdings) {
		if g.Key == string(exposure) {
			return g.ValueAud
		}
	}
	return 0
}

// CorrelationProxy scales the CRYPTO exposure weight into a BTC sensitivity estimate
func CorrelationProxy(current *models.Snapshot) Correlation {
	crypto := percentOf(exposureValue(current.Holdings, types.ExposureCrypto), current.TotalAud)
	return Correlation{
		BTCCorrelation: round(math.Min(95, crypto*0.9)),
		BTCImpact:      round1(crypto * 0.1),
	}
}

// Scenarios prices four shocks against current: crypto -30% and -50%, the largest symbol -50%
// and a 10% stablecoin depeg. The largest symbol row is omitted when there are no holdings.
func Scenarios(current *models.Snapshot) []ScenarioResult {
	crypto := exposureValue(current.Holdings, types.ExposureCrypto)
	stable := exposureValue(current.Holdings, types.ExposureStablecoin)

	shock := func(name string, loss float64) ScenarioResult {
		return ScenarioResult{Scenario: name, Result: current.TotalAud - loss, Impact: -loss}
	}

	results := []ScenarioResult{
		shock("Crypto market -30%", crypto*0.3),
		shock("Crypto market -50%", crypto*0.5),
	}
	if groups := valuation.GroupBySymbol(current.Holdings); len(groups) > 0 {
		results = append(results, shock(groups[0].Symbol+" -50%", groups[0].ValueAud*0.5))
	}
	return append(results, shock("Stablecoins depeg 10%", stable*0.1))
}

// History measures tracking length, growth and the number of separate drawdowns deeper than
// 20%. The recovery estimate spreads tracking months evenly over the drawdowns.
func History(points []models.ValuePoint) HistoricalContext {
	sorted := analytics.Sorted(points)
	if len(sorted) == 0 {
		return HistoricalContext{}
	}
	first, last := sorted[0], sorted[len(sorted)-1]

	ctx := HistoricalContext{
		TrackingMonths: int(last.CreatedAt.Sub(first.CreatedAt).Hours() / 24 / daysPerMonth),
		DrawdownCount:  analytics.DrawdownsOver(sorted, drawdownThreshold),
	}
	if first.TotalAud > 0 {
		ctx.GrowthPercent = round1((last.TotalAud - first.TotalAud) / first.TotalAud * 100)
	}
	if ctx.DrawdownCount > 0 {
		ctx.AvgRecoveryMonths = ctx.TrackingMonths / (ctx.DrawdownCount + 1)
	}
	return ctx
}
