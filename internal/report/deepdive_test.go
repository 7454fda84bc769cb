package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

func deepDiveHistory() []models.Snapshot {
	// latest is Jan 9; Oct 11 is exactly 90 days earlier and Dec 10 exactly 30
	return []models.Snapshot{
		snapshot("s3", day(2025, time.January, 9), eth(6000), usdc(3000), savings(600), pepe(400)),
		snapshot("s1", day(2024, time.October, 11), eth(3000), usdc(3000), savings(600)),
		snapshot("s2", day(2024, time.December, 10), eth(5000), usdc(3000), savings(600), pepe(300)),
	}
}

func TestAnalyzeAssets(t *testing.T) {
	history := deepDiveHistory()
	current := history[0]

	got := AnalyzeAssets(&current, history)

	require.Len(t, got, 4)
	assert.Equal(t, AssetAnalysis{Symbol: "ETH", CurrentValue: 6000, PortfolioPercent: 60, Change30d: 20, Change90d: 100, Recommendation: ConsiderReducing}, got[0])
	assert.Equal(t, AssetAnalysis{Symbol: "USDC", CurrentValue: 3000, PortfolioPercent: 30, Recommendation: Hold}, got[1])
	assert.Equal(t, AssetAnalysis{Symbol: "Savings", CurrentValue: 600, PortfolioPercent: 6, Recommendation: Hold}, got[2])
	assert.Equal(t, AssetAnalysis{Symbol: "PEPE", CurrentValue: 400, PortfolioPercent: 4, Change30d: 33.3, Change90d: 0, Recommendation: ConsiderAdding}, got[3])
}

func TestAnalyzeAssetsWithoutHistory(t *testing.T) {
	current := snapshot("c", day(2025, time.January, 9), eth(100))
	got := AnalyzeAssets(&current, nil)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Change30d)
	assert.Zero(t, got[0].Change90d)
	assert.Equal(t, ConsiderReducing, got[0].Recommendation)
}

func TestAnalyzeAssetsCapsAtTen(t *testing.T) {
	var holdings []models.Holding
	for i := 0; i < 12; i++ {
		holdings = append(holdings, models.Holding{Symbol: string(rune('A' + i)), ValueAud: float64(100 - i)})
	}
	current := snapshot("c", day(2025, time.January, 9), holdings...)
	got := AnalyzeAssets(&current, nil)
	require.Len(t, got, MaxAnalyzedAssets)
	assert.Equal(t, "A", got[0].Symbol)
	assert.Equal(t, "J", got[9].Symbol)
}

func TestClosestTo(t *testing.T) {
	sorted := sortedSnapshots(deepDiveHistory())
	assert.Nil(t, ClosestTo(nil, 30))
	assert.Equal(t, "s2", ClosestTo(sorted, 30).ID)
	assert.Equal(t, "s1", ClosestTo(sorted, 90).ID)
	assert.Equal(t, "s3", ClosestTo(sorted, 0).ID)
	assert.Equal(t, "s1", ClosestTo(sorted, 400).ID)

	tie := []models.Snapshot{
		snapshot("a", day(2025, time.January, 1)),
		snapshot("b", day(2025, time.January, 3)),
		snapshot("c", day(2025, time.January, 4)),
	}
	assert.Equal(t, "a", ClosestTo(tie, 2).ID)
}

func TestCorrelationProxy(t *testing.T) {
	current := deepDiveHistory()[0]
	assert.Equal(t, Correlation{BTCCorrelation: 4, BTCImpact: 0.4}, CorrelationProxy(&current))

	allCrypto := snapshot("c", day(2025, time.January, 9), pepe(1000))
	assert.Equal(t, Correlation{BTCCorrelation: 90, BTCImpact: 10}, CorrelationProxy(&allCrypto))

	empty := snapshot("e", day(2025, time.January, 9))
	assert.Equal(t, Correlation{}, CorrelationProxy(&empty))
}

func TestScenarios(t *testing.T) {
	current := deepDiveHistory()[0]
	got := Scenarios(&current)

	require.Len(t, got, 4)
	want := []ScenarioResult{
		{Scenario: "Crypto market -30%", Result: 9880, Impact: -120},
		{Scenario: "Crypto market -50%", Result: 9800, Impact: -200},
		{Scenario: "ETH -50%", Result: 7000, Impact: -3000},
		{Scenario: "Stablecoins depeg 10%", Result: 9700, Impact: -300},
	}
	for i := range want {
		assert.Equal(t, want[i].Scenario, got[i].Scenario)
		assert.InDelta(t, want[i].Result, got[i].Result, 1e-9)
		assert.InDelta(t, want[i].Impact, got[i].Impact, 1e-9)
	}

	empty := snapshot("e", day(2025, time.January, 9))
	assert.Len(t, Scenarios(&empty), 3)
}

func TestHistory(t *testing.T) {
	assert.Equal(t, HistoricalContext{}, History(nil))

	values := []float64{100, 70, 110, 80, 120}
	points := make([]models.ValuePoint, len(values))
	for i, v := range values {
		points[i] = models.ValuePoint{ID: string(rune('a' + i)), CreatedAt: day(2024, time.January, 1).AddDate(0, 0, 60*i), TotalAud: v}
	}

	got := History(points)
	assert.Equal(t, HistoricalContext{TrackingMonths: 8, GrowthPercent: 20, DrawdownCount: 2, AvgRecoveryMonths: 2}, got)
}

func TestHistoryWithoutDrawdowns(t *testing.T) {
	got := History(models.Points(deepDiveHistory()))
	assert.Equal(t, 3, got.TrackingMonths)
	assert.Equal(t, 51.5, got.GrowthPercent)
	assert.Zero(t, got.DrawdownCount)
	assert.Zero(t, got.AvgRecoveryMonths)
}

func TestNewDeepDive(t *testing.T) {
	history := deepDiveHistory()
	current, previous := history[0], history[2]

	dive := NewDeepDive(&current, &previous, history, 2000)

	assert.Equal(t, types.ReportDeepDive, dive.Type)
	assert.Equal(t, "Dec 10 - Jan 9, 2025", dive.DateRange)
	assert.Len(t, dive.AssetAnalysis, 4)
	assert.Len(t, dive.ScenarioAnalysis, 4)
	assert.Equal(t, 3, dive.HistoricalContext.TrackingMonths)
	assert.Equal(t, NewWeeklyBrief(&current, &previous, history, 2000).ExecutiveSummary, dive.ExecutiveSummary)
}
