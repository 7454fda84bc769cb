// Package report composes the weekly brief, the deep dive and the markdown brief from
// snapshots. Nothing here reads the clock; every date comes from the snapshots passed in.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/portfolio-dashboard/internal/health"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

const (
	// MaxTopChanges caps the movers listed in a brief
	MaxTopChanges = 5

	alertTopHolding = 25.0
	alertTop3       = 60.0
	alertExposure   = 70.0
)

// AssetChange is a symbol-level value change between two snapshots
type AssetChange struct {
	Symbol        string  `json:"symbol"`
	LastWeekValue float64 `json:"lastWeekValue"`
	CurrentValue  float64 `json:"currentValue"`
	Change        float64 `json:"change"`
	Impact        float64 `json:"impact"`        // percent of current net worth
	ImpactPercent float64 `json:"impactPercent"` // percent of the previous value
}

// WeeklyBrief is the stored payload of a weekly report
type WeeklyBrief struct {
	Type                types.ReportType `json:"type"`
	DateRange           string           `json:"dateRange"`
	CurrentValue        float64          `json:"currentValue"`
	PreviousValue       float64          `json:"previousValue"`
	Change              float64          `json:"change"`
	ChangePercent       float64          `json:"changePercent"`
	ExecutiveSummary    string           `json:"executiveSummary"`
	TopChanges          []AssetChange    `json:"topChanges"`
	RiskNarrative       string           `json:"riskNarrative"`
	ConcentrationAlerts []string         `json:"concentrationAlerts"`
	ActionItems         []string         `json:"actionItems"`
	HealthScores        health.Scores    `json:"healthScores"`
}

// NewWeeklyBrief compares current with previous (nil for the first snapshot) and scores the
// current allocation against history.
func NewWeeklyBrief(current, previous *models.Snapshot, history []models.Snapshot, monthlyBurn float64) WeeklyBrief {
	brief := WeeklyBrief{
		Type:          types.ReportWeekly,
		CurrentValue:  current.TotalAud,
		PreviousValue: current.TotalAud,
	}

	if previous != nil {
		brief.DateRange = DateRange(&previous.CreatedAt, current.CreatedAt)
		if previous.TotalAud != 0 {
			brief.PreviousValue = previous.TotalAud
		}
	} else {
		brief.DateRange = DateRange(nil, current.CreatedAt)
	}
	brief.Change = brief.CurrentValue - brief.PreviousValue
	if brief.PreviousValue > 0 {
		brief.ChangePercent = brief.Change / brief.PreviousValue * 100
	}

	brief.HealthScores = health.Calculate(current.Holdings, current.TotalAud, monthlyBurn, models.Points(history))
	brief.TopChanges = TopChanges(current, previous)
	brief.RiskNarrative = health.RiskNarrative(current.Holdings, current.TotalAud)
	brief.ConcentrationAlerts = ConcentrationAlerts(current.Holdings, current.TotalAud)
	brief.ActionItems = health.ActionItems(current.Holdings, current.TotalAud, brief.HealthScores)
	brief.ExecutiveSummary = ExecutiveSummary(brief)
	return brief
}

// TopChanges lists the largest symbol-level moves between two snapshots by absolute change.
// Symbols that did not move are skipped.
func TopChanges(current, previous *models.Snapshot) []AssetChange {
	changes := []AssetChange{}
	if previous == nil {
		return changes
	}

	now := valuation.SymbolValues(current.Holdings)
	before := valuation.SymbolValues(previous.Holdings)
	symbols := make([]string, 0, len(now)+len(before))
	for symbol := range now {
		symbols = append(symbols, symbol)
	}
	for symbol := range before {
		if _, ok := now[symbol]; !ok {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		change := now[symbol] - before[symbol]
		if change == 0 {
			continue
		}
		c := AssetChange{
			Symbol:        symbol,
			LastWeekValue: before[symbol],
			CurrentValue:  now[symbol],
			Change:        change,
			Impact:        percentOf(change, current.TotalAud),
		}
		if before[symbol] > 0 {
			c.ImpactPercent = change / before[symbol] * 100
		}
		changes = append(changes, c)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return math.Abs(changes[i].Change) > math.Abs(changes[j].Change)
	})
	if len(changes) > MaxTopChanges {
		changes = changes[:MaxTopChanges]
	}
	return changes
}

// ConcentrationAlerts flags a dominant symbol, a heavy top three and any exposure type over
// its threshold
func ConcentrationAlerts(holdings []models.Holding, totalValue float64) []string {
	alerts := []string{}
	if len(holdings) == 0 || totalValue == 0 {
		return alerts
	}

	groups := valuation.GroupBySymbol(holdings)
	if top := percentOf(groups[0].ValueAud, totalValue); top > alertTopHolding {
		alerts = append(alerts, fmt.Sprintf("⚠️ %s is now %d%% of portfolio (threshold: 25%%)", groups[0].Symbol, int(round(top))))
	}

	var top3Value float64
	for i := 0; i < len(groups) && i < 3; i++ {
		top3Value += groups[i].ValueAud
	}
	if top3 := percentOf(top3Value, totalValue); top3 > alertTop3 {
		alerts = append(alerts, fmt.Sprintf("⚠️ Top 3 holdings represent %d%% of portfolio", int(round(top3))))
	}

	for _, g := range valuation.GroupByExposure(holdings) {
		if share := percentOf(g.ValueAud, totalValue); share > alertExposure {
			alerts = append(alerts, fmt.Sprintf("⚠️ %s exposure is %d%% (consider diversifying)", g.Key, int(round(share))))
		}
	}
	return alerts
}

// ExecutiveSummary writes the opening paragraph of a brief from its computed sections
func ExecutiveSummary(brief WeeklyBrief) string {
	direction := "increased"
	if brief.ChangePercent < 0 {
		direction = "decreased"
	}

	driver := ""
	if len(brief.TopChanges) > 0 {
		main := brief.TopChanges[0]
		sign := ""
		if main.ImpactPercent >= 0 {
			sign = "+"
		}
		driver = fmt.Sprintf(", primarily driven by %s (%s%.1f%%)", main.Symbol, sign, main.ImpactPercent)
	}

	liq := brief.HealthScores.Liquidity
	var liquidity string
	switch {
	case liq.Score >= 70:
		liquidity = fmt.Sprintf("Your liquidity position remains strong at %d months runway", liq.MonthsRunway)
	case liq.MonthsRunway < 6:
		liquidity = fmt.Sprintf("Liquidity is concerning at %d months runway", liq.MonthsRunway)
	default:
		liquidity = fmt.Sprintf("Liquidity is moderate at %d months runway", liq.MonthsRunway)
	}

	var action string
	switch {
	case len(brief.ConcentrationAlerts) > 0:
		action = " Consider rebalancing to reduce concentration risk."
	case brief.HealthScores.Overall.Score >= 70:
		action = " No major allocation changes are needed."
	default:
		action = " Review action items for optimization opportunities."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your portfolio %s %.1f%% this week to %s%s. ", direction, math.Abs(brief.ChangePercent), FormatAUD(brief.CurrentValue), driver)
	b.WriteString(liquidity)
	b.WriteString(".")
	b.WriteString(action)
	return b.String()
}
