package liquidity

import (
	"fmt"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
)

// RunwayStatus labels the IMMEDIATE+FAST runway
type RunwayStatus string

const (
	StatusHealthy  RunwayStatus = "Healthy"
	StatusCaution  RunwayStatus = "Caution"
	StatusCritical RunwayStatus = "Critical"
)

// StatusFor bands a runway in months
func StatusFor(months float64) RunwayStatus {
	switch {
	case months >= 12:
		return StatusHealthy
	case months >= 6:
		return StatusCaution
	default:
		return StatusCritical
	}
}

// Insights are the qualitative notes shown next to the runway figures
type Insights struct {
	Strengths      []string `json:"strengths"`
	Considerations []string `json:"considerations"`
	Warnings       []string `json:"warnings"`
}

// Summary is the full liquidity view of a snapshot
type Summary struct {
	Buckets         []Bucket     `json:"buckets"`
	Scenarios       []Scenario   `json:"scenarios"`
	NetBurnAud      float64      `json:"netBurnAud"`
	ImmediateRunway string       `json:"immediateRunway"`
	FastRunway      string       `json:"fastRunway"`
	TotalRunway     string       `json:"totalRunway"`
	Status          RunwayStatus `json:"status"`
	LiquidityRatio  float64      `json:"liquidityRatio"`
	Insights        Insights     `json:"insights"`
}

// Summarize builds the liquidity view. Runway is measured against burn net of income; when
// income covers burn every runway is reported as Unbounded.
func Summarize(snapshot *models.Snapshot, s settings.AppSettings, monthlyIncome float64) Summary {
	buckets := Bucketize(snapshot.Holdings, s)
	after := make(map[types.LiquidityTier]float64, len(buckets))
	for _, b := range buckets {
		after[b.Tier] = b.AfterHaircut
	}

	immediate := after[types.TierImmediate]
	fast := immediate + after[types.TierFast]
	total := fast + after[types.TierSlow]

	net := s.MonthlyBurnAud - monthlyIncome
	summary := Summary{
		Buckets:         buckets,
		Scenarios:       StressScenarios(snapshot, s),
		NetBurnAud:      net,
		ImmediateRunway: FormatNetRunway(immediate, s.MonthlyBurnAud, monthlyIncome),
		FastRunway:      FormatNetRunway(fast, s.MonthlyBurnAud, monthlyIncome),
		TotalRunway:     FormatNetRunway(total, s.MonthlyBurnAud, monthlyIncome),
	}

	fastMonths, bounded := NetRunway(fast, s.MonthlyBurnAud, monthlyIncome)
	immediateMonths, _ := NetRunway(immediate, s.MonthlyBurnAud, monthlyIncome)
	summary.Status = StatusHealthy
	if bounded {
		summary.Status = StatusFor(fastMonths)
	}

	if snapshot.TotalAud > 0 {
		summary.LiquidityRatio = fast / snapshot.TotalAud
	}
	summary.Insights = insights(snapshot, summary.LiquidityRatio, fastMonths, immediateMonths, immediate, net, bounded)
	return summary
}

func insights(snapshot *models.Snapshot, ratio, fastMonths, immediateMonths, immediate, net float64, bounded bool) Insights {
	in := Insights{Strengths: []string{}, Considerations: []string{}, Warnings: []string{}}
	fastText := FormatRunway(fastMonths)
	if !bounded {
		fastText = Unbounded
	}

	if fastMonths >= 12 {
		in.Strengths = append(in.Strengths, "Strong runway of "+fastText)
	}
	if ratio >= 0.5 {
		in.Strengths = append(in.Strengths, fmt.Sprintf("%.1f%% of portfolio is liquid (IMMEDIATE + FAST)", ratio*100))
	}
	if bounded && immediate >= net*3 {
		in.Strengths = append(in.Strengths, FormatRunway(immediateMonths)+" in instant-access funds")
	}

	if fastMonths >= 6 && fastMonths < 12 {
		in.Considerations = append(in.Considerations, "Runway of "+fastText+" is adequate but could be stronger")
	}
	if ratio < 0.5 && ratio >= 0.2 {
		in.Considerations = append(in.Considerations, fmt.Sprintf("Only %.1f%% readily accessible - consider rebalancing", ratio*100))
	}
	if snapshot.TotalAud > 0 && snapshot.CryptoAud/snapshot.TotalAud > 0.5 {
		in.Considerations = append(in.Considerations, fmt.Sprintf("%.1f%% in crypto exposes you to volatility", snapshot.CryptoAud/snapshot.TotalAud*100))
	}

	if fastMonths < 6 {
		in.Warnings = append(in.Warnings, "Critical: Only "+fastText+" runway - urgent action needed")
	}
	if ratio < 0.2 {
		in.Warnings = append(in.Warnings, fmt.Sprintf("Warning: Only %.1f%% of assets are liquid", ratio*100))
	}
	if bounded && immediate < net*3 {
		in.Warnings = append(in.Warnings, "Low emergency fund: Only "+FormatRunway(immediateMonths)+" instant access")
	}
	return in
}
