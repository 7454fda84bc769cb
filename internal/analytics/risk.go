package analytics

import (
	"math"
	"time"

	"github.com/portfolio-dashboard/internal/models"
)

// MaxDrawdown is the deepest peak-to-trough decline. Percent is zero or negative.
type MaxDrawdown struct {
	Percent    float64   `json:"percent"`
	Peak       float64   `json:"peak"`
	Trough     float64   `json:"trough"`
	PeakDate   time.Time `json:"peakDate"`
	TroughDate time.Time `json:"troughDate"`
}

// RiskMetrics describes drawdowns and snapshot-to-snapshot changes. Step changes are measured
// between consecutive snapshots, not calendar months.
type RiskMetrics struct {
	MaxDrawdown     MaxDrawdown `json:"maxDrawdown"`
	CurrentDrawdown float64     `json:"currentDrawdown"`
	BestChange      DatedValue  `json:"bestChange"`
	WorstChange     DatedValue  `json:"worstChange"`
	AverageChange   float64     `json:"averageChange"`
	ChangesUp       int         `json:"changesUp"`
	ChangesDown     int         `json:"changesDown"`
}

// DrawdownPoint is the decline from the running peak at a snapshot
type DrawdownPoint struct {
	Date     time.Time `json:"date"`
	Drawdown float64   `json:"drawdown"`
}

func drawdown(value, peak float64) float64 {
	if peak > 0 {
		return (value - peak) / peak * 100
	}
	return 0
}

// DrawdownSeries emits the running-peak drawdown of every snapshot. Values are never positive
// and are zero wherever a new peak is set.
func DrawdownSeries(points []models.ValuePoint) []DrawdownPoint {
	sorted := Sorted(points)
	series := make([]DrawdownPoint, 0, len(sorted))
	if len(sorted) == 0 {
		return series
	}

	peak := sorted[0].TotalAud
	for _, p := range sorted {
		if p.TotalAud > peak {
			peak = p.TotalAud
		}
		series = append(series, DrawdownPoint{Date: p.CreatedAt, Drawdown: drawdown(p.TotalAud, peak)})
	}
	return series
}

// Risk computes drawdown and step-change statistics. Fewer than two snapshots yield zeros.
func Risk(points []models.ValuePoint) RiskMetrics {
	sorted := Sorted(points)
	if len(sorted) < 2 {
		return RiskMetrics{}
	}

	var risk RiskMetrics
	peak, ath := sorted[0], sorted[0]
	for _, p := range sorted {
		if p.TotalAud > peak.TotalAud {
			peak = p
		}
		if p.TotalAud > ath.TotalAud {
			ath = p
		}
		if dd := drawdown(p.TotalAud, peak.TotalAud); dd < risk.MaxDrawdown.Percent {
			risk.MaxDrawdown = MaxDrawdown{
				Percent:    dd,
				Peak:       peak.TotalAud,
				Trough:     p.TotalAud,
				PeakDate:   peak.CreatedAt,
				TroughDate: p.CreatedAt,
			}
		}
	}
	risk.CurrentDrawdown = drawdown(sorted[len(sorted)-1].TotalAud, ath.TotalAud)

	var sum float64
	for i := 1; i < len(sorted); i++ {
		step := DatedValue{Value: sorted[i].TotalAud - sorted[i-1].TotalAud, Date: sorted[i].CreatedAt}
		if i == 1 || step.Value > risk.BestChange.Value {
			risk.BestChange = step
		}
		if i == 1 || step.Value < risk.WorstChange.Value {
			risk.WorstChange = step
		}
		switch {
		case step.Value > 0:
			risk.ChangesUp++
		case step.Value < 0:
			risk.ChangesDown++
		}
		sum += step.Value
	}
	risk.AverageChange = sum / float64(len(sorted)-1)
	return risk
}

// DrawdownsOver counts distinct declines deeper than threshold percent. A decline is counted
// once until a new peak resets it.
func DrawdownsOver(points []models.ValuePoint, threshold float64) int {
	sorted := Sorted(points)
	if len(sorted) == 0 {
		return 0
	}

	peak := sorted[0].TotalAud
	count := 0
	inDrawdown := false
	for _, p := range sorted {
		if p.TotalAud > peak {
			peak = p.TotalAud
			inDrawdown = false
		}
		if -drawdown(p.TotalAud, peak) > threshold && !inDrawdown {
			count++
			inDrawdown = true
		}
	}
	return count
}

// StepReturns returns the percent change between consecutive snapshots
func StepReturns(points []models.ValuePoint) []float64 {
	sorted := Sorted(points)
	if len(sorted) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		returns = append(returns, percentChange(sorted[i-1].TotalAud, sorted[i].TotalAud))
	}
	return returns
}

// StdDev is the population standard deviation of xs, or 0 when xs is empty
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return math.Sqrt(variance / float64(len(xs)))
}
