// Package analytics derives time-series metrics from snapshot history. Callers may pass
// points in any order; every function sorts a private copy ascending by date first.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

const (
	day        = 24 * time.Hour
	yearLength = 365.25 * float64(day)
)

// DatedValue is a value observed at a point in time. Date is zero when there is no data.
type DatedValue struct {
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

// Change is an absolute and percentage change
type Change struct {
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// PortfolioMetrics summarizes a history window. TotalChange.Percent and CAGR are percentages.
type PortfolioMetrics struct {
	CurrentNetWorth float64    `json:"currentNetWorth"`
	AllTimeHigh     DatedValue `json:"allTimeHigh"`
	AllTimeLow      DatedValue `json:"allTimeLow"`
	TotalChange     Change     `json:"totalChange"`
	CAGR            float64    `json:"cagr"`
}

// Sorted returns an ascending copy of points with duplicate ids removed
func Sorted(points []models.ValuePoint) []models.ValuePoint {
	seen := make(map[string]bool, len(points))
	out := make([]models.ValuePoint, 0, len(points))
	for _, p := range points {
		if p.ID != "" {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// percentChange returns the change from from to to in percent, or 0 without a positive base
func percentChange(from, to float64) float64 {
	if from > 0 {
		return (to - from) / from * 100
	}
	return 0
}

// CAGR returns the compound annual growth rate as a fraction. It is 0 when the window is empty
// or the start value is not positive. Metrics reports it in percent.
func CAGR(start, end float64, from, to time.Time) float64 {
	years := float64(to.Sub(from)) / yearLength
	if years <= 0 || start <= 0 {
		return 0
	}
	return math.Pow(end/start, 1/years) - 1
}

// Metrics computes the all-time high and low, total change and CAGR
func Metrics(points []models.ValuePoint) PortfolioMetrics {
	sorted := Sorted(points)
	if len(sorted) == 0 {
		return PortfolioMetrics{}
	}

	first, current := sorted[0], sorted[len(sorted)-1]
	ath, atl := first, first
	for _, p := range sorted {
		if p.TotalAud > ath.TotalAud {
			ath = p
		}
		if p.TotalAud < atl.TotalAud {
			atl = p
		}
	}

	return PortfolioMetrics{
		CurrentNetWorth: current.TotalAud,
		AllTimeHigh:     DatedValue{Value: ath.TotalAud, Date: ath.CreatedAt},
		AllTimeLow:      DatedValue{Value: atl.TotalAud, Date: atl.CreatedAt},
		TotalChange: Change{
			Value:   current.TotalAud - first.TotalAud,
			Percent: percentChange(first.TotalAud, current.TotalAud),
		},
		CAGR: CAGR(first.TotalAud, current.TotalAud, first.CreatedAt, current.CreatedAt) * 100,
	}
}

// FilterByRange keeps points no older than the range's window before the latest point.
// ALL, empty and unknown ranges return the input unchanged.
func FilterByRange(points []models.ValuePoint, r types.TimeRange) []models.ValuePoint {
	days := r.Days()
	if days == 0 || len(points) == 0 {
		return points
	}

	latest := points[0].CreatedAt
	for _, p := range points[1:] {
		if p.CreatedAt.After(latest) {
			latest = p.CreatedAt
		}
	}
	cutoff := latest.Add(-time.Duration(days) * day)

	out := make([]models.ValuePoint, 0, len(points))
	for _, p := range points {
		if !p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// FilterSnapshotsByRange applies FilterByRange to full snapshots
func FilterSnapshotsByRange(snapshots []models.Snapshot, r types.TimeRange) []models.Snapshot {
	keep := make(map[string]bool)
	for _, p := range FilterByRange(models.Points(snapshots), r) {
		keep[p.ID] = true
	}
	if len(keep) == len(snapshots) {
		return snapshots
	}
	out := make([]models.Snapshot, 0, len(keep))
	for _, s := range snapshots {
		if keep[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// Report bundles every analytic for one history window
type Report struct {
	Range          types.TimeRange  `json:"range"`
	Metrics        PortfolioMetrics `json:"metrics"`
	PeriodReturns  []PeriodReturn   `json:"periodReturns"`
	Risk           RiskMetrics      `json:"riskMetrics"`
	Drawdowns      []DrawdownPoint  `json:"drawdownSeries"`
	MonthlyReturns []MonthlyReturn  `json:"monthlyReturns"`
	SnapshotCount  int              `json:"snapshotCount"`
}

// Compute filters points to the range and derives every analytic from the window
func Compute(points []models.ValuePoint, r types.TimeRange) Report {
	if r == "" {
		r = types.RangeAll
	}
	window := Sorted(FilterByRange(points, r))
	return Report{
		Range:          r,
		Metrics:        Metrics(window),
		PeriodReturns:  PeriodReturns(window),
		Risk:           Risk(window),
		Drawdowns:      DrawdownSeries(window),
		MonthlyReturns: MonthlyReturns(window),
		SnapshotCount:  len(window),
	}
}
