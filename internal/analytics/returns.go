package analytics

import (
	"time"

	"github.com/portfolio-dashboard/internal/models"
)

// PeriodReturn is the change between an anchor snapshot and the latest one
type PeriodReturn struct {
	Period  string  `json:"period"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Change  float64 `json:"change"`
	Percent float64 `json:"percent"`
}

var lookbacks = []struct {
	name string
	days int
}{
	{"Last 7 days", 7},
	{"Last 30 days", 30},
	{"Last 90 days", 90},
	{"Last 12 months", 365},
}

// SinceInception names the whole-history return
const SinceInception = "Since inception"

func periodReturn(name string, anchor, current models.ValuePoint) PeriodReturn {
	return PeriodReturn{
		Period:  name,
		Start:   anchor.TotalAud,
		End:     current.TotalAud,
		Change:  current.TotalAud - anchor.TotalAud,
		Percent: percentChange(anchor.TotalAud, current.TotalAud),
	}
}

// PeriodReturns measures each look-back from the most recent snapshot not after the cutoff,
// falling back to the first snapshot. Periods whose anchor is the latest snapshot are skipped.
func PeriodReturns(points []models.ValuePoint) []PeriodReturn {
	sorted := Sorted(points)
	if len(sorted) == 0 {
		return []PeriodReturn{}
	}

	last := len(sorted) - 1
	current := sorted[last]
	returns := []PeriodReturn{}

	for _, lb := range lookbacks {
		cutoff := current.CreatedAt.Add(-time.Duration(lb.days) * day)
		anchor := 0
		for i, p := range sorted {
			if p.CreatedAt.After(cutoff) {
				break
			}
			anchor = i
		}
		if anchor != last {
			returns = append(returns, periodReturn(lb.name, sorted[anchor], current))
		}
	}

	if last > 0 {
		returns = append(returns, periodReturn(SinceInception, sorted[0], current))
	}
	return returns
}

// MonthlyReturn is the percent change of a calendar month's closing value over the previous
// month's. Month is 1-based.
type MonthlyReturn struct {
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Return float64 `json:"return"`
}

// MonthlyReturns uses the last snapshot in each (year, month) as that month's value
func MonthlyReturns(points []models.ValuePoint) []MonthlyReturn {
	sorted := Sorted(points)

	type month struct {
		year  int
		month time.Month
		close float64
	}
	var months []month
	for _, p := range sorted {
		y, m, _ := p.CreatedAt.UTC().Date()
		if n := len(months); n > 0 && months[n-1].year == y && months[n-1].month == m {
			months[n-1].close = p.TotalAud
			continue
		}
		months = append(months, month{year: y, month: m, close: p.TotalAud})
	}

	returns := []MonthlyReturn{}
	for i := 1; i < len(months); i++ {
		returns = append(returns, MonthlyReturn{
			Year:   months[i].year,
			Month:  int(months[i].month),
			Return: percentChange(months[i-1].close, months[i].close),
		})
	}
	return returns
}
