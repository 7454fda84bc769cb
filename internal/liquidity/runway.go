package liquidity

import (
	"fmt"
	"math"
)

// Unbounded is shown when income covers expenses
const Unbounded = "∞"

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatRunway renders months as "N months", "N years" or "Xy Ymo"
func FormatRunway(months float64) string {
	if months == 0 || math.IsNaN(months) || math.IsInf(months, 0) {
		return "0 months"
	}

	years := int(math.Floor(months / 12))
	rem := int(math.Round(math.Mod(months, 12)))
	if rem == 12 {
		years++
		rem = 0
	}

	switch {
	case years == 0:
		return plural(rem, "month")
	case rem == 0:
		return plural(years, "year")
	default:
		return fmt.Sprintf("%dy %dmo", years, rem)
	}
}

// NetRunway computes months of runway for liquid assets against expenses net of income.
// It reports false when net burn is zero or negative, meaning runway is unbounded.
func NetRunway(liquid, monthlyBurn, monthlyIncome float64) (float64, bool) {
	net := monthlyBurn - monthlyIncome
	if net <= 0 {
		return math.Inf(1), false
	}
	return liquid / net, true
}

// FormatNetRunway formats NetRunway, rendering unbounded runway as Unbounded
func FormatNetRunway(liquid, monthlyBurn, monthlyIncome float64) string {
	months, bounded := NetRunway(liquid, monthlyBurn, monthlyIncome)
	if !bounded {
		return Unbounded
	}
	return FormatRunway(months)
}
