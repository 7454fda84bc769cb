package report

import (
	"fmt"
	"math"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatAUD renders an amount in the reporting currency, e.g. "A$1,234.56"
func FormatAUD(amount float64) string {
	cents := decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
	return money.New(cents, money.AUD).Display()
}

// formatSignedAUD prefixes non-negative amounts with "+"
func formatSignedAUD(amount float64) string {
	if amount >= 0 {
		return "+" + FormatAUD(amount)
	}
	return FormatAUD(amount)
}

// formatPercent renders a fraction as a one-decimal percentage
func formatPercent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// FormatDate renders the long report date, e.g. "January 9, 2025"
func FormatDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}

// DateRange labels the period between two snapshots, e.g. "Jan 2 - Jan 9, 2025". Without a
// previous snapshot only the current date is shown.
func DateRange(previous *time.Time, current time.Time) string {
	if previous == nil {
		return FormatDate(current)
	}
	return previous.UTC().Format("Jan 2") + " - " + current.UTC().Format("Jan 2, 2006")
}

func round(x float64) float64 {
	return math.Floor(x + 0.5)
}

func round1(x float64) float64 {
	return round(x*10) / 10
}

func percentOf(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return value / total * 100
}
