package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

// BriefMonthlyBurn is the burn assumed by the markdown brief's runway line
const BriefMonthlyBurn = 5000.0

type mover struct {
	symbol string
	change float64
}

// topMovers compares asset keys across both snapshots, largest absolute change first
func topMovers(current, previous *models.Snapshot) []mover {
	now := valuation.GroupByAssetKey(current.Holdings)
	before := valuation.GroupByAssetKey(previous.Holdings)

	symbols := make(map[string]string)
	values := make(map[string][2]float64)
	for _, g := range before {
		symbols[g.Key] = g.Symbol
		values[g.Key] = [2]float64{0, g.ValueAud}
	}
	for _, g := range now {
		symbols[g.Key] = g.Symbol
		v := values[g.Key]
		v[0] = g.ValueAud
		values[g.Key] = v
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	movers := make([]mover, 0, len(keys))
	for _, k := range keys {
		symbol := symbols[k]
		if symbol == "" {
			symbol = k
		}
		movers = append(movers, mover{symbol: symbol, change: values[k][0] - values[k][1]})
	}
	sort.SliceStable(movers, func(i, j int) bool {
		return math.Abs(movers[i].change) > math.Abs(movers[j].change)
	})
	if len(movers) > MaxTopChanges {
		movers = movers[:MaxTopChanges]
	}
	return movers
}

func liquidValue(holdings []models.Holding) float64 {
	var total float64
	for _, h := range holdings {
		if h.LiquidityTier == types.TierImmediate || h.LiquidityTier == types.TierFast {
			total += h.ValueAud
		}
	}
	return total
}

// unpriced returns the distinct unpriced asset keys and their symbols in first-seen order
func unpriced(holdings []models.Holding) (int, []string) {
	keys := make(map[string]bool)
	seen := make(map[string]bool)
	var symbols []string
	for _, h := range holdings {
		if !h.IsUnpriced() {
			continue
		}
		keys[h.AssetKey] = true
		if !seen[h.Symbol] {
			seen[h.Symbol] = true
			symbols = append(symbols, h.Symbol)
		}
	}
	return len(keys), symbols
}

func signed(v float64, format string) string {
	s := fmt.Sprintf(format, v)
	if v >= 0 {
		return "+" + s
	}
	return s
}

// MarkdownBrief renders a short markdown summary of current compared with previous, which may
// be nil
func MarkdownBrief(current, previous *models.Snapshot) string {
	var lines []string
	add := func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	add("## Portfolio Brief — %s", FormatDate(current.CreatedAt))
	add("")

	add("### Net Worth")
	add("- Current: %s", FormatAUD(current.TotalAud))
	if previous != nil {
		change := current.TotalAud - previous.TotalAud
		fraction := 0.0
		if previous.TotalAud > 0 {
			fraction = change / previous.TotalAud
		}
		add("- 7 days ago: %s", FormatAUD(previous.TotalAud))
		add("- Change: %s (%s)", FormatAUD(change), formatPercent(fraction))
	} else {
		add("- No previous snapshot for comparison")
	}
	add("")

	if previous != nil {
		add("### Top Movers")
		for _, m := range topMovers(current, previous) {
			add("- %s: %s", m.symbol, formatSignedAUD(m.change))
		}
		add("")
	}

	add("### Concentration Check")
	exposures := valuation.GroupByAssetKey(current.Holdings)
	var largest, top3 float64
	var largestSymbol string
	if len(exposures) > 0 && current.TotalAud > 0 {
		largestSymbol = exposures[0].Symbol
		largest = exposures[0].ValueAud / current.TotalAud
		for i := 0; i < len(exposures) && i < 3; i++ {
			top3 += exposures[i].ValueAud
		}
		top3 /= current.TotalAud
	}
	if largest > 0.25 {
		add("- WARNING: %s represents %s of portfolio", largestSymbol, formatPercent(largest))
	}
	if top3 > 0.50 {
		add("- WARNING: Top 3 assets represent %s of portfolio", formatPercent(top3))
	}
	if largest <= 0.25 && top3 <= 0.50 {
		add("- Concentration levels are healthy")
	}
	add("")

	add("### Liquidity Runway")
	runway := liquidValue(current.Holdings) / BriefMonthlyBurn
	add("- Current: %.1f months (Immediate + Fast, assuming %s monthly burn)", runway, FormatAUD(BriefMonthlyBurn))
	if previous != nil {
		prevRunway := liquidValue(previous.Holdings) / BriefMonthlyBurn
		add("- Change from last week: %s months", signed(runway-prevRunway, "%.1f"))
	}
	add("")

	count, symbols := unpriced(current.Holdings)
	add("### Unpriced Assets")
	add("- Count: %d", count)
	if previous != nil {
		prevCount, _ := unpriced(previous.Holdings)
		add("- Change from last week: %s", signed(float64(count-prevCount), "%.0f"))
	}
	if count > 0 {
		add("- %s", strings.Join(symbols, ", "))
	}
	add("")

	add("### Risk Notes")
	crypto := 0.0
	if current.TotalAud > 0 {
		crypto = current.CryptoAud / current.TotalAud
	}
	if crypto > 0.7 {
		add("- WARNING: High crypto concentration (%s)", formatPercent(crypto))
	}
	if runway < 6 {
		add("- WARNING: Low runway (%.1f months)", runway)
	}
	if largest > 0.3 {
		add("- WARNING: Single-asset concentration risk (%s: %s)", largestSymbol, formatPercent(largest))
	}
	if crypto <= 0.7 && runway >= 6 && largest <= 0.3 {
		add("- No major risk flags detected")
	}

	return strings.Join(lines, "\n")
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a markdown brief to HTML
func RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
