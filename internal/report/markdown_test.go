package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownBrief(t *testing.T) {
	previous := snapshot("prev", day(2025, time.January, 2), eth(5000), usdc(3000), savings(1000))
	current := snapshot("cur", day(2025, time.January, 9), eth(6000), usdc(3000), savings(1000))

	want := strings.Join([]string{
		"## Portfolio Brief — January 9, 2025",
		"",
		"### Net Worth",
		"- Current: A$10,000.00",
		"- 7 days ago: A$9,000.00",
		"- Change: A$1,000.00 (11.1%)",
		"",
		"### Top Movers",
		"- ETH: +A$1,000.00",
		"- Savings: +A$0.00",
		"- USDC: +A$0.00",
		"",
		"### Concentration Check",
		"- WARNING: ETH represents 60.0% of portfolio",
		"- WARNING: Top 3 assets represent 100.0% of portfolio",
		"",
		"### Liquidity Runway",
		"- Current: 2.0 months (Immediate + Fast, assuming A$5,000.00 monthly burn)",
		"- Change from last week: +0.2 months",
		"",
		"### Unpriced Assets",
		"- Count: 1",
		"- Change from last week: +0",
		"- Savings",
		"",
		"### Risk Notes",
		"- WARNING: High crypto concentration (90.0%)",
		"- WARNING: Low runway (2.0 months)",
		"- WARNING: Single-asset concentration risk (ETH: 60.0%)",
	}, "\n")

	assert.Equal(t, want, MarkdownBrief(&current, &previous))
}

func TestMarkdownBriefWithoutPrevious(t *testing.T) {
	current := snapshot("cur", day(2025, time.January, 9),
		savings(40000), usdc(20000), eth(10000), pepe(10000), savings(10000), usdc(10000))
	current.Holdings[4].AssetKey = "bank:2"
	current.Holdings[5].AssetKey = "erc20:1:0xdac1"

	got := MarkdownBrief(&current, nil)

	assert.Contains(t, got, "- No previous snapshot for comparison")
	assert.NotContains(t, got, "### Top Movers")
	assert.NotContains(t, got, "Change from last week")
	assert.Contains(t, got, "- WARNING: Savings represents 40.0% of portfolio")
	assert.Contains(t, got, "- WARNING: Top 3 assets represent 70.0% of portfolio")
	assert.Contains(t, got, "- Current: 18.0 months")
	assert.Contains(t, got, "- Count: 2\n- Savings")
	assert.Contains(t, got, "- WARNING: Single-asset concentration risk (Savings: 40.0%)")
	assert.NotContains(t, got, "High crypto concentration")
}

func TestMarkdownBriefHealthy(t *testing.T) {
	current := snapshot("cur", day(2025, time.January, 9))
	for i := 0; i < 10; i++ {
		u := usdc(10000)
		u.Symbol = string(rune('A' + i))
		u.AssetKey = "k" + string(rune('0'+i))
		current.Holdings = append(current.Holdings, u)
		current.TotalAud += u.ValueAud
	}

	got := MarkdownBrief(&current, nil)
	assert.Contains(t, got, "- Concentration levels are healthy")
	assert.Contains(t, got, "- No major risk flags detected")
	assert.Contains(t, got, "- Count: 0")
}

func TestRenderHTML(t *testing.T) {
	previous := snapshot("prev", day(2025, time.January, 2), eth(5000))
	current := snapshot("cur", day(2025, time.January, 9), eth(6000))

	html, err := RenderHTML(MarkdownBrief(&current, &previous))
	require.NoError(t, err)

	assert.Contains(t, html, "<h2>Portfolio Brief — January 9, 2025</h2>")
	assert.Contains(t, html, "<h3>Net Worth</h3>")
	assert.Contains(t, html, "<li>Current: A$6,000.00</li>")
	assert.Contains(t, html, "<li>ETH: +A$1,000.00</li>")
}
