package valuation

import (
	"sort"
	"time"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

// Aggregate recomputes every category total from the holding list. Categories overlap, so
// their sum need not equal TotalAud.
func Aggregate(holdings []models.Holding) models.SnapshotTotals {
	var t models.SnapshotTotals
	for _, h := range holdings {
		t.TotalAud += h.ValueAud

		if h.Source == types.SourceBank || h.LiquidityTier == types.TierImmediate {
			t.CashAud += h.ValueAud
		}
		switch h.Source {
		case types.SourceEVM:
			t.CryptoAud += h.ValueAud
			t.EVMTotalAud += h.ValueAud
		case types.SourceSOL:
			t.CryptoAud += h.ValueAud
			t.SOLTotalAud += h.ValueAud
		case types.SourceCollectible:
			t.CollectiblesAud += h.ValueAud
			t.ManualTotalAud += h.ValueAud
		case types.SourceBank:
			t.ManualTotalAud += h.ValueAud
		}
	}
	return t
}

// NewSnapshot builds a snapshot from finalized holdings
func NewSnapshot(id string, createdAt time.Time, fxUsdAud float64, holdings []models.Holding) *models.Snapshot {
	return &models.Snapshot{
		ID:             id,
		CreatedAt:      createdAt,
		FxUsdAud:       fxUsdAud,
		SnapshotTotals: Aggregate(holdings),
		Holdings:       holdings,
	}
}

// Group is a summed value under a grouping key
type Group struct {
	Key      string  `json:"key"`
	Symbol   string  `json:"symbol"`
	ValueAud float64 `json:"valueAud"`
}

// groupBy sums holding values by key, keeping the first symbol seen per key. The result is
// sorted by value descending; ties keep first-seen order.
func groupBy(holdings []models.Holding, key func(models.Holding) string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, h := range holdings {
		k := key(h)
		if i, ok := index[k]; ok {
			groups[i].ValueAud += h.ValueAud
			continue
		}
		index[k] = len(groups)
		groups = append(groups, Group{Key: k, Symbol: h.Symbol, ValueAud: h.ValueAud})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].ValueAud > groups[j].ValueAud
	})
	return groups
}

// GroupByAssetKey sums duplicate asset keys
func GroupByAssetKey(holdings []models.Holding) []Group {
	return groupBy(holdings, func(h models.Holding) string { return h.AssetKey })
}

// GroupBySymbol sums holdings sharing a symbol across wallets and sources
func GroupBySymbol(holdings []models.Holding) []Group {
	return groupBy(holdings, func(h models.Holding) string { return h.Symbol })
}

// GroupByExposure sums holdings per exposure type. An empty exposure counts as CRYPTO.
func GroupByExposure(holdings []models.Holding) []Group {
	return groupBy(holdings, func(h models.Holding) string {
		if h.ExposureType == "" {
			return string(types.ExposureCrypto)
		}
		return string(h.ExposureType)
	})
}

// SymbolValues indexes GroupBySymbol output by symbol
func SymbolValues(holdings []models.Holding) map[string]float64 {
	values := make(map[string]float64)
	for _, h := range holdings {
		values[h.Symbol] += h.ValueAud
	}
	return values
}

// LargestHolding returns the single holding with the highest value, or false when empty
func LargestHolding(holdings []models.Holding) (models.Holding, bool) {
	if len(holdings) == 0 {
		return models.Holding{}, false
	}
	largest := holdings[0]
	for _, h := range holdings[1:] {
		if h.ValueAud > largest.ValueAud {
			largest = h
		}
	}
	return largest, true
}
