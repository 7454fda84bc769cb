package valuation

import (
	"sort"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

// DefaultTopExposureLimit is the number of exposures returned when no limit is given
const DefaultTopExposureLimit = 10

// TopExposure is an asset key's share of the portfolio. PercentOfPortfolio is a fraction.
type TopExposure struct {
	AssetKey           string  `json:"assetKey"`
	Symbol             string  `json:"symbol"`
	ValueAud           float64 `json:"valueAud"`
	PercentOfPortfolio float64 `json:"percentOfPortfolio"`
}

// ChainBreakdown is a chain's share of the portfolio
type ChainBreakdown struct {
	Chain              string  `json:"chain"`
	ValueAud           float64 `json:"valueAud"`
	PercentOfPortfolio float64 `json:"percentOfPortfolio"`
}

// CustodyBreakdown is a wallet's share of the portfolio. WalletID is nil for manual assets.
type CustodyBreakdown struct {
	WalletID           *string `json:"walletId"`
	Label              string  `json:"label"`
	ValueAud           float64 `json:"valueAud"`
	PercentOfPortfolio float64 `json:"percentOfPortfolio"`
}

// UnpricedAsset is a position with no usable market price
type UnpricedAsset struct {
	AssetKey string              `json:"assetKey"`
	Symbol   string              `json:"symbol"`
	Quantity float64             `json:"quantity"`
	Source   types.HoldingSource `json:"source"`
}

func share(value, total float64) float64 {
	if total > 0 {
		return value / total
	}
	return 0
}

// TopExposures returns the largest asset keys by value. A non-positive limit uses the default.
func TopExposures(snapshot *models.Snapshot, limit int) []TopExposure {
	if limit <= 0 {
		limit = DefaultTopExposureLimit
	}

	groups := GroupByAssetKey(snapshot.Holdings)
	if len(groups) > limit {
		groups = groups[:limit]
	}

	exposures := make([]TopExposure, 0, len(groups))
	for _, g := range groups {
		exposures = append(exposures, TopExposure{
			AssetKey:           g.Key,
			Symbol:             g.Symbol,
			ValueAud:           g.ValueAud,
			PercentOfPortfolio: share(g.ValueAud, snapshot.TotalAud),
		})
	}
	return exposures
}

// ChainBreakdowns splits the portfolio into EVM, Solana and manual totals, dropping empty ones
func ChainBreakdowns(snapshot *models.Snapshot) []ChainBreakdown {
	all := []ChainBreakdown{
		{Chain: "EVM", ValueAud: snapshot.EVMTotalAud},
		{Chain: "Solana", ValueAud: snapshot.SOLTotalAud},
		{Chain: "Manual", ValueAud: snapshot.ManualTotalAud},
	}

	out := make([]ChainBreakdown, 0, len(all))
	for _, c := range all {
		if c.ValueAud > 0 {
			c.PercentOfPortfolio = share(c.ValueAud, snapshot.TotalAud)
			out = append(out, c)
		}
	}
	return out
}

// CustodyBreakdowns groups holdings by owning wallet, sorted by value descending
func CustodyBreakdowns(snapshot *models.Snapshot, wallets []models.Wallet) []CustodyBreakdown {
	byID := make(map[string]*models.Wallet, len(wallets))
	for i := range wallets {
		byID[wallets[i].ID] = &wallets[i]
	}

	const manualKey = ""
	index := make(map[string]int)
	var out []CustodyBreakdown
	for _, h := range snapshot.Holdings {
		key := manualKey
		if h.WalletID != nil {
			key = *h.WalletID
		}
		if i, ok := index[key]; ok {
			out[i].ValueAud += h.ValueAud
			continue
		}
		index[key] = len(out)
		out = append(out, CustodyBreakdown{
			WalletID: h.WalletID,
			Label:    custodyLabel(h.WalletID, byID),
			ValueAud: h.ValueAud,
		})
	}

	for i := range out {
		out[i].PercentOfPortfolio = share(out[i].ValueAud, snapshot.TotalAud)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ValueAud > out[j].ValueAud
	})
	return out
}

func custodyLabel(walletID *string, wallets map[string]*models.Wallet) string {
	if walletID == nil {
		return "Manual Assets"
	}
	w, ok := wallets[*walletID]
	if !ok {
		return "Unknown"
	}
	if w.Label != nil && *w.Label != "" {
		return *w.Label
	}
	if len(w.Address) > 8 {
		return w.Address[:8]
	}
	if w.Address != "" {
		return w.Address
	}
	return "Unknown"
}

// UnpricedAssets lists positions with a nil or zero price, summing quantities per asset key
func UnpricedAssets(snapshot *models.Snapshot) []UnpricedAsset {
	index := make(map[string]int)
	out := []UnpricedAsset{}
	for _, h := range snapshot.Holdings {
		if !h.IsUnpriced() {
			continue
		}
		if i, ok := index[h.AssetKey]; ok {
			out[i].Quantity += h.Quantity
			continue
		}
		index[h.AssetKey] = len(out)
		out = append(out, UnpricedAsset{
			AssetKey: h.AssetKey,
			Symbol:   h.Symbol,
			Quantity: h.Quantity,
			Source:   h.Source,
		})
	}
	return out
}
