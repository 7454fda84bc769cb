package models

import (
	"time"

	"github.com/portfolio-dashboard/internal/types"
)

// Holding represents one valued position within a snapshot
type Holding struct {
	ID            string              `json:"id,omitempty" db:"id"`
	SnapshotID    string              `json:"snapshotId,omitempty" db:"snapshot_id"`
	AssetKey      string              `json:"assetKey" db:"asset_key"`
	Source        types.HoldingSource `json:"source" db:"source"`
	WalletID      *string             `json:"walletId" db:"wallet_id"` // nil for manual assets
	Symbol        string              `json:"symbol" db:"symbol"`
	Quantity      float64             `json:"quantity" db:"quantity"`
	PriceUsd      *float64            `json:"priceUsd" db:"price_usd"` // nil means unpriced
	ValueAud      float64             `json:"valueAud" db:"value_aud"`
	LiquidityTier types.LiquidityTier `json:"liquidityTier" db:"liquidity_tier"`
	ExposureType  types.ExposureType  `json:"exposureType" db:"exposure_type"`
}

// IsUnpriced reports whether the holding has no usable market price
func (h Holding) IsUnpriced() bool {
	return h.PriceUsd == nil || *h.PriceUsd == 0
}

// SnapshotTotals holds the category totals derived from a holding set
type SnapshotTotals struct {
	TotalAud        float64 `json:"totalAud" db:"total_aud"`
	CashAud         float64 `json:"cashAud" db:"cash_aud"`
	CryptoAud       float64 `json:"cryptoAud" db:"crypto_aud"`
	CollectiblesAud float64 `json:"collectiblesAud" db:"collectibles_aud"`
	EVMTotalAud     float64 `json:"evmTotalAud" db:"evm_total_aud"`
	SOLTotalAud     float64 `json:"solTotalAud" db:"sol_total_aud"`
	ManualTotalAud  float64 `json:"manualTotalAud" db:"manual_total_aud"`
}

// Snapshot represents an immutable point-in-time valuation of the portfolio
type Snapshot struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	FxUsdAud  float64   `json:"fxUsdAud" db:"fx_usd_aud"`
	SnapshotTotals
	Holdings []Holding `json:"holdings,omitempty"`
}

// LiveSnapshotID is the id carried by calculated snapshots that were never persisted
const LiveSnapshotID = "live"

// ValuePoint is a snapshot reduced to its date and total, the input of time-series analytics
type ValuePoint struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	TotalAud  float64   `json:"totalAud"`
}

// Point reduces the snapshot to a ValuePoint
func (s *Snapshot) Point() ValuePoint {
	return ValuePoint{ID: s.ID, CreatedAt: s.CreatedAt, TotalAud: s.TotalAud}
}

// Points reduces a snapshot list to value points, preserving order
func Points(snapshots []Snapshot) []ValuePoint {
	points := make([]ValuePoint, len(snapshots))
	for i := range snapshots {
		points[i] = snapshots[i].Point()
	}
	return points
}

// PerpPosition is an open Hyperliquid perpetual position. Perps are informational and never
// enter net worth.
type PerpPosition struct {
	WalletID      string                  `json:"walletId"`
	Address       string                  `json:"address"`
	Coin          string                  `json:"coin"`
	Szi           string                  `json:"szi"`
	Direction     types.PositionDirection `json:"direction"`
	EntryPx       string                  `json:"entryPx"`
	PositionValue string                  `json:"positionValue"`
	UnrealizedPnl string                  `json:"unrealizedPnl"`
}

// WalletError records a wallet whose balances could not be fetched during a valuation pass
type WalletError struct {
	WalletID  string          `json:"walletId"`
	Address   string          `json:"address"`
	ChainType types.ChainType `json:"chainType"`
	Error     string          `json:"error"`
}

// ValuationResult is the outcome of a calculate or refresh pass
type ValuationResult struct {
	Snapshot      *Snapshot      `json:"snapshot"`
	PerpPositions []PerpPosition `json:"perpPositions"`
	Errors        []WalletError  `json:"errors"`
}
