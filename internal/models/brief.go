package models

import (
	"encoding/json"
	"time"

	"github.com/portfolio-dashboard/internal/types"
)

// Brief is a persisted, immutable generated report
type Brief struct {
	ID         string           `json:"id" db:"id"`
	CreatedAt  time.Time        `json:"createdAt" db:"created_at"`
	ReportType types.ReportType `json:"reportType" db:"report_type"`
	SnapshotID string           `json:"snapshotId" db:"snapshot_id"`
	Data       json.RawMessage  `json:"data" db:"data"`
}

// JournalEntry is a note in the investment journal
type JournalEntry struct {
	ID        string    `json:"id" db:"id"`
	AssetName string    `json:"assetName" db:"asset_name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// PriceQuote is a cached USD price for a symbol
type PriceQuote struct {
	Symbol      string    `json:"symbol"`
	CoingeckoID string    `json:"coingeckoId"`
	PriceUsd    float64   `json:"priceUsd"`
	FetchedAt   time.Time `json:"fetchedAt"`
}
