package models

import (
	"time"

	"github.com/portfolio-dashboard/internal/types"
)

// ManualAsset represents a user-entered, non-blockchain position.
//
// NativeAmount is denominated in Currency: an ETH amount for ETH assets, a USD amount for USD
// assets and an AUD amount otherwise. It is serialized as "valueAud" to keep the stored and
// wire field name stable.
type ManualAsset struct {
	ID                  string              `json:"id" db:"id"`
	Type                types.HoldingSource `json:"type" db:"type"`
	Name                string              `json:"name" db:"name"`
	NativeAmount        float64             `json:"valueAud" db:"value_aud"`
	Currency            types.Currency      `json:"currency" db:"currency"`
	Quantity            *float64            `json:"quantity" db:"quantity"` // nil means 1
	Notes               *string             `json:"notes" db:"notes"`
	InvestmentDate      *time.Time          `json:"investmentDate" db:"investment_date"`
	InvestmentAmount    *float64            `json:"investmentAmount" db:"investment_amount"`
	InvestmentValuation *float64            `json:"investmentValuation" db:"investment_valuation"`
	TradfiSystem        bool                `json:"tradfiSystem" db:"tradfi_system"`
	ExposureType        *types.ExposureType `json:"exposureType" db:"exposure_type"` // manual override
	UpdatedAt           time.Time           `json:"updatedAt" db:"updated_at"`
}

// EffectiveQuantity returns the quantity, defaulting to 1 when unset
func (m *ManualAsset) EffectiveQuantity() float64 {
	if m.Quantity == nil {
		return 1
	}
	return *m.Quantity
}
