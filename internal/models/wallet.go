package models

import (
	"time"

	"github.com/portfolio-dashboard/internal/types"
)

// Wallet represents a tracked on-chain account
type Wallet struct {
	ID           string                  `json:"id" db:"id"`
	ChainType    types.ChainType         `json:"chainType" db:"chain_type"`
	Address      string                  `json:"address" db:"address"`
	Label        *string                 `json:"label" db:"label"`
	CreatedAt    time.Time               `json:"createdAt" db:"created_at"`
	EVMAllowlist []EVMTokenAllowlistItem `json:"evmAllowlist"`
	SOLAllowlist []SOLTokenAllowlistItem `json:"solAllowlist"`
}

// EVMTokenAllowlistItem is an ERC-20 token explicitly tracked for a wallet
type EVMTokenAllowlistItem struct {
	ID              string  `json:"id" db:"id"`
	WalletID        string  `json:"walletId" db:"wallet_id"`
	ContractAddress string  `json:"contractAddress" db:"contract_address"`
	Symbol          *string `json:"symbol" db:"symbol"`
	Decimals        *int    `json:"decimals" db:"decimals"`
	CoingeckoID     *string `json:"coingeckoId" db:"coingecko_id"`
}

// SOLTokenAllowlistItem is an SPL token explicitly tracked for a wallet
type SOLTokenAllowlistItem struct {
	ID          string  `json:"id" db:"id"`
	WalletID    string  `json:"walletId" db:"wallet_id"`
	MintAddress string  `json:"mintAddress" db:"mint_address"`
	Symbol      *string `json:"symbol" db:"symbol"`
	CoingeckoID *string `json:"coingeckoId" db:"coingecko_id"`
}

// DisplaySymbol returns the configured symbol, or the first 8 characters of the mint
func (t SOLTokenAllowlistItem) DisplaySymbol() string {
	if t.Symbol != nil && *t.Symbol != "" {
		return *t.Symbol
	}
	if len(t.MintAddress) > 8 {
		return t.MintAddress[:8]
	}
	return t.MintAddress
}
