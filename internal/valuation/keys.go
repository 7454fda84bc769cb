package valuation

import (
	"fmt"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

// Asset keys for allowlisted balances are wallet independent so the same token held in two
// wallets groups together.
const (
	AllowlistETHKey = "crypto:ETH"
	SolanaNativeKey = "crypto:SOL"
)

// EVMNativeKey identifies discovered native ETH held by a wallet
func EVMNativeKey(wallet string) string {
	return fmt.Sprintf("evm:ETH:%s", wallet)
}

// EVMTokenKey identifies a discovered ERC-20 balance held by a wallet
func EVMTokenKey(contract, wallet string) string {
	return fmt.Sprintf("evm:%s:%s", contract, wallet)
}

// ERC20Key identifies an allowlisted ERC-20 token on a chain
func ERC20Key(chainID int64, contract string) string {
	return fmt.Sprintf("erc20:%d:%s", chainID, contract)
}

// SPLKey identifies an SPL token by mint
func SPLKey(mint string) string {
	return "spl:" + mint
}

// HyperliquidKey identifies a Hyperliquid spot balance
func HyperliquidKey(coin, address string) string {
	return fmt.Sprintf("hype:%s:%s", coin, address)
}

// ManualKey identifies a manual asset
func ManualKey(asset *models.ManualAsset) string {
	if asset.Type == types.SourceBank {
		return "bank:" + asset.ID
	}
	return "collectible:" + asset.ID
}
