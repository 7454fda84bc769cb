// Package adapter talks to the outside world: chain RPC endpoints for wallet balances,
// Hyperliquid for spot balances and perps, and CoinGecko for USD prices.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

// BalanceFetcher reads the balances held by one wallet of a single chain family
type BalanceFetcher interface {
	// ChainType returns the wallet family this fetcher serves
	ChainType() types.ChainType

	// FetchBalances returns the wallet's non-zero positions. An error means the wallet as a
	// whole could not be read; individual token failures are logged and skipped.
	FetchBalances(ctx context.Context, wallet models.Wallet) (*FetchResult, error)
}

// FetchResult is everything a fetcher found for one wallet
type FetchResult struct {
	Positions []valuation.MarketPosition
	// PriceIDs maps symbols to CoinGecko ids configured on the wallet's allowlist
	PriceIDs map[string]string
	// Perps holds open perpetual positions; only Hyperliquid reports them
	Perps []models.PerpPosition
}

func (r *FetchResult) add(pos valuation.MarketPosition) {
	r.Positions = append(r.Positions, pos)
}

func (r *FetchResult) priceID(symbol string, id *string) {
	if id == nil || *id == "" {
		return
	}
	if r.PriceIDs == nil {
		r.PriceIDs = make(map[string]string)
	}
	r.PriceIDs[symbol] = *id
}

var (
	// ErrInvalidAddress indicates the address format is invalid for the chain
	ErrInvalidAddress = errors.New("invalid address format")

	// ErrNoEndpoints indicates no RPC endpoint is configured
	ErrNoEndpoints = errors.New("no RPC endpoints configured")

	// ErrAllEndpointsFailed indicates every configured endpoint failed or is cooling down
	ErrAllEndpointsFailed = errors.New("all RPC endpoints failed")

	// ErrProviderRateLimit indicates the provider rate limit was exceeded
	ErrProviderRateLimit = errors.New("provider rate limit exceeded")
)

// AdapterError wraps errors with the provider and operation that produced them
type AdapterError struct {
	Provider string
	Op       string // Operation that failed (e.g., "FetchBalances", "GetPrices")
	Err      error
	Details  map[string]interface{}
}

func (e *AdapterError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s %s failed: %v (details: %+v)", e.Provider, e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(provider, op string, err error, details map[string]interface{}) *AdapterError {
	return &AdapterError{
		Provider: provider,
		Op:       op,
		Err:      err,
		Details:  details,
	}
}
