// Package ratelimit meters compute units (CU) spent on Alchemy calls so that every process
// sharing an API key stays inside the key's per-second allowance.
package ratelimit

import (
	"sync"
)

// CU costs of the methods used for balance fetching and token discovery
const (
	DefaultCUCost = 20 // Default cost for unknown methods

	CostEthBlockNumber          = 10
	CostEthGetBalance           = 19
	CostEthCall                 = 26
	CostAlchemyGetTokenBalances = 26
	CostAlchemyGetTokenMetadata = 10
)

// RPC method names
const (
	MethodEthBlockNumber          = "eth_blockNumber"
	MethodEthGetBalance           = "eth_getBalance"
	MethodEthCall                 = "eth_call"
	MethodAlchemyGetTokenBalances = "alchemy_getTokenBalances"
	MethodAlchemyGetTokenMetadata = "alchemy_getTokenMetadata"
)

// CUCostRegistry maps RPC methods to their CU costs.
// It is safe for concurrent use.
type CUCostRegistry struct {
	mu          sync.RWMutex
	costs       map[string]int
	defaultCost int
}

// CUCostRegistryConfig holds configuration for the registry.
type CUCostRegistryConfig struct {
	// DefaultCost is the CU cost for unknown RPC methods. Zero keeps DefaultCUCost.
	DefaultCost int

	// Overrides replaces built-in costs for specific methods.
	Overrides map[string]int
}

// NewCUCostRegistry creates a registry with the built-in costs. cfg may be nil.
func NewCUCostRegistry(cfg *CUCostRegistryConfig) *CUCostRegistry {
	costs := map[string]int{
		MethodEthBlockNumber:          CostEthBlockNumber,
		MethodEthGetBalance:           CostEthGetBalance,
		MethodEthCall:                 CostEthCall,
		MethodAlchemyGetTokenBalances: CostAlchemyGetTokenBalances,
		MethodAlchemyGetTokenMetadata: CostAlchemyGetTokenMetadata,
	}

	defaultCost := DefaultCUCost

	if cfg != nil {
		if cfg.DefaultCost > 0 {
			defaultCost = cfg.DefaultCost
		}
		for method, cost := range cfg.Overrides {
			if cost > 0 {
				costs[method] = cost
			}
		}
	}

	return &CUCostRegistry{
		costs:       costs,
		defaultCost: defaultCost,
	}
}

// GetCost returns the CU cost for an RPC method, or the default for unknown methods.
func (r *CUCostRegistry) GetCost(method string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cost, ok := r.costs[method]; ok {
		return cost
	}
	return r.defaultCost
}

// SetCost updates the cost of a method. Non-positive costs are ignored.
func (r *CUCostRegistry) SetCost(method string, cost int) {
	if cost <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.costs[method] = cost
}
