package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/portfolio-dashboard/internal/logging"
)

// AlchemyMainnetURL is the Ethereum mainnet endpoint; the API key is appended
const AlchemyMainnetURL = "https://eth-mainnet.g.alchemy.com/v2/"

// CUBudget admits calls against a shared compute unit allowance
type CUBudget interface {
	Acquire(ctx context.Context, method string, calls int) error
}

// AlchemyClient discovers every ERC-20 token held by an address using Alchemy's token API
type AlchemyClient struct {
	client *rpc.Client
	budget CUBudget
}

// DiscoveredToken is a non-zero ERC-20 balance with its metadata
type DiscoveredToken struct {
	ContractAddress string
	Balance         *big.Int
	Decimals        int
	Symbol          string
	Name            string
}

type alchemyTokenBalances struct {
	Address       string `json:"address"`
	TokenBalances []struct {
		ContractAddress string  `json:"contractAddress"`
		TokenBalance    string  `json:"tokenBalance"`
		Error           *string `json:"error"`
	} `json:"tokenBalances"`
}

type alchemyTokenMetadata struct {
	Decimals *int   `json:"decimals"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
}

// NewAlchemyClient connects to an Alchemy endpoint URL
func NewAlchemyClient(ctx context.Context, url string) (*AlchemyClient, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to alchemy: %w", err)
	}
	return &AlchemyClient{client: client}, nil
}

// NewAlchemyClientFromKey connects to Ethereum mainnet with an API key
func NewAlchemyClientFromKey(ctx context.Context, apiKey string) (*AlchemyClient, error) {
	return NewAlchemyClient(ctx, AlchemyMainnetURL+apiKey)
}

// WithBudget meters every call against budget
func (c *AlchemyClient) WithBudget(budget CUBudget) *AlchemyClient {
	c.budget = budget
	return c
}

func (c *AlchemyClient) acquire(ctx context.Context, method string, calls int) error {
	if c.budget == nil {
		return nil
	}
	return c.budget.Acquire(ctx, method, calls)
}

// Close releases the underlying connection
func (c *AlchemyClient) Close() {
	c.client.Close()
}

// EthBalance returns the native balance in wei
func (c *AlchemyClient) EthBalance(ctx context.Context, address string) (*big.Int, error) {
	if err := c.acquire(ctx, "eth_getBalance", 1); err != nil {
		return nil, err
	}
	var balance hexutil.Big
	if err := c.client.CallContext(ctx, &balance, "eth_getBalance", address, "latest"); err != nil {
		return nil, err
	}
	return balance.ToInt(), nil
}

// TokenBalances returns every non-zero ERC-20 balance of address. Metadata is fetched in
// one batch; tokens without a symbol or decimals are skipped.
func (c *AlchemyClient) TokenBalances(ctx context.Context, address string) ([]DiscoveredToken, error) {
	logger := logging.FromContext(ctx).WithField("address", address)

	if err := c.acquire(ctx, "alchemy_getTokenBalances", 1); err != nil {
		return nil, err
	}
	var balances alchemyTokenBalances
	if err := c.client.CallContext(ctx, &balances, "alchemy_getTokenBalances", address, "erc20"); err != nil {
		return nil, err
	}

	var tokens []DiscoveredToken
	for _, tb := range balances.TokenBalances {
		if tb.Error != nil {
			continue
		}
		balance, ok := parseHexQuantity(tb.TokenBalance)
		if !ok || balance.Sign() <= 0 {
			continue
		}
		tokens = append(tokens, DiscoveredToken{
			ContractAddress: strings.ToLower(tb.ContractAddress),
			Balance:         balance,
		})
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	if err := c.acquire(ctx, "alchemy_getTokenMetadata", len(tokens)); err != nil {
		return nil, err
	}
	metadata := make([]alchemyTokenMetadata, len(tokens))
	batch := make([]rpc.BatchElem, len(tokens))
	for i, token := range tokens {
		batch[i] = rpc.BatchElem{
			Method: "alchemy_getTokenMetadata",
			Args:   []interface{}{token.ContractAddress},
			Result: &metadata[i],
		}
	}
	if err := c.client.BatchCallContext(ctx, batch); err != nil {
		return nil, err
	}

	out := tokens[:0]
	for i, token := range tokens {
		meta := metadata[i]
		if batch[i].Error != nil {
			logger.WithField("contract", token.ContractAddress).WithError(batch[i].Error).
				Warn("Failed to fetch token metadata")
			continue
		}
		if meta.Symbol == "" || meta.Decimals == nil || *meta.Decimals == 0 {
			logger.WithField("contract", token.ContractAddress).Warn("Invalid token metadata")
			continue
		}
		token.Decimals = *meta.Decimals
		token.Symbol = meta.Symbol
		token.Name = meta.Name
		out = append(out, token)
	}
	return out, nil
}

// parseHexQuantity parses a 0x-prefixed hex integer. Leading zeros are allowed, unlike
// hexutil.DecodeBig.
func parseHexQuantity(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 16)
}
