package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

// mainnetChainID is the chain id used in allowlist asset keys
const mainnetChainID = 1

const erc20ABIJSON = `[
	{"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// EVMBackend is the subset of ethclient.Client the EVM fetcher uses
type EVMBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// NewEVMPool creates an ethclient pool over urls. Each endpoint is probed with
// eth_blockNumber before use.
func NewEVMPool(urls []string) (*RPCPool[EVMBackend], error) {
	return NewRPCPool(RPCPoolConfig[EVMBackend]{
		Name:      "evm",
		Endpoints: urls,
		Dial: func(ctx context.Context, url string) (EVMBackend, error) {
			return ethclient.DialContext(ctx, url)
		},
		Probe: func(ctx context.Context, client EVMBackend) error {
			_, err := client.BlockNumber(ctx)
			return err
		},
		Close: func(client EVMBackend) {
			if c, ok := client.(*ethclient.Client); ok {
				c.Close()
			}
		},
	})
}

// EVMFetcher reads native ETH and ERC-20 balances. With a discovery client every token the
// wallet holds is found automatically; otherwise only allowlisted tokens are read.
type EVMFetcher struct {
	pool      *RPCPool[EVMBackend]
	discovery *AlchemyClient
}

// NewEVMFetcher creates an EVM fetcher. discovery may be nil.
func NewEVMFetcher(pool *RPCPool[EVMBackend], discovery *AlchemyClient) *EVMFetcher {
	return &EVMFetcher{pool: pool, discovery: discovery}
}

// ChainType implements BalanceFetcher
func (f *EVMFetcher) ChainType() types.ChainType {
	return types.ChainEVM
}

// FetchBalances implements BalanceFetcher
func (f *EVMFetcher) FetchBalances(ctx context.Context, wallet models.Wallet) (*FetchResult, error) {
	if !common.IsHexAddress(wallet.Address) {
		return nil, NewAdapterError("evm", "FetchBalances", ErrInvalidAddress,
			map[string]interface{}{"address": wallet.Address})
	}
	if f.discovery != nil {
		return f.discover(ctx, wallet)
	}
	if f.pool == nil {
		return nil, NewAdapterError("evm", "FetchBalances", ErrNoEndpoints, nil)
	}
	return f.fetchAllowlist(ctx, wallet)
}

// fetchAllowlist reads native ETH and every allowlisted ERC-20 token. Per-token failures are
// logged and skipped.
func (f *EVMFetcher) fetchAllowlist(ctx context.Context, wallet models.Wallet) (*FetchResult, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"walletId": wallet.ID,
		"address":  wallet.Address,
	})

	client, err := f.pool.Client(ctx)
	if err != nil {
		return nil, NewAdapterError("evm", "FetchBalances", err, nil)
	}

	owner := common.HexToAddress(wallet.Address)
	walletID := wallet.ID
	result := &FetchResult{}

	wei, err := client.BalanceAt(ctx, owner, nil)
	if err != nil {
		f.noteFailure(err)
		logger.WithError(err).Warn("Failed to fetch ETH balance")
	} else if amount := fromBaseUnits(wei, 18); amount > 0 {
		result.add(valuation.MarketPosition{
			AssetKey: valuation.AllowlistETHKey,
			Source:   types.SourceEVM,
			WalletID: &walletID,
			Symbol:   "ETH",
			Quantity: amount,
		})
	}

	for _, token := range wallet.EVMAllowlist {
		tokenLogger := logger.WithField("contract", token.ContractAddress)
		if !common.IsHexAddress(token.ContractAddress) {
			tokenLogger.Warn("Skipping allowlisted token with invalid contract address")
			continue
		}
		contract := common.HexToAddress(token.ContractAddress)

		var decimals int
		var symbol string
		if token.Decimals != nil {
			decimals = *token.Decimals
		}
		if token.Symbol != nil {
			symbol = *token.Symbol
		}
		if decimals == 0 || symbol == "" {
			meta, err := tokenMetadata(ctx, client, contract)
			if err != nil {
				f.noteFailure(err)
				tokenLogger.WithError(err).Warn("Failed to fetch token metadata")
				continue
			}
			decimals, symbol = meta.decimals, meta.symbol
		}
		if decimals == 0 {
			tokenLogger.Warn("No decimals available for token")
			continue
		}

		balance, err := tokenBalance(ctx, client, contract, owner)
		if err != nil {
			f.noteFailure(err)
			tokenLogger.WithError(err).Warn("Failed to fetch token balance")
			continue
		}
		amount := fromBaseUnits(balance, decimals)
		if amount <= 0 {
			continue
		}
		if symbol == "" {
			symbol = "UNKNOWN"
		}

		result.add(valuation.MarketPosition{
			AssetKey: valuation.ERC20Key(mainnetChainID, strings.ToLower(token.ContractAddress)),
			Source:   types.SourceEVM,
			WalletID: &walletID,
			Symbol:   symbol,
			Quantity: amount,
		})
		result.priceID(symbol, token.CoingeckoID)
	}

	return result, nil
}

// discover lists every ERC-20 the wallet holds plus native ETH through the discovery API
func (f *EVMFetcher) discover(ctx context.Context, wallet models.Wallet) (*FetchResult, error) {
	walletID := wallet.ID
	result := &FetchResult{}

	wei, err := f.discovery.EthBalance(ctx, wallet.Address)
	if err != nil {
		return nil, NewAdapterError("alchemy", "EthBalance", err, nil)
	}
	if amount := fromBaseUnits(wei, 18); amount > 0 {
		result.add(valuation.MarketPosition{
			AssetKey: valuation.EVMNativeKey(wallet.Address),
			Source:   types.SourceEVM,
			WalletID: &walletID,
			Symbol:   "ETH",
			Quantity: amount,
		})
	}

	tokens, err := f.discovery.TokenBalances(ctx, wallet.Address)
	if err != nil {
		return nil, NewAdapterError("alchemy", "TokenBalances", err, nil)
	}
	for _, token := range tokens {
		amount := fromBaseUnits(token.Balance, token.Decimals)
		if amount <= 0 {
			continue
		}
		result.add(valuation.MarketPosition{
			AssetKey: valuation.EVMTokenKey(token.ContractAddress, wallet.Address),
			Source:   types.SourceEVM,
			WalletID: &walletID,
			Symbol:   token.Symbol,
			Quantity: amount,
		})
	}

	return result, nil
}

func (f *EVMFetcher) noteFailure(err error) {
	if IsRateLimitError(err) {
		f.pool.OnRateLimited()
	}
}

type erc20Metadata struct {
	decimals int
	symbol   string
}

func tokenMetadata(ctx context.Context, client EVMBackend, contract common.Address) (erc20Metadata, error) {
	out, err := callERC20(ctx, client, contract, "decimals")
	if err != nil {
		return erc20Metadata{}, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return erc20Metadata{}, fmt.Errorf("unexpected decimals type %T", out[0])
	}

	out, err = callERC20(ctx, client, contract, "symbol")
	if err != nil {
		return erc20Metadata{}, err
	}
	symbol, ok := out[0].(string)
	if !ok {
		return erc20Metadata{}, fmt.Errorf("unexpected symbol type %T", out[0])
	}

	return erc20Metadata{decimals: int(decimals), symbol: symbol}, nil
}

func tokenBalance(ctx context.Context, client EVMBackend, contract, owner common.Address) (*big.Int, error) {
	out, err := callERC20(ctx, client, contract, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balance type %T", out[0])
	}
	return balance, nil
}

// callERC20 runs a read-only ERC-20 method against the latest block
func callERC20(ctx context.Context, client EVMBackend, contract common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := erc20ABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

// fromBaseUnits converts an integer token amount to whole units
func fromBaseUnits(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).InexactFloat64()
}
