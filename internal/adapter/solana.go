package adapter

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"

	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

// SPLTokenProgramID owns every classic SPL token account
const SPLTokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCdYfFb6Fs6j579bkRN"

const lamportsPerSOL = 9

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// SolanaRPC is the JSON-RPC surface the Solana fetcher uses. *rpc.Client satisfies it.
type SolanaRPC interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// NewSolanaPool creates a JSON-RPC pool over Solana urls. Each endpoint is probed with
// getVersion before use.
func NewSolanaPool(urls []string) (*RPCPool[SolanaRPC], error) {
	return NewRPCPool(RPCPoolConfig[SolanaRPC]{
		Name:      "solana",
		Endpoints: urls,
		Dial: func(ctx context.Context, url string) (SolanaRPC, error) {
			return rpc.DialContext(ctx, url)
		},
		Probe: func(ctx context.Context, client SolanaRPC) error {
			var version map[string]interface{}
			return client.CallContext(ctx, &version, "getVersion")
		},
		Close: func(client SolanaRPC) {
			if c, ok := client.(*rpc.Client); ok {
				c.Close()
			}
		},
	})
}

type solanaBalance struct {
	Value uint64 `json:"value"`
}

type solanaTokenAccounts struct {
	Value []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						TokenAmount struct {
							Amount         string `json:"amount"`
							Decimals       int    `json:"decimals"`
							UIAmountString string `json:"uiAmountString"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// SolanaFetcher reads native SOL and allowlisted SPL token balances
type SolanaFetcher struct {
	pool *RPCPool[SolanaRPC]
}

// NewSolanaFetcher creates a Solana fetcher
func NewSolanaFetcher(pool *RPCPool[SolanaRPC]) *SolanaFetcher {
	return &SolanaFetcher{pool: pool}
}

// ChainType implements BalanceFetcher
func (f *SolanaFetcher) ChainType() types.ChainType {
	return types.ChainSOL
}

// FetchBalances implements BalanceFetcher. Addresses that are not Solana public keys are
// skipped with an empty result. The native and token reads fail independently.
func (f *SolanaFetcher) FetchBalances(ctx context.Context, wallet models.Wallet) (*FetchResult, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"walletId": wallet.ID,
		"address":  wallet.Address,
	})

	result := &FetchResult{}
	if !IsSolanaAddress(wallet.Address) {
		logger.Info("Skipping non-Solana address")
		return result, nil
	}
	if f.pool == nil {
		return nil, NewAdapterError("solana", "FetchBalances", ErrNoEndpoints, nil)
	}

	client, err := f.pool.Client(ctx)
	if err != nil {
		return nil, NewAdapterError("solana", "FetchBalances", err, nil)
	}
	walletID := wallet.ID

	var balance solanaBalance
	if err := client.CallContext(ctx, &balance, "getBalance", wallet.Address); err != nil {
		f.noteFailure(err)
		logger.WithError(err).Warn("Failed to fetch SOL balance")
	} else if balance.Value > 0 {
		result.add(valuation.MarketPosition{
			AssetKey: valuation.SolanaNativeKey,
			Source:   types.SourceSOL,
			WalletID: &walletID,
			Symbol:   "SOL",
			Quantity: fromBaseUnits(new(big.Int).SetUint64(balance.Value), lamportsPerSOL),
		})
	}

	allowlist := make(map[string]models.SOLTokenAllowlistItem, len(wallet.SOLAllowlist))
	for _, token := range wallet.SOLAllowlist {
		allowlist[strings.ToLower(token.MintAddress)] = token
	}
	if len(allowlist) == 0 {
		return result, nil
	}

	var accounts solanaTokenAccounts
	err = client.CallContext(ctx, &accounts, "getTokenAccountsByOwner", wallet.Address,
		map[string]string{"programId": SPLTokenProgramID},
		map[string]string{"encoding": "jsonParsed"})
	if err != nil {
		f.noteFailure(err)
		logger.WithError(err).Warn("Failed to fetch SPL token accounts")
		return result, nil
	}

	for _, account := range accounts.Value {
		info := account.Account.Data.Parsed.Info
		mint := strings.ToLower(info.Mint)
		token, ok := allowlist[mint]
		if !ok {
			continue
		}
		amount := splAmount(info.TokenAmount.UIAmountString, info.TokenAmount.Amount, info.TokenAmount.Decimals)
		if amount <= 0 {
			continue
		}
		symbol := token.DisplaySymbol()
		result.add(valuation.MarketPosition{
			AssetKey: valuation.SPLKey(mint),
			Source:   types.SourceSOL,
			WalletID: &walletID,
			Symbol:   symbol,
			Quantity: amount,
		})
		result.priceID(symbol, token.CoingeckoID)
	}

	return result, nil
}

func (f *SolanaFetcher) noteFailure(err error) {
	if IsRateLimitError(err) {
		f.pool.OnRateLimited()
	}
}

// splAmount prefers the decimal ui amount and falls back to the raw amount and decimals
func splAmount(uiAmount, raw string, decimals int) float64 {
	if uiAmount != "" {
		if d, err := decimal.NewFromString(uiAmount); err == nil {
			return d.InexactFloat64()
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	return d.Shift(-int32(decimals)).InexactFloat64()
}

// IsSolanaAddress reports whether s looks like a base58 encoded 32-byte public key
func IsSolanaAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}
