package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/retry"
	"github.com/portfolio-dashboard/internal/types"
	"github.com/portfolio-dashboard/internal/valuation"
)

// HyperliquidInfoURL is the public info endpoint
const HyperliquidInfoURL = "https://api.hyperliquid.xyz/info"

// HyperliquidSpotBalance is one spot token balance
type HyperliquidSpotBalance struct {
	Coin  string `json:"coin"`
	Hold  string `json:"hold"`
	Total string `json:"total"`
}

// HyperliquidPerpPosition is one perpetual position; numeric fields stay decimal strings
type HyperliquidPerpPosition struct {
	Coin           string `json:"coin"`
	Szi            string `json:"szi"` // positive = long, negative = short
	EntryPx        string `json:"entryPx"`
	PositionValue  string `json:"positionValue"`
	UnrealizedPnl  string `json:"unrealizedPnl"`
	ReturnOnEquity string `json:"returnOnEquity"`
}

type hyperliquidSpotState struct {
	Balances []HyperliquidSpotBalance `json:"balances"`
}

type hyperliquidPerpState struct {
	AssetPositions []struct {
		Position HyperliquidPerpPosition `json:"position"`
		Type     string                  `json:"type"`
	} `json:"assetPositions"`
}

// HyperliquidClient reads spot balances and perp positions from the Hyperliquid info API
type HyperliquidClient struct {
	url    string
	client *http.Client
	policy retry.Policy
}

// NewHyperliquidClient creates a client. An empty url uses the public endpoint.
func NewHyperliquidClient(url string, timeout time.Duration) *HyperliquidClient {
	if url == "" {
		url = HyperliquidInfoURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = 3
	return &HyperliquidClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		policy: policy,
	}
}

// ChainType implements BalanceFetcher
func (c *HyperliquidClient) ChainType() types.ChainType {
	return types.ChainHYPE
}

// FetchBalances implements BalanceFetcher. Spot balances become positions; perps with a
// non-zero size are reported separately and never valued.
func (c *HyperliquidClient) FetchBalances(ctx context.Context, wallet models.Wallet) (*FetchResult, error) {
	var spot []HyperliquidSpotBalance
	var perps []HyperliquidPerpPosition

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		spot, err = c.SpotBalances(gctx, wallet.Address)
		return err
	})
	g.Go(func() error {
		var err error
		perps, err = c.PerpPositions(gctx, wallet.Address)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, NewAdapterError("hyperliquid", "FetchBalances", err, nil)
	}

	walletID := wallet.ID
	result := &FetchResult{}
	for _, balance := range spot {
		total, err := decimal.NewFromString(balance.Total)
		if err != nil || !total.IsPositive() {
			continue
		}
		result.add(valuation.MarketPosition{
			AssetKey: valuation.HyperliquidKey(balance.Coin, wallet.Address),
			Source:   types.SourceHYPE,
			WalletID: &walletID,
			Symbol:   balance.Coin,
			Quantity: total.InexactFloat64(),
		})
	}

	for _, p := range perps {
		direction := types.DirectionShort
		if size, err := decimal.NewFromString(p.Szi); err == nil && size.IsPositive() {
			direction = types.DirectionLong
		}
		result.Perps = append(result.Perps, models.PerpPosition{
			WalletID:      wallet.ID,
			Address:       wallet.Address,
			Coin:          p.Coin,
			Szi:           p.Szi,
			Direction:     direction,
			EntryPx:       p.EntryPx,
			PositionValue: p.PositionValue,
			UnrealizedPnl: p.UnrealizedPnl,
		})
	}

	return result, nil
}

// SpotBalances returns the spot balances of address
func (c *HyperliquidClient) SpotBalances(ctx context.Context, address string) ([]HyperliquidSpotBalance, error) {
	var state hyperliquidSpotState
	if err := c.info(ctx, "spotClearinghouseState", address, &state); err != nil {
		return nil, err
	}
	return state.Balances, nil
}

// PerpPositions returns the open perp positions of address, dropping zero sizes
func (c *HyperliquidClient) PerpPositions(ctx context.Context, address string) ([]HyperliquidPerpPosition, error) {
	var state hyperliquidPerpState
	if err := c.info(ctx, "clearinghouseState", address, &state); err != nil {
		return nil, err
	}

	var positions []HyperliquidPerpPosition
	for _, ap := range state.AssetPositions {
		size, err := decimal.NewFromString(ap.Position.Szi)
		if err != nil || size.IsZero() {
			continue
		}
		positions = append(positions, ap.Position)
	}
	return positions, nil
}

// info posts one info request, retrying transport failures and 5xx answers
func (c *HyperliquidClient) info(ctx context.Context, requestType, address string, dest interface{}) error {
	payload, err := json.Marshal(map[string]string{"type": requestType, "user": address})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	body, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"type":    requestType,
			"address": address,
		}).WithError(err).Warn("Hyperliquid request failed")
		return err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", requestType, err)
	}
	return nil
}

func (c *HyperliquidClient) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError("hyperliquid", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewProviderError("hyperliquid", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewProviderRateLimitError("hyperliquid")
	case resp.StatusCode >= 500:
		return nil, apperrors.NewProviderError("hyperliquid", fmt.Errorf("HTTP error: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("hyperliquid API error: %d - %s", resp.StatusCode, string(body))
	}
	return body, nil
}
