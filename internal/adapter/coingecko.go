package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/portfolio-dashboard/internal/circuitbreaker"
	"github.com/portfolio-dashboard/internal/config"
	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/retry"
)

// DefaultCoinGeckoURL is the public API root
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// coingeckoIDs maps symbols to CoinGecko ids. Symbols are case-sensitive.
var coingeckoIDs = map[string]string{
	"ETH":   "ethereum",
	"SOL":   "solana",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"DAI":   "dai",
	"WETH":  "weth",
	"WBTC":  "wrapped-bitcoin",
	"stETH": "staked-ether",
	"cbETH": "coinbase-wrapped-staked-eth",
}

// CoingeckoID returns the id to price symbol with. A non-empty override wins; unknown
// symbols return "".
func CoingeckoID(symbol, override string) string {
	if override != "" {
		return override
	}
	return coingeckoIDs[symbol]
}

// PriceStore caches quotes between lookups. storage.PriceCache implements it.
type PriceStore interface {
	Lookup(ctx context.Context, symbols []string) (fresh, stale map[string]models.PriceQuote, err error)
	Store(ctx context.Context, quotes []models.PriceQuote) error
}

// PriceRequest asks for the USD price of a symbol
type PriceRequest struct {
	Symbol      string
	CoingeckoID string // optional override
}

// PriceClient fetches USD prices from CoinGecko in batches with a cache in front
type PriceClient struct {
	baseURL          string
	client           *http.Client
	store            PriceStore
	breaker          *circuitbreaker.CircuitBreaker
	policy           retry.Policy
	rateLimitBackoff time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewPriceClient creates a price client. store and breaker may be nil.
func NewPriceClient(cfg config.PricesConfig, store PriceStore, breaker *circuitbreaker.CircuitBreaker) *PriceClient {
	baseURL := strings.TrimSuffix(cfg.CoinGeckoBaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = 3
	// a 429 has already waited out the backoff once
	policy.Retryable = func(err error) bool {
		return !isProviderRateLimit(err) && apperrors.IsRetryable(err)
	}

	return &PriceClient{
		baseURL:          baseURL,
		client:           &http.Client{Timeout: timeout},
		store:            store,
		breaker:          breaker,
		policy:           policy,
		rateLimitBackoff: cfg.RateLimitBackoff,
		sleep:            sleepContext,
		now:              time.Now,
	}
}

// GetBatchPrices returns a USD price per requested symbol; nil means unpriced. Fresh cached
// quotes are served from the store and the rest fetched in one call. When the fetch fails a
// stale cached quote is used if there is one.
func (c *PriceClient) GetBatchPrices(ctx context.Context, requests []PriceRequest) map[string]*float64 {
	logger := logging.FromContext(ctx)
	results := make(map[string]*float64, len(requests))

	overrides := make(map[string]string)
	var symbols []string
	for _, r := range requests {
		if r.Symbol == "" {
			continue
		}
		if _, seen := results[r.Symbol]; !seen {
			results[r.Symbol] = nil
			symbols = append(symbols, r.Symbol)
		}
		if r.CoingeckoID != "" && overrides[r.Symbol] == "" {
			overrides[r.Symbol] = r.CoingeckoID
		}
	}
	if len(symbols) == 0 {
		return results
	}

	var fresh, stale map[string]models.PriceQuote
	if c.store != nil {
		var err error
		fresh, stale, err = c.store.Lookup(ctx, symbols)
		if err != nil {
			logger.WithError(err).Warn("Price cache lookup failed")
		}
	}

	pending := make(map[string]string) // symbol -> coingecko id
	for _, symbol := range symbols {
		if quote, ok := fresh[symbol]; ok {
			results[symbol] = priceOf(quote.PriceUsd)
			continue
		}
		if id := CoingeckoID(symbol, overrides[symbol]); id != "" {
			pending[symbol] = id
		}
	}
	if len(pending) == 0 {
		return results
	}

	prices, err := c.fetch(ctx, uniqueIDs(pending))
	if err != nil {
		logger.WithError(err).Warn("Batch price fetch failed")
		for symbol := range pending {
			if quote, ok := stale[symbol]; ok {
				logger.WithField("symbol", symbol).Warn("Using stale price")
				results[symbol] = priceOf(quote.PriceUsd)
			}
		}
		return results
	}

	fetchedAt := c.now().UTC()
	var quotes []models.PriceQuote
	for symbol, id := range pending {
		price, ok := prices[id]
		if !ok {
			continue
		}
		results[symbol] = priceOf(price)
		quotes = append(quotes, models.PriceQuote{
			Symbol:      symbol,
			CoingeckoID: id,
			PriceUsd:    price,
			FetchedAt:   fetchedAt,
		})
	}

	if c.store != nil && len(quotes) > 0 {
		if err := c.store.Store(ctx, quotes); err != nil {
			logger.WithError(err).Warn("Failed to cache prices")
		}
	}

	return results
}

// fetch requests ids through the circuit breaker and retry policy
func (c *PriceClient) fetch(ctx context.Context, ids []string) (map[string]float64, error) {
	var prices map[string]float64
	call := func(ctx context.Context) error {
		var err error
		prices, err = retry.Do(ctx, c.policy, func(ctx context.Context) (map[string]float64, error) {
			return c.requestPrices(ctx, ids)
		})
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, NewAdapterError("coingecko", "GetPrices", err, map[string]interface{}{"ids": len(ids)})
	}
	return prices, nil
}

// requestPrices performs one simple/price call. A 429 waits out the backoff and tries once
// more.
func (c *PriceClient) requestPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")
	endpoint := c.baseURL + "/simple/price?" + query.Encode()

	status, body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		logging.FromContext(ctx).WithField("backoff", c.rateLimitBackoff.String()).
			Warn("CoinGecko rate limit hit, waiting")
		if err := c.sleep(ctx, c.rateLimitBackoff); err != nil {
			return nil, err
		}
		status, body, err = c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return nil, apperrors.NewProviderRateLimitError("coingecko")
	case status >= 500:
		return nil, apperrors.NewProviderError("coingecko", fmt.Errorf("HTTP error: %d", status))
	case status != http.StatusOK:
		return nil, fmt.Errorf("coingecko API error: %d - %s", status, string(body))
	}

	var payload map[string]map[string]float64
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	prices := make(map[string]float64, len(payload))
	for id, quote := range payload {
		if usd, ok := quote["usd"]; ok {
			prices[id] = usd
		}
	}
	return prices, nil
}

func (c *PriceClient) get(ctx context.Context, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, apperrors.NewProviderError("coingecko", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, apperrors.NewProviderError("coingecko", err)
	}
	return resp.StatusCode, body, nil
}

func isProviderRateLimit(err error) bool {
	catErr := apperrors.Categorize(err)
	return catErr != nil && catErr.Code == "PROVIDER_RATE_LIMIT"
}

func uniqueIDs(pending map[string]string) []string {
	seen := make(map[string]bool, len(pending))
	var ids []string
	for _, id := range pending {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func priceOf(v float64) *float64 {
	return &v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
