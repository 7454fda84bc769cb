// Package settings resolves the domain settings used by valuation and analytics.
//
// Settings are stored as one JSON value per key. Stored overrides are merged onto
// Defaults by Resolve, which is pure: no package-level mutable state is kept.
package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Fallback ETH price used when neither an override nor a live price is available
const FallbackETHPriceUsd = 3000.0

// Setting keys as stored in the settings table
const (
	KeyFxUsdAud         = "fxUsdAud"
	KeyEthPriceUsd      = "ethPriceUsd"
	KeyMonthlyBurnAud   = "monthlyBurnAud"
	KeyHaircutImmediate = "haircutImmediate"
	KeyHaircutFast      = "haircutFast"
	KeyHaircutSlow      = "haircutSlow"
	KeyStablecoins      = "stablecoins"
	KeyMajorTokens      = "majorTokens"
	KeyEVMRPCURLs       = "evmRpcUrls"
	KeySolanaRPCURLs    = "solanaRpcUrls"
	KeySolMinValueAud   = "solMinValueAud"
)

// AppSettings is the fully resolved settings object
type AppSettings struct {
	FxUsdAud         float64  `json:"fxUsdAud"`
	EthPriceUsd      *float64 `json:"ethPriceUsd,omitempty"`
	MonthlyBurnAud   float64  `json:"monthlyBurnAud"`
	HaircutImmediate float64  `json:"haircutImmediate"`
	HaircutFast      float64  `json:"haircutFast"`
	HaircutSlow      float64  `json:"haircutSlow"`
	Stablecoins      []string `json:"stablecoins"`
	MajorTokens      []string `json:"majorTokens"`
	EVMRPCURLs       []string `json:"evmRpcUrls"`
	SolanaRPCURLs    []string `json:"solanaRpcUrls"`
	SolMinValueAud   float64  `json:"solMinValueAud"`
}

// Overrides carries a partial set of settings. Nil fields keep their default.
type Overrides struct {
	FxUsdAud         *float64 `json:"fxUsdAud,omitempty"`
	EthPriceUsd      *float64 `json:"ethPriceUsd,omitempty"`
	MonthlyBurnAud   *float64 `json:"monthlyBurnAud,omitempty"`
	HaircutImmediate *float64 `json:"haircutImmediate,omitempty"`
	HaircutFast      *float64 `json:"haircutFast,omitempty"`
	HaircutSlow      *float64 `json:"haircutSlow,omitempty"`
	Stablecoins      []string `json:"stablecoins,omitempty"`
	MajorTokens      []string `json:"majorTokens,omitempty"`
	EVMRPCURLs       []string `json:"evmRpcUrls,omitempty"`
	SolanaRPCURLs    []string `json:"solanaRpcUrls,omitempty"`
	SolMinValueAud   *float64 `json:"solMinValueAud,omitempty"`
}

// Defaults returns a fresh copy of the default settings
func Defaults() AppSettings {
	return AppSettings{
		FxUsdAud:         1.50,
		MonthlyBurnAud:   5000,
		HaircutImmediate: 0,
		HaircutFast:      0.10,
		HaircutSlow:      0.40,
		Stablecoins:      []string{"USDC", "USDT", "DAI"},
		MajorTokens:      []string{"ETH", "SOL", "BTC", "WBTC", "WETH"},
		EVMRPCURLs: []string{
			"https://eth.llamarpc.com",
			"https://rpc.ankr.com/eth",
			"https://ethereum.publicnode.com",
		},
		SolanaRPCURLs: []string{
			"https://api.mainnet-beta.solana.com",
			"https://solana-mainnet.rpc.extrnode.com",
		},
		SolMinValueAud: 20,
	}
}

// Resolve merges overrides onto the defaults
func Resolve(o Overrides) AppSettings {
	s := Defaults()
	if o.FxUsdAud != nil {
		s.FxUsdAud = *o.FxUsdAud
	}
	if o.EthPriceUsd != nil {
		v := *o.EthPriceUsd
		s.EthPriceUsd = &v
	}
	if o.MonthlyBurnAud != nil {
		s.MonthlyBurnAud = *o.MonthlyBurnAud
	}
	if o.HaircutImmediate != nil {
		s.HaircutImmediate = *o.HaircutImmediate
	}
	if o.HaircutFast != nil {
		s.HaircutFast = *o.HaircutFast
	}
	if o.HaircutSlow != nil {
		s.HaircutSlow = *o.HaircutSlow
	}
	if o.Stablecoins != nil {
		s.Stablecoins = append([]string(nil), o.Stablecoins...)
	}
	if o.MajorTokens != nil {
		s.MajorTokens = append([]string(nil), o.MajorTokens...)
	}
	if o.EVMRPCURLs != nil {
		s.EVMRPCURLs = append([]string(nil), o.EVMRPCURLs...)
	}
	if o.SolanaRPCURLs != nil {
		s.SolanaRPCURLs = append([]string(nil), o.SolanaRPCURLs...)
	}
	if o.SolMinValueAud != nil {
		s.SolMinValueAud = *o.SolMinValueAud
	}
	return s
}

// ResolveEthPrice picks the ETH price used for ETH-denominated manual assets:
// settings override, then the live price, then FallbackETHPriceUsd.
func ResolveEthPrice(s AppSettings, live *float64) float64 {
	if s.EthPriceUsd != nil {
		return *s.EthPriceUsd
	}
	if live != nil {
		return *live
	}
	return FallbackETHPriceUsd
}

// Validate checks that a resolved settings object is usable
func (s AppSettings) Validate() error {
	if s.FxUsdAud <= 0 {
		return fmt.Errorf("fxUsdAud must be positive, got %v", s.FxUsdAud)
	}
	if s.MonthlyBurnAud < 0 {
		return fmt.Errorf("monthlyBurnAud must not be negative, got %v", s.MonthlyBurnAud)
	}
	for name, h := range map[string]float64{
		KeyHaircutImmediate: s.HaircutImmediate,
		KeyHaircutFast:      s.HaircutFast,
		KeyHaircutSlow:      s.HaircutSlow,
	} {
		if h < 0 || h > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, h)
		}
	}
	if s.EthPriceUsd != nil && *s.EthPriceUsd <= 0 {
		return fmt.Errorf("ethPriceUsd must be positive, got %v", *s.EthPriceUsd)
	}
	return nil
}

// FromRecords decodes stored key/value records into overrides. Unknown keys and values that
// do not parse are skipped and reported by key.
func FromRecords(records map[string]string) (Overrides, []string) {
	var o Overrides
	var skipped []string

	for key, raw := range records {
		var err error
		switch key {
		case KeyFxUsdAud:
			o.FxUsdAud, err = parseNumber(raw)
		case KeyEthPriceUsd:
			o.EthPriceUsd, err = parseNumber(raw)
		case KeyMonthlyBurnAud:
			o.MonthlyBurnAud, err = parseNumber(raw)
		case KeyHaircutImmediate:
			o.HaircutImmediate, err = parseNumber(raw)
		case KeyHaircutFast:
			o.HaircutFast, err = parseNumber(raw)
		case KeyHaircutSlow:
			o.HaircutSlow, err = parseNumber(raw)
		case KeySolMinValueAud:
			o.SolMinValueAud, err = parseNumber(raw)
		case KeyStablecoins:
			err = json.Unmarshal([]byte(raw), &o.Stablecoins)
		case KeyMajorTokens:
			err = json.Unmarshal([]byte(raw), &o.MajorTokens)
		case KeyEVMRPCURLs:
			err = json.Unmarshal([]byte(raw), &o.EVMRPCURLs)
		case KeySolanaRPCURLs:
			err = json.Unmarshal([]byte(raw), &o.SolanaRPCURLs)
		default:
			err = fmt.Errorf("unknown key")
		}
		if err != nil {
			skipped = append(skipped, key)
		}
	}

	return o, skipped
}

// ToRecords encodes the non-nil overrides as stored key/value records
func ToRecords(o Overrides) (map[string]string, error) {
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	records := make(map[string]string, len(fields))
	for k, v := range fields {
		records[k] = string(v)
	}
	return records, nil
}

// parseNumber accepts a JSON number or a JSON string holding a decimal number
func parseNumber(raw string) (*float64, error) {
	var n json.Number
	if err := json.Unmarshal([]byte(raw), &n); err == nil {
		f, err := n.Float64()
		if err != nil {
			return nil, err
		}
		return &f, nil
	}

	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	f := d.InexactFloat64()
	return &f, nil
}
