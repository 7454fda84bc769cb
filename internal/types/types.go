// Package types provides common type definitions for the portfolio dashboard.
package types

// LiquidityTier represents how quickly a holding can be turned into spendable cash
type LiquidityTier string

const (
	// TierImmediate represents cash-equivalent holdings, spendable instantly
	TierImmediate LiquidityTier = "IMMEDIATE"
	// TierFast represents holdings sellable within about a week (major liquid tokens)
	TierFast LiquidityTier = "FAST"
	// TierSlow represents illiquid holdings (real estate, locked superannuation)
	TierSlow LiquidityTier = "SLOW"
)

// LiquidityTiers lists the tiers in bucket order
var LiquidityTiers = []LiquidityTier{TierImmediate, TierFast, TierSlow}

// Valid reports whether t is one of the known tiers
func (t LiquidityTier) Valid() bool {
	switch t {
	case TierImmediate, TierFast, TierSlow:
		return true
	}
	return false
}

// ExposureType represents the asset-class bucket used for diversification analysis
type ExposureType string

const (
	// ExposureBTC represents bitcoin and wrapped bitcoin
	ExposureBTC ExposureType = "BTC"
	// ExposureETH represents ether and wrapped ether
	ExposureETH ExposureType = "ETH"
	// ExposureJLP represents the Jupiter liquidity provider token
	ExposureJLP ExposureType = "JLP"
	// ExposureStablecoin represents fiat-pegged tokens
	ExposureStablecoin ExposureType = "STABLECOIN"
	// ExposureCrypto represents every other digital asset
	ExposureCrypto ExposureType = "CRYPTO"
	// ExposureEquity represents stocks and superannuation
	ExposureEquity ExposureType = "EQUITY"
	// ExposureCash represents bank balances, cash and gift cards
	ExposureCash ExposureType = "CASH"
	// ExposureCollectible represents physical collectibles
	ExposureCollectible ExposureType = "COLLECTIBLE"
	// ExposureRealEstate represents property
	ExposureRealEstate ExposureType = "REAL_ESTATE"
	// ExposureNFT represents non-fungible tokens
	ExposureNFT ExposureType = "NFT"
	// ExposureCar represents vehicles
	ExposureCar ExposureType = "CAR"
	// ExposureOthers represents miscellaneous assets
	ExposureOthers ExposureType = "OTHERS"
)

// ExposureTypes lists the full exposure vocabulary
var ExposureTypes = []ExposureType{
	ExposureBTC, ExposureETH, ExposureJLP, ExposureStablecoin, ExposureCrypto, ExposureEquity,
	ExposureCash, ExposureCollectible, ExposureRealEstate, ExposureNFT, ExposureCar, ExposureOthers,
}

// Valid reports whether e is part of the exposure vocabulary
func (e ExposureType) Valid() bool {
	for _, known := range ExposureTypes {
		if e == known {
			return true
		}
	}
	return false
}

// HoldingSource represents where a holding came from. Manual asset types share this vocabulary.
type HoldingSource string

const (
	// SourceEVM represents on-chain EVM wallet balances
	SourceEVM HoldingSource = "EVM"
	// SourceSOL represents on-chain Solana wallet balances
	SourceSOL HoldingSource = "SOL"
	// SourceHYPE represents Hyperliquid spot balances
	SourceHYPE HoldingSource = "HYPE"
	// SourceBank represents bank accounts
	SourceBank HoldingSource = "BANK"
	// SourceCash represents physical cash
	SourceCash HoldingSource = "CASH"
	// SourceCollectible represents physical collectibles
	SourceCollectible HoldingSource = "COLLECTIBLE"
	// SourceRealEstate represents property
	SourceRealEstate HoldingSource = "REAL_ESTATE"
	// SourceEquities represents brokerage holdings
	SourceEquities HoldingSource = "EQUITIES"
	// SourceNFT represents manually tracked NFTs
	SourceNFT HoldingSource = "NFT"
	// SourceMisc represents anything else
	SourceMisc HoldingSource = "MISC"
	// SourceAirdrop represents unclaimed airdrops, always valued at zero
	SourceAirdrop HoldingSource = "AIRDROP"
	// SourcePrivateInvestment represents private rounds, always valued at zero
	SourcePrivateInvestment HoldingSource = "PRIVATE_INVESTMENT"
	// SourceCar represents vehicles
	SourceCar HoldingSource = "CAR"
	// SourceGiftcard represents gift cards
	SourceGiftcard HoldingSource = "GIFTCARD"
	// SourceSuperannuation represents retirement accounts
	SourceSuperannuation HoldingSource = "SUPERANNUATION"
	// SourceCrypto represents manually tracked crypto
	SourceCrypto HoldingSource = "CRYPTO"
	// SourceStablecoin represents manually tracked stablecoins
	SourceStablecoin HoldingSource = "STABLECOIN"
)

// HoldingSources lists every known source
var HoldingSources = []HoldingSource{
	SourceEVM, SourceSOL, SourceHYPE, SourceBank, SourceCash, SourceCollectible, SourceRealEstate,
	SourceEquities, SourceNFT, SourceMisc, SourceAirdrop, SourcePrivateInvestment, SourceCar,
	SourceGiftcard, SourceSuperannuation, SourceCrypto, SourceStablecoin,
}

// Valid reports whether s is a known source
func (s HoldingSource) Valid() bool {
	for _, known := range HoldingSources {
		if s == known {
			return true
		}
	}
	return false
}

// IsChain reports whether the source is an on-chain wallet source
func (s HoldingSource) IsChain() bool {
	return s == SourceEVM || s == SourceSOL || s == SourceHYPE
}

// Currency represents the denomination of a manual asset amount
type Currency string

const (
	// CurrencyAUD is the reporting currency
	CurrencyAUD Currency = "AUD"
	// CurrencyUSD is converted with the USD/AUD rate
	CurrencyUSD Currency = "USD"
	// CurrencyETH is converted with the ETH price and the USD/AUD rate
	CurrencyETH Currency = "ETH"
)

// Valid reports whether c is a supported currency
func (c Currency) Valid() bool {
	return c == CurrencyAUD || c == CurrencyUSD || c == CurrencyETH
}

// ChainType represents the chain family of a tracked wallet
type ChainType string

const (
	// ChainEVM represents Ethereum-compatible wallets
	ChainEVM ChainType = "EVM"
	// ChainSOL represents Solana wallets
	ChainSOL ChainType = "SOL"
	// ChainHYPE represents Hyperliquid accounts
	ChainHYPE ChainType = "HYPE"
)

// Valid reports whether c is a supported chain type
func (c ChainType) Valid() bool {
	return c == ChainEVM || c == ChainSOL || c == ChainHYPE
}

// ReportType represents the kind of generated brief
type ReportType string

const (
	// ReportWeekly represents the weekly brief
	ReportWeekly ReportType = "weekly"
	// ReportDeepDive represents the deep dive report
	ReportDeepDive ReportType = "deep-dive"
)

// Valid reports whether r is a supported report type
func (r ReportType) Valid() bool {
	return r == ReportWeekly || r == ReportDeepDive
}

// TimeRange represents a history window for analytics
type TimeRange string

const (
	Range1M  TimeRange = "1M"
	Range3M  TimeRange = "3M"
	Range6M  TimeRange = "6M"
	Range1Y  TimeRange = "1Y"
	RangeAll TimeRange = "ALL"
)

// Days returns the look-back window in days, or 0 for ALL and unknown ranges
func (r TimeRange) Days() int {
	switch r {
	case Range1M:
		return 30
	case Range3M:
		return 90
	case Range6M:
		return 180
	case Range1Y:
		return 365
	}
	return 0
}

// Valid reports whether r is a supported range. Empty is accepted and means ALL.
func (r TimeRange) Valid() bool {
	return r == "" || r == RangeAll || r.Days() > 0
}

// PositionDirection represents the side of a perp position
type PositionDirection string

const (
	DirectionLong  PositionDirection = "LONG"
	DirectionShort PositionDirection = "SHORT"
)

// Service error codes returned by the orchestration layer
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeSnapshotNotFound    = "SNAPSHOT_NOT_FOUND"
	CodeNoSnapshots         = "NO_SNAPSHOTS"
	CodeSnapshotTooRecent   = "SNAPSHOT_TOO_RECENT"
	CodeManualAssetNotFound = "MANUAL_ASSET_NOT_FOUND"
	CodeWalletNotFound      = "WALLET_NOT_FOUND"
	CodeBriefNotFound       = "BRIEF_NOT_FOUND"
	CodeJournalNotFound     = "JOURNAL_ENTRY_NOT_FOUND"
	CodeJournalLimitReached = "JOURNAL_LIMIT_REACHED"
	CodeWalletExists        = "WALLET_EXISTS"

	CodeManualAssetLimitReached = "MANUAL_ASSET_LIMIT_REACHED"
	CodeTokenExists             = "TOKEN_ALREADY_ALLOWLISTED"
	CodeTokenNotFound           = "TOKEN_NOT_FOUND"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError builds a ServiceError. Details may be nil.
func NewServiceError(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{Code: code, Message: message, Details: details}
}
