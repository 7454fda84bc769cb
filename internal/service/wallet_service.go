package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/portfolio-dashboard/internal/adapter"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/storage"
	"github.com/portfolio-dashboard/internal/types"
)

// WalletRepository interface for wallet and allowlist data operations
type WalletRepository interface {
	List(ctx context.Context) ([]models.Wallet, error)
	GetByID(ctx context.Context, id string) (*models.Wallet, error)
	Create(ctx context.Context, w *models.Wallet) error
	Delete(ctx context.Context, id string) error
	AddEVMToken(ctx context.Context, item *models.EVMTokenAllowlistItem) error
	AddSOLToken(ctx context.Context, item *models.SOLTokenAllowlistItem) error
	RemoveToken(ctx context.Context, walletID, tokenID string, evm bool) error
}

// WalletService manages tracked wallets and their token allowlists
type WalletService struct {
	walletRepo WalletRepository
}

// NewWalletService creates a new wallet service
func NewWalletService(walletRepo WalletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

// CreateWalletInput represents input for adding a wallet
type CreateWalletInput struct {
	ChainType types.ChainType `json:"chainType"`
	Address   string          `json:"address"`
	Label     *string         `json:"label,omitempty"`
}

// AddTokenInput represents input for allowlisting a token. ContractAddress is used for EVM
// wallets and MintAddress for Solana wallets.
type AddTokenInput struct {
	ContractAddress string  `json:"contractAddress,omitempty"`
	MintAddress     string  `json:"mintAddress,omitempty"`
	Symbol          *string `json:"symbol,omitempty"`
	Decimals        *int    `json:"decimals,omitempty"`
	CoingeckoID     *string `json:"coingeckoId,omitempty"`
}

// List returns every wallet with its allowlists
func (s *WalletService) List(ctx context.Context) ([]models.Wallet, error) {
	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	if wallets == nil {
		wallets = []models.Wallet{}
	}
	return wallets, nil
}

// Create validates and stores a new wallet. EVM and Hyperliquid addresses are stored
// lower-case.
func (s *WalletService) Create(ctx context.Context, input CreateWalletInput) (*models.Wallet, error) {
	address := strings.TrimSpace(input.Address)
	if err := validateWalletAddress(input.ChainType, address); err != nil {
		return nil, err
	}
	if input.ChainType != types.ChainSOL {
		address = strings.ToLower(address)
	}

	var label *string
	if input.Label != nil {
		if l := strings.TrimSpace(*input.Label); l != "" {
			label = &l
		}
	}

	wallet := &models.Wallet{
		ChainType: input.ChainType,
		Address:   address,
		Label:     label,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, &types.ServiceError{
				Code:    types.CodeWalletExists,
				Message: fmt.Sprintf("wallet %s is already tracked", address),
				Details: map[string]interface{}{"address": address, "chainType": input.ChainType},
			}
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"wallet_id": wallet.ID,
		"chain":     wallet.ChainType,
	}).Info("Wallet added")

	return wallet, nil
}

// Delete removes a wallet and its allowlists
func (s *WalletService) Delete(ctx context.Context, id string) error {
	if err := s.walletRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return walletNotFound(id)
		}
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	return nil
}

// AddToken adds a token to the allowlist of an EVM or Solana wallet and returns the wallet
// with its updated allowlists
func (s *WalletService) AddToken(ctx context.Context, walletID string, input AddTokenInput) (*models.Wallet, error) {
	wallet, err := s.get(ctx, walletID)
	if err != nil {
		return nil, err
	}

	switch wallet.ChainType {
	case types.ChainEVM:
		contract := strings.ToLower(strings.TrimSpace(input.ContractAddress))
		if !common.IsHexAddress(contract) {
			return nil, invalidInput("contractAddress must be a 0x-prefixed 20-byte hex address")
		}
		if input.Decimals != nil && (*input.Decimals < 0 || *input.Decimals > 36) {
			return nil, invalidInput("decimals must be between 0 and 36")
		}
		item := &models.EVMTokenAllowlistItem{
			WalletID:        wallet.ID,
			ContractAddress: contract,
			Symbol:          trimmed(input.Symbol),
			Decimals:        input.Decimals,
			CoingeckoID:     trimmed(input.CoingeckoID),
		}
		if err := s.walletRepo.AddEVMToken(ctx, item); err != nil {
			return nil, tokenAddError(err, contract)
		}

	case types.ChainSOL:
		mint := strings.TrimSpace(input.MintAddress)
		if !adapter.IsSolanaAddress(mint) {
			return nil, invalidInput("mintAddress must be a base58 Solana address")
		}
		item := &models.SOLTokenAllowlistItem{
			WalletID:    wallet.ID,
			MintAddress: mint,
			Symbol:      trimmed(input.Symbol),
			CoingeckoID: trimmed(input.CoingeckoID),
		}
		if err := s.walletRepo.AddSOLToken(ctx, item); err != nil {
			return nil, tokenAddError(err, mint)
		}

	default:
		return nil, invalidInput(fmt.Sprintf("%s wallets have no token allowlist", wallet.ChainType))
	}

	return s.get(ctx, wallet.ID)
}

// RemoveToken deletes an allowlist entry. chainType selects the EVM or Solana allowlist.
func (s *WalletService) RemoveToken(ctx context.Context, walletID, tokenID string, chainType types.ChainType) error {
	if chainType != types.ChainEVM && chainType != types.ChainSOL {
		return invalidInput("type must be EVM or SOL")
	}
	if err := s.walletRepo.RemoveToken(ctx, walletID, tokenID, chainType == types.ChainEVM); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &types.ServiceError{
				Code:    types.CodeTokenNotFound,
				Message: fmt.Sprintf("token %s not found", tokenID),
				Details: map[string]interface{}{"walletId": walletID, "tokenId": tokenID},
			}
		}
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

func (s *WalletService) get(ctx context.Context, id string) (*models.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, walletNotFound(id)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

func validateWalletAddress(chain types.ChainType, address string) error {
	if !chain.Valid() {
		return invalidInput(fmt.Sprintf("chainType must be EVM, SOL or HYPE, got %q", chain))
	}
	if address == "" {
		return invalidInput("address is required")
	}
	switch chain {
	case types.ChainEVM, types.ChainHYPE:
		if !common.IsHexAddress(address) || !strings.HasPrefix(address, "0x") {
			return invalidInput("address must be a 0x-prefixed 20-byte hex address")
		}
	case types.ChainSOL:
		if !adapter.IsSolanaAddress(address) {
			return invalidInput("address must be a base58 Solana address")
		}
	}
	return nil
}

func tokenAddError(err error, address string) error {
	if errors.Is(err, storage.ErrDuplicate) {
		return &types.ServiceError{
			Code:    types.CodeTokenExists,
			Message: fmt.Sprintf("token %s is already allowlisted", address),
			Details: map[string]interface{}{"address": address},
		}
	}
	return fmt.Errorf("failed to add token: %w", err)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func invalidInput(message string) *types.ServiceError {
	return &types.ServiceError{Code: types.CodeInvalidInput, Message: message}
}

func walletNotFound(id string) *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeWalletNotFound,
		Message: fmt.Sprintf("wallet %s not found", id),
		Details: map[string]interface{}{"id": id},
	}
}
