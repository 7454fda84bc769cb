package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/portfolio-dashboard/internal/models"
)

// WalletRepository stores tracked wallets and their token allowlists
type WalletRepository struct {
	db *PostgresDB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *PostgresDB) *WalletRepository {
	return &WalletRepository{db: db}
}

// List returns every wallet with its allowlists, newest first
func (r *WalletRepository) List(ctx context.Context) ([]models.Wallet, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, chain_type, address, label, created_at
		FROM wallets
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	wallets := []models.Wallet{}
	index := make(map[string]int)
	for rows.Next() {
		var w models.Wallet
		if err := rows.Scan(&w.ID, &w.ChainType, &w.Address, &w.Label, &w.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		w.EVMAllowlist = []models.EVMTokenAllowlistItem{}
		w.SOLAllowlist = []models.SOLTokenAllowlistItem{}
		index[w.ID] = len(wallets)
		wallets = append(wallets, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	evm, err := r.evmAllowlist(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, item := range evm {
		if i, ok := index[item.WalletID]; ok {
			wallets[i].EVMAllowlist = append(wallets[i].EVMAllowlist, item)
		}
	}

	sol, err := r.solAllowlist(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, item := range sol {
		if i, ok := index[item.WalletID]; ok {
			wallets[i].SOLAllowlist = append(wallets[i].SOLAllowlist, item)
		}
	}

	return wallets, nil
}

// GetByID returns one wallet with its allowlists
func (r *WalletRepository) GetByID(ctx context.Context, id string) (*models.Wallet, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}

	var w models.Wallet
	err := r.db.Pool().QueryRow(ctx, `
		SELECT id, chain_type, address, label, created_at FROM wallets WHERE id = $1
	`, id).Scan(&w.ID, &w.ChainType, &w.Address, &w.Label, &w.CreatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err, "wallet", id)
	}

	if w.EVMAllowlist, err = r.evmAllowlist(ctx, id); err != nil {
		return nil, err
	}
	if w.SOLAllowlist, err = r.solAllowlist(ctx, id); err != nil {
		return nil, err
	}
	return &w, nil
}

// Create stores a new wallet. A wallet with the same chain and address yields ErrDuplicate.
func (r *WalletRepository) Create(ctx context.Context, w *models.Wallet) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	w.CreatedAt = time.Now().UTC()

	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO wallets (id, chain_type, address, label, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, w.ID, w.ChainType, w.Address, w.Label, w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("wallet %s: %w", w.Address, ErrDuplicate)
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	if w.EVMAllowlist == nil {
		w.EVMAllowlist = []models.EVMTokenAllowlistItem{}
	}
	if w.SOLAllowlist == nil {
		w.SOLAllowlist = []models.SOLTokenAllowlistItem{}
	}
	return nil
}

// Delete removes a wallet; its allowlists cascade
func (r *WalletRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	return expectOne(tag, "wallet", id)
}

// AddEVMToken adds an ERC-20 token to a wallet's allowlist
func (r *WalletRepository) AddEVMToken(ctx context.Context, item *models.EVMTokenAllowlistItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO evm_token_allowlist (id, wallet_id, contract_address, symbol, decimals, coingecko_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.WalletID, item.ContractAddress, item.Symbol, item.Decimals, item.CoingeckoID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("token %s: %w", item.ContractAddress, ErrDuplicate)
		}
		return fmt.Errorf("failed to add EVM token: %w", err)
	}
	return nil
}

// AddSOLToken adds an SPL token to a wallet's allowlist
func (r *WalletRepository) AddSOLToken(ctx context.Context, item *models.SOLTokenAllowlistItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO sol_token_allowlist (id, wallet_id, mint_address, symbol, coingecko_id)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.WalletID, item.MintAddress, item.Symbol, item.CoingeckoID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("token %s: %w", item.MintAddress, ErrDuplicate)
		}
		return fmt.Errorf("failed to add SOL token: %w", err)
	}
	return nil
}

// RemoveToken deletes an allowlist entry of the given chain type from a wallet
func (r *WalletRepository) RemoveToken(ctx context.Context, walletID, tokenID string, evm bool) error {
	if _, err := uuid.Parse(tokenID); err != nil {
		return fmt.Errorf("token %s: %w", tokenID, ErrNotFound)
	}
	table := "sol_token_allowlist"
	if evm {
		table = "evm_token_allowlist"
	}
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND wallet_id = $2`, tokenID, walletID)
	if err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return expectOne(tag, "token", tokenID)
}

func (r *WalletRepository) evmAllowlist(ctx context.Context, walletID string) ([]models.EVMTokenAllowlistItem, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, wallet_id, contract_address, symbol, decimals, coingecko_id
		FROM evm_token_allowlist
		WHERE $1 = '' OR wallet_id::text = $1
		ORDER BY contract_address
	`, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to query EVM allowlist: %w", err)
	}
	defer rows.Close()

	items := []models.EVMTokenAllowlistItem{}
	for rows.Next() {
		var item models.EVMTokenAllowlistItem
		if err := rows.Scan(&item.ID, &item.WalletID, &item.ContractAddress, &item.Symbol, &item.Decimals, &item.CoingeckoID); err != nil {
			return nil, fmt.Errorf("failed to scan EVM allowlist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *WalletRepository) solAllowlist(ctx context.Context, walletID string) ([]models.SOLTokenAllowlistItem, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, wallet_id, mint_address, symbol, coingecko_id
		FROM sol_token_allowlist
		WHERE $1 = '' OR wallet_id::text = $1
		ORDER BY mint_address
	`, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to query SOL allowlist: %w", err)
	}
	defer rows.Close()

	items := []models.SOLTokenAllowlistItem{}
	for rows.Next() {
		var item models.SOLTokenAllowlistItem
		if err := rows.Scan(&item.ID, &item.WalletID, &item.MintAddress, &item.Symbol, &item.CoingeckoID); err != nil {
			return nil, fmt.Errorf("failed to scan SOL allowlist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
