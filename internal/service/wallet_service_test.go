package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-dashboard/internal/types"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func TestWalletCreate(t *testing.T) {
	tests := []struct {
		name        string
		input       CreateWalletInput
		wantAddress string
		wantCode    string
	}{
		{
			name:        "evm is lower-cased",
			input:       CreateWalletInput{ChainType: types.ChainEVM, Address: "0xAbCdEf0123456789abcdef0123456789ABCDEF01"},
			wantAddress: "0xabcdef0123456789abcdef0123456789abcdef01",
		},
		{
			name:        "hype uses evm format",
			input:       CreateWalletInput{ChainType: types.ChainHYPE, Address: " " + evmAddress + " "},
			wantAddress: evmAddress,
		},
		{
			name:        "solana keeps case",
			input:       CreateWalletInput{ChainType: types.ChainSOL, Address: solAddress},
			wantAddress: solAddress,
		},
		{
			name:     "evm without prefix",
			input:    CreateWalletInput{ChainType: types.ChainEVM, Address: "1111111111111111111111111111111111111111"},
			wantCode: types.CodeInvalidInput,
		},
		{
			name:     "solana with invalid characters",
			input:    CreateWalletInput{ChainType: types.ChainSOL, Address: "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl"},
			wantCode: types.CodeInvalidInput,
		},
		{
			name:     "unknown chain",
			input:    CreateWalletInput{ChainType: "BTC", Address: evmAddress},
			wantCode: types.CodeInvalidInput,
		},
		{
			name:     "empty address",
			input:    CreateWalletInput{ChainType: types.ChainEVM},
			wantCode: types.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewWalletService(&mockWalletRepo{})
			wallet, err := svc.Create(testContext(t), tt.input)
			if tt.wantCode != "" {
				assertServiceCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, wallet.ID)
			assert.Equal(t, tt.wantAddress, wallet.Address)
		})
	}
}

func TestWalletCreateLabel(t *testing.T) {
	svc := NewWalletService(&mockWalletRepo{})

	w, err := svc.Create(testContext(t), CreateWalletInput{ChainType: types.ChainEVM, Address: evmAddress, Label: str("  cold  ")})
	require.NoError(t, err)
	require.NotNil(t, w.Label)
	assert.Equal(t, "cold", *w.Label)

	w, err = svc.Create(testContext(t), CreateWalletInput{ChainType: types.ChainSOL, Address: solAddress, Label: str("   ")})
	require.NoError(t, err)
	assert.Nil(t, w.Label)
}

func TestWalletCreateDuplicate(t *testing.T) {
	svc := NewWalletService(&mockWalletRepo{})
	ctx := testContext(t)

	_, err := svc.Create(ctx, CreateWalletInput{ChainType: types.ChainEVM, Address: evmAddress})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateWalletInput{ChainType: types.ChainEVM, Address: "0x1111111111111111111111111111111111111111"})
	assertServiceCode(t, err, types.CodeWalletExists)
}

func TestWalletDelete(t *testing.T) {
	repo := &mockWalletRepo{}
	svc := NewWalletService(repo)
	ctx := testContext(t)

	w, err := svc.Create(ctx, CreateWalletInput{ChainType: types.ChainEVM, Address: evmAddress})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, w.ID))
	assert.Empty(t, repo.wallets)

	assertServiceCode(t, svc.Delete(ctx, w.ID), types.CodeWalletNotFound)
}

func TestWalletListNeverNil(t *testing.T) {
	wallets, err := NewWalletService(&mockWalletRepo{}).List(testContext(t))
	require.NoError(t, err)
	assert.NotNil(t, wallets)
}

func TestWalletAddEVMToken(t *testing.T) {
	svc := NewWalletService(&mockWalletRepo{})
	ctx := testContext(t)

	w, err := svc.Create(ctx, CreateWalletInput{ChainType: types.ChainEVM, Address: evmAddress})
	require.NoError(t, err)

	decimals := 6
	updated, err := svc.AddToken(ctx, w.ID, AddTokenInput{
		ContractAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Symbol:          str("USDC"),
		Decimals:        &decimals,
		CoingeckoID:     str(" usd-coin "),
	})
	require.NoError(t, err)
	require.Len(t, updated.EVMAllowlist, 1)

	item := updated.EVMAllowlist[0]
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", item.ContractAddress)
	assert.Equal(t, "usd-coin", *item.CoingeckoID)
	assert.Equal(t, 6, *item.Decimals)

	_, err = svc.AddToken(ctx, w.ID, AddTokenInput{ContractAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"})
	assertServiceCode(t, err, types.CodeTokenExists)

	bad := 40
	_, err = svc.AddToken(ctx, w.ID, AddTokenInput{ContractAddress: "0x2222222222222222222222222222222222222222", Decimals: &bad})
	assertServiceCode(t, err, types.CodeInvalidInput)

	_, err = svc.AddToken(ctx, w.ID, AddTokenInput{ContractAddress: "usdc"})
	assertServiceCode(t, err, types.CodeInvalidInput)
}

func TestWalletAddSOLToken(t *testing.T) {
	svc := NewWalletService(&mockWalletRepo{})
	ctx := testContext(t)

	w, err := svc.Create(ctx, CreateWalletInput{ChainType: types.ChainSOL, Address: solAddress})
	require.NoError(t, err)

	updated, err := svc.AddToken(ctx, w.ID, AddTokenInput{MintAddress: usdcMint, Symbol: str("USDC")})
	require.NoError(t, err)
	require.Len(t, updated.SOLAllowlist, 1)
	assert.Equal(t, usdcMint, updated.SOLAllowlist[0].MintAddress)
	assert.Nil(t, updated.SOLAllowlist[0].CoingeckoID)

	_, err = svc.AddToken(ctx, w.ID, AddTokenInput{MintAddress: usdcMint})
	assertServiceCode(t, err, types.CodeTokenExists)

	_, err = svc.AddToken(ctx, w.ID, AddTokenInput{MintAddress: "short"})
	assertServiceCode(t, err, types.CodeInvalidInput)
}

func TestWalletAddTokenUnsupported(t *testing.T) {
	svc := NewWalletService(&mockWalletRepo{})
	ctx := testContext(t)

	w, err := svc.Create(ctx, CreateWalletInput{ChainType: types.ChainHYPE, Address: evmAddress})
	require.NoError(t, err)

	_, err = svc.AddToken(ctx, w.ID, AddTokenInput{ContractAddress: evmAddress})
	assertServiceCode(t, err, types.CodeInvalidInput)

	_, err = svc.AddToken(ctx, "missing", AddTokenInput{ContractAddress: evmAddress})
	assertServiceCode(t, err, types.CodeWalletNotFound)
}

func TestWalletRemoveToken(t *testing.T) {
	svc := NewWalletService(&mockWalletRepo{})
	ctx := testContext(t)

	w, err := svc.Create(ctx, CreateWalletInput{ChainType: types.ChainSOL, Address: solAddress})
	require.NoError(t, err)
	updated, err := svc.AddToken(ctx, w.ID, AddTokenInput{MintAddress: usdcMint})
	require.NoError(t, err)
	tokenID := updated.SOLAllowlist[0].ID

	assertServiceCode(t, svc.RemoveToken(ctx, w.ID, tokenID, types.ChainEVM), types.CodeTokenNotFound)
	assertServiceCode(t, svc.RemoveToken(ctx, w.ID, tokenID, types.ChainHYPE), types.CodeInvalidInput)

	require.NoError(t, svc.RemoveToken(ctx, w.ID, tokenID, types.ChainSOL))
	assertServiceCode(t, svc.RemoveToken(ctx, w.ID, tokenID, types.ChainSOL), types.CodeTokenNotFound)
}
