package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

func TestManualAssetCreate(t *testing.T) {
	repo := &mockManualRepo{}
	svc := NewManualAssetService(repo)

	exposure := types.ExposureEquity
	asset, err := svc.Create(testContext(t), ManualAssetInput{
		Type:         types.SourceEquities,
		Name:         "  Index fund ",
		ValueAud:     2500,
		Notes:        str(" "),
		ExposureType: &exposure,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, asset.ID)
	assert.Equal(t, "Index fund", asset.Name)
	assert.Equal(t, types.CurrencyAUD, asset.Currency)
	assert.Nil(t, asset.Notes)
	assert.Equal(t, types.ExposureEquity, *asset.ExposureType)
	assert.Len(t, repo.assets, 1)
}

func TestManualAssetCreateValidation(t *testing.T) {
	neg := -1.0
	unknownExposure := types.ExposureType("GOLD")

	tests := []struct {
		name  string
		input ManualAssetInput
	}{
		{"missing name", ManualAssetInput{Type: types.SourceBank, ValueAud: 1}},
		{"unknown type", ManualAssetInput{Type: "BOND", Name: "x", ValueAud: 1}},
		{"unknown currency", ManualAssetInput{Type: types.SourceBank, Name: "x", Currency: "EUR"}},
		{"negative value", ManualAssetInput{Type: types.SourceBank, Name: "x", ValueAud: -5}},
		{"negative quantity", ManualAssetInput{Type: types.SourceBank, Name: "x", Quantity: &neg}},
		{"unknown exposure", ManualAssetInput{Type: types.SourceBank, Name: "x", ExposureType: &unknownExposure}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockManualRepo{}
			_, err := NewManualAssetService(repo).Create(testContext(t), tt.input)
			assertServiceCode(t, err, types.CodeInvalidInput)
			assert.Empty(t, repo.assets)
		})
	}
}

func TestManualAssetCreateLimit(t *testing.T) {
	repo := &mockManualRepo{}
	for i := 0; i < MaxManualAssets; i++ {
		repo.assets = append(repo.assets, models.ManualAsset{ID: fmt.Sprintf("a%d", i)})
	}
	svc := NewManualAssetService(repo)

	_, err := svc.Create(testContext(t), ManualAssetInput{Type: types.SourceCash, Name: "Wallet", ValueAud: 50})
	require.Error(t, err)

	var catErr *apperrors.CategorizedError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, types.CodeManualAssetLimitReached, catErr.Code)
	assert.Equal(t, 400, catErr.StatusCode)
	assert.Len(t, repo.assets, MaxManualAssets)
}

func TestManualAssetUpdate(t *testing.T) {
	repo := &mockManualRepo{}
	svc := NewManualAssetService(repo)
	ctx := testContext(t)

	created, err := svc.Create(ctx, ManualAssetInput{Type: types.SourceBank, Name: "Savings", ValueAud: 100})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, ManualAssetInput{Type: types.SourceBank, Name: "Savings", ValueAud: 250, Currency: types.CurrencyUSD})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 250.0, repo.assets[0].NativeAmount)
	assert.Equal(t, types.CurrencyUSD, repo.assets[0].Currency)

	_, err = svc.Update(ctx, "missing", ManualAssetInput{Type: types.SourceBank, Name: "x"})
	assertServiceCode(t, err, types.CodeManualAssetNotFound)

	_, err = svc.Update(ctx, created.ID, ManualAssetInput{Type: types.SourceBank})
	assertServiceCode(t, err, types.CodeInvalidInput)
}

func TestManualAssetDelete(t *testing.T) {
	repo := &mockManualRepo{}
	svc := NewManualAssetService(repo)
	ctx := testContext(t)

	created, err := svc.Create(ctx, ManualAssetInput{Type: types.SourceCar, Name: "Car", ValueAud: 20000})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assertServiceCode(t, svc.Delete(ctx, created.ID), types.CodeManualAssetNotFound)

	assets, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}
