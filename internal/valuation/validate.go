package valuation

import (
	"fmt"
	"math"
	"strings"

	"github.com/portfolio-dashboard/internal/models"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidatePosition rejects raw positions the pure valuation functions must never see
func ValidatePosition(pos MarketPosition) error {
	if pos.AssetKey == "" {
		return fmt.Errorf("asset key is required")
	}
	if !pos.Source.Valid() {
		return fmt.Errorf("unknown source %q", pos.Source)
	}
	if !finite(pos.Quantity) || pos.Quantity < 0 {
		return fmt.Errorf("invalid quantity %v for %s", pos.Quantity, pos.AssetKey)
	}
	return nil
}

// ValidatePrice rejects non-finite or negative prices
func ValidatePrice(symbol string, price *float64) error {
	if price == nil {
		return nil
	}
	if !finite(*price) || *price < 0 {
		return fmt.Errorf("invalid price %v for %s", *price, symbol)
	}
	return nil
}

// ValidateManualAsset checks a manual asset before it is stored or valued
func ValidateManualAsset(asset *models.ManualAsset) error {
	if strings.TrimSpace(asset.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !asset.Type.Valid() {
		return fmt.Errorf("unknown asset type %q", asset.Type)
	}
	if asset.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if !asset.Currency.Valid() {
		return fmt.Errorf("unsupported currency %q", asset.Currency)
	}
	if !finite(asset.NativeAmount) || asset.NativeAmount < 0 {
		return fmt.Errorf("invalid amount %v", asset.NativeAmount)
	}
	if asset.Quantity != nil && (!finite(*asset.Quantity) || *asset.Quantity < 0) {
		return fmt.Errorf("invalid quantity %v", *asset.Quantity)
	}
	if asset.ExposureType != nil && *asset.ExposureType != "" && !asset.ExposureType.Valid() {
		return fmt.Errorf("unknown exposure type %q", *asset.ExposureType)
	}
	return nil
}
