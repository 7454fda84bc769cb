package types

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTimeRangeDays(t *testing.T) {
	tests := []struct {
		r    TimeRange
		want int
	}{
		{Range1M, 30},
		{Range3M, 90},
		{Range6M, 180},
		{Range1Y, 365},
		{RangeAll, 0},
		{"", 0},
		{"5Y", 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			if got := tt.r.Days(); got != tt.want {
				t.Errorf("Days() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeRangeValid(t *testing.T) {
	if !TimeRange("").Valid() {
		t.Error("empty range should be valid")
	}
	if TimeRange("2W").Valid() {
		t.Error("2W should not be valid")
	}
}

func TestHoldingSourceIsChain(t *testing.T) {
	for _, s := range HoldingSources {
		want := s == SourceEVM || s == SourceSOL || s == SourceHYPE
		if got := s.IsChain(); got != want {
			t.Errorf("%s.IsChain() = %v, want %v", s, got, want)
		}
	}
}

func TestEnumValidity(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every listed exposure type is valid", prop.ForAll(
		func(i int) bool {
			return ExposureTypes[i].Valid()
		},
		gen.IntRange(0, len(ExposureTypes)-1),
	))

	properties.Property("lowercase tiers are not valid", prop.ForAll(
		func(i int) bool {
			lower := LiquidityTier(string(LiquidityTiers[i]) + "_x")
			return !lower.Valid()
		},
		gen.IntRange(0, len(LiquidityTiers)-1),
	))

	properties.TestingRun(t)
}

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Code: "NO_SNAPSHOTS", Message: "no snapshots recorded"}
	if err.Error() != "no snapshots recorded" {
		t.Errorf("Error() = %v, want %v", err.Error(), "no snapshots recorded")
	}
}
