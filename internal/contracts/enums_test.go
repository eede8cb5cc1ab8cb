package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketCapTier_BoundariesMatchSpec(t *testing.T) {
	cases := []struct {
		name string
		cap  int64
		want CapTier
	}{
		{"zero is unranked", 0, CapTierUnranked},
		{"just under 300억", 29_999_999_999, CapTierMicro},
		{"exactly 300억ꟷ boundary moves to small", 30_000_000_000, CapTierSmall},
		{"just under 1000억", 99_999_999_999, CapTierSmall},
		{"exactly 1000억 boundary moves to mid", 100_000_000_000, CapTierMid},
		{"just under 3000억", 299_999_999_999, CapTierMid},
		{"exactly 3000억 boundary moves to large", 300_000_000_000, CapTierLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MarketCapTier(tc.cap)
			assert.Equal(t, tc.want, got)
			assert.True(t, got.IsValid(), "I2: result must be one of the five closed enum values")
		})
	}
}

func TestNormalizeSignalType_FilingIsAlwaysRewritten(t *testing.T) {
	// I3: the raw label 공시 must never be persisted to RAG.
	got := NormalizeSignalType(CategoryFiling)
	assert.Equal(t, SignalTypeFiling, got)
	assert.NotEqual(t, SignalType("공시"), got)
	assert.True(t, got.IsValid())
}

func TestNormalizeSignalType_UnknownCategoryIsUnranked(t *testing.T) {
	got := NormalizeSignalType(Category("알수없음"))
	assert.Equal(t, SignalTypeUnranked, got)
}

func TestDerivePickType_FilingAndThemeAreDayTrade(t *testing.T) {
	// I5
	assert.Equal(t, PickTypeDayTrade, DerivePickType(CategoryFiling))
	assert.Equal(t, PickTypeDayTrade, DerivePickType(CategoryTheme))
	assert.Equal(t, PickTypeSwing, DerivePickType(CategoryRotation))
	assert.Equal(t, PickTypeSwing, DerivePickType(CategoryShortSqueeze))
}
