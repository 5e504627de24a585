package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalMomoProvider(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"mtn", ProviderMTN, true},
		{"MTN", ProviderMTN, true},
		{"  mtn_momo ", ProviderMTN, true},
		{"mtn_rwanda", ProviderMTN, true},
		{"momo", ProviderMTN, true},
		{"airtel", ProviderAirtel, true},
		{"Airtel_Money", ProviderAirtel, true},
		{"airtel_rwanda", ProviderAirtel, true},
		{"mpesa", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalMomoProvider(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestCanonicalCardBrand(t *testing.T) {
	for _, brand := range []string{"visa", "Mastercard", "AMEX", " discover "} {
		got, ok := CanonicalCardBrand(brand)
		require.True(t, ok, brand)
		assert.NotEmpty(t, got)
	}

	_, ok := CanonicalCardBrand("diners")
	assert.False(t, ok)
}

func TestSettlementCurrency(t *testing.T) {
	for _, provider := range []string{ProviderMTN, ProviderAirtel} {
		cur, ok := SettlementCurrency(provider)
		require.True(t, ok, provider)
		assert.Equal(t, "RWF", cur, provider)
	}

	_, ok := SettlementCurrency("visa")
	assert.False(t, ok)
}

func TestFallbackRate(t *testing.T) {
	rate, ok := FallbackRate(ProviderMTN, "USD")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1300)))

	rate, ok = FallbackRate(ProviderAirtel, "ugx")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.35)))

	_, ok = FallbackRate(ProviderMTN, "JPY")
	assert.False(t, ok)

	_, ok = FallbackRate("mpesa", "USD")
	assert.False(t, ok)
}
