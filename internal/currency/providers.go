// Package currency is the single authoritative source for payment provider
// codes, their settlement currencies, and the static fallback conversion
// rates used when the live rate service is unavailable. Both payment-method
// provisioning and conversion resolution consume these tables.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical mobile-money provider codes. The remote payment service only
// understands these two.
const (
	ProviderMTN    = "mtn_momo"
	ProviderAirtel = "airtel_money"
)

// momoAliases maps caller-supplied provider names to canonical codes.
var momoAliases = map[string]string{
	"mtn":          ProviderMTN,
	"mtn_momo":     ProviderMTN,
	"mtn_rwanda":   ProviderMTN,
	"momo":         ProviderMTN,
	"airtel":       ProviderAirtel,
	"airtel_money": ProviderAirtel,
	"airtel_rwanda": ProviderAirtel,
}

// cardBrands is the closed set of accepted card networks.
var cardBrands = map[string]bool{
	"visa":       true,
	"mastercard": true,
	"amex":       true,
	"discover":   true,
}

// settlement maps each mobile-money provider to the currency it requires
// charges to be expressed in.
var settlement = map[string]string{
	ProviderMTN:    "RWF",
	ProviderAirtel: "RWF",
}

// fallbackRates is the static best-effort conversion table, keyed by provider
// then by source currency, giving the rate into the provider's settlement
// currency. Used only when the live rate lookup fails.
var fallbackRates = map[string]map[string]decimal.Decimal{
	ProviderMTN: {
		"USD": decimal.NewFromInt(1300),
		"EUR": decimal.NewFromInt(1420),
		"GBP": decimal.NewFromInt(1650),
		"KES": decimal.NewFromInt(10),
		"UGX": decimal.NewFromFloat(0.35),
	},
	ProviderAirtel: {
		"USD": decimal.NewFromInt(1300),
		"EUR": decimal.NewFromInt(1420),
		"GBP": decimal.NewFromInt(1650),
		"KES": decimal.NewFromInt(10),
		"UGX": decimal.NewFromFloat(0.35),
	},
}

// CanonicalMomoProvider maps a caller-supplied mobile-money provider name to
// its canonical code.
func CanonicalMomoProvider(name string) (string, bool) {
	code, ok := momoAliases[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// CanonicalCardBrand validates a card network name against the closed brand
// set and returns its normalized form.
func CanonicalCardBrand(name string) (string, bool) {
	brand := strings.ToLower(strings.TrimSpace(name))
	if !cardBrands[brand] {
		return "", false
	}
	return brand, true
}

// SettlementCurrency returns the currency a provider requires charges in.
func SettlementCurrency(provider string) (string, bool) {
	cur, ok := settlement[provider]
	return cur, ok
}

// FallbackRate returns the static rate from a source currency into the
// provider's settlement currency.
func FallbackRate(provider, source string) (decimal.Decimal, bool) {
	rates, ok := fallbackRates[provider]
	if !ok {
		return decimal.Decimal{}, false
	}
	rate, ok := rates[strings.ToUpper(source)]
	return rate, ok
}
