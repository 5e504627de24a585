package service

import (
	"context"
	"errors"
	"testing"

	"checkout-service/internal/currency"
	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = models.Credentials{Token: "test-token"}

func TestResolveLiveConversion(t *testing.T) {
	rates := &fakeRateService{quote: models.LiveQuote{
		Amount: decimal.NewFromInt(130000),
		Rate:   decimal.NewFromInt(1300),
	}}
	resolver := NewCurrencyResolver(rates, nil, 0)

	result, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(100), "USD", currency.ProviderMTN)

	require.NoError(t, err)
	assert.True(t, result.TargetAmount.Equal(decimal.NewFromInt(130000)))
	assert.Equal(t, "RWF", result.TargetCurrency)
	assert.True(t, result.ExchangeRate.Equal(decimal.NewFromInt(1300)))
	assert.True(t, result.WasConverted)
	assert.Equal(t, 1, rates.callCount())
}

func TestResolveIdentitySkipsLiveService(t *testing.T) {
	rates := &fakeRateService{err: errors.New("should not be called")}
	resolver := NewCurrencyResolver(rates, nil, 0)

	result, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(50), "RWF", currency.ProviderAirtel)

	require.NoError(t, err)
	assert.True(t, result.TargetAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "RWF", result.TargetCurrency)
	assert.True(t, result.ExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.False(t, result.WasConverted)
	assert.Equal(t, 0, rates.callCount())
}

func TestResolveIdentityIsCaseInsensitive(t *testing.T) {
	rates := &fakeRateService{err: errors.New("should not be called")}
	resolver := NewCurrencyResolver(rates, nil, 0)

	result, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(50), "rwf", currency.ProviderMTN)

	require.NoError(t, err)
	assert.False(t, result.WasConverted)
	assert.Equal(t, 0, rates.callCount())
}

func TestResolveFallsBackWhenLiveLookupErrors(t *testing.T) {
	rates := &fakeRateService{err: errors.New("rate service down")}
	resolver := NewCurrencyResolver(rates, nil, 0)

	result, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(100), "USD", currency.ProviderMTN)

	require.NoError(t, err)
	assert.True(t, result.TargetAmount.Equal(decimal.NewFromInt(130000)))
	assert.Equal(t, "RWF", result.TargetCurrency)
	assert.True(t, result.ExchangeRate.Equal(decimal.NewFromInt(1300)))
	assert.True(t, result.WasConverted)
}

func TestResolveFallsBackOnNonPositiveQuote(t *testing.T) {
	rates := &fakeRateService{quote: models.LiveQuote{
		Amount: decimal.Zero,
		Rate:   decimal.Zero,
	}}
	resolver := NewCurrencyResolver(rates, nil, 0)

	result, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(10), "EUR", currency.ProviderAirtel)

	require.NoError(t, err)
	assert.True(t, result.TargetAmount.Equal(decimal.NewFromInt(14200)))
	assert.True(t, result.ExchangeRate.Equal(decimal.NewFromInt(1420)))
	assert.True(t, result.WasConverted)
}

func TestResolveChargesSourceAmountWhenNoFallbackEntry(t *testing.T) {
	rates := &fakeRateService{err: errors.New("rate service down")}
	resolver := NewCurrencyResolver(rates, nil, 0)

	result, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(700), "JPY", currency.ProviderMTN)

	require.NoError(t, err)
	assert.True(t, result.TargetAmount.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, "RWF", result.TargetCurrency)
	assert.True(t, result.ExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.True(t, result.WasConverted)
}

func TestResolveUnknownProvider(t *testing.T) {
	rates := &fakeRateService{}
	resolver := NewCurrencyResolver(rates, nil, 0)

	_, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(100), "USD", "mpesa")

	assert.ErrorIs(t, err, models.ErrUnresolvableProvider)
	assert.Equal(t, 0, rates.callCount())
}

func TestResolveIsIdempotentForStableRate(t *testing.T) {
	rates := &fakeRateService{quote: models.LiveQuote{
		Amount: decimal.NewFromInt(130000),
		Rate:   decimal.NewFromInt(1300),
	}}
	resolver := NewCurrencyResolver(rates, nil, 0)

	first, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(100), "USD", currency.ProviderMTN)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(100), "USD", currency.ProviderMTN)
	require.NoError(t, err)

	assert.True(t, first.TargetAmount.Equal(second.TargetAmount))
	assert.True(t, first.ExchangeRate.Equal(second.ExchangeRate))
	assert.Equal(t, first.WasConverted, second.WasConverted)
}

func TestResolveCacheHitSkipsLiveService(t *testing.T) {
	rates := &fakeRateService{err: errors.New("should not be called")}
	cache := newFakeRateCache()
	require.NoError(t, cache.SetRate(context.Background(), "USD", "RWF", decimal.NewFromInt(1250), 0))
	resolver := NewCurrencyResolver(rates, cache, 0)

	result, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(100), "USD", currency.ProviderMTN)

	require.NoError(t, err)
	assert.True(t, result.TargetAmount.Equal(decimal.NewFromInt(125000)))
	assert.True(t, result.ExchangeRate.Equal(decimal.NewFromInt(1250)))
	assert.Equal(t, 0, rates.callCount())
}

func TestResolveWritesLiveRateToCache(t *testing.T) {
	rates := &fakeRateService{quote: models.LiveQuote{
		Amount: decimal.NewFromInt(130000),
		Rate:   decimal.NewFromInt(1300),
	}}
	cache := newFakeRateCache()
	resolver := NewCurrencyResolver(rates, cache, 0)

	_, err := resolver.Resolve(context.Background(), testCreds, decimal.NewFromInt(100), "USD", currency.ProviderMTN)
	require.NoError(t, err)

	rate, hit, err := cache.GetRate(context.Background(), "USD", "RWF")
	require.NoError(t, err)
	require.True(t, hit)
	assert.True(t, rate.Equal(decimal.NewFromInt(1300)))
}
