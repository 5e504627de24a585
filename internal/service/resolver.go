package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/currency"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CurrencyResolver decides whether a charge needs converting into a
// provider's settlement currency and produces the converted amount, via a
// cached or live rate lookup with a static fallback. For a recognized
// provider it always produces a usable result; it only errors when the
// provider has no settlement currency entry at all.
type CurrencyResolver struct {
	rates    RateService
	cache    RateCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCurrencyResolver creates a new resolver. cache may be nil, in which case
// every resolution goes straight to the live service.
func NewCurrencyResolver(rates RateService, cache RateCache, cacheTTL time.Duration) *CurrencyResolver {
	return &CurrencyResolver{
		rates:    rates,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// Resolve converts sourceAmount into the provider's settlement currency.
// Identity conversions never touch the live service. A live quote with a
// non-positive amount or rate counts as a failure and falls back to the
// static table.
func (r *CurrencyResolver) Resolve(ctx context.Context, creds models.Credentials, sourceAmount decimal.Decimal, sourceCurrency, provider string) (models.ConversionResult, error) {
	ctx, span := util.StartSpan(ctx, "CurrencyResolver.Resolve")
	defer span.End()

	target, ok := currency.SettlementCurrency(provider)
	if !ok {
		return models.ConversionResult{}, fmt.Errorf("%w: %q", models.ErrUnresolvableProvider, provider)
	}

	source := strings.ToUpper(sourceCurrency)
	if source == target {
		util.ConversionsTotal.WithLabelValues("identity").Inc()
		return models.ConversionResult{
			TargetAmount:   sourceAmount,
			TargetCurrency: target,
			ExchangeRate:   decimal.NewFromInt(1),
			WasConverted:   false,
		}, nil
	}

	if r.cache != nil {
		rate, hit, err := r.cache.GetRate(ctx, source, target)
		if err != nil {
			r.logger.Debug("Rate cache read failed", zap.Error(err))
		} else if hit && rate.IsPositive() {
			util.ConversionsTotal.WithLabelValues("cache").Inc()
			return models.ConversionResult{
				TargetAmount:   sourceAmount.Mul(rate),
				TargetCurrency: target,
				ExchangeRate:   rate,
				WasConverted:   true,
			}, nil
		}
	}

	quote, err := r.rates.Convert(ctx, creds, source, target, sourceAmount)
	if err == nil && quote.Amount.IsPositive() && quote.Rate.IsPositive() {
		rate := quote.Rate
		if sourceAmount.IsPositive() {
			rate = quote.Amount.Div(sourceAmount)
		}
		if r.cache != nil {
			if cacheErr := r.cache.SetRate(ctx, source, target, rate, r.cacheTTL); cacheErr != nil {
				r.logger.Debug("Rate cache write failed", zap.Error(cacheErr))
			}
		}
		util.ConversionsTotal.WithLabelValues("live").Inc()
		return models.ConversionResult{
			TargetAmount:   quote.Amount,
			TargetCurrency: target,
			ExchangeRate:   rate,
			WasConverted:   true,
		}, nil
	}

	if err != nil {
		r.logger.Warn("Live conversion failed, using static fallback rate",
			zap.String("from", source),
			zap.String("to", target),
			zap.Error(err))
	} else {
		r.logger.Warn("Live conversion returned non-positive result, using static fallback rate",
			zap.String("from", source),
			zap.String("to", target),
			zap.String("amount", quote.Amount.String()),
			zap.String("rate", quote.Rate.String()))
	}

	util.ConversionsTotal.WithLabelValues("fallback").Inc()
	util.ConversionFallbacksTotal.Inc()

	rate, ok := currency.FallbackRate(provider, source)
	if !ok {
		// No table entry for this source currency. Charging the source
		// amount unchanged keeps the batch moving; the audit metadata
		// still records the original amount and currency.
		r.logger.Warn("No fallback rate for source currency, charging source amount",
			zap.String("from", source),
			zap.String("provider", provider))
		rate = decimal.NewFromInt(1)
	}
	return models.ConversionResult{
		TargetAmount:   sourceAmount.Mul(rate),
		TargetCurrency: target,
		ExchangeRate:   rate,
		WasConverted:   true,
	}, nil
}
