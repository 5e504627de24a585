package service

import (
	"context"
	"time"

	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
)

// BookingService creates one remote booking per call. Failures are
// *models.BookingError.
type BookingService interface {
	CreateBooking(ctx context.Context, creds models.Credentials, renterID string, item models.CartItem) (string, error)
}

// PaymentService registers payment instruments and processes charges. Charge
// failures are *models.PaymentError.
type PaymentService interface {
	RegisterMethod(ctx context.Context, creds models.Credentials, spec models.PaymentMethodSpec, provider string) (string, error)
	Charge(ctx context.Context, creds models.Credentials, charge models.ChargeRequest) (string, error)
}

// RateService performs live currency conversion lookups.
type RateService interface {
	Convert(ctx context.Context, creds models.Credentials, from, to string, amount decimal.Decimal) (models.LiveQuote, error)
}

// RateCache caches exchange rates between live lookups.
type RateCache interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, bool, error)
	SetRate(ctx context.Context, from, to string, rate decimal.Decimal, ttl time.Duration) error
}

// EventSink publishes checkout lifecycle events. Publishing is best-effort:
// the orchestrator logs failures and keeps going.
type EventSink interface {
	PublishCheckoutStarted(ctx context.Context, event *models.CheckoutStartedEvent) error
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
	PublishBookingFailed(ctx context.Context, event *models.BookingFailedEvent) error
	PublishMethodProvisioned(ctx context.Context, event *models.MethodProvisionedEvent) error
	PublishPaymentSettled(ctx context.Context, event *models.PaymentSettledEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
	PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error
}
