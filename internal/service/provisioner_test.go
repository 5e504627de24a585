package service

import (
	"context"
	"errors"
	"testing"

	"checkout-service/internal/currency"
	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionMobileMoneyCanonicalizesProvider(t *testing.T) {
	payments := newFakePaymentService()
	p := NewProvisioner(payments)

	method, err := p.Provision(context.Background(), testCreds, models.PaymentMethodSpec{
		Type:        models.PaymentTypeMobileMoney,
		Provider:    "MTN",
		PhoneNumber: "+250780000001",
		Currency:    "rwf",
	})

	require.NoError(t, err)
	assert.Equal(t, currency.ProviderMTN, method.Provider)
	assert.Equal(t, models.PaymentTypeMobileMoney, method.Type)
	assert.Equal(t, "RWF", method.Currency)
	assert.NotEmpty(t, method.ID)
	assert.Equal(t, 1, payments.registerCalls())
}

func TestProvisionRejectsUnknownProviderLocally(t *testing.T) {
	payments := newFakePaymentService()
	p := NewProvisioner(payments)

	_, err := p.Provision(context.Background(), testCreds, models.PaymentMethodSpec{
		Type:        models.PaymentTypeMobileMoney,
		Provider:    "mpesa_unlisted",
		PhoneNumber: "+250780000001",
		Currency:    "RWF",
	})

	assert.ErrorIs(t, err, models.ErrInvalidProvider)
	assert.Equal(t, 0, payments.registerCalls(), "rejection must happen before any network call")
}

func TestProvisionRequiresPhoneForMobileMoney(t *testing.T) {
	payments := newFakePaymentService()
	p := NewProvisioner(payments)

	_, err := p.Provision(context.Background(), testCreds, models.PaymentMethodSpec{
		Type:     models.PaymentTypeMobileMoney,
		Provider: "airtel",
		Currency: "RWF",
	})

	require.Error(t, err)
	assert.Equal(t, 0, payments.registerCalls())
}

func TestProvisionCardBrand(t *testing.T) {
	payments := newFakePaymentService()
	p := NewProvisioner(payments)

	method, err := p.Provision(context.Background(), testCreds, models.PaymentMethodSpec{
		Type:     models.PaymentTypeCard,
		Provider: "Visa",
		LastFour: "4242",
		Currency: "USD",
	})

	require.NoError(t, err)
	assert.Equal(t, "visa", method.Provider)
}

func TestProvisionRejectsUnknownCardBrand(t *testing.T) {
	payments := newFakePaymentService()
	p := NewProvisioner(payments)

	_, err := p.Provision(context.Background(), testCreds, models.PaymentMethodSpec{
		Type:     models.PaymentTypeCard,
		Provider: "diners",
		Currency: "USD",
	})

	assert.ErrorIs(t, err, models.ErrInvalidProvider)
	assert.Equal(t, 0, payments.registerCalls())
}

func TestProvisionRejectsUnsupportedType(t *testing.T) {
	payments := newFakePaymentService()
	p := NewProvisioner(payments)

	_, err := p.Provision(context.Background(), testCreds, models.PaymentMethodSpec{
		Type:     "crypto",
		Provider: "btc",
		Currency: "USD",
	})

	require.Error(t, err)
	assert.Equal(t, 0, payments.registerCalls())
}

func TestProvisionPropagatesRemoteFailure(t *testing.T) {
	payments := newFakePaymentService()
	payments.registerErr = errors.New("payment service unavailable")
	p := NewProvisioner(payments)

	_, err := p.Provision(context.Background(), testCreds, models.PaymentMethodSpec{
		Type:        models.PaymentTypeMobileMoney,
		Provider:    "mtn_momo",
		PhoneNumber: "+250780000001",
		Currency:    "RWF",
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrInvalidProvider)
}
