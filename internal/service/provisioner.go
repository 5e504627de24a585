package service

import (
	"context"
	"fmt"
	"strings"

	"checkout-service/internal/currency"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Provisioner validates and registers a payment instrument before it is
// charged. Provider names are checked against the local allow-lists first;
// an unknown provider fails with models.ErrInvalidProvider before any network
// call, because the remote service's own validation messages are less
// specific.
type Provisioner struct {
	payments PaymentService
	logger   *zap.Logger
}

// NewProvisioner creates a new payment method provisioner
func NewProvisioner(payments PaymentService) *Provisioner {
	return &Provisioner{
		payments: payments,
		logger:   util.GetLogger(),
	}
}

// Provision registers exactly one payment method and returns it with the
// canonical provider code. Subsequent charges reuse the returned identifier.
func (p *Provisioner) Provision(ctx context.Context, creds models.Credentials, spec models.PaymentMethodSpec) (models.PaymentMethod, error) {
	ctx, span := util.StartSpan(ctx, "Provisioner.Provision")
	defer span.End()

	var provider string
	switch spec.Type {
	case models.PaymentTypeMobileMoney:
		code, ok := currency.CanonicalMomoProvider(spec.Provider)
		if !ok {
			util.MethodsRejectedTotal.WithLabelValues("invalid_provider").Inc()
			return models.PaymentMethod{}, fmt.Errorf("%w: unknown mobile money provider %q", models.ErrInvalidProvider, spec.Provider)
		}
		if strings.TrimSpace(spec.PhoneNumber) == "" {
			util.MethodsRejectedTotal.WithLabelValues("missing_phone").Inc()
			return models.PaymentMethod{}, fmt.Errorf("mobile money method requires a phone number")
		}
		provider = code

	case models.PaymentTypeCard:
		brand, ok := currency.CanonicalCardBrand(spec.Provider)
		if !ok {
			util.MethodsRejectedTotal.WithLabelValues("invalid_provider").Inc()
			return models.PaymentMethod{}, fmt.Errorf("%w: unknown card brand %q", models.ErrInvalidProvider, spec.Provider)
		}
		provider = brand

	default:
		util.MethodsRejectedTotal.WithLabelValues("invalid_type").Inc()
		return models.PaymentMethod{}, fmt.Errorf("unsupported payment method type %q", spec.Type)
	}

	id, err := p.payments.RegisterMethod(ctx, creds, spec, provider)
	if err != nil {
		util.MethodsRejectedTotal.WithLabelValues("remote").Inc()
		p.logger.Warn("Payment method registration failed",
			zap.String("provider", provider),
			zap.Error(err))
		return models.PaymentMethod{}, err
	}

	util.MethodsProvisionedTotal.Inc()
	p.logger.Info("Payment method provisioned",
		zap.String("method_id", id),
		zap.String("provider", provider),
		zap.String("type", spec.Type))

	return models.PaymentMethod{
		ID:       id,
		Type:     spec.Type,
		Provider: provider,
		Currency: strings.ToUpper(spec.Currency),
	}, nil
}
