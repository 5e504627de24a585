package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// PaymentClient registers payment methods and processes charges against the
// remote payment service. Charges are not idempotent at this layer: calling
// Charge twice for the same booking creates two transactions remotely.
type PaymentClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewPaymentClient creates a new payment service client
func NewPaymentClient(baseURL string, timeout time.Duration) *PaymentClient {
	return &PaymentClient{
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
		logger:  util.GetLogger(),
	}
}

type registerMethodRequest struct {
	Type        string            `json:"type"`
	Provider    string            `json:"provider"`
	PhoneNumber string            `json:"phoneNumber,omitempty"`
	LastFour    string            `json:"lastFour,omitempty"`
	ExpMonth    int               `json:"expMonth,omitempty"`
	ExpYear     int               `json:"expYear,omitempty"`
	IsDefault   bool              `json:"isDefault"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type registerMethodResponse struct {
	ID string `json:"id"`
}

// RegisterMethod registers one payment instrument. The provider has already
// been canonicalized by the provisioner.
func (pc *PaymentClient) RegisterMethod(ctx context.Context, creds models.Credentials, spec models.PaymentMethodSpec, provider string) (string, error) {
	ctx, span := util.StartSpan(ctx, "PaymentClient.RegisterMethod")
	defer span.End()

	req := registerMethodRequest{
		Type:        spec.Type,
		Provider:    provider,
		PhoneNumber: spec.PhoneNumber,
		LastFour:    spec.LastFour,
		ExpMonth:    spec.ExpMonth,
		ExpYear:     spec.ExpYear,
		IsDefault:   spec.IsDefault,
		Currency:    spec.Currency,
		Metadata:    map[string]string{"source": "checkout"},
	}

	var resp registerMethodResponse
	if err := doJSON(ctx, pc.client, creds, http.MethodPost, pc.baseURL+"/api/v1/payment-methods", req, &resp); err != nil {
		return "", fmt.Errorf("failed to register payment method: %w", remoteMessage(err))
	}
	if resp.ID == "" {
		return "", fmt.Errorf("payment service returned no method id")
	}

	pc.logger.Info("Payment method registered",
		zap.String("method_id", resp.ID),
		zap.String("provider", provider))
	return resp.ID, nil
}

type chargeRequest struct {
	BookingID       string             `json:"bookingId"`
	PaymentMethodID string             `json:"paymentMethodId"`
	Amount          string             `json:"amount"`
	Currency        string             `json:"currency"`
	TransactionType string             `json:"transactionType"`
	Provider        string             `json:"provider,omitempty"`
	Metadata        models.ChargeAudit `json:"metadata"`
}

type chargeResponse struct {
	TransactionID string `json:"transactionId"`
}

// Charge submits exactly one charge attempt. Failures are classified into
// *models.PaymentError.
func (pc *PaymentClient) Charge(ctx context.Context, creds models.Credentials, charge models.ChargeRequest) (string, error) {
	ctx, span := util.StartSpan(ctx, "PaymentClient.Charge")
	defer span.End()

	req := chargeRequest{
		BookingID:       charge.BookingID,
		PaymentMethodID: charge.MethodID,
		Amount:          charge.Amount.String(),
		Currency:        charge.Currency,
		TransactionType: charge.TransactionType,
		Provider:        charge.Provider,
		Metadata:        charge.Audit,
	}

	var resp chargeResponse
	err := doJSON(ctx, pc.client, creds, http.MethodPost, pc.baseURL+"/api/v1/transactions", req, &resp)
	if err != nil {
		return "", classifyPaymentErr(err)
	}
	if resp.TransactionID == "" {
		return "", &models.PaymentError{Message: "payment service returned no transaction id"}
	}

	pc.logger.Info("Charge settled",
		zap.String("booking_id", charge.BookingID),
		zap.String("transaction_id", resp.TransactionID))
	return resp.TransactionID, nil
}

func classifyPaymentErr(err error) *models.PaymentError {
	var se *statusError
	if errors.As(err, &se) {
		var failure struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(se.body, &failure); jsonErr == nil && failure.Message != "" {
			return &models.PaymentError{Message: failure.Message}
		}
		return &models.PaymentError{Message: fmt.Sprintf("charge failed with status %d", se.status)}
	}
	return &models.PaymentError{Message: fmt.Sprintf("payment service unreachable: %v", err)}
}

// remoteMessage unwraps a statusError into a readable error for non-charge
// registration failures.
func remoteMessage(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		var failure struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(se.body, &failure); jsonErr == nil && failure.Message != "" {
			return errors.New(failure.Message)
		}
	}
	return err
}
