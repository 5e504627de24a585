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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Default pickup and return times substituted when the caller supplies none.
// The booking service requires both fields; these defaults are contract, not
// placeholders.
const (
	DefaultPickupTime = "09:00"
	DefaultReturnTime = "17:00"
)

const dateLayout = "2006-01-02"

// BookingClient creates bookings against the remote booking service. Each
// call creates exactly one booking; the call is not idempotent and never
// retried here.
type BookingClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewBookingClient creates a new booking service client
func NewBookingClient(baseURL string, timeout time.Duration) *BookingClient {
	return &BookingClient{
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
		logger:  util.GetLogger(),
	}
}

type bookingRequest struct {
	ProductID           string          `json:"productId"`
	RenterID            string          `json:"renterId"`
	OwnerID             string          `json:"ownerId"`
	StartDate           string          `json:"startDate"`
	EndDate             string          `json:"endDate"`
	PickupMethod        string          `json:"pickupMethod"`
	PickupTime          string          `json:"pickupTime"`
	ReturnTime          string          `json:"returnTime"`
	DeliveryAddress     string          `json:"deliveryAddress,omitempty"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	Currency            string          `json:"currency"`
}

type bookingResponse struct {
	ID string `json:"id"`
}

type bookingFailure struct {
	Message string `json:"message"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateBooking submits one cart item as a booking request. Every failure is
// classified into *models.BookingError: transport, remote validation (the
// first field error's message becomes the representative one, the full list is
// preserved) or unknown.
func (bc *BookingClient) CreateBooking(ctx context.Context, creds models.Credentials, renterID string, item models.CartItem) (string, error) {
	ctx, span := util.StartSpan(ctx, "BookingClient.CreateBooking")
	defer span.End()

	req := bookingRequest{
		ProductID:           item.ProductID,
		RenterID:            renterID,
		OwnerID:             item.OwnerID,
		StartDate:           item.StartDate.Format(dateLayout),
		EndDate:             item.EndDate.Format(dateLayout),
		PickupMethod:        item.PickupMethod,
		PickupTime:          item.PickupTime,
		ReturnTime:          item.ReturnTime,
		DeliveryAddress:     item.DeliveryAddress,
		SpecialInstructions: item.SpecialInstructions,
		TotalAmount:         item.TotalAmount,
		Currency:            item.Currency,
	}
	if req.PickupTime == "" {
		req.PickupTime = DefaultPickupTime
	}
	if req.ReturnTime == "" {
		req.ReturnTime = DefaultReturnTime
	}

	var resp bookingResponse
	err := doJSON(ctx, bc.client, creds, http.MethodPost, bc.baseURL+"/api/v1/bookings", req, &resp)
	if err != nil {
		return "", classifyBookingErr(err)
	}
	if resp.ID == "" {
		return "", &models.BookingError{Message: "booking service returned no booking id"}
	}

	bc.logger.Info("Booking created",
		zap.String("item_id", item.ID),
		zap.String("booking_id", resp.ID))
	return resp.ID, nil
}

func classifyBookingErr(err error) *models.BookingError {
	var se *statusError
	if errors.As(err, &se) {
		var failure bookingFailure
		if jsonErr := json.Unmarshal(se.body, &failure); jsonErr == nil {
			berr := &models.BookingError{Message: failure.Message}
			for _, fe := range failure.Errors {
				berr.FieldErrors = append(berr.FieldErrors, fe.Message)
			}
			if len(berr.FieldErrors) > 0 {
				berr.Message = berr.FieldErrors[0]
			}
			if berr.Message != "" {
				return berr
			}
		}
		return &models.BookingError{Message: fmt.Sprintf("booking failed with status %d", se.status)}
	}
	return &models.BookingError{Message: fmt.Sprintf("booking service unreachable: %v", err)}
}
