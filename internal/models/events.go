package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeCheckoutStarted   = "CHECKOUT_STARTED"
	EventTypeBookingCreated    = "BOOKING_CREATED"
	EventTypeBookingFailed     = "BOOKING_FAILED"
	EventTypeMethodProvisioned = "PAYMENT_METHOD_PROVISIONED"
	EventTypePaymentSettled    = "PAYMENT_SETTLED"
	EventTypePaymentFailed     = "PAYMENT_FAILED"
	EventTypeCheckoutCompleted = "CHECKOUT_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutItemData represents item data carried in events
type CheckoutItemData struct {
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// CheckoutStartedEvent published when a batch passes the owner guard
type CheckoutStartedEvent struct {
	BaseEvent
	BatchID  string             `json:"batch_id"`
	RenterID string             `json:"renter_id"`
	OwnerID  string             `json:"owner_id"`
	Items    []CheckoutItemData `json:"items"`
}

// BookingCreatedEvent published when one item's booking succeeds
type BookingCreatedEvent struct {
	BaseEvent
	BatchID   string `json:"batch_id"`
	ItemID    string `json:"item_id"`
	BookingID string `json:"booking_id"`
}

// BookingFailedEvent published when one item's booking fails
type BookingFailedEvent struct {
	BaseEvent
	BatchID string `json:"batch_id"`
	ItemID  string `json:"item_id"`
	Reason  string `json:"reason"`
}

// MethodProvisionedEvent published when the batch payment method is registered
type MethodProvisionedEvent struct {
	BaseEvent
	BatchID  string `json:"batch_id"`
	MethodID string `json:"method_id"`
	Type     string `json:"type"`
	Provider string `json:"provider"`
}

// PaymentSettledEvent published when one item's charge succeeds
type PaymentSettledEvent struct {
	BaseEvent
	BatchID       string          `json:"batch_id"`
	ItemID        string          `json:"item_id"`
	BookingID     string          `json:"booking_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	WasConverted  bool            `json:"was_converted"`
}

// PaymentFailedEvent published when one item's charge fails
type PaymentFailedEvent struct {
	BaseEvent
	BatchID string `json:"batch_id"`
	ItemID  string `json:"item_id"`
	Reason  string `json:"reason"`
}

// CheckoutCompletedEvent published when a phase run finishes
type CheckoutCompletedEvent struct {
	BaseEvent
	BatchID string       `json:"batch_id"`
	Status  string       `json:"status"`
	Summary BatchSummary `json:"summary"`
}
