package models

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Pickup methods accepted by the booking service
const (
	PickupMethodSelf     = "self_pickup"
	PickupMethodDelivery = "delivery"
)

// Payment method types
const (
	PaymentTypeCard        = "card"
	PaymentTypeMobileMoney = "mobile_money"
)

// Booking phases (terminal: BOOKED, FAILED)
const (
	BookingPending  = "PENDING"
	BookingInFlight = "IN_FLIGHT"
	BookingBooked   = "BOOKED"
	BookingFailed   = "FAILED"
)

// Payment phases (terminal: SETTLED, FAILED)
const (
	PaymentNotStarted = "NOT_STARTED"
	PaymentPending    = "PENDING"
	PaymentInFlight   = "IN_FLIGHT"
	PaymentSettled    = "SETTLED"
	PaymentFailed     = "FAILED"
)

// Batch statuses
const (
	BatchStatusBooking         = "BOOKING_IN_PROGRESS"
	BatchStatusAwaitingPayment = "AWAITING_PAYMENT_METHOD"
	BatchStatusCharging        = "PAYMENT_IN_PROGRESS"
	BatchStatusCompleted       = "COMPLETED"
	BatchStatusHasErrors       = "COMPLETED_WITH_ERRORS"
	BatchStatusAbandoned       = "ABANDONED"
)

// CartItem is one rentable unit pending booking. It belongs to the caller and
// is read-only to the orchestrator once the batch has started.
type CartItem struct {
	ID                  string          `json:"id"`
	OwnerID             string          `json:"owner_id"`
	ProductID           string          `json:"product_id"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	PickupMethod        string          `json:"pickup_method"`
	PickupTime          string          `json:"pickup_time,omitempty"`
	ReturnTime          string          `json:"return_time,omitempty"`
	DeliveryAddress     string          `json:"delivery_address,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	Currency            string          `json:"currency"`
}

// Credentials carry the caller's auth token. They are supplied once at batch
// start and threaded explicitly through every remote call.
type Credentials struct {
	Token string
}

// PaymentMethodSpec is the caller-supplied payment instrument descriptor,
// before provider canonicalization.
type PaymentMethodSpec struct {
	Type        string `json:"type" binding:"required"`
	Provider    string `json:"provider" binding:"required"`
	PhoneNumber string `json:"phone_number,omitempty"`
	LastFour    string `json:"last_four,omitempty"`
	ExpMonth    int    `json:"exp_month,omitempty"`
	ExpYear     int    `json:"exp_year,omitempty"`
	Currency    string `json:"currency" binding:"required"`
	IsDefault   bool   `json:"is_default"`
}

// PaymentMethod is a provisioned payment instrument shared by every charge in
// the batch.
type PaymentMethod struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Currency string `json:"currency"`
}

// ConversionResult is the outcome of resolving a charge amount into a
// provider's settlement currency. It is derived state, recomputed per charge.
type ConversionResult struct {
	TargetAmount   decimal.Decimal `json:"target_amount"`
	TargetCurrency string          `json:"target_currency"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	WasConverted   bool            `json:"was_converted"`
}

// ItemState is the orchestrator's per-item ledger record.
type ItemState struct {
	Item          CartItem
	BookingPhase  string
	BookingID     string
	BookingError  *BookingError
	PaymentPhase  string
	TransactionID string
	PaymentError  string
	Conversion    *ConversionResult
}

// ItemSnapshot is a read-only copy of one ItemState for observers.
type ItemSnapshot struct {
	ItemID        string            `json:"item_id"`
	ProductID     string            `json:"product_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	BookingPhase  string            `json:"booking_phase"`
	BookingID     string            `json:"booking_id,omitempty"`
	BookingError  string            `json:"booking_error,omitempty"`
	FieldErrors   []string          `json:"field_errors,omitempty"`
	PaymentPhase  string            `json:"payment_phase"`
	TransactionID string            `json:"transaction_id,omitempty"`
	PaymentError  string            `json:"payment_error,omitempty"`
	Conversion    *ConversionResult `json:"conversion,omitempty"`
}

// BatchSummary aggregates the ledger for the caller.
type BatchSummary struct {
	Total           int  `json:"total"`
	Booked          int  `json:"booked"`
	BookingFailed   int  `json:"booking_failed"`
	Settled         int  `json:"settled"`
	PaymentFailed   int  `json:"payment_failed"`
	AwaitingPayment int  `json:"awaiting_payment"`
	FullySuccessful bool `json:"fully_successful"`
	HasErrors       bool `json:"has_errors"`
}

// BatchSnapshot is a point-in-time view of the whole batch.
type BatchSnapshot struct {
	BatchID   string         `json:"batch_id"`
	RenterID  string         `json:"renter_id"`
	OwnerID   string         `json:"owner_id"`
	Status    string         `json:"status"`
	Method    *PaymentMethod `json:"payment_method,omitempty"`
	Items     []ItemSnapshot `json:"items"`
	Summary   BatchSummary   `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
}

// Batch owns the ordered ItemState ledger plus the single shared payment
// method. All mutation goes through phase-guarded methods; observers only ever
// see copies, so snapshots are safe to read while a run is in progress.
type Batch struct {
	mu        sync.RWMutex
	id        string
	renterID  string
	ownerID   string
	status    string
	creds     Credentials
	method    *PaymentMethod
	items     []*ItemState
	index     map[string]*ItemState
	createdAt time.Time
}

// NewBatch builds a batch for a single-owner item set, all items at
// bookingPhase PENDING and paymentPhase NOT_STARTED, preserving input order.
func NewBatch(id, renterID, ownerID string, creds Credentials, items []CartItem) *Batch {
	b := &Batch{
		id:        id,
		renterID:  renterID,
		ownerID:   ownerID,
		status:    BatchStatusBooking,
		creds:     creds,
		index:     make(map[string]*ItemState, len(items)),
		createdAt: time.Now(),
	}
	for _, it := range items {
		state := &ItemState{
			Item:         it,
			BookingPhase: BookingPending,
			PaymentPhase: PaymentNotStarted,
		}
		b.items = append(b.items, state)
		b.index[it.ID] = state
	}
	return b
}

func (b *Batch) ID() string       { return b.id }
func (b *Batch) RenterID() string { return b.renterID }
func (b *Batch) OwnerID() string  { return b.ownerID }

// Credentials returns the caller credentials supplied at batch start.
func (b *Batch) Credentials() Credentials { return b.creds }

func (b *Batch) Status() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

func (b *Batch) SetStatus(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// Method returns the provisioned payment method, if any.
func (b *Batch) Method() (PaymentMethod, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.method == nil {
		return PaymentMethod{}, false
	}
	return *b.method, true
}

// SetMethod records the provisioned payment method. It is written exactly
// once per batch.
func (b *Batch) SetMethod(m PaymentMethod) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.method != nil {
		return ErrMethodProvisioned
	}
	b.method = &m
	return nil
}

// ItemIDs returns item identifiers in input order.
func (b *Batch) ItemIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, len(b.items))
	for i, st := range b.items {
		ids[i] = st.Item.ID
	}
	return ids
}

// View returns a copy of one item's state.
func (b *Batch) View(itemID string) (ItemState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.index[itemID]
	if !ok {
		return ItemState{}, false
	}
	return copyState(st), true
}

func copyState(st *ItemState) ItemState {
	out := *st
	if st.BookingError != nil {
		berr := *st.BookingError
		berr.FieldErrors = append([]string(nil), st.BookingError.FieldErrors...)
		out.BookingError = &berr
	}
	if st.Conversion != nil {
		conv := *st.Conversion
		out.Conversion = &conv
	}
	return out
}

// MarkBookingInFlight moves an item from PENDING to IN_FLIGHT.
func (b *Batch) MarkBookingInFlight(itemID string) error {
	return b.transition(itemID, func(st *ItemState) error {
		if st.BookingPhase != BookingPending {
			return ErrIllegalTransition
		}
		st.BookingPhase = BookingInFlight
		return nil
	})
}

// MarkBooked records a created booking and opens the item for payment.
func (b *Batch) MarkBooked(itemID, bookingID string) error {
	return b.transition(itemID, func(st *ItemState) error {
		if st.BookingPhase != BookingInFlight {
			return ErrIllegalTransition
		}
		st.BookingPhase = BookingBooked
		st.BookingID = bookingID
		st.BookingError = nil
		st.PaymentPhase = PaymentPending
		return nil
	})
}

// MarkBookingFailed records a terminal booking failure. The item stays
// excluded from payment until the caller re-drives the booking step.
func (b *Batch) MarkBookingFailed(itemID string, berr *BookingError) error {
	return b.transition(itemID, func(st *ItemState) error {
		if st.BookingPhase != BookingInFlight {
			return ErrIllegalTransition
		}
		st.BookingPhase = BookingFailed
		st.BookingError = berr
		return nil
	})
}

// MarkPaymentInFlight moves a booked item's payment from PENDING to
// IN_FLIGHT. Requiring PENDING here is what guarantees an item is never
// charged twice: once it has left PENDING it cannot re-enter IN_FLIGHT
// without an explicit caller-driven reset of a FAILED payment.
func (b *Batch) MarkPaymentInFlight(itemID string) error {
	return b.transition(itemID, func(st *ItemState) error {
		if st.BookingPhase != BookingBooked || st.PaymentPhase != PaymentPending {
			return ErrIllegalTransition
		}
		st.PaymentPhase = PaymentInFlight
		return nil
	})
}

// MarkSettled records a successful charge.
func (b *Batch) MarkSettled(itemID, transactionID string, conv *ConversionResult) error {
	return b.transition(itemID, func(st *ItemState) error {
		if st.PaymentPhase != PaymentInFlight {
			return ErrIllegalTransition
		}
		st.PaymentPhase = PaymentSettled
		st.TransactionID = transactionID
		st.PaymentError = ""
		st.Conversion = conv
		return nil
	})
}

// MarkPaymentFailed records a terminal charge failure.
func (b *Batch) MarkPaymentFailed(itemID, reason string) error {
	return b.transition(itemID, func(st *ItemState) error {
		if st.PaymentPhase != PaymentInFlight {
			return ErrIllegalTransition
		}
		st.PaymentPhase = PaymentFailed
		st.PaymentError = reason
		return nil
	})
}

// ResetBooking re-opens a FAILED booking for a caller-initiated retry.
func (b *Batch) ResetBooking(itemID string) error {
	return b.transition(itemID, func(st *ItemState) error {
		if st.BookingPhase != BookingFailed {
			return ErrIllegalTransition
		}
		st.BookingPhase = BookingPending
		return nil
	})
}

// ResetPayment re-opens a FAILED payment for a caller-initiated retry.
func (b *Batch) ResetPayment(itemID string) error {
	return b.transition(itemID, func(st *ItemState) error {
		if st.BookingPhase != BookingBooked || st.PaymentPhase != PaymentFailed {
			return ErrIllegalTransition
		}
		st.PaymentPhase = PaymentPending
		return nil
	})
}

func (b *Batch) transition(itemID string, apply func(*ItemState) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.index[itemID]
	if !ok {
		return ErrUnknownItem
	}
	return apply(st)
}

// Summary computes the aggregate batch result. The batch is fully successful
// iff every item is BOOKED and its payment is SETTLED or still PENDING; it
// has errors iff any item is FAILED at either phase.
func (b *Batch) Summary() BatchSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.summaryLocked()
}

func (b *Batch) summaryLocked() BatchSummary {
	sum := BatchSummary{Total: len(b.items), FullySuccessful: len(b.items) > 0}
	for _, st := range b.items {
		switch st.BookingPhase {
		case BookingBooked:
			sum.Booked++
		case BookingFailed:
			sum.BookingFailed++
		}
		switch st.PaymentPhase {
		case PaymentSettled:
			sum.Settled++
		case PaymentFailed:
			sum.PaymentFailed++
		case PaymentPending:
			sum.AwaitingPayment++
		}
		ok := st.BookingPhase == BookingBooked &&
			(st.PaymentPhase == PaymentSettled || st.PaymentPhase == PaymentPending)
		if !ok {
			sum.FullySuccessful = false
		}
		if st.BookingPhase == BookingFailed || st.PaymentPhase == PaymentFailed {
			sum.HasErrors = true
		}
	}
	return sum
}

// Snapshot returns a point-in-time copy of the whole batch, safe to hand to
// any observer while processing continues.
func (b *Batch) Snapshot() BatchSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := BatchSnapshot{
		BatchID:   b.id,
		RenterID:  b.renterID,
		OwnerID:   b.ownerID,
		Status:    b.status,
		Summary:   b.summaryLocked(),
		CreatedAt: b.createdAt,
	}
	if b.method != nil {
		m := *b.method
		snap.Method = &m
	}
	snap.Items = make([]ItemSnapshot, 0, len(b.items))
	for _, st := range b.items {
		item := ItemSnapshot{
			ItemID:        st.Item.ID,
			ProductID:     st.Item.ProductID,
			Amount:        st.Item.TotalAmount,
			Currency:      st.Item.Currency,
			BookingPhase:  st.BookingPhase,
			BookingID:     st.BookingID,
			PaymentPhase:  st.PaymentPhase,
			TransactionID: st.TransactionID,
			PaymentError:  st.PaymentError,
		}
		if st.BookingError != nil {
			item.BookingError = st.BookingError.Message
			item.FieldErrors = append([]string(nil), st.BookingError.FieldErrors...)
		}
		if st.Conversion != nil {
			conv := *st.Conversion
			item.Conversion = &conv
		}
		snap.Items = append(snap.Items, item)
	}
	return snap
}
