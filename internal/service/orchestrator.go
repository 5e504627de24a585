package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Orchestrator drives the checkout saga: owner-guarded batch admission, a
// sequential booking phase, one payment method provisioning, and a sequential
// payment phase with per-item currency resolution. Items are processed
// strictly in input order, one at a time, with a deliberate throttle between
// remote submissions.
//
// Per-item failures are captured in the batch ledger and never propagated;
// the orchestrator itself performs zero automatic retries, and a booking is
// never rolled back when its payment fails — booked-but-unpaid items stay in
// the ledger for the caller to re-drive or cancel out of band.
type Orchestrator struct {
	bookings     BookingService
	payments     PaymentService
	provisioner  *Provisioner
	resolver     *CurrencyResolver
	events       EventSink
	pacer        Pacer
	bookingDelay time.Duration
	paymentDelay time.Duration
	logger       *zap.Logger
}

// NewOrchestrator creates a new checkout orchestrator. events may be nil when
// no broker is wired.
func NewOrchestrator(
	bookings BookingService,
	payments PaymentService,
	provisioner *Provisioner,
	resolver *CurrencyResolver,
	events EventSink,
	pacer Pacer,
	bookingDelay, paymentDelay time.Duration,
) *Orchestrator {
	if pacer == nil {
		pacer = NewSleepPacer()
	}
	return &Orchestrator{
		bookings:     bookings,
		payments:     payments,
		provisioner:  provisioner,
		resolver:     resolver,
		events:       events,
		pacer:        pacer,
		bookingDelay: bookingDelay,
		paymentDelay: paymentDelay,
		logger:       util.GetLogger(),
	}
}

// Start admits a cart as a batch. A cart spanning more than one owner is
// rejected before any remote call; the caller resolves the conflict and
// re-submits.
func (o *Orchestrator) Start(ctx context.Context, renterID string, creds models.Credentials, items []models.CartItem) (*models.Batch, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.Start")
	defer span.End()

	owner, err := AdmitSingleOwner(items)
	if err != nil {
		var multi *models.MultiOwnerError
		if errors.As(err, &multi) {
			util.CheckoutsRejectedTotal.WithLabelValues("multi_owner").Inc()
			o.logger.Warn("Checkout rejected: cart spans multiple owners",
				zap.String("renter_id", renterID),
				zap.Int("owners", len(multi.Groups)))
		} else {
			util.CheckoutsRejectedTotal.WithLabelValues("empty_cart").Inc()
		}
		return nil, err
	}

	batch := models.NewBatch(uuid.New().String(), renterID, owner, creds, items)
	util.CheckoutsStartedTotal.Inc()
	o.logger.Info("Checkout batch started",
		zap.String("batch_id", batch.ID()),
		zap.String("renter_id", renterID),
		zap.String("owner_id", owner),
		zap.Int("items", len(items)))

	event := &models.CheckoutStartedEvent{
		BaseEvent: newBaseEvent(models.EventTypeCheckoutStarted),
		BatchID:   batch.ID(),
		RenterID:  renterID,
		OwnerID:   owner,
	}
	for _, item := range items {
		event.Items = append(event.Items, models.CheckoutItemData{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Amount:    item.TotalAmount,
			Currency:  item.Currency,
		})
	}
	o.publish(ctx, func(s EventSink) error { return s.PublishCheckoutStarted(ctx, event) })

	return batch, nil
}

// RunBookingPhase creates bookings for every PENDING item, strictly in input
// order: item N's call is never issued before item N-1's has resolved. A
// failed item does not stop the rest of the batch. Cancellation is honored
// between items, never mid-call.
func (o *Orchestrator) RunBookingPhase(ctx context.Context, batch *models.Batch) error {
	ctx, span := util.StartSpan(ctx, "Orchestrator.RunBookingPhase")
	defer span.End()

	batch.SetStatus(models.BatchStatusBooking)

	for _, itemID := range batch.ItemIDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, ok := batch.View(itemID)
		if !ok || st.BookingPhase != models.BookingPending {
			continue
		}
		o.bookItem(ctx, batch, itemID)

		if err := o.pacer.Pause(ctx, o.bookingDelay); err != nil {
			return err
		}
	}

	if batch.Summary().Booked > 0 {
		batch.SetStatus(models.BatchStatusAwaitingPayment)
	} else {
		batch.SetStatus(models.BatchStatusHasErrors)
	}
	return nil
}

func (o *Orchestrator) bookItem(ctx context.Context, batch *models.Batch, itemID string) {
	st, ok := batch.View(itemID)
	if !ok {
		return
	}
	if err := batch.MarkBookingInFlight(itemID); err != nil {
		return
	}

	start := time.Now()
	bookingID, err := o.bookings.CreateBooking(ctx, batch.Credentials(), batch.RenterID(), st.Item)
	util.BookingLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		berr := asBookingError(err)
		_ = batch.MarkBookingFailed(itemID, berr)
		util.BookingsFailedTotal.WithLabelValues("remote").Inc()
		o.logger.Warn("Booking failed",
			zap.String("batch_id", batch.ID()),
			zap.String("item_id", itemID),
			zap.String("reason", berr.Message))

		event := &models.BookingFailedEvent{
			BaseEvent: newBaseEvent(models.EventTypeBookingFailed),
			BatchID:   batch.ID(),
			ItemID:    itemID,
			Reason:    berr.Message,
		}
		o.publish(ctx, func(s EventSink) error { return s.PublishBookingFailed(ctx, event) })
		return
	}

	_ = batch.MarkBooked(itemID, bookingID)
	util.BookingsCreatedTotal.Inc()
	o.logger.Info("Item booked",
		zap.String("batch_id", batch.ID()),
		zap.String("item_id", itemID),
		zap.String("booking_id", bookingID))

	event := &models.BookingCreatedEvent{
		BaseEvent: newBaseEvent(models.EventTypeBookingCreated),
		BatchID:   batch.ID(),
		ItemID:    itemID,
		BookingID: bookingID,
	}
	o.publish(ctx, func(s EventSink) error { return s.PublishBookingCreated(ctx, event) })
}

// ProvisionMethod registers the batch's single payment method. If the batch
// already has one, it is returned as-is so the caller can safely re-enter the
// payment phase. A provisioning failure leaves every booked item at
// paymentPhase PENDING; the caller may retry without re-creating bookings.
func (o *Orchestrator) ProvisionMethod(ctx context.Context, batch *models.Batch, spec models.PaymentMethodSpec) (models.PaymentMethod, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.ProvisionMethod")
	defer span.End()

	if method, ok := batch.Method(); ok {
		return method, nil
	}

	method, err := o.provisioner.Provision(ctx, batch.Credentials(), spec)
	if err != nil {
		return models.PaymentMethod{}, err
	}
	if err := batch.SetMethod(method); err != nil {
		// Lost a race with another provisioning call; reuse the winner.
		method, _ = batch.Method()
		return method, nil
	}

	event := &models.MethodProvisionedEvent{
		BaseEvent: newBaseEvent(models.EventTypeMethodProvisioned),
		BatchID:   batch.ID(),
		MethodID:  method.ID,
		Type:      method.Type,
		Provider:  method.Provider,
	}
	o.publish(ctx, func(s EventSink) error { return s.PublishMethodProvisioned(ctx, event) })

	return method, nil
}

// RunPaymentPhase charges every booked item whose payment is PENDING, in the
// same input order as the booking phase. Mobile-money charges are first
// resolved into the provider's settlement currency. A failed charge does not
// block the remaining items, and the booking behind it is never rolled back.
func (o *Orchestrator) RunPaymentPhase(ctx context.Context, batch *models.Batch) error {
	ctx, span := util.StartSpan(ctx, "Orchestrator.RunPaymentPhase")
	defer span.End()

	method, ok := batch.Method()
	if !ok {
		return models.ErrMethodRequired
	}
	batch.SetStatus(models.BatchStatusCharging)

	for _, itemID := range batch.ItemIDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, ok := batch.View(itemID)
		if !ok || st.BookingPhase != models.BookingBooked || st.PaymentPhase != models.PaymentPending {
			continue
		}
		o.chargeItem(ctx, batch, method, itemID)

		if err := o.pacer.Pause(ctx, o.paymentDelay); err != nil {
			return err
		}
	}

	o.finish(ctx, batch)
	return nil
}

func (o *Orchestrator) chargeItem(ctx context.Context, batch *models.Batch, method models.PaymentMethod, itemID string) {
	st, ok := batch.View(itemID)
	if !ok {
		return
	}
	if err := batch.MarkPaymentInFlight(itemID); err != nil {
		return
	}

	amount := st.Item.TotalAmount
	currencyCode := strings.ToUpper(st.Item.Currency)
	audit := models.ChargeAudit{
		OriginalAmount:   amount,
		OriginalCurrency: currencyCode,
		ExchangeRate:     decimal.NewFromInt(1),
	}

	var conv *models.ConversionResult
	if method.Type == models.PaymentTypeMobileMoney {
		result, err := o.resolver.Resolve(ctx, batch.Credentials(), amount, currencyCode, method.Provider)
		if err != nil {
			o.failPayment(ctx, batch, itemID, err.Error(), "unresolvable_provider")
			return
		}
		conv = &result
		amount = result.TargetAmount
		currencyCode = result.TargetCurrency
		audit.ExchangeRate = result.ExchangeRate
		audit.WasConverted = result.WasConverted
	}

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	transactionID, err := o.payments.Charge(ctx, batch.Credentials(), models.ChargeRequest{
		BookingID:       st.BookingID,
		MethodID:        method.ID,
		Amount:          amount,
		Currency:        currencyCode,
		TransactionType: models.TransactionTypeRental,
		Provider:        method.Provider,
		Audit:           audit,
	})
	util.PaymentLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		o.failPayment(ctx, batch, itemID, paymentMessage(err), "remote")
		return
	}

	_ = batch.MarkSettled(itemID, transactionID, conv)
	util.PaymentsSettledTotal.Inc()
	o.logger.Info("Payment settled",
		zap.String("batch_id", batch.ID()),
		zap.String("item_id", itemID),
		zap.String("transaction_id", transactionID))

	event := &models.PaymentSettledEvent{
		BaseEvent:     newBaseEvent(models.EventTypePaymentSettled),
		BatchID:       batch.ID(),
		ItemID:        itemID,
		BookingID:     st.BookingID,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      currencyCode,
		WasConverted:  audit.WasConverted,
	}
	o.publish(ctx, func(s EventSink) error { return s.PublishPaymentSettled(ctx, event) })
}

func (o *Orchestrator) failPayment(ctx context.Context, batch *models.Batch, itemID, reason, metric string) {
	_ = batch.MarkPaymentFailed(itemID, reason)
	util.PaymentsFailedTotal.WithLabelValues(metric).Inc()
	o.logger.Warn("Payment failed",
		zap.String("batch_id", batch.ID()),
		zap.String("item_id", itemID),
		zap.String("reason", reason))

	event := &models.PaymentFailedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentFailed),
		BatchID:   batch.ID(),
		ItemID:    itemID,
		Reason:    reason,
	}
	o.publish(ctx, func(s EventSink) error { return s.PublishPaymentFailed(ctx, event) })
}

// RetryBooking re-drives the booking step for one FAILED item. Only that
// step: if the batch already has a payment method, the caller re-enters the
// payment phase separately.
func (o *Orchestrator) RetryBooking(ctx context.Context, batch *models.Batch, itemID string) error {
	ctx, span := util.StartSpan(ctx, "Orchestrator.RetryBooking")
	defer span.End()

	if err := batch.ResetBooking(itemID); err != nil {
		return err
	}
	o.bookItem(ctx, batch, itemID)

	if _, ok := batch.Method(); !ok && batch.Summary().Booked > 0 {
		batch.SetStatus(models.BatchStatusAwaitingPayment)
	}
	return nil
}

// RetryPayment re-drives the charge step for one item whose payment FAILED.
func (o *Orchestrator) RetryPayment(ctx context.Context, batch *models.Batch, itemID string) error {
	ctx, span := util.StartSpan(ctx, "Orchestrator.RetryPayment")
	defer span.End()

	method, ok := batch.Method()
	if !ok {
		return models.ErrMethodRequired
	}
	if err := batch.ResetPayment(itemID); err != nil {
		return err
	}
	o.chargeItem(ctx, batch, method, itemID)
	o.finish(ctx, batch)
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, batch *models.Batch) {
	summary := batch.Summary()
	if summary.HasErrors {
		batch.SetStatus(models.BatchStatusHasErrors)
	} else {
		batch.SetStatus(models.BatchStatusCompleted)
	}

	event := &models.CheckoutCompletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeCheckoutCompleted),
		BatchID:   batch.ID(),
		Status:    batch.Status(),
		Summary:   summary,
	}
	o.publish(ctx, func(s EventSink) error { return s.PublishCheckoutCompleted(ctx, event) })

	o.logger.Info("Checkout batch finished",
		zap.String("batch_id", batch.ID()),
		zap.String("status", batch.Status()),
		zap.Int("settled", summary.Settled),
		zap.Int("booking_failed", summary.BookingFailed),
		zap.Int("payment_failed", summary.PaymentFailed))
}

func (o *Orchestrator) publish(ctx context.Context, fn func(EventSink) error) {
	if o.events == nil {
		return
	}
	if err := fn(o.events); err != nil {
		o.logger.Error("Failed to publish checkout event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func asBookingError(err error) *models.BookingError {
	var berr *models.BookingError
	if errors.As(err, &berr) {
		return berr
	}
	return &models.BookingError{Message: err.Error()}
}

func paymentMessage(err error) string {
	var perr *models.PaymentError
	if errors.As(err, &perr) {
		return perr.Message
	}
	return fmt.Sprintf("charge failed: %v", err)
}
