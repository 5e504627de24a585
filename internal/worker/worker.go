package worker

import (
	"context"
	"log"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
)

// LedgerWorker projects checkout lifecycle events into the Postgres audit
// ledger. The in-memory batch stays authoritative during a run; this
// projection is what survives it. Replays are deduplicated through the
// processed_events table.
type LedgerWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
}

// NewLedgerWorker creates a new ledger worker
func NewLedgerWorker(consumer *broker.Consumer, st *store.Store) *LedgerWorker {
	w := &LedgerWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		store:        st,
	}

	w.eventHandler.OnCheckoutStarted(w.handleCheckoutStarted)
	w.eventHandler.OnBookingCreated(w.handleBookingCreated)
	w.eventHandler.OnBookingFailed(w.handleBookingFailed)
	w.eventHandler.OnPaymentSettled(w.handlePaymentSettled)
	w.eventHandler.OnPaymentFailed(w.handlePaymentFailed)
	w.eventHandler.OnCheckoutCompleted(w.handleCheckoutCompleted)

	return w
}

// Start starts the worker
func (w *LedgerWorker) Start(ctx context.Context) error {
	log.Println("Starting ledger worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *LedgerWorker) Stop() error {
	log.Println("Stopping ledger worker...")
	return w.consumer.Close()
}

// project runs apply once per event, using processed_events for dedup.
func (w *LedgerWorker) project(ctx context.Context, base models.BaseEvent, apply func() error) error {
	processed, err := w.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}
	if err := apply(); err != nil {
		return err
	}
	return w.store.MarkEventProcessed(ctx, base.EventID, base.EventType)
}

func (w *LedgerWorker) handleCheckoutStarted(ctx context.Context, event *models.CheckoutStartedEvent) error {
	return w.project(ctx, event.BaseEvent, func() error {
		batch := &store.BatchRecord{
			ID:       event.BatchID,
			RenterID: event.RenterID,
			OwnerID:  event.OwnerID,
			Status:   models.BatchStatusBooking,
		}
		items := make([]store.ItemRecord, 0, len(event.Items))
		for _, item := range event.Items {
			items = append(items, store.ItemRecord{
				ItemID:       item.ItemID,
				BatchID:      event.BatchID,
				ProductID:    item.ProductID,
				Amount:       item.Amount,
				Currency:     item.Currency,
				BookingPhase: models.BookingPending,
				PaymentPhase: models.PaymentNotStarted,
			})
		}
		return w.store.CreateBatch(ctx, batch, items)
	})
}

func (w *LedgerWorker) handleBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	return w.project(ctx, event.BaseEvent, func() error {
		if err := w.store.UpdateItemBooking(ctx, event.BatchID, event.ItemID, models.BookingBooked, event.BookingID, ""); err != nil {
			return err
		}
		return w.store.UpdateItemPayment(ctx, event.BatchID, event.ItemID, models.PaymentPending, "", "")
	})
}

func (w *LedgerWorker) handleBookingFailed(ctx context.Context, event *models.BookingFailedEvent) error {
	return w.project(ctx, event.BaseEvent, func() error {
		return w.store.UpdateItemBooking(ctx, event.BatchID, event.ItemID, models.BookingFailed, "", event.Reason)
	})
}

func (w *LedgerWorker) handlePaymentSettled(ctx context.Context, event *models.PaymentSettledEvent) error {
	return w.project(ctx, event.BaseEvent, func() error {
		return w.store.UpdateItemPayment(ctx, event.BatchID, event.ItemID, models.PaymentSettled, event.TransactionID, "")
	})
}

func (w *LedgerWorker) handlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	return w.project(ctx, event.BaseEvent, func() error {
		return w.store.UpdateItemPayment(ctx, event.BatchID, event.ItemID, models.PaymentFailed, "", event.Reason)
	})
}

func (w *LedgerWorker) handleCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error {
	return w.project(ctx, event.BaseEvent, func() error {
		return w.store.UpdateBatchStatus(ctx, event.BatchID, event.Status)
	})
}
