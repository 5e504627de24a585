package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"checkout-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing checkout lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func batchKey(batchID string) string {
	return fmt.Sprintf("batch-%s", batchID)
}

// PublishCheckoutStarted publishes CheckoutStarted event
func (ep *EventPublisher) PublishCheckoutStarted(ctx context.Context, event *models.CheckoutStartedEvent) error {
	return ep.producer.PublishEvent(ctx, batchKey(event.BatchID), event)
}

// PublishBookingCreated publishes BookingCreated event
func (ep *EventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, batchKey(event.BatchID), event)
}

// PublishBookingFailed publishes BookingFailed event
func (ep *EventPublisher) PublishBookingFailed(ctx context.Context, event *models.BookingFailedEvent) error {
	return ep.producer.PublishEvent(ctx, batchKey(event.BatchID), event)
}

// PublishMethodProvisioned publishes MethodProvisioned event
func (ep *EventPublisher) PublishMethodProvisioned(ctx context.Context, event *models.MethodProvisionedEvent) error {
	return ep.producer.PublishEvent(ctx, batchKey(event.BatchID), event)
}

// PublishPaymentSettled publishes PaymentSettled event
func (ep *EventPublisher) PublishPaymentSettled(ctx context.Context, event *models.PaymentSettledEvent) error {
	return ep.producer.PublishEvent(ctx, batchKey(event.BatchID), event)
}

// PublishPaymentFailed publishes PaymentFailed event
func (ep *EventPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	return ep.producer.PublishEvent(ctx, batchKey(event.BatchID), event)
}

// PublishCheckoutCompleted publishes CheckoutCompleted event
func (ep *EventPublisher) PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, batchKey(event.BatchID), event)
}

// EventHandler routes consumed checkout events to registered callbacks
type EventHandler struct {
	onCheckoutStarted   func(context.Context, *models.CheckoutStartedEvent) error
	onBookingCreated    func(context.Context, *models.BookingCreatedEvent) error
	onBookingFailed     func(context.Context, *models.BookingFailedEvent) error
	onPaymentSettled    func(context.Context, *models.PaymentSettledEvent) error
	onPaymentFailed     func(context.Context, *models.PaymentFailedEvent) error
	onCheckoutCompleted func(context.Context, *models.CheckoutCompletedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnCheckoutStarted registers a handler for CheckoutStarted events
func (eh *EventHandler) OnCheckoutStarted(handler func(context.Context, *models.CheckoutStartedEvent) error) {
	eh.onCheckoutStarted = handler
}

// OnBookingCreated registers a handler for BookingCreated events
func (eh *EventHandler) OnBookingCreated(handler func(context.Context, *models.BookingCreatedEvent) error) {
	eh.onBookingCreated = handler
}

// OnBookingFailed registers a handler for BookingFailed events
func (eh *EventHandler) OnBookingFailed(handler func(context.Context, *models.BookingFailedEvent) error) {
	eh.onBookingFailed = handler
}

// OnPaymentSettled registers a handler for PaymentSettled events
func (eh *EventHandler) OnPaymentSettled(handler func(context.Context, *models.PaymentSettledEvent) error) {
	eh.onPaymentSettled = handler
}

// OnPaymentFailed registers a handler for PaymentFailed events
func (eh *EventHandler) OnPaymentFailed(handler func(context.Context, *models.PaymentFailedEvent) error) {
	eh.onPaymentFailed = handler
}

// OnCheckoutCompleted registers a handler for CheckoutCompleted events
func (eh *EventHandler) OnCheckoutCompleted(handler func(context.Context, *models.CheckoutCompletedEvent) error) {
	eh.onCheckoutCompleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeCheckoutStarted:
		if eh.onCheckoutStarted != nil {
			var event models.CheckoutStartedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CheckoutStarted event: %w", err)
			}
			return eh.onCheckoutStarted(ctx, &event)
		}

	case models.EventTypeBookingCreated:
		if eh.onBookingCreated != nil {
			var event models.BookingCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingCreated event: %w", err)
			}
			return eh.onBookingCreated(ctx, &event)
		}

	case models.EventTypeBookingFailed:
		if eh.onBookingFailed != nil {
			var event models.BookingFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingFailed event: %w", err)
			}
			return eh.onBookingFailed(ctx, &event)
		}

	case models.EventTypePaymentSettled:
		if eh.onPaymentSettled != nil {
			var event models.PaymentSettledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentSettled event: %w", err)
			}
			return eh.onPaymentSettled(ctx, &event)
		}

	case models.EventTypePaymentFailed:
		if eh.onPaymentFailed != nil {
			var event models.PaymentFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentFailed event: %w", err)
			}
			return eh.onPaymentFailed(ctx, &event)
		}

	case models.EventTypeCheckoutCompleted:
		if eh.onCheckoutCompleted != nil {
			var event models.CheckoutCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CheckoutCompleted event: %w", err)
			}
			return eh.onCheckoutCompleted(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
