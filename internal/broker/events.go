package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing cart events
type EventPublisher struct {
	publisher Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(publisher Publisher) *EventPublisher {
	return &EventPublisher{publisher: publisher}
}

func newBase(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart-%s", sessionID)
}

// PublishCartUpdated publishes the totals after a transition
func (ep *EventPublisher) PublishCartUpdated(ctx context.Context, sessionID, action string, state models.CartState) error {
	eventType := models.EventTypeCartUpdated
	if len(state.Items) == 0 {
		eventType = models.EventTypeCartCleared
	}

	event := &models.CartUpdatedEvent{
		BaseEvent:      newBase(eventType),
		SessionID:      sessionID,
		Action:         action,
		TotalItems:     state.TotalItems,
		Subtotal:       state.Subtotal,
		Total:          state.Total,
		DiscountAmount: state.DiscountAmount,
		DiscountCode:   state.DiscountCode,
	}
	return ep.publisher.PublishEvent(ctx, cartKey(sessionID), event)
}

// PublishDiscountApplied publishes DiscountApplied event
func (ep *EventPublisher) PublishDiscountApplied(ctx context.Context, sessionID string, state models.CartState) error {
	event := &models.DiscountEvent{
		BaseEvent:      newBase(models.EventTypeDiscountApplied),
		SessionID:      sessionID,
		DiscountCode:   state.DiscountCode,
		DiscountAmount: state.DiscountAmount,
	}
	return ep.publisher.PublishEvent(ctx, cartKey(sessionID), event)
}

// PublishDiscountRemoved publishes DiscountRemoved event
func (ep *EventPublisher) PublishDiscountRemoved(ctx context.Context, sessionID, code string) error {
	event := &models.DiscountEvent{
		BaseEvent:    newBase(models.EventTypeDiscountRemoved),
		SessionID:    sessionID,
		DiscountCode: code,
	}
	return ep.publisher.PublishEvent(ctx, cartKey(sessionID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderPlaced func(context.Context, *models.OrderPlacedEvent) error
	logger        *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderPlaced registers a handler for OrderPlaced events
func (eh *EventHandler) OnOrderPlaced(handler func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return eh.Handle(ctx, msg.Value)
}

// Handle routes a raw event payload by its event_type
func (eh *EventHandler) Handle(ctx context.Context, payload []byte) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(payload, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderPlaced:
		if eh.onOrderPlaced != nil {
			var event models.OrderPlacedEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
			}
			return eh.onOrderPlaced(ctx, &event)
		}

	default:
		eh.logger.Debug("Ignoring event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
