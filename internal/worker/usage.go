package worker

import (
	"context"
	"errors"
	"fmt"

	"cart-service/internal/broker"
	"cart-service/internal/models"
	"cart-service/internal/store"
	"cart-service/internal/util"

	"go.uber.org/zap"
)

// UsageStore records discount code usage exactly once per event
type UsageStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	IncrementDiscountUses(ctx context.Context, code string) error
}

// UsageWorker consumes placed orders and counts discount code uses, which
// the validator later checks against max_uses
type UsageWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        UsageStore
	logger       *zap.Logger
}

// NewUsageWorker creates a new usage worker
func NewUsageWorker(consumer *broker.Consumer, store UsageStore) *UsageWorker {
	w := &UsageWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		store:        store,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnOrderPlaced(w.HandleOrderPlaced)
	return w
}

// Start starts the worker
func (w *UsageWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting discount usage worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *UsageWorker) Stop() error {
	w.logger.Info("Stopping discount usage worker")
	return w.consumer.Close()
}

// HandleOrderPlaced increments the code's use count once per event
func (w *UsageWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	if event.DiscountCode == "" {
		return nil
	}

	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	err = w.store.IncrementDiscountUses(ctx, event.DiscountCode)
	if errors.Is(err, store.ErrCodeNotFound) {
		w.logger.Warn("Order used unknown discount code",
			zap.Int64("order_id", event.OrderID),
			zap.String("code", event.DiscountCode))
	} else if err != nil {
		return err
	} else {
		util.DiscountUsageRecordedTotal.Inc()
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	return nil
}
