package service

import (
	"context"

	"cart-service/internal/broker"
	"cart-service/internal/cart"
	"cart-service/internal/persistence"
	"cart-service/internal/worker"
)

// PersistenceSink saves every committed cart
func PersistenceSink(adapter *persistence.Adapter) worker.Sink {
	return func(ctx context.Context, snap worker.Snapshot) error {
		adapter.Save(ctx, snap.SessionID, snap.Next)
		return nil
	}
}

// EventSink publishes cart events for committed transitions
func EventSink(ep *broker.EventPublisher) worker.Sink {
	return func(ctx context.Context, snap worker.Snapshot) error {
		switch snap.Action {
		case cart.ActionOpenCart, cart.ActionCloseCart, cart.ActionLoad:
			return nil
		case cart.ActionApplyDiscount:
			if err := ep.PublishDiscountApplied(ctx, snap.SessionID, snap.Next); err != nil {
				return err
			}
		case cart.ActionRemoveDiscount:
			if snap.Prev.DiscountCode != "" {
				if err := ep.PublishDiscountRemoved(ctx, snap.SessionID, snap.Prev.DiscountCode); err != nil {
					return err
				}
			}
		}
		return ep.PublishCartUpdated(ctx, snap.SessionID, snap.Action, snap.Next)
	}
}
