package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeCartUpdated     = "CART_UPDATED"
	EventTypeCartCleared     = "CART_CLEARED"
	EventTypeDiscountApplied = "DISCOUNT_APPLIED"
	EventTypeDiscountRemoved = "DISCOUNT_REMOVED"
	EventTypeOrderPlaced     = "ORDER_PLACED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type name
func (e BaseEvent) Type() string {
	return e.EventType
}

// CartUpdatedEvent published after a cart transition
type CartUpdatedEvent struct {
	BaseEvent
	SessionID      string          `json:"session_id"`
	Action         string          `json:"action"`
	TotalItems     int             `json:"total_items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DiscountCode   string          `json:"discount_code,omitempty"`
}

// DiscountEvent published when a code is applied to or removed from a cart
type DiscountEvent struct {
	BaseEvent
	SessionID      string          `json:"session_id"`
	DiscountCode   string          `json:"discount_code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// OrderPlacedEvent is consumed from the order service once checkout completes
type OrderPlacedEvent struct {
	BaseEvent
	OrderID      int64  `json:"order_id"`
	SessionID    string `json:"session_id"`
	DiscountCode string `json:"discount_code,omitempty"`
}
