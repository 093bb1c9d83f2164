package broker

import (
	"context"
	"errors"
	"testing"

	"cart-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key   string
	event interface{}
}

type fakePublisher struct {
	events []published
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, key string, event interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{key: key, event: event})
	return nil
}

func TestPublishCartUpdated(t *testing.T) {
	fp := &fakePublisher{}
	ep := NewEventPublisher(fp)

	state := models.CartState{
		Items:      []models.CartItem{{ID: "a", Quantity: 2}},
		TotalItems: 2,
		Subtotal:   decimal.NewFromInt(20),
		Total:      decimal.NewFromInt(18),
	}
	require.NoError(t, ep.PublishCartUpdated(context.Background(), "s1", "ADD_ITEM", state))

	require.Len(t, fp.events, 1)
	assert.Equal(t, "cart-s1", fp.events[0].key)
	event := fp.events[0].event.(*models.CartUpdatedEvent)
	assert.Equal(t, models.EventTypeCartUpdated, event.EventType)
	assert.Equal(t, "ADD_ITEM", event.Action)
	assert.NotEmpty(t, event.EventID)
	assert.True(t, event.Total.Equal(decimal.NewFromInt(18)))
}

func TestPublishCartUpdated_EmptyCartIsCleared(t *testing.T) {
	fp := &fakePublisher{}
	ep := NewEventPublisher(fp)

	require.NoError(t, ep.PublishCartUpdated(context.Background(), "s1", "CLEAR_CART", models.CartState{}))

	event := fp.events[0].event.(*models.CartUpdatedEvent)
	assert.Equal(t, models.EventTypeCartCleared, event.EventType)
}

func TestPublishDiscountEvents(t *testing.T) {
	fp := &fakePublisher{}
	ep := NewEventPublisher(fp)
	ctx := context.Background()

	state := models.CartState{DiscountCode: "WELCOME10", DiscountAmount: decimal.RequireFromString("3.5")}
	require.NoError(t, ep.PublishDiscountApplied(ctx, "s1", state))
	require.NoError(t, ep.PublishDiscountRemoved(ctx, "s1", "WELCOME10"))

	require.Len(t, fp.events, 2)
	applied := fp.events[0].event.(*models.DiscountEvent)
	removed := fp.events[1].event.(*models.DiscountEvent)
	assert.Equal(t, models.EventTypeDiscountApplied, applied.EventType)
	assert.True(t, applied.DiscountAmount.Equal(decimal.RequireFromString("3.5")))
	assert.Equal(t, models.EventTypeDiscountRemoved, removed.EventType)
	assert.Equal(t, "WELCOME10", removed.DiscountCode)
}

func TestPublishPropagatesErrors(t *testing.T) {
	ep := NewEventPublisher(&fakePublisher{err: errors.New("broker down")})

	err := ep.PublishDiscountRemoved(context.Background(), "s1", "X")
	assert.Error(t, err)
}

func TestEventHandler_RoutesOrderPlaced(t *testing.T) {
	h := NewEventHandler()
	var got *models.OrderPlacedEvent
	h.OnOrderPlaced(func(_ context.Context, e *models.OrderPlacedEvent) error {
		got = e
		return nil
	})

	msg := kafka.Message{Value: []byte(`{"event_id":"e1","event_type":"ORDER_PLACED","order_id":12,"session_id":"s1","discount_code":"WELCOME10"}`)}
	require.NoError(t, h.HandleMessage(context.Background(), msg))

	require.NotNil(t, got)
	assert.Equal(t, int64(12), got.OrderID)
	assert.Equal(t, "WELCOME10", got.DiscountCode)
}

func TestEventHandler_IgnoresOtherTypes(t *testing.T) {
	h := NewEventHandler()
	called := false
	h.OnOrderPlaced(func(context.Context, *models.OrderPlacedEvent) error {
		called = true
		return nil
	})

	require.NoError(t, h.Handle(context.Background(), []byte(`{"event_type":"PAYMENT_COMPLETED"}`)))
	assert.False(t, called)
}

func TestEventHandler_RejectsMalformedPayload(t *testing.T) {
	h := NewEventHandler()
	assert.Error(t, h.Handle(context.Background(), []byte(`not json`)))
}
