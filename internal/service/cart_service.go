package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cart-service/internal/cart"
	"cart-service/internal/discount"
	"cart-service/internal/models"
	"cart-service/internal/persistence"
	"cart-service/internal/pricing"
	"cart-service/internal/util"
	"cart-service/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidSession is returned for malformed session ids
	ErrInvalidSession = errors.New("invalid cart session")
	// ErrInvalidItem is returned when an item payload cannot be added
	ErrInvalidItem = errors.New("invalid cart item")
	// ErrStaleValidation is returned when the cart changed while its discount
	// code was being validated; nothing is applied in that case
	ErrStaleValidation = errors.New("cart changed during discount validation")
)

// SnapshotQueue receives committed transitions for background processing
type SnapshotQueue interface {
	Enqueue(snap worker.Snapshot) bool
}

// IdempotencyStore remembers request keys for a while
type IdempotencyStore interface {
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

// Config holds cart service tunables
type Config struct {
	ValidationTimeout time.Duration
	IdempotencyTTL    time.Duration
}

type session struct {
	store    *cart.Store
	lastSeen time.Time
}

// CartService hosts one cart engine per session
type CartService struct {
	mu          sync.Mutex
	sessions    map[string]*session
	persistence *persistence.Adapter
	validator   discount.Validator
	queue       SnapshotQueue
	idempotency IdempotencyStore
	cfg         Config
	logger      *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(
	adapter *persistence.Adapter,
	validator discount.Validator,
	queue SnapshotQueue,
	idempotency IdempotencyStore,
	cfg Config,
) *CartService {
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = 5 * time.Second
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}

	return &CartService{
		sessions:    make(map[string]*session),
		persistence: adapter,
		validator:   validator,
		queue:       queue,
		idempotency: idempotency,
		cfg:         cfg,
		logger:      util.GetLogger(),
	}
}

// NewSessionID returns a fresh cart session id
func NewSessionID() string {
	return uuid.New().String()
}

// cartFor returns the session's store, restoring it from persistence on
// first use
func (s *CartService) cartFor(ctx context.Context, sessionID string) (*cart.Store, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastSeen = time.Now()
		return sess.store, nil
	}

	st := cart.NewStore(cart.InitialState(), s.effect(sessionID))
	if s.persistence != nil {
		if saved, ok := s.persistence.Load(ctx, sessionID); ok {
			st.Dispatch(cart.Load{State: saved})
			s.logger.Info("Cart restored",
				zap.String("session_id", sessionID),
				zap.Int("items", len(saved.Items)))
		}
	}

	s.sessions[sessionID] = &session{store: st, lastSeen: time.Now()}
	util.CartSessionsActive.Set(float64(len(s.sessions)))
	return st, nil
}

func (s *CartService) effect(sessionID string) cart.Effect {
	return func(prev, next models.CartState, action cart.Action) {
		util.CartActionsTotal.WithLabelValues(action.Type()).Inc()
		if s.queue == nil {
			return
		}
		s.queue.Enqueue(worker.Snapshot{
			SessionID: sessionID,
			Action:    action.Type(),
			Prev:      prev,
			Next:      next,
		})
	}
}

func (s *CartService) dispatch(ctx context.Context, sessionID string, action cart.Action) (models.CartState, error) {
	st, err := s.cartFor(ctx, sessionID)
	if err != nil {
		return models.CartState{}, err
	}
	return st.Dispatch(action), nil
}

// GetCart returns the session's current cart
func (s *CartService) GetCart(ctx context.Context, sessionID string) (models.CartState, error) {
	st, err := s.cartFor(ctx, sessionID)
	if err != nil {
		return models.CartState{}, err
	}
	return st.State(), nil
}

// AddItem adds an item, merging with an existing line of the same product
// and variants. A repeated idempotency key is answered with the current cart.
func (s *CartService) AddItem(ctx context.Context, sessionID string, item models.CartItem, interactive bool, idempotencyKey string) (models.CartState, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem", sessionID)
	defer span.End()

	if item.ProductSlug == "" || item.Quantity <= 0 {
		util.FailSpan(span, ErrInvalidItem)
		return models.CartState{}, ErrInvalidItem
	}

	st, err := s.cartFor(ctx, sessionID)
	if err != nil {
		util.FailSpan(span, err)
		return models.CartState{}, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		fresh, err := s.idempotency.SetIdempotencyKey(ctx, sessionID+":"+idempotencyKey, item.ProductSlug, s.cfg.IdempotencyTTL)
		if err != nil {
			s.logger.Warn("Idempotency check failed, proceeding",
				zap.String("session_id", sessionID),
				zap.Error(err))
		} else if !fresh {
			s.logger.Info("Duplicate add request detected",
				zap.String("session_id", sessionID),
				zap.String("idempotency_key", idempotencyKey))
			return st.State(), nil
		}
	}

	return st.Dispatch(cart.AddItem{Item: item, Interactive: interactive}), nil
}

// UpdateQuantity sets an item's quantity; zero or less removes it
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (models.CartState, error) {
	return s.dispatch(ctx, sessionID, cart.UpdateQuantity{ItemID: itemID, Quantity: quantity})
}

// RemoveItem drops an item
func (s *CartService) RemoveItem(ctx context.Context, sessionID, itemID string) (models.CartState, error) {
	return s.dispatch(ctx, sessionID, cart.RemoveItem{ItemID: itemID})
}

// ReplaceItem swaps an item for another in the same position
func (s *CartService) ReplaceItem(ctx context.Context, sessionID, itemID string, item models.CartItem) (models.CartState, error) {
	if item.ProductSlug == "" || item.Quantity <= 0 {
		return models.CartState{}, ErrInvalidItem
	}
	return s.dispatch(ctx, sessionID, cart.ReplaceItem{ItemID: itemID, Item: item})
}

// ClearCart empties the cart
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (models.CartState, error) {
	return s.dispatch(ctx, sessionID, cart.ClearCart{})
}

// OpenCart marks the cart visible
func (s *CartService) OpenCart(ctx context.Context, sessionID string) (models.CartState, error) {
	return s.dispatch(ctx, sessionID, cart.OpenCart{})
}

// CloseCart marks the cart hidden
func (s *CartService) CloseCart(ctx context.Context, sessionID string) (models.CartState, error) {
	return s.dispatch(ctx, sessionID, cart.CloseCart{})
}

// ApplyDiscount validates code against the cart's sale-price basis and, if
// accepted, applies it. The result is discarded with ErrStaleValidation when
// the cart changed while validation was in flight.
func (s *CartService) ApplyDiscount(ctx context.Context, sessionID, code string) (models.CartState, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ApplyDiscount", sessionID)
	defer span.End()

	st, err := s.cartFor(ctx, sessionID)
	if err != nil {
		return models.CartState{}, err
	}

	state, revision := st.Snapshot()
	basis := pricing.Basis(state.Items)

	vctx, cancel := context.WithTimeout(ctx, s.cfg.ValidationTimeout)
	defer cancel()

	dc, err := s.validator.Validate(vctx, code, basis)
	if err != nil {
		util.FailSpan(span, err)
		if discount.IsValidationError(err) {
			s.logger.Info("Discount code rejected",
				zap.String("session_id", sessionID),
				zap.String("code", code),
				zap.String("reason", err.Error()))
			return state, err
		}
		return state, fmt.Errorf("discount validation failed: %w", err)
	}

	next, ok := st.DispatchAt(revision, cart.ApplyDiscount{Code: dc.Code, Details: dc})
	if !ok {
		util.FailSpan(span, ErrStaleValidation)
		util.DiscountValidationsStaleTotal.Inc()
		s.logger.Info("Discarding stale discount validation",
			zap.String("session_id", sessionID),
			zap.String("code", dc.Code))
		return next, ErrStaleValidation
	}

	util.DiscountsAppliedTotal.Inc()
	s.logger.Info("Discount applied",
		zap.String("session_id", sessionID),
		zap.String("code", dc.Code),
		zap.String("discount_amount", next.DiscountAmount.StringFixed(2)))
	return next, nil
}

// RemoveDiscount drops the active code and resets prices to sale price
func (s *CartService) RemoveDiscount(ctx context.Context, sessionID string) (models.CartState, error) {
	return s.dispatch(ctx, sessionID, cart.RemoveDiscount{})
}

// RecalculateDiscount reapplies the active code from sale prices
func (s *CartService) RecalculateDiscount(ctx context.Context, sessionID string) (models.CartState, error) {
	return s.dispatch(ctx, sessionID, cart.RecalculateDiscount{})
}

// EvictIdle forgets sessions untouched for longer than maxIdle. Their carts
// remain in persistence and are restored on next access.
func (s *CartService) EvictIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}

	util.CartSessionsActive.Set(float64(len(s.sessions)))
	return evicted
}
