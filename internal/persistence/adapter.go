package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"go.uber.org/zap"
)

// DefaultFreshness is how long a saved cart stays loadable
const DefaultFreshness = 7 * 24 * time.Hour

var errUnavailable = errors.New("cart storage unavailable")

const (
	storageKeyPrefix   = "cart-storage:"
	timestampKeyPrefix = "cart-timestamp:"
)

// Adapter saves and restores one session's cart. Every failure is logged and
// swallowed: callers only ever see "nothing stored".
type Adapter struct {
	kv        KV
	freshness time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithFreshness overrides the freshness window
func WithFreshness(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.freshness = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

// NewAdapter creates a persistence adapter over kv
func NewAdapter(kv KV, opts ...Option) *Adapter {
	a := &Adapter{
		kv:        kv,
		freshness: DefaultFreshness,
		now:       time.Now,
		logger:    util.GetLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StorageKey is the key holding the serialized cart of a session
func StorageKey(sessionID string) string {
	return storageKeyPrefix + sessionID
}

// TimestampKey is the key holding the write time of a session's cart
func TimestampKey(sessionID string) string {
	return timestampKeyPrefix + sessionID
}

// Save writes the cart and its timestamp. Empty carts are never stored; saving
// one removes whatever was there before.
func (a *Adapter) Save(ctx context.Context, sessionID string, state models.CartState) {
	start := time.Now()
	defer func() {
		util.PersistenceLatency.Observe(time.Since(start).Seconds())
	}()

	if len(state.Items) == 0 {
		a.clear(ctx, sessionID)
		return
	}

	payload, err := json.Marshal(state)
	if err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("serialize").Inc()
		a.logger.Error("Failed to serialize cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	err = a.kv.SetMulti(ctx, map[string]string{
		StorageKey(sessionID):   string(payload),
		TimestampKey(sessionID): strconv.FormatInt(a.now().UnixMilli(), 10),
	})
	if err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("save").Inc()
		a.logger.Error("Failed to save cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

// Load returns the stored cart if both keys are present and it was written
// within the freshness window. The restored cart is always closed. Anything
// else clears the keys and reports false.
func (a *Adapter) Load(ctx context.Context, sessionID string) (models.CartState, bool) {
	state, err := a.load(ctx, sessionID)
	if errors.Is(err, errUnavailable) {
		a.logger.Warn("Failed to load cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return models.CartState{}, false
	}
	if err != nil {
		a.logger.Info("Discarding persisted cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
		a.clear(ctx, sessionID)
		return models.CartState{}, false
	}
	if state == nil {
		return models.CartState{}, false
	}

	state.IsOpen = false
	return *state, true
}

func (a *Adapter) load(ctx context.Context, sessionID string) (*models.CartState, error) {
	raw, hasState, err := a.kv.Get(ctx, StorageKey(sessionID))
	if err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("%w: %v", errUnavailable, err)
	}
	rawTS, hasTS, err := a.kv.Get(ctx, TimestampKey(sessionID))
	if err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("%w: %v", errUnavailable, err)
	}

	if !hasState && !hasTS {
		return nil, nil
	}
	if !hasState || !hasTS {
		return nil, fmt.Errorf("incomplete cart record")
	}

	ms, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("parse").Inc()
		return nil, fmt.Errorf("invalid cart timestamp: %w", err)
	}

	if a.now().Sub(time.UnixMilli(ms)) >= a.freshness {
		util.PersistenceExpiredTotal.Inc()
		return nil, fmt.Errorf("cart older than %s", a.freshness)
	}

	var state models.CartState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("parse").Inc()
		return nil, fmt.Errorf("invalid cart payload: %w", err)
	}

	return &state, nil
}

func (a *Adapter) clear(ctx context.Context, sessionID string) {
	if err := a.kv.Delete(ctx, StorageKey(sessionID), TimestampKey(sessionID)); err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("delete").Inc()
		a.logger.Error("Failed to clear persisted cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
