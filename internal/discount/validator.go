package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/store"
	"cart-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Validator decides whether a code may be applied to a cart with the given
// sale-price basis. The cart engine trusts whatever it returns.
type Validator interface {
	Validate(ctx context.Context, code string, basis decimal.Decimal) (*models.DiscountCode, error)
}

// ValidationError is a user-facing rejection
type ValidationError struct {
	Kind   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Rejection kinds, used as metric labels
const (
	KindNotFound     = "not_found"
	KindInactive     = "inactive"
	KindNotStarted   = "not_started"
	KindExpired      = "expired"
	KindExhausted    = "exhausted"
	KindBelowMinimum = "below_minimum"
)

func reject(kind, reason string) *ValidationError {
	util.DiscountValidationFailedTotal.WithLabelValues(kind).Inc()
	return &ValidationError{Kind: kind, Reason: reason}
}

// IsValidationError reports whether err is a rejection rather than a failure
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CodeRepository looks up discount codes. store.Store satisfies it.
type CodeRepository interface {
	GetDiscountCodeByCode(ctx context.Context, code string) (*models.DiscountCode, error)
}

// StoreValidator validates codes against the discount code table
type StoreValidator struct {
	repo   CodeRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewStoreValidator creates a validator over repo
func NewStoreValidator(repo CodeRepository) *StoreValidator {
	return &StoreValidator{
		repo:   repo,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// Validate checks the code's state, validity window, usage limit and
// minimum order amount, in that order.
func (v *StoreValidator) Validate(ctx context.Context, code string, basis decimal.Decimal) (*models.DiscountCode, error) {
	ctx, span := util.StartSpan(ctx, "StoreValidator.Validate", "")
	defer span.End()

	start := time.Now()
	defer func() {
		util.DiscountValidationLatency.Observe(time.Since(start).Seconds())
	}()

	if store.NormalizeCode(code) == "" {
		return nil, reject(KindNotFound, "Invalid discount code")
	}

	dc, err := v.repo.GetDiscountCodeByCode(ctx, code)
	if errors.Is(err, store.ErrCodeNotFound) {
		return nil, reject(KindNotFound, "Invalid discount code")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up discount code: %w", err)
	}

	if !dc.IsActive {
		return nil, reject(KindInactive, "Discount code is not active")
	}

	now := v.now()
	if now.Before(dc.StartDate) {
		return nil, reject(KindNotStarted, "Discount code is not yet valid")
	}
	if dc.EndDate != nil && now.After(*dc.EndDate) {
		return nil, reject(KindExpired, "Discount code has expired")
	}

	if dc.MaxUses != nil && dc.CurrentUses >= *dc.MaxUses {
		return nil, reject(KindExhausted, "Discount code usage limit reached")
	}

	if basis.LessThan(dc.MinOrderAmount) {
		return nil, reject(KindBelowMinimum,
			fmt.Sprintf("Minimum order amount of %s required", dc.MinOrderAmount.StringFixed(2)))
	}

	v.logger.Debug("Discount code validated",
		zap.String("code", dc.Code),
		zap.String("basis", basis.String()))

	return dc, nil
}
