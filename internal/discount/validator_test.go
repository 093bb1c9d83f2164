package discount

import (
	"context"
	"errors"
	"testing"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	codes map[string]*models.DiscountCode
	err   error
}

func (f *fakeRepo) GetDiscountCodeByCode(_ context.Context, code string) (*models.DiscountCode, error) {
	if f.err != nil {
		return nil, f.err
	}
	dc, ok := f.codes[store.NormalizeCode(code)]
	if !ok {
		return nil, store.ErrCodeNotFound
	}
	copied := *dc
	return &copied, nil
}

var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func validCode() *models.DiscountCode {
	return &models.DiscountCode{
		ID:             1,
		Code:           "WELCOME10",
		DiscountType:   models.DiscountTypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MinOrderAmount: decimal.NewFromInt(20),
		StartDate:      now.Add(-24 * time.Hour),
		IsActive:       true,
	}
}

func newValidator(dc *models.DiscountCode) *StoreValidator {
	repo := &fakeRepo{codes: map[string]*models.DiscountCode{}}
	if dc != nil {
		repo.codes[dc.Code] = dc
	}
	v := NewStoreValidator(repo)
	v.now = func() time.Time { return now }
	return v
}

func TestValidate_Accepts(t *testing.T) {
	v := newValidator(validCode())

	dc, err := v.Validate(context.Background(), " welcome10 ", decimal.NewFromInt(35))
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", dc.Code)
}

func TestValidate_MinimumIsInclusive(t *testing.T) {
	v := newValidator(validCode())

	_, err := v.Validate(context.Background(), "WELCOME10", decimal.NewFromInt(20))
	assert.NoError(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	ended := now.Add(-time.Hour)
	maxUses := 5

	tests := []struct {
		name   string
		code   string
		mutate func(*models.DiscountCode)
		basis  int64
		kind   string
		reason string
	}{
		{name: "empty", code: "  ", basis: 35, kind: KindNotFound, reason: "Invalid discount code"},
		{name: "unknown", code: "NOPE", basis: 35, kind: KindNotFound, reason: "Invalid discount code"},
		{
			name:   "inactive",
			code:   "WELCOME10",
			mutate: func(dc *models.DiscountCode) { dc.IsActive = false },
			basis:  35, kind: KindInactive, reason: "Discount code is not active",
		},
		{
			name:   "not started",
			code:   "WELCOME10",
			mutate: func(dc *models.DiscountCode) { dc.StartDate = now.Add(time.Hour) },
			basis:  35, kind: KindNotStarted, reason: "Discount code is not yet valid",
		},
		{
			name:   "expired",
			code:   "WELCOME10",
			mutate: func(dc *models.DiscountCode) { dc.EndDate = &ended },
			basis:  35, kind: KindExpired, reason: "Discount code has expired",
		},
		{
			name: "usage limit",
			code: "WELCOME10",
			mutate: func(dc *models.DiscountCode) {
				dc.MaxUses = &maxUses
				dc.CurrentUses = 5
			},
			basis: 35, kind: KindExhausted, reason: "Discount code usage limit reached",
		},
		{
			name:  "below minimum",
			code:  "WELCOME10",
			basis: 19,
			kind:  KindBelowMinimum, reason: "Minimum order amount of 20.00 required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := validCode()
			if tt.mutate != nil {
				tt.mutate(dc)
			}
			v := newValidator(dc)

			got, err := v.Validate(context.Background(), tt.code, decimal.NewFromInt(tt.basis))
			assert.Nil(t, got)
			require.Error(t, err)
			require.True(t, IsValidationError(err))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.kind, ve.Kind)
			assert.Equal(t, tt.reason, ve.Error())
		})
	}
}

func TestValidate_InactiveCheckedBeforeDates(t *testing.T) {
	dc := validCode()
	dc.IsActive = false
	ended := now.Add(-time.Hour)
	dc.EndDate = &ended

	_, err := newValidator(dc).Validate(context.Background(), "WELCOME10", decimal.NewFromInt(35))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, KindInactive, ve.Kind)
}

func TestValidate_UsesBelowLimitAccepted(t *testing.T) {
	dc := validCode()
	maxUses := 5
	dc.MaxUses = &maxUses
	dc.CurrentUses = 4

	_, err := newValidator(dc).Validate(context.Background(), "WELCOME10", decimal.NewFromInt(35))
	assert.NoError(t, err)
}

func TestValidate_RepositoryFailureIsNotARejection(t *testing.T) {
	v := NewStoreValidator(&fakeRepo{err: errors.New("connection reset")})

	_, err := v.Validate(context.Background(), "WELCOME10", decimal.NewFromInt(35))
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "connection reset")
}
