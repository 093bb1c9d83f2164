package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cart-service/internal/models"
)

// ErrCodeNotFound is returned when no discount code matches
var ErrCodeNotFound = errors.New("discount code not found")

// NormalizeCode canonicalizes user input before lookup
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GetDiscountCodeByCode retrieves a discount code, case-insensitively
func (s *Store) GetDiscountCodeByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var dc models.DiscountCode
	err := s.db.GetContext(ctx, &dc,
		"SELECT * FROM discount_codes WHERE code = $1", NormalizeCode(code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discount code: %w", err)
	}
	return &dc, nil
}

// CreateDiscountCode inserts a new discount code
func (s *Store) CreateDiscountCode(ctx context.Context, dc *models.DiscountCode) error {
	dc.Code = NormalizeCode(dc.Code)

	query := `
		INSERT INTO discount_codes (code, description, discount_type, discount_value,
			min_order_amount, max_discount, max_uses, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, current_uses, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		dc.Code, dc.Description, dc.DiscountType, dc.DiscountValue,
		dc.MinOrderAmount, dc.MaxDiscount, dc.MaxUses, dc.StartDate, dc.EndDate, dc.IsActive,
	).Scan(&dc.ID, &dc.CurrentUses, &dc.CreatedAt, &dc.UpdatedAt)
}

// IncrementDiscountUses records one use of a code
func (s *Store) IncrementDiscountUses(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE discount_codes SET current_uses = current_uses + 1, updated_at = NOW() WHERE code = $1",
		NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("failed to increment discount uses: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCodeNotFound
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
