package pricing

import (
	"cart-service/internal/models"

	"github.com/shopspring/decimal"
)

// Totals holds the figures derived from a cart's items
type Totals struct {
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalItems     int
}

// CalculateTotals sums the items. Subtotal uses original prices and is never
// touched by discount codes; Total uses the current effective price.
func CalculateTotals(items []models.CartItem) Totals {
	t := Totals{
		Subtotal:       decimal.Zero,
		Total:          decimal.Zero,
		DiscountAmount: decimal.Zero,
	}

	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		t.Subtotal = t.Subtotal.Add(item.OriginalPrice.Mul(qty))
		t.Total = t.Total.Add(item.Price.Mul(qty))
		t.DiscountAmount = t.DiscountAmount.Add(item.SalePrice.Sub(item.Price).Mul(qty))
		t.TotalItems += item.Quantity
	}

	return t
}
