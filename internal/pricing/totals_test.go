package pricing

import (
	"testing"

	"cart-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTotals(t *testing.T) {
	a := item("a", "10", 2)
	a.OriginalPrice = dec("12")
	a.Price = dec("9")
	b := item("b", "15", 1)
	b.Price = dec("13.5")

	totals := CalculateTotals([]models.CartItem{a, b})

	assert.Equal(t, 3, totals.TotalItems)
	assertMoney(t, "39", totals.Subtotal)
	assertMoney(t, "31.5", totals.Total)
	assertMoney(t, "3.5", totals.DiscountAmount)
}

func TestCalculateTotals_Empty(t *testing.T) {
	totals := CalculateTotals(nil)

	assert.Equal(t, 0, totals.TotalItems)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Total.IsZero())
	assert.True(t, totals.DiscountAmount.IsZero())
}

func TestBasis(t *testing.T) {
	a := item("a", "10", 2)
	a.OriginalPrice = dec("99")
	a.Price = dec("1")

	assertMoney(t, "20", Basis([]models.CartItem{a}))
}
