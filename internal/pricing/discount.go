package pricing

import (
	"cart-service/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Result describes one run of the discount algorithm
type Result struct {
	Items   []models.CartItem
	Basis   decimal.Decimal
	Amount  decimal.Decimal
	Ratio   decimal.Decimal
	Applied bool
}

// Basis returns the sale-price weighted total used for eligibility
func Basis(items []models.CartItem) decimal.Decimal {
	basis := decimal.Zero
	for _, item := range items {
		basis = basis.Add(item.SalePrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return basis
}

// DiscountValue computes the absolute worth of a code against a basis.
// Percentage codes are capped by MaxDiscount; fixed codes are not capped.
func DiscountValue(code *models.DiscountCode, basis decimal.Decimal) decimal.Decimal {
	switch code.DiscountType {
	case models.DiscountTypePercentage:
		amount := basis.Mul(code.DiscountValue).Div(hundred)
		if code.MaxDiscount != nil && amount.GreaterThan(*code.MaxDiscount) {
			amount = *code.MaxDiscount
		}
		return amount
	case models.DiscountTypeFixed:
		return code.DiscountValue
	default:
		return decimal.Zero
	}
}

// ApplyDiscount redistributes a code's value across items in proportion to
// their sale price. When the cart is ineligible the items are returned as they
// are, keeping whatever price they currently carry.
func ApplyDiscount(items []models.CartItem, code *models.DiscountCode) Result {
	out := make([]models.CartItem, len(items))
	copy(out, items)

	res := Result{Items: out, Basis: Basis(items)}
	if code == nil {
		return res
	}

	if res.Basis.LessThan(code.MinOrderAmount) || !res.Basis.IsPositive() {
		return res
	}

	res.Amount = DiscountValue(code, res.Basis)
	if res.Amount.IsNegative() {
		res.Amount = decimal.Zero
	}
	res.Ratio = res.Amount.Div(res.Basis)
	res.Applied = true

	for i := range out {
		share := out[i].SalePrice.Mul(res.Amount).Div(res.Basis)
		price := out[i].SalePrice.Sub(share)
		if price.IsNegative() {
			price = decimal.Zero
		}
		out[i].Price = price
	}

	return res
}

// ResetPrices sets every item's price back to its sale price
func ResetPrices(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	for i, item := range items {
		item.Price = item.SalePrice
		out[i] = item
	}
	return out
}
