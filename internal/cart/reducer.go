package cart

import (
	"cart-service/internal/models"
	"cart-service/internal/pricing"

	"github.com/shopspring/decimal"
)

// InitialState returns an empty cart
func InitialState() models.CartState {
	return models.CartState{
		Items:          []models.CartItem{},
		Subtotal:       decimal.Zero,
		Total:          decimal.Zero,
		DiscountAmount: decimal.Zero,
	}
}

// Reduce applies one action and returns the next state. It never mutates the
// given state and never fails: invalid input degrades to a no-op.
//
// Item mutations re-run an active discount over the stored prices without
// resetting them to sale price first. If the cart has dropped below the code's
// minimum, the algorithm exits early and items keep their last discounted
// price until RemoveDiscount or RecalculateDiscount runs.
func Reduce(state models.CartState, action Action) models.CartState {
	next := copyState(state)

	switch a := action.(type) {
	case AddItem:
		if a.Item.Quantity <= 0 {
			return next
		}
		item := newItem(a.Item)
		if idx := next.FindItem(item.ID); idx >= 0 {
			next.Items[idx].Quantity += item.Quantity
		} else {
			next.Items = append(next.Items, item)
		}
		if a.Interactive {
			next.IsOpen = true
		}
		return reapply(next)

	case UpdateQuantity:
		if a.Quantity <= 0 {
			return Reduce(state, RemoveItem{ItemID: a.ItemID})
		}
		idx := next.FindItem(a.ItemID)
		if idx < 0 {
			return next
		}
		next.Items[idx].Quantity = a.Quantity
		return reapply(next)

	case RemoveItem:
		idx := next.FindItem(a.ItemID)
		if idx < 0 {
			return next
		}
		next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
		return reapply(next)

	case ReplaceItem:
		idx := next.FindItem(a.ItemID)
		if idx < 0 || a.Item.Quantity <= 0 {
			return next
		}
		item := newItem(a.Item)
		if dup := next.FindItem(item.ID); dup >= 0 && dup != idx {
			next.Items[dup].Quantity += item.Quantity
			next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
		} else {
			next.Items[idx] = item
		}
		return reapply(next)

	case ClearCart:
		empty := InitialState()
		empty.IsOpen = state.IsOpen
		return empty

	case OpenCart:
		next.IsOpen = true
		return next

	case CloseCart:
		next.IsOpen = false
		return next

	case ApplyDiscount:
		if a.Details == nil || a.Code == "" {
			return next
		}
		details := *a.Details
		next.Items = pricing.ApplyDiscount(next.Items, &details).Items
		next.DiscountCode = a.Code
		next.DiscountCodeDetails = &details
		return withTotals(next)

	case RemoveDiscount:
		next.Items = pricing.ResetPrices(next.Items)
		next.DiscountCode = ""
		next.DiscountCodeDetails = nil
		return withTotals(next)

	case RecalculateDiscount:
		if !next.HasDiscount() {
			return next
		}
		next.Items = pricing.ResetPrices(next.Items)
		next.Items = pricing.ApplyDiscount(next.Items, next.DiscountCodeDetails).Items
		return withTotals(next)

	case Load:
		loaded := copyState(a.State)
		loaded.IsOpen = false
		kept := loaded.Items[:0]
		for _, item := range loaded.Items {
			if item.Quantity > 0 {
				kept = append(kept, item)
			}
		}
		loaded.Items = kept
		if loaded.DiscountCode == "" || loaded.DiscountCodeDetails == nil {
			loaded.DiscountCode = ""
			loaded.DiscountCodeDetails = nil
		}
		return withTotals(loaded)
	}

	return next
}

// newItem derives the id and starts the item at its sale price
func newItem(item models.CartItem) models.CartItem {
	item = item.Clone()
	item.ID = models.ItemID(item.ProductSlug, item.SelectedVariants)
	if item.SalePrice.IsNegative() {
		item.SalePrice = decimal.Zero
	}
	if item.OriginalPrice.IsNegative() {
		item.OriginalPrice = decimal.Zero
	}
	item.Price = item.SalePrice
	return item
}

// reapply runs an active discount over the current prices, then totals
func reapply(state models.CartState) models.CartState {
	if state.HasDiscount() {
		state.Items = pricing.ApplyDiscount(state.Items, state.DiscountCodeDetails).Items
	}
	return withTotals(state)
}

func withTotals(state models.CartState) models.CartState {
	t := pricing.CalculateTotals(state.Items)
	state.Subtotal = t.Subtotal
	state.Total = t.Total
	state.TotalItems = t.TotalItems
	state.DiscountAmount = t.DiscountAmount
	return state
}

func copyState(state models.CartState) models.CartState {
	items := make([]models.CartItem, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, item.Clone())
	}
	state.Items = items
	if state.DiscountCodeDetails != nil {
		details := *state.DiscountCodeDetails
		state.DiscountCodeDetails = &details
	}
	return state
}
