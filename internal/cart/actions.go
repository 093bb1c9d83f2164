package cart

import "cart-service/internal/models"

// Action is a cart transition request
type Action interface {
	Type() string
}

// Action type names
const (
	ActionAddItem             = "ADD_ITEM"
	ActionUpdateQuantity      = "UPDATE_QUANTITY"
	ActionRemoveItem          = "REMOVE_ITEM"
	ActionReplaceItem         = "REPLACE_ITEM"
	ActionClearCart           = "CLEAR_CART"
	ActionOpenCart            = "OPEN_CART"
	ActionCloseCart           = "CLOSE_CART"
	ActionApplyDiscount       = "APPLY_DISCOUNT"
	ActionRemoveDiscount      = "REMOVE_DISCOUNT"
	ActionRecalculateDiscount = "RECALCULATE_DISCOUNT"
	ActionLoad                = "LOAD"
)

// AddItem adds an item or merges it into an existing line.
// Interactive additions also open the cart.
type AddItem struct {
	Item        models.CartItem
	Interactive bool
}

type UpdateQuantity struct {
	ItemID   string
	Quantity int
}

type RemoveItem struct {
	ItemID string
}

// ReplaceItem swaps the item at ItemID's slot for a new one, e.g. an upsell
type ReplaceItem struct {
	ItemID string
	Item   models.CartItem
}

type ClearCart struct{}

type OpenCart struct{}

type CloseCart struct{}

// ApplyDiscount activates a validated code
type ApplyDiscount struct {
	Code    string
	Details *models.DiscountCode
}

type RemoveDiscount struct{}

type RecalculateDiscount struct{}

// Load replaces the whole state, e.g. after restoring from storage
type Load struct {
	State models.CartState
}

func (AddItem) Type() string             { return ActionAddItem }
func (UpdateQuantity) Type() string      { return ActionUpdateQuantity }
func (RemoveItem) Type() string          { return ActionRemoveItem }
func (ReplaceItem) Type() string         { return ActionReplaceItem }
func (ClearCart) Type() string           { return ActionClearCart }
func (OpenCart) Type() string            { return ActionOpenCart }
func (CloseCart) Type() string           { return ActionCloseCart }
func (ApplyDiscount) Type() string       { return ActionApplyDiscount }
func (RemoveDiscount) Type() string      { return ActionRemoveDiscount }
func (RecalculateDiscount) Type() string { return ActionRecalculateDiscount }
func (Load) Type() string                { return ActionLoad }
