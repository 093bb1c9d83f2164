package api

import (
	"cart-service/internal/models"

	"github.com/shopspring/decimal"
)

// AddItemRequest is the payload for adding or replacing an item
type AddItemRequest struct {
	ProductSlug      string            `json:"productSlug" binding:"required"`
	ProductTitle     string            `json:"productTitle"`
	ProductImage     string            `json:"productImage"`
	Quantity         int               `json:"quantity" binding:"required,min=1"`
	OriginalPrice    decimal.Decimal   `json:"originalPrice"`
	SalePrice        *decimal.Decimal  `json:"salePrice"`
	SelectedVariants map[string]string `json:"selectedVariants"`
	VariantLabel     string            `json:"variantLabel"`
	IsUpgrade        bool              `json:"isUpgrade"`
	Interactive      *bool             `json:"interactive"`
}

func (r *AddItemRequest) toItem() models.CartItem {
	sale := r.OriginalPrice
	if r.SalePrice != nil {
		sale = *r.SalePrice
	}
	return models.CartItem{
		ProductSlug:      r.ProductSlug,
		ProductTitle:     r.ProductTitle,
		ProductImage:     r.ProductImage,
		Quantity:         r.Quantity,
		OriginalPrice:    r.OriginalPrice,
		SalePrice:        sale,
		Price:            sale,
		SelectedVariants: r.SelectedVariants,
		VariantLabel:     r.VariantLabel,
		IsUpgrade:        r.IsUpgrade,
	}
}

// UpdateQuantityRequest sets a quantity; zero removes the item
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// ApplyDiscountRequest carries a user-entered code
type ApplyDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

type CartItemView struct {
	ID               string            `json:"id"`
	ProductSlug      string            `json:"productSlug"`
	ProductTitle     string            `json:"productTitle"`
	ProductImage     string            `json:"productImage,omitempty"`
	Quantity         int               `json:"quantity"`
	OriginalPrice    string            `json:"originalPrice"`
	SalePrice        string            `json:"salePrice"`
	Price            string            `json:"price"`
	LineTotal        string            `json:"lineTotal"`
	SelectedVariants map[string]string `json:"selectedVariants,omitempty"`
	VariantLabel     string            `json:"variantLabel,omitempty"`
	IsUpgrade        bool              `json:"isUpgrade,omitempty"`
}

type DiscountView struct {
	Code           string `json:"code"`
	Description    string `json:"description,omitempty"`
	DiscountType   string `json:"discountType"`
	DiscountValue  string `json:"discountValue"`
	MinOrderAmount string `json:"minOrderAmount"`
	MaxDiscount    string `json:"maxDiscount,omitempty"`
}

// CartView is the cart as rendered to clients, money rounded to 2 places
type CartView struct {
	SessionID      string         `json:"sessionId"`
	Items          []CartItemView `json:"items"`
	TotalItems     int            `json:"totalItems"`
	Subtotal       string         `json:"subtotal"`
	Total          string         `json:"total"`
	DiscountAmount string         `json:"discountAmount"`
	DiscountCode   string         `json:"discountCode,omitempty"`
	Discount       *DiscountView  `json:"discount,omitempty"`
	IsOpen         bool           `json:"isOpen"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func newCartView(sessionID string, state models.CartState) CartView {
	view := CartView{
		SessionID:      sessionID,
		Items:          make([]CartItemView, 0, len(state.Items)),
		TotalItems:     state.TotalItems,
		Subtotal:       money(state.Subtotal),
		Total:          money(state.Total),
		DiscountAmount: money(state.DiscountAmount),
		DiscountCode:   state.DiscountCode,
		IsOpen:         state.IsOpen,
	}

	for _, item := range state.Items {
		view.Items = append(view.Items, CartItemView{
			ID:               item.ID,
			ProductSlug:      item.ProductSlug,
			ProductTitle:     item.ProductTitle,
			ProductImage:     item.ProductImage,
			Quantity:         item.Quantity,
			OriginalPrice:    money(item.OriginalPrice),
			SalePrice:        money(item.SalePrice),
			Price:            money(item.Price),
			LineTotal:        money(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))),
			SelectedVariants: item.SelectedVariants,
			VariantLabel:     item.VariantLabel,
			IsUpgrade:        item.IsUpgrade,
		})
	}

	if d := state.DiscountCodeDetails; d != nil {
		dv := &DiscountView{
			Code:           d.Code,
			Description:    d.Description,
			DiscountType:   d.DiscountType,
			DiscountValue:  d.DiscountValue.String(),
			MinOrderAmount: money(d.MinOrderAmount),
		}
		if d.MaxDiscount != nil {
			dv.MaxDiscount = money(*d.MaxDiscount)
		}
		view.Discount = dv
	}

	return view
}
