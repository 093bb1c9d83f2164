package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartItem represents a line in the cart
type CartItem struct {
	ID               string            `json:"id"`
	ProductSlug      string            `json:"productSlug"`
	ProductTitle     string            `json:"productTitle"`
	ProductImage     string            `json:"productImage,omitempty"`
	Quantity         int               `json:"quantity"`
	OriginalPrice    decimal.Decimal   `json:"originalPrice"`
	SalePrice        decimal.Decimal   `json:"salePrice"`
	Price            decimal.Decimal   `json:"price"`
	SelectedVariants map[string]string `json:"selectedVariants,omitempty"`
	VariantLabel     string            `json:"variantLabel,omitempty"`
	IsUpgrade        bool              `json:"isUpgrade,omitempty"`
}

// ItemID derives the cart key for a product slug and its variant selection.
// Variants are serialized as sorted key:value pairs joined by commas.
func ItemID(productSlug string, variants map[string]string) string {
	if len(variants) == 0 {
		return productSlug
	}

	keys := make([]string, 0, len(variants))
	for k := range variants {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + ":" + variants[k]
	}

	return productSlug + "-" + strings.Join(pairs, ",")
}

// Clone returns a copy that shares nothing mutable with the receiver
func (i CartItem) Clone() CartItem {
	if i.SelectedVariants != nil {
		variants := make(map[string]string, len(i.SelectedVariants))
		for k, v := range i.SelectedVariants {
			variants[k] = v
		}
		i.SelectedVariants = variants
	}
	return i
}

// CartState is the full pricing state of one cart
type CartState struct {
	Items               []CartItem      `json:"items"`
	TotalItems          int             `json:"totalItems"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	Total               decimal.Decimal `json:"total"`
	DiscountAmount      decimal.Decimal `json:"discountAmount"`
	DiscountCode        string          `json:"discountCode,omitempty"`
	DiscountCodeDetails *DiscountCode   `json:"discountCodeDetails,omitempty"`
	IsOpen              bool            `json:"isOpen"`
}

// HasDiscount reports whether a discount code is active
func (s *CartState) HasDiscount() bool {
	return s.DiscountCode != "" && s.DiscountCodeDetails != nil
}

// FindItem returns the index of the item with the given id, or -1
func (s *CartState) FindItem(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Discount types
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// DiscountCode is a promotional code record as returned by validation
type DiscountCode struct {
	ID             int64            `db:"id" json:"id"`
	Code           string           `db:"code" json:"code"`
	Description    string           `db:"description" json:"description,omitempty"`
	DiscountType   string           `db:"discount_type" json:"discount_type"`
	DiscountValue  decimal.Decimal  `db:"discount_value" json:"discount_value"`
	MinOrderAmount decimal.Decimal  `db:"min_order_amount" json:"min_order_amount"`
	MaxDiscount    *decimal.Decimal `db:"max_discount" json:"max_discount,omitempty"`
	MaxUses        *int             `db:"max_uses" json:"max_uses,omitempty"`
	CurrentUses    int              `db:"current_uses" json:"current_uses"`
	StartDate      time.Time        `db:"start_date" json:"start_date"`
	EndDate        *time.Time       `db:"end_date" json:"end_date,omitempty"`
	IsActive       bool             `db:"is_active" json:"is_active"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}
