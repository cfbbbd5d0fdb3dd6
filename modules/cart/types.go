package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// GetCartRequest is the request for the get-cart service.
type GetCartRequest struct {
	UserID string `json:"user_id"`
}

// AddCartItemRequest is the request for the add-cart-item service.
type AddCartItemRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateCartItemRequest is the request for the update-cart-item service.
type UpdateCartItemRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// RemoveCartItemRequest is the request for the remove-cart-item service.
type RemoveCartItemRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

// ClearCartRequest is the request for the clear-cart service.
type ClearCartRequest struct {
	UserID string `json:"user_id"`
}

// CartView is a cart priced with live product data. Prices are informational;
// checkout snapshots them again.
type CartView struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Lines     []LineView      `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LineView is one priced cart line.
type LineView struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	// Available is false for retired or missing products and for lines whose
	// quantity exceeds the current stock.
	Available bool `json:"available"`
}
