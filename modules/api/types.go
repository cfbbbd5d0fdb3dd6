package api

import (
	"github.com/shopspring/decimal"
)

// Envelope wraps every successful response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed request. Error carries the error
// kind.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// RefreshBody is the body of POST /auth/refresh.
type RefreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateUserBody is the body of PUT /users/:id. Nil fields are left untouched.
type UpdateUserBody struct {
	Name     *string `json:"name"`
	Surname  *string `json:"surname"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
}

// ChangePasswordBody is the body of PUT /users/:id/password.
type ChangePasswordBody struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CategoryBody is the body of category create and rename.
type CategoryBody struct {
	Name string `json:"name"`
}

// CreateProductBody is the body of POST /products.
type CreateProductBody struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
}

// UpdateProductBody is the body of PUT /products/:id. Nil fields are left
// untouched.
type UpdateProductBody struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	CategoryID  *string          `json:"category_id"`
}

// RestockBody is the body of POST /products/:id/restock.
type RestockBody struct {
	Delta int `json:"delta"`
}

// CartItemBody is the body of cart line writes.
type CartItemBody struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CheckoutBody is the body of POST /purchases.
type CheckoutBody struct {
	CartID          string `json:"cart_id"`
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
	PaymentAccount  string `json:"payment_account"`
}

// UpdatePurchaseBody is the body of PUT /purchases/:id. Nil fields are left
// untouched.
type UpdatePurchaseBody struct {
	ShippingAddress *string `json:"shipping_address"`
	PaymentMethod   *string `json:"payment_method"`
	PaymentAccount  *string `json:"payment_account"`
}
