package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// CartPort is the cart API other modules use.
type CartPort interface {
	GetCart(ctx context.Context, userID string) (*CartView, error)
	AddItem(ctx context.Context, req AddCartItemRequest) (*CartView, error)
	UpdateItem(ctx context.Context, req UpdateCartItemRequest) (*CartView, error)
	RemoveItem(ctx context.Context, req RemoveCartItemRequest) (*CartView, error)
	ClearCart(ctx context.Context, userID string) (*CartView, error)
}

// CartAdapter implements CartPort using the service container.
type CartAdapter struct {
	container mono.ServiceContainer
}

var _ CartPort = (*CartAdapter)(nil)

// NewCartAdapter creates a new CartAdapter.
func NewCartAdapter(container mono.ServiceContainer) *CartAdapter {
	return &CartAdapter{
		container: container,
	}
}

func (a *CartAdapter) call(ctx context.Context, service string, req any) (*CartView, error) {
	var resp CartView
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", service, err)
	}
	return &resp, nil
}

// GetCart returns the cart of a user.
func (a *CartAdapter) GetCart(ctx context.Context, userID string) (*CartView, error) {
	return a.call(ctx, "get-cart", &GetCartRequest{UserID: userID})
}

// AddItem adds a product to a cart.
func (a *CartAdapter) AddItem(ctx context.Context, req AddCartItemRequest) (*CartView, error) {
	return a.call(ctx, "add-cart-item", &req)
}

// UpdateItem sets the quantity of a cart line.
func (a *CartAdapter) UpdateItem(ctx context.Context, req UpdateCartItemRequest) (*CartView, error) {
	return a.call(ctx, "update-cart-item", &req)
}

// RemoveItem removes a product from a cart.
func (a *CartAdapter) RemoveItem(ctx context.Context, req RemoveCartItemRequest) (*CartView, error) {
	return a.call(ctx, "remove-cart-item", &req)
}

// ClearCart empties a cart.
func (a *CartAdapter) ClearCart(ctx context.Context, userID string) (*CartView, error) {
	return a.call(ctx, "clear-cart", &ClearCartRequest{UserID: userID})
}
