package purchase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// PurchasePort is the purchase API other modules use.
type PurchasePort interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*PurchaseResponse, error)
	GetPurchase(ctx context.Context, req PurchaseIDRequest) (*PurchaseResponse, error)
	ListPurchases(ctx context.Context, req ListPurchasesRequest) (*ListPurchasesResponse, error)
	UpdatePurchase(ctx context.Context, req UpdatePurchaseRequest) (*PurchaseResponse, error)
	CancelPurchase(ctx context.Context, req PurchaseIDRequest) (*PurchaseResponse, error)
	PayPurchase(ctx context.Context, req PurchaseIDRequest) (*PayPurchaseResponse, error)
	GetReceipt(ctx context.Context, req PurchaseIDRequest) (*ReceiptResponse, error)
}

// PurchaseAdapter implements PurchasePort using the service container.
type PurchaseAdapter struct {
	container mono.ServiceContainer
}

var _ PurchasePort = (*PurchaseAdapter)(nil)

// NewPurchaseAdapter creates a new PurchaseAdapter.
func NewPurchaseAdapter(container mono.ServiceContainer) *PurchaseAdapter {
	return &PurchaseAdapter{
		container: container,
	}
}

func call[Resp any](ctx context.Context, container mono.ServiceContainer, service string, req any) (*Resp, error) {
	var resp Resp
	if err := helper.CallRequestReplyService(
		ctx,
		container,
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

// Checkout turns a cart into a pending purchase.
func (a *PurchaseAdapter) Checkout(ctx context.Context, req CheckoutRequest) (*PurchaseResponse, error) {
	return call[PurchaseResponse](ctx, a.container, "checkout", &req)
}

// GetPurchase fetches one purchase.
func (a *PurchaseAdapter) GetPurchase(ctx context.Context, req PurchaseIDRequest) (*PurchaseResponse, error) {
	return call[PurchaseResponse](ctx, a.container, "get-purchase", &req)
}

// ListPurchases returns a page of purchases.
func (a *PurchaseAdapter) ListPurchases(ctx context.Context, req ListPurchasesRequest) (*ListPurchasesResponse, error) {
	return call[ListPurchasesResponse](ctx, a.container, "list-purchases", &req)
}

// UpdatePurchase edits a pending purchase.
func (a *PurchaseAdapter) UpdatePurchase(ctx context.Context, req UpdatePurchaseRequest) (*PurchaseResponse, error) {
	return call[PurchaseResponse](ctx, a.container, "update-purchase", &req)
}

// CancelPurchase cancels a pending purchase.
func (a *PurchaseAdapter) CancelPurchase(ctx context.Context, req PurchaseIDRequest) (*PurchaseResponse, error) {
	return call[PurchaseResponse](ctx, a.container, "cancel-purchase", &req)
}

// PayPurchase marks a pending purchase paid.
func (a *PurchaseAdapter) PayPurchase(ctx context.Context, req PurchaseIDRequest) (*PayPurchaseResponse, error) {
	return call[PayPurchaseResponse](ctx, a.container, "pay-purchase", &req)
}

// GetReceipt fetches the receipt of a paid purchase.
func (a *PurchaseAdapter) GetReceipt(ctx context.Context, req PurchaseIDRequest) (*ReceiptResponse, error) {
	return call[ReceiptResponse](ctx, a.container, "get-purchase-receipt", &req)
}
