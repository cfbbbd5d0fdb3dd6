package receipt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ReceiptPort renders and fetches purchase receipts.
type ReceiptPort interface {
	RenderReceipt(ctx context.Context, req RenderReceiptRequest) (*RenderReceiptResponse, error)
	GetReceipt(ctx context.Context, purchaseID string) (*GetReceiptResponse, error)
}

// ReceiptAdapter implements ReceiptPort using the service container.
type ReceiptAdapter struct {
	container mono.ServiceContainer
}

var _ ReceiptPort = (*ReceiptAdapter)(nil)

// NewReceiptAdapter creates a new ReceiptAdapter.
func NewReceiptAdapter(container mono.ServiceContainer) *ReceiptAdapter {
	return &ReceiptAdapter{
		container: container,
	}
}

// RenderReceipt renders and stores the receipt of a purchase.
func (a *ReceiptAdapter) RenderReceipt(ctx context.Context, req RenderReceiptRequest) (*RenderReceiptResponse, error) {
	var resp RenderReceiptResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"render-receipt",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("render-receipt request failed: %w", err)
	}
	return &resp, nil
}

// GetReceipt fetches a stored receipt.
func (a *ReceiptAdapter) GetReceipt(ctx context.Context, purchaseID string) (*GetReceiptResponse, error) {
	req := GetReceiptRequest{PurchaseID: purchaseID}
	var resp GetReceiptResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-receipt",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-receipt request failed: %w", err)
	}
	return &resp, nil
}
