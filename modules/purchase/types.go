package purchase

import (
	"time"

	domain "github.com/example/storefront/domain/purchase"
	domainuser "github.com/example/storefront/domain/user"
	"github.com/shopspring/decimal"
)

// CheckoutRequest is the request for the checkout service. An empty CartID
// selects the caller's own cart.
type CheckoutRequest struct {
	Actor           domainuser.Claims `json:"actor"`
	CartID          string            `json:"cart_id"`
	ShippingAddress string            `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method"`
	PaymentAccount  string            `json:"payment_account"`
}

// PurchaseIDRequest addresses one purchase on behalf of a caller.
type PurchaseIDRequest struct {
	Actor      domainuser.Claims `json:"actor"`
	PurchaseID string            `json:"purchase_id"`
}

// UpdatePurchaseRequest is the request for the update-purchase service. Nil
// fields are left untouched.
type UpdatePurchaseRequest struct {
	Actor           domainuser.Claims `json:"actor"`
	PurchaseID      string            `json:"purchase_id"`
	ShippingAddress *string           `json:"shipping_address,omitempty"`
	PaymentMethod   *string           `json:"payment_method,omitempty"`
	PaymentAccount  *string           `json:"payment_account,omitempty"`
}

// ListPurchasesRequest is the request for the list-purchases service.
// UserID is honoured for admins only.
type ListPurchasesRequest struct {
	Actor  domainuser.Claims `json:"actor"`
	UserID string            `json:"user_id"`
	Status string            `json:"status"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
	Sort   string            `json:"sort"`
	Order  string            `json:"order"`
}

// PurchaseResponse is the caller-facing view of a purchase. The payment
// account only appears masked.
type PurchaseResponse struct {
	ID              string          `json:"id"`
	Reference       string          `json:"reference"`
	UserID          string          `json:"user_id"`
	Status          domain.Status   `json:"status"`
	Total           decimal.Decimal `json:"total"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentAccount  string          `json:"payment_account"`
	Lines           []LineResponse  `json:"lines"`
	ReceiptKey      string          `json:"receipt_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CanceledAt      *time.Time      `json:"canceled_at,omitempty"`
}

// LineResponse is one purchased product with its snapshotted price.
type LineResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ListPurchasesResponse is a page of purchases.
type ListPurchasesResponse struct {
	Purchases []PurchaseResponse `json:"purchases"`
	Total     int64              `json:"total"`
	Offset    int                `json:"offset"`
	Limit     int                `json:"limit"`
}

// PayPurchaseResponse reports a payment. ReceiptError is set when the
// purchase was paid but its receipt could not be produced.
type PayPurchaseResponse struct {
	Purchase     PurchaseResponse `json:"purchase"`
	ReceiptError string           `json:"receipt_error,omitempty"`
}

// ReceiptResponse carries a receipt document.
type ReceiptResponse struct {
	PurchaseID  string `json:"purchase_id"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

func toPurchaseResponse(p *domain.Purchase) PurchaseResponse {
	resp := PurchaseResponse{
		ID:              p.ID,
		Reference:       p.Reference,
		UserID:          p.UserID,
		Status:          p.Status,
		Total:           p.Total,
		ShippingAddress: p.ShippingAddress,
		PaymentMethod:   string(p.PaymentMethod),
		PaymentAccount:  p.MaskedAccount(),
		Lines:           make([]LineResponse, 0, len(p.Lines)),
		ReceiptKey:      p.ReceiptKey,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		PaidAt:          p.PaidAt,
		CanceledAt:      p.CanceledAt,
	}
	for _, l := range p.Lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}
	return resp
}
