package receipt

import "time"

// ContentType is the media type of stored receipts.
const ContentType = "text/plain; charset=utf-8"

// RenderReceiptRequest carries the purchase snapshot printed on a receipt.
// Amounts are preformatted decimal strings.
type RenderReceiptRequest struct {
	PurchaseID      string        `json:"purchase_id"`
	Reference       string        `json:"reference"`
	UserID          string        `json:"user_id"`
	Status          string        `json:"status"`
	PaymentMethod   string        `json:"payment_method"`
	MaskedAccount   string        `json:"masked_account"`
	ShippingAddress string        `json:"shipping_address"`
	Total           string        `json:"total"`
	Lines           []ReceiptLine `json:"lines"`
	CreatedAt       time.Time     `json:"created_at"`
	PaidAt          time.Time     `json:"paid_at"`
}

// ReceiptLine is one itemized receipt row.
type ReceiptLine struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// RenderReceiptResponse describes the stored receipt.
type RenderReceiptResponse struct {
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

// GetReceiptRequest is the request for the get-receipt service.
type GetReceiptRequest struct {
	PurchaseID string `json:"purchase_id"`
}

// GetReceiptResponse carries a stored receipt document.
type GetReceiptResponse struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Content     []byte `json:"content"`
}
