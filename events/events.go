package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// PurchaseLineEvent carries the stock-relevant part of a purchase line.
type PurchaseLineEvent struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PurchaseCreatedEvent is emitted after a checkout commits.
type PurchaseCreatedEvent struct {
	PurchaseID string              `json:"purchase_id"`
	Reference  string              `json:"reference"`
	UserID     string              `json:"user_id"`
	Total      string              `json:"total"`
	Lines      []PurchaseLineEvent `json:"lines"`
	CreatedAt  time.Time           `json:"created_at"`
}

// PurchaseCreatedV1 is the typed event definition for checkouts.
// Subject: events.purchase.v1.purchase-created
var PurchaseCreatedV1 = helper.EventDefinition[PurchaseCreatedEvent](
	"purchase", "PurchaseCreated", "v1",
)

// PurchasePaidEvent is emitted when a purchase is marked paid.
type PurchasePaidEvent struct {
	PurchaseID string    `json:"purchase_id"`
	Reference  string    `json:"reference"`
	UserID     string    `json:"user_id"`
	Total      string    `json:"total"`
	ReceiptKey string    `json:"receipt_key,omitempty"`
	PaidAt     time.Time `json:"paid_at"`
}

// PurchasePaidV1 is the typed event definition for payments.
// Subject: events.purchase.v1.purchase-paid
var PurchasePaidV1 = helper.EventDefinition[PurchasePaidEvent](
	"purchase", "PurchasePaid", "v1",
)

// PurchaseCanceledEvent is emitted after a cancellation restocked its lines.
type PurchaseCanceledEvent struct {
	PurchaseID string              `json:"purchase_id"`
	Reference  string              `json:"reference"`
	UserID     string              `json:"user_id"`
	Lines      []PurchaseLineEvent `json:"lines"`
	CanceledAt time.Time           `json:"canceled_at"`
}

// PurchaseCanceledV1 is the typed event definition for cancellations.
// Subject: events.purchase.v1.purchase-canceled
var PurchaseCanceledV1 = helper.EventDefinition[PurchaseCanceledEvent](
	"purchase", "PurchaseCanceled", "v1",
)

// CategoryRetiredEvent is emitted after a category was retired and its
// products moved to the Default category.
type CategoryRetiredEvent struct {
	CategoryID        string    `json:"category_id"`
	Name              string    `json:"name"`
	DefaultCategoryID string    `json:"default_category_id"`
	ReassignedCount   int64     `json:"reassigned_count"`
	RetiredAt         time.Time `json:"retired_at"`
}

// CategoryRetiredV1 is the typed event definition for category retirement.
// Subject: events.catalog.v1.category-retired
var CategoryRetiredV1 = helper.EventDefinition[CategoryRetiredEvent](
	"catalog", "CategoryRetired", "v1",
)
