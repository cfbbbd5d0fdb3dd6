// Package purchase holds the Purchase record, its status state machine and the
// payment field rules applied at checkout.
package purchase

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is the record of a completed checkout. Lines are price snapshots
// taken at checkout time and are never recomputed.
type Purchase struct {
	ID                  string          `gorm:"primaryKey;type:text"`
	Reference           string          `gorm:"uniqueIndex;not null;type:text"`
	UserID              string          `gorm:"not null;type:text;index"`
	Lines               []Line          `gorm:"foreignKey:PurchaseID"`
	Total               decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status              Status          `gorm:"not null;type:text;index"`
	ShippingAddress     string          `gorm:"not null;type:text"`
	PaymentMethod       PaymentMethod   `gorm:"not null;type:text"`
	PaymentAccountHash  string          `gorm:"not null;type:text"`
	PaymentAccountLast4 string          `gorm:"not null;type:text"`
	ReceiptKey          string          `gorm:"type:text"`
	CreatedAt           time.Time       `gorm:"index"`
	UpdatedAt           time.Time
	PaidAt              *time.Time
	CanceledAt          *time.Time
}

// TableName returns the table name for the Purchase entity.
func (Purchase) TableName() string {
	return "purchases"
}

// MaskedAccount returns the display form of the payment account.
func (p *Purchase) MaskedAccount() string {
	return MaskAccount(p.PaymentAccountLast4)
}

// Line is an immutable snapshot of one purchased product.
type Line struct {
	ID          uint            `gorm:"primaryKey"`
	PurchaseID  string          `gorm:"not null;type:text;index"`
	ProductID   string          `gorm:"not null;type:text;index"`
	ProductName string          `gorm:"not null;type:text"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for the Line entity.
func (Line) TableName() string {
	return "purchase_lines"
}

// NewLine snapshots a product price into a purchase line.
func NewLine(productID, productName string, quantity int, unitPrice decimal.Decimal) Line {
	return Line{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Total sums the line totals, rounded to cents.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return total.Round(2)
}
