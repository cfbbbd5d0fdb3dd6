// Package cart holds the per-user shopping cart.
package cart

import "time"

// Cart is the pre-checkout basket of a single user.
type Cart struct {
	ID        string    `gorm:"primaryKey;type:text"`
	UserID    string    `gorm:"uniqueIndex;not null;type:text"`
	Lines     []Line    `gorm:"foreignKey:CartID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for the Cart entity.
func (Cart) TableName() string {
	return "carts"
}

// Line is one product entry of a cart. Lines keep insertion order through
// their auto-increment ID.
type Line struct {
	ID        uint   `gorm:"primaryKey"`
	CartID    string `gorm:"not null;type:text;uniqueIndex:idx_cart_product"`
	ProductID string `gorm:"not null;type:text;uniqueIndex:idx_cart_product"`
	Quantity  int    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for the Line entity.
func (Line) TableName() string {
	return "cart_lines"
}
