// Package catalog holds the Category and Product entities.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategoryName is the fallback category that receives the products of a
// retired category.
const DefaultCategoryName = "Default"

// Lifecycle is the explicit soft-deletion state of catalog records.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleRetired Lifecycle = "retired"
)

// IsValid reports whether l is a known lifecycle state.
func (l Lifecycle) IsValid() bool {
	return l == LifecycleActive || l == LifecycleRetired
}

// Category groups products.
type Category struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;type:text" json:"name"`
	Lifecycle Lifecycle `gorm:"not null;type:text;default:active;index" json:"lifecycle"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the Category entity.
func (Category) TableName() string {
	return "categories"
}

// IsActive reports whether the category accepts products.
func (c *Category) IsActive() bool {
	return c.Lifecycle == LifecycleActive
}

// IsDefault reports whether c is the fallback category.
func (c *Category) IsDefault() bool {
	return c.Name == DefaultCategoryName
}

// Product is a sellable catalog item.
type Product struct {
	ID          string          `gorm:"primaryKey;type:text" json:"id"`
	Name        string          `gorm:"not null;type:text;index" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	CategoryID  string          `gorm:"not null;type:text;index" json:"category_id"`
	Lifecycle   Lifecycle       `gorm:"not null;type:text;default:active;index" json:"lifecycle"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName returns the table name for the Product entity.
func (Product) TableName() string {
	return "products"
}

// IsActive reports whether the product can be sold.
func (p *Product) IsActive() bool {
	return p.Lifecycle == LifecycleActive
}
