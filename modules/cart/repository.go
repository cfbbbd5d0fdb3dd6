package cart

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/storefront/domain/cart"
	domaincatalog "github.com/example/storefront/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLineNotFound is returned when the cart has no line for a product.
var ErrLineNotFound = errors.New("cart line not found")

// LineRow is a cart line joined with the live product. Product fields are
// empty when the product row is missing.
type LineRow struct {
	ProductID string
	Quantity  int
	Name      *string
	Price     decimal.NullDecimal
	Lifecycle *domaincatalog.Lifecycle
	Stock     *int
}

// Repository persists carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new cart repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreate returns the cart of a user, creating an empty one on first use.
func (r *Repository) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c = domain.Cart{ID: uuid.New().String(), UserID: userID}
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Created concurrently.
			var existing domain.Cart
			if err := r.db.WithContext(ctx).First(&existing, "user_id = ?", userID).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListLines returns the lines of a cart in insertion order.
func (r *Repository) ListLines(ctx context.Context, cartID string) ([]LineRow, error) {
	var rows []LineRow
	err := r.db.WithContext(ctx).Table("cart_lines").
		Select("cart_lines.product_id, cart_lines.quantity, products.name, products.price, products.lifecycle, products.stock").
		Joins("LEFT JOIN products ON products.id = cart_lines.product_id").
		Where("cart_lines.cart_id = ?", cartID).
		Order("cart_lines.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AddQuantity inserts a line or adds qty to the existing line of the product.
func (r *Repository) AddQuantity(ctx context.Context, cartID, productID string, qty int) error {
	line := domain.Line{CartID: cartID, ProductID: productID, Quantity: qty}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("quantity + excluded.quantity"),
			"updated_at": time.Now(),
		}),
	}).Create(&line).Error
}

// SetQuantity replaces the quantity of an existing line.
func (r *Repository) SetQuantity(ctx context.Context, cartID, productID string, qty int) error {
	result := r.db.WithContext(ctx).Model(&domain.Line{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLineNotFound
	}
	return nil
}

// DeleteLine removes the line of a product.
func (r *Repository) DeleteLine(ctx context.Context, cartID, productID string) error {
	result := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&domain.Line{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLineNotFound
	}
	return nil
}

// Clear removes every line of a cart and returns how many were removed.
func (r *Repository) Clear(ctx context.Context, cartID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&domain.Line{})
	return result.RowsAffected, result.Error
}
