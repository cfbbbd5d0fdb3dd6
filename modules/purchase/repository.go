package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domaincart "github.com/example/storefront/domain/cart"
	domaincatalog "github.com/example/storefront/domain/catalog"
	domain "github.com/example/storefront/domain/purchase"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a purchase does not exist.
	ErrNotFound = errors.New("purchase not found")
	// ErrCartNotFound is returned when a cart does not exist.
	ErrCartNotFound = errors.New("cart not found")
	// ErrDuplicateReference is returned when a generated reference is taken.
	ErrDuplicateReference = errors.New("purchase reference already exists")
)

var purchaseSortColumns = map[string]string{
	"created_at": "created_at",
	"total":      "total",
}

// CheckoutRow is a cart line joined with its product at checkout time.
type CheckoutRow struct {
	ProductID string
	Quantity  int
	Name      *string
	Price     decimal.NullDecimal
	Lifecycle *domaincatalog.Lifecycle
}

// Query selects a page of purchases.
type Query struct {
	UserID string
	Status domain.Status
	Offset int
	Limit  int
	Sort   string
	Order  string
}

// Repository persists purchases. Checkout and cancellation also touch the
// carts, cart_lines and products tables inside the same transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new purchase repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to a single transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// FindCart finds a cart by ID.
func (r *Repository) FindCart(ctx context.Context, cartID string) (*domaincart.Cart, error) {
	return r.firstCart(ctx, "id = ?", cartID)
}

// FindCartByUser finds the cart of a user.
func (r *Repository) FindCartByUser(ctx context.Context, userID string) (*domaincart.Cart, error) {
	return r.firstCart(ctx, "user_id = ?", userID)
}

func (r *Repository) firstCart(ctx context.Context, query string, args ...any) (*domaincart.Cart, error) {
	var c domaincart.Cart
	if err := r.db.WithContext(ctx).Where(query, args...).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CheckoutRows returns the lines of a cart with the current product data.
func (r *Repository) CheckoutRows(ctx context.Context, cartID string) ([]CheckoutRow, error) {
	var rows []CheckoutRow
	err := r.db.WithContext(ctx).Table("cart_lines").
		Select("cart_lines.product_id, cart_lines.quantity, products.name, products.price, products.lifecycle").
		Joins("LEFT JOIN products ON products.id = cart_lines.product_id").
		Where("cart_lines.cart_id = ?", cartID).
		Order("cart_lines.id ASC").
		Scan(&rows).Error
	return rows, err
}

// DecrementStock takes qty units of a product. It reports false when the
// stock is insufficient.
func (r *Repository) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domaincatalog.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]any{"stock": gorm.Expr("stock - ?", qty), "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementStock returns qty units of a product to stock.
func (r *Repository) IncrementStock(ctx context.Context, productID string, qty int) error {
	return r.db.WithContext(ctx).Model(&domaincatalog.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{"stock": gorm.Expr("stock + ?", qty), "updated_at": time.Now()}).Error
}

// DeleteCartLines empties a cart and returns how many lines were removed.
func (r *Repository) DeleteCartLines(ctx context.Context, cartID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&domaincart.Line{})
	return result.RowsAffected, result.Error
}

// Create inserts a purchase with its lines.
func (r *Repository) Create(ctx context.Context, p *domain.Purchase) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// Find loads a purchase with its lines.
func (r *Repository) Find(ctx context.Context, id string) (*domain.Purchase, error) {
	var p domain.Purchase
	err := r.db.WithContext(ctx).Scopes(withLines).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Transition moves a purchase from one status to another along with extra
// column updates. It reports false when the purchase was not in status from.
func (r *Repository) Transition(ctx context.Context, id string, from, to domain.Status, extra map[string]any) (bool, error) {
	fields := map[string]any{"status": to, "updated_at": time.Now()}
	for k, v := range extra {
		fields[k] = v
	}
	return r.updateWhereStatus(ctx, id, from, fields)
}

// UpdatePending applies field updates to a purchase that is still pending.
func (r *Repository) UpdatePending(ctx context.Context, id string, fields map[string]any) (bool, error) {
	updates := map[string]any{"updated_at": time.Now()}
	for k, v := range fields {
		updates[k] = v
	}
	return r.updateWhereStatus(ctx, id, domain.StatusPending, updates)
}

func (r *Repository) updateWhereStatus(ctx context.Context, id string, status domain.Status, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Purchase{}).
		Where("id = ? AND status = ?", id, status).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetReceiptKey records where the receipt of a purchase is stored.
func (r *Repository) SetReceiptKey(ctx context.Context, id, key string) error {
	return r.db.WithContext(ctx).Model(&domain.Purchase{}).
		Where("id = ?", id).
		Update("receipt_key", key).Error
}

// List returns a page of purchases with the total count.
func (r *Repository) List(ctx context.Context, q Query) ([]domain.Purchase, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if q.UserID != "" {
			db = db.Where("user_id = ?", q.UserID)
		}
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Purchase{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	var purchases []domain.Purchase
	err := r.db.WithContext(ctx).Scopes(filter, withLines).
		Order(orderClause(q.Sort, q.Order) + ", id ASC").
		Offset(q.Offset).Limit(q.Limit).
		Find(&purchases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, total, nil
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("purchase_lines.id ASC")
	})
}

// orderClause builds an ORDER BY clause. Purchases default to newest first.
func orderClause(sort, order string) string {
	column, ok := purchaseSortColumns[sort]
	if !ok {
		column = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(order, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s", column, dir)
}
