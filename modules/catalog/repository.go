package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/storefront/domain/catalog"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a category or product does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateName is returned when a category name is already taken.
	ErrDuplicateName = errors.New("category name already exists")
)

// productSortColumns maps accepted sort fields to columns.
var productSortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"created_at": "created_at",
}

var categorySortColumns = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

// ProductQuery selects a page of products.
type ProductQuery struct {
	Offset         int
	Limit          int
	Sort           string
	Order          string
	CategoryID     string
	Name           string
	IncludeRetired bool
}

// CategoryQuery selects a page of categories.
type CategoryQuery struct {
	Offset         int
	Limit          int
	Sort           string
	Order          string
	Name           string
	IncludeRetired bool
}

// Repository persists categories and products.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to a single transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// EnsureDefaultCategory returns the Default category, creating or
// re-activating it when needed.
func (r *Repository) EnsureDefaultCategory(ctx context.Context) (*domain.Category, error) {
	c, err := r.FindCategoryByName(ctx, domain.DefaultCategoryName)
	switch {
	case err == nil:
		if !c.IsActive() {
			if err := r.SetCategoryLifecycle(ctx, c.ID, domain.LifecycleActive); err != nil {
				return nil, err
			}
			c.Lifecycle = domain.LifecycleActive
		}
		return c, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	c = &domain.Category{
		ID:        uuid.New().String(),
		Name:      domain.DefaultCategoryName,
		Lifecycle: domain.LifecycleActive,
	}
	if err := r.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			// Created concurrently.
			return r.FindCategoryByName(ctx, domain.DefaultCategoryName)
		}
		return nil, err
	}
	return c, nil
}

// CreateCategory inserts a category.
func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

// FindCategory finds a category by ID.
func (r *Repository) FindCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindCategoryByName finds a category by its exact name.
func (r *Repository) FindCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.WithContext(ctx).First(&c, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// RenameCategory changes the name of a category.
func (r *Repository) RenameCategory(ctx context.Context, id, name string) error {
	err := r.db.WithContext(ctx).Model(&domain.Category{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "updated_at": time.Now()}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateName
	}
	return err
}

// SetCategoryLifecycle updates the lifecycle state of a category.
func (r *Repository) SetCategoryLifecycle(ctx context.Context, id string, l domain.Lifecycle) error {
	return r.db.WithContext(ctx).Model(&domain.Category{}).
		Where("id = ?", id).
		Updates(map[string]any{"lifecycle": l, "updated_at": time.Now()}).Error
}

// ReassignProducts moves every product of category from to category to and
// returns how many rows moved. Retired products move too, so no product ever
// references a retired category.
func (r *Repository) ReassignProducts(ctx context.Context, from, to string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("category_id = ?", from).
		Updates(map[string]any{"category_id": to, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

// ListCategories returns a page of categories with the total count.
func (r *Repository) ListCategories(ctx context.Context, q CategoryQuery) ([]domain.Category, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if !q.IncludeRetired {
			db = db.Where("lifecycle = ?", domain.LifecycleActive)
		}
		if q.Name != "" {
			db = db.Where("LOWER(name) LIKE ? ESCAPE '\\'", likePattern(q.Name))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Category{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	var categories []domain.Category
	err := r.db.WithContext(ctx).Scopes(filter).
		Order(orderClause(categorySortColumns[q.Sort], q.Order) + ", id ASC").
		Offset(q.Offset).Limit(q.Limit).
		Find(&categories).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, total, nil
}

// CreateProduct inserts a product.
func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// UpdateProductFields writes only the given columns of an active product.
// It reports false when the product is missing or retired.
func (r *Repository) UpdateProductFields(ctx context.Context, id string, fields map[string]any) (bool, error) {
	updates := map[string]any{"updated_at": time.Now()}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND lifecycle = ?", id, domain.LifecycleActive).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindProduct finds a product by ID.
func (r *Repository) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SetProductLifecycle updates the lifecycle state of a product.
func (r *Repository) SetProductLifecycle(ctx context.Context, id string, l domain.Lifecycle) error {
	return r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"lifecycle": l, "updated_at": time.Now()}).Error
}

// AdjustStock atomically adds delta to a product's stock. It reports false
// when the product does not exist or the result would be negative.
func (r *Repository) AdjustStock(ctx context.Context, id string, delta int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Updates(map[string]any{"stock": gorm.Expr("stock + ?", delta), "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListProducts returns a page of products with the total count.
func (r *Repository) ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if !q.IncludeRetired {
			db = db.Where("lifecycle = ?", domain.LifecycleActive)
		}
		if q.CategoryID != "" {
			db = db.Where("category_id = ?", q.CategoryID)
		}
		if q.Name != "" {
			db = db.Where("LOWER(name) LIKE ? ESCAPE '\\'", likePattern(q.Name))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []domain.Product
	// id as a tie breaker keeps pages stable
	err := r.db.WithContext(ctx).Scopes(filter).
		Order(orderClause(productSortColumns[q.Sort], q.Order) + ", id ASC").
		Offset(q.Offset).Limit(q.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// ProductIDsInCategory returns the IDs of every product referencing a
// category, retired ones included.
func (r *Repository) ProductIDsInCategory(ctx context.Context, categoryID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("category_id = ?", categoryID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// orderClause builds an ORDER BY clause from whitelisted input. Unknown
// columns fall back to name.
func orderClause(column, order string) string {
	if column == "" {
		column = "name"
	}
	dir := "ASC"
	if strings.EqualFold(order, "desc") {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", column, dir)
}

// likePattern builds a case-insensitive substring pattern with LIKE
// wildcards in the input escaped.
func likePattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
