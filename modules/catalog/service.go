package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/storefront/domain/apperror"
	domain "github.com/example/storefront/domain/catalog"
	"github.com/example/storefront/domain/page"
	"github.com/example/storefront/modules/cache"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// CatalogService implements catalog operations. Product reads go through the cache
// when one is configured.
type CatalogService struct {
	repo    *Repository
	cache   cache.CacheService
	sfGroup singleflight.Group
	listGen atomic.Int64
	logger  types.Logger
}

// NewCatalogService creates a catalog service. c may be nil to disable caching.
func NewCatalogService(repo *Repository, c cache.CacheService, logger types.Logger) *CatalogService {
	s := &CatalogService{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
	// Cached list pages from a previous process run must not be served.
	s.listGen.Store(time.Now().UnixNano())
	return s
}

// EnsureDefaultCategory provisions the Default category. It is idempotent.
func (s *CatalogService) EnsureDefaultCategory(ctx context.Context) (*domain.Category, error) {
	c, err := s.repo.EnsureDefaultCategory(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to ensure default category", err)
	}
	return c, nil
}

// CreateCategory creates an active category.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.New(apperror.KindInvalidInput, "category name is required")
	}

	c := &domain.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Lifecycle: domain.LifecycleActive,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, apperror.Newf(apperror.KindConflict, "category %q already exists", name)
		}
		return nil, apperror.Internal("failed to create category", err)
	}
	return c, nil
}

// GetCategory returns a category. Retired categories are hidden unless
// includeRetired is set.
func (s *CatalogService) GetCategory(ctx context.Context, id string, includeRetired bool) (*domain.Category, error) {
	c, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "category")
	}
	if !c.IsActive() && !includeRetired {
		return nil, apperror.New(apperror.KindNotFound, "category not found")
	}
	return c, nil
}

// ListCategories returns a page of categories.
func (s *CatalogService) ListCategories(ctx context.Context, req ListCategoriesRequest) (*CategoryListResponse, error) {
	if err := validateSort(req.Sort, req.Order, categorySortColumns); err != nil {
		return nil, err
	}
	offset, limit := page.Normalize(req.Offset, req.Limit)
	categories, total, err := s.repo.ListCategories(ctx, CategoryQuery{
		Offset:         offset,
		Limit:          limit,
		Sort:           req.Sort,
		Order:          req.Order,
		Name:           strings.TrimSpace(req.Name),
		IncludeRetired: req.IncludeRetired,
	})
	if err != nil {
		return nil, apperror.Internal("failed to list categories", err)
	}
	return &CategoryListResponse{
		Categories: nonNil(categories),
		Total:      total,
		Offset:     offset,
		Limit:      limit,
	}, nil
}

// RenameCategory renames an active category. Default keeps its name.
func (s *CatalogService) RenameCategory(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.New(apperror.KindInvalidInput, "category name is required")
	}
	c, err := s.GetCategory(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if c.IsDefault() {
		return nil, apperror.New(apperror.KindInvalidState, "the Default category cannot be renamed")
	}
	if err := s.repo.RenameCategory(ctx, id, name); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, apperror.Newf(apperror.KindConflict, "category %q already exists", name)
		}
		return nil, apperror.Internal("failed to rename category", err)
	}
	c.Name = name
	return c, nil
}

// RetireCategory moves every product of the category to Default and retires
// the category, in one transaction.
func (s *CatalogService) RetireCategory(ctx context.Context, id string) (*RetireCategoryResponse, error) {
	var resp RetireCategoryResponse
	var movedIDs []string

	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		c, err := tx.FindCategory(ctx, id)
		if err != nil {
			return notFoundOrInternal(err, "category")
		}
		if c.IsDefault() {
			return apperror.New(apperror.KindInvalidState, "the Default category cannot be retired")
		}
		if !c.IsActive() {
			return apperror.New(apperror.KindInvalidState, "category already retired")
		}

		def, err := tx.EnsureDefaultCategory(ctx)
		if err != nil {
			return apperror.Internal("failed to ensure default category", err)
		}
		ids, err := tx.ProductIDsInCategory(ctx, c.ID)
		if err != nil {
			return apperror.Internal("failed to load category products", err)
		}
		moved, err := tx.ReassignProducts(ctx, c.ID, def.ID)
		if err != nil {
			return apperror.Internal("failed to reassign products", err)
		}
		movedIDs = ids
		if err := tx.SetCategoryLifecycle(ctx, c.ID, domain.LifecycleRetired); err != nil {
			return apperror.Internal("failed to retire category", err)
		}

		c.Lifecycle = domain.LifecycleRetired
		resp = RetireCategoryResponse{Category: *c, DefaultCategoryID: def.ID, Reassigned: moved}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.Reassigned > 0 {
		s.InvalidateProducts(ctx, movedIDs...)
		s.logger.Info("Category retired", "category_id", id, "reassigned", resp.Reassigned)
	}
	return &resp, nil
}

// CreateProduct creates an active product in an active category.
func (s *CatalogService) CreateProduct(ctx context.Context, req CreateProductRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.New(apperror.KindInvalidInput, "product name is required")
	}
	if err := validatePriceAndStock(&req.Price, &req.Stock); err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, req.CategoryID, req.CategoryName)
	if err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price.Round(2),
		Stock:       req.Stock,
		CategoryID:  category.ID,
		Lifecycle:   domain.LifecycleActive,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, apperror.Internal("failed to create product", err)
	}

	s.invalidateLists()
	return p, nil
}

// GetProduct returns a product, using the cache for active products.
func (s *CatalogService) GetProduct(ctx context.Context, id string, includeRetired bool) (*domain.Product, error) {
	if includeRetired {
		p, err := s.repo.FindProduct(ctx, id)
		if err != nil {
			return nil, notFoundOrInternal(err, "product")
		}
		return p, nil
	}

	key := productCacheKey(id)
	var cached domain.Product
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	val, err, _ := s.sfGroup.Do(key, func() (any, error) {
		return s.repo.FindProduct(ctx, id)
	})
	if err != nil {
		return nil, notFoundOrInternal(err, "product")
	}
	p := val.(*domain.Product)
	if !p.IsActive() {
		return nil, apperror.New(apperror.KindNotFound, "product not found")
	}

	s.cacheSet(ctx, key, p)
	// singleflight callers share the pointer
	out := *p
	return &out, nil
}

// ListProducts returns a page of products, using the cache.
func (s *CatalogService) ListProducts(ctx context.Context, req ListProductsRequest) (*ProductListResponse, error) {
	if err := validateSort(req.Sort, req.Order, productSortColumns); err != nil {
		return nil, err
	}
	offset, limit := page.Normalize(req.Offset, req.Limit)
	q := ProductQuery{
		Offset:         offset,
		Limit:          limit,
		Sort:           req.Sort,
		Order:          strings.ToLower(req.Order),
		CategoryID:     req.CategoryID,
		Name:           strings.TrimSpace(req.Name),
		IncludeRetired: req.IncludeRetired,
	}

	key := s.listCacheKey(q)
	var cached ProductListResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	val, err, _ := s.sfGroup.Do(key, func() (any, error) {
		products, total, err := s.repo.ListProducts(ctx, q)
		if err != nil {
			return nil, err
		}
		return &ProductListResponse{
			Products: nonNil(products),
			Total:    total,
			Offset:   offset,
			Limit:    limit,
		}, nil
	})
	if err != nil {
		return nil, apperror.Internal("failed to list products", err)
	}
	resp := val.(*ProductListResponse)
	s.cacheSet(ctx, key, resp)
	return resp, nil
}

// UpdateProduct applies partial changes to an active product. Only the
// columns the caller set are written, so concurrent stock movements survive.
func (s *CatalogService) UpdateProduct(ctx context.Context, req UpdateProductRequest) (*domain.Product, error) {
	p, err := s.repo.FindProduct(ctx, req.ID)
	if err != nil {
		return nil, notFoundOrInternal(err, "product")
	}
	if !p.IsActive() {
		return nil, apperror.New(apperror.KindNotFound, "product not found")
	}
	if err := validatePriceAndStock(req.Price, req.Stock); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.New(apperror.KindInvalidInput, "product name is required")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		fields["price"] = req.Price.Round(2)
	}
	if req.Stock != nil {
		fields["stock"] = *req.Stock
	}
	if req.CategoryID != nil && *req.CategoryID != p.CategoryID {
		c, err := s.GetCategory(ctx, *req.CategoryID, false)
		if err != nil {
			return nil, err
		}
		fields["category_id"] = c.ID
	}

	ok, err := s.repo.UpdateProductFields(ctx, p.ID, fields)
	if err != nil {
		return nil, apperror.Internal("failed to update product", err)
	}
	if !ok {
		return nil, apperror.New(apperror.KindNotFound, "product not found")
	}
	s.InvalidateProducts(ctx, p.ID)

	updated, err := s.repo.FindProduct(ctx, p.ID)
	if err != nil {
		return nil, notFoundOrInternal(err, "product")
	}
	return updated, nil
}

// RetireProduct hides a product from listings and checkout.
func (s *CatalogService) RetireProduct(ctx context.Context, id string) error {
	p, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return notFoundOrInternal(err, "product")
	}
	if !p.IsActive() {
		return apperror.New(apperror.KindInvalidState, "product already retired")
	}
	if err := s.repo.SetProductLifecycle(ctx, id, domain.LifecycleRetired); err != nil {
		return apperror.Internal("failed to retire product", err)
	}
	s.InvalidateProducts(ctx, id)
	return nil
}

// AdjustStock atomically adds delta to a product's stock.
func (s *CatalogService) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	if delta == 0 {
		return nil, apperror.New(apperror.KindInvalidInput, "delta must not be zero")
	}
	ok, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, apperror.Internal("failed to adjust stock", err)
	}
	if !ok {
		if _, err := s.repo.FindProduct(ctx, id); err != nil {
			return nil, notFoundOrInternal(err, "product")
		}
		return nil, apperror.New(apperror.KindInvalidInput, "stock cannot go below zero")
	}
	s.InvalidateProducts(ctx, id)

	p, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "product")
	}
	return p, nil
}

// InvalidateProducts drops cached entries for the given products and every
// cached list page.
func (s *CatalogService) InvalidateProducts(ctx context.Context, ids ...string) {
	s.invalidateLists()
	if s.cache == nil {
		return
	}
	for _, id := range ids {
		if err := s.cache.Delete(ctx, productCacheKey(id)); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate cached product", "product_id", id)
		}
	}
}

func (s *CatalogService) resolveCategory(ctx context.Context, id, name string) (*domain.Category, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	switch {
	case id != "":
		return s.GetCategory(ctx, id, false)
	case name != "":
		c, err := s.repo.FindCategoryByName(ctx, name)
		if err != nil {
			return nil, notFoundOrInternal(err, "category")
		}
		if !c.IsActive() {
			return nil, apperror.New(apperror.KindNotFound, "category not found")
		}
		return c, nil
	default:
		return s.EnsureDefaultCategory(ctx)
	}
}

func (s *CatalogService) invalidateLists() {
	s.listGen.Add(1)
}

func (s *CatalogService) listCacheKey(q ProductQuery) string {
	return fmt.Sprintf("products:%d:%d:%d:%s:%s:%s:%t:%q",
		s.listGen.Load(), q.Offset, q.Limit, q.Sort, q.Order, q.CategoryID, q.IncludeRetired, q.Name)
}

func productCacheKey(id string) string {
	return "product:" + id
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		// Fall through to the database.
		s.logger.WithError(err).Warn("Cache read failed", "key", key)
		return false
	}
	return found
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).Warn("Cache write failed", "key", key)
	}
}

func validateSort(sort, order string, allowed map[string]string) error {
	if sort != "" {
		if _, ok := allowed[sort]; !ok {
			return apperror.Newf(apperror.KindInvalidInput, "unsupported sort field %q", sort)
		}
	}
	switch strings.ToLower(order) {
	case "", "asc", "desc":
		return nil
	}
	return apperror.New(apperror.KindInvalidInput, "order must be asc or desc")
}

func validatePriceAndStock(price *decimal.Decimal, stock *int) error {
	if price != nil && price.IsNegative() {
		return apperror.New(apperror.KindInvalidInput, "price must not be negative")
	}
	if stock != nil && *stock < 0 {
		return apperror.New(apperror.KindInvalidInput, "stock must not be negative")
	}
	return nil
}

func notFoundOrInternal(err error, entity string) error {
	if errors.Is(err, ErrNotFound) {
		return apperror.Newf(apperror.KindNotFound, "%s not found", entity)
	}
	return apperror.Internal("failed to load "+entity, err)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
