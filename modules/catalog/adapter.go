package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/storefront/domain/catalog"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// CatalogPort is the catalog API other modules use.
type CatalogPort interface {
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*domain.Category, error)
	GetCategory(ctx context.Context, req GetCategoryRequest) (*domain.Category, error)
	ListCategories(ctx context.Context, req ListCategoriesRequest) (*CategoryListResponse, error)
	UpdateCategory(ctx context.Context, req UpdateCategoryRequest) (*domain.Category, error)
	RetireCategory(ctx context.Context, id string) (*RetireCategoryResponse, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*domain.Product, error)
	GetProduct(ctx context.Context, req GetProductRequest) (*domain.Product, error)
	ListProducts(ctx context.Context, req ListProductsRequest) (*ProductListResponse, error)
	UpdateProduct(ctx context.Context, req UpdateProductRequest) (*domain.Product, error)
	RetireProduct(ctx context.Context, id string) error
	RestockProduct(ctx context.Context, req RestockProductRequest) (*domain.Product, error)
}

// CatalogAdapter implements CatalogPort using the service container.
type CatalogAdapter struct {
	container mono.ServiceContainer
}

var _ CatalogPort = (*CatalogAdapter)(nil)

// NewCatalogAdapter creates a new CatalogAdapter.
func NewCatalogAdapter(container mono.ServiceContainer) *CatalogAdapter {
	return &CatalogAdapter{
		container: container,
	}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// CreateCategory creates a category.
func (a *CatalogAdapter) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*domain.Category, error) {
	var resp domain.Category
	if err := call(ctx, a.container, "create-category", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCategory retrieves a category.
func (a *CatalogAdapter) GetCategory(ctx context.Context, req GetCategoryRequest) (*domain.Category, error) {
	var resp domain.Category
	if err := call(ctx, a.container, "get-category", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCategories returns a page of categories.
func (a *CatalogAdapter) ListCategories(ctx context.Context, req ListCategoriesRequest) (*CategoryListResponse, error) {
	var resp CategoryListResponse
	if err := call(ctx, a.container, "list-categories", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateCategory renames a category.
func (a *CatalogAdapter) UpdateCategory(ctx context.Context, req UpdateCategoryRequest) (*domain.Category, error) {
	var resp domain.Category
	if err := call(ctx, a.container, "update-category", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RetireCategory retires a category and moves its products to Default.
func (a *CatalogAdapter) RetireCategory(ctx context.Context, id string) (*RetireCategoryResponse, error) {
	req := RetireCategoryRequest{ID: id}
	var resp RetireCategoryResponse
	if err := call(ctx, a.container, "retire-category", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateProduct creates a product.
func (a *CatalogAdapter) CreateProduct(ctx context.Context, req CreateProductRequest) (*domain.Product, error) {
	var resp domain.Product
	if err := call(ctx, a.container, "create-product", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProduct retrieves a product.
func (a *CatalogAdapter) GetProduct(ctx context.Context, req GetProductRequest) (*domain.Product, error) {
	var resp domain.Product
	if err := call(ctx, a.container, "get-product", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListProducts returns a page of products.
func (a *CatalogAdapter) ListProducts(ctx context.Context, req ListProductsRequest) (*ProductListResponse, error) {
	var resp ProductListResponse
	if err := call(ctx, a.container, "list-products", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProduct applies partial product changes.
func (a *CatalogAdapter) UpdateProduct(ctx context.Context, req UpdateProductRequest) (*domain.Product, error) {
	var resp domain.Product
	if err := call(ctx, a.container, "update-product", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RetireProduct retires a product.
func (a *CatalogAdapter) RetireProduct(ctx context.Context, id string) error {
	req := RetireProductRequest{ID: id}
	var resp AckResponse
	return call(ctx, a.container, "retire-product", &req, &resp)
}

// RestockProduct adjusts a product's stock.
func (a *CatalogAdapter) RestockProduct(ctx context.Context, req RestockProductRequest) (*domain.Product, error) {
	var resp domain.Product
	if err := call(ctx, a.container, "restock-product", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
