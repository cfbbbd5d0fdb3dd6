package catalog

import (
	domain "github.com/example/storefront/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateCategoryRequest is the request for the create-category service.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// GetCategoryRequest is the request for the get-category service.
type GetCategoryRequest struct {
	ID             string `json:"id"`
	IncludeRetired bool   `json:"include_retired"`
}

// ListCategoriesRequest is the request for the list-categories service.
type ListCategoriesRequest struct {
	Offset         int    `json:"offset"`
	Limit          int    `json:"limit"`
	Sort           string `json:"sort"`
	Order          string `json:"order"`
	Name           string `json:"name"`
	IncludeRetired bool   `json:"include_retired"`
}

// CategoryListResponse is a page of categories.
type CategoryListResponse struct {
	Categories []domain.Category `json:"categories"`
	Total      int64             `json:"total"`
	Offset     int               `json:"offset"`
	Limit      int               `json:"limit"`
}

// UpdateCategoryRequest is the request for the update-category service.
type UpdateCategoryRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RetireCategoryRequest is the request for the retire-category service.
type RetireCategoryRequest struct {
	ID string `json:"id"`
}

// RetireCategoryResponse reports the outcome of a category retirement.
type RetireCategoryResponse struct {
	Category          domain.Category `json:"category"`
	DefaultCategoryID string          `json:"default_category_id"`
	Reassigned        int64           `json:"reassigned"`
}

// CreateProductRequest is the request for the create-product service. The
// category is chosen by ID, else by name, else Default.
type CreateProductRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
}

// GetProductRequest is the request for the get-product service.
type GetProductRequest struct {
	ID             string `json:"id"`
	IncludeRetired bool   `json:"include_retired"`
}

// ListProductsRequest is the request for the list-products service.
type ListProductsRequest struct {
	Offset         int    `json:"offset"`
	Limit          int    `json:"limit"`
	Sort           string `json:"sort"`
	Order          string `json:"order"`
	CategoryID     string `json:"category_id"`
	Name           string `json:"name"`
	IncludeRetired bool   `json:"include_retired"`
}

// ProductListResponse is a page of products.
type ProductListResponse struct {
	Products []domain.Product `json:"products"`
	Total    int64            `json:"total"`
	Offset   int              `json:"offset"`
	Limit    int              `json:"limit"`
}

// UpdateProductRequest is the request for the update-product service. Nil
// fields are left untouched.
type UpdateProductRequest struct {
	ID          string           `json:"id"`
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	CategoryID  *string          `json:"category_id,omitempty"`
}

// RetireProductRequest is the request for the retire-product service.
type RetireProductRequest struct {
	ID string `json:"id"`
}

// RestockProductRequest is the request for the restock-product service.
// Delta may be negative for corrections.
type RestockProductRequest struct {
	ID    string `json:"id"`
	Delta int    `json:"delta"`
}

// AckResponse acknowledges an operation with no payload.
type AckResponse struct {
	OK bool `json:"ok"`
}
