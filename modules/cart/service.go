package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/example/storefront/domain/apperror"
	domain "github.com/example/storefront/domain/cart"
	domaincatalog "github.com/example/storefront/domain/catalog"
	"github.com/example/storefront/modules/catalog"
	"github.com/shopspring/decimal"
)

// ProductReader looks up sellable products. catalog.CatalogPort satisfies it.
type ProductReader interface {
	GetProduct(ctx context.Context, req catalog.GetProductRequest) (*domaincatalog.Product, error)
}

// CartService manages per-user carts.
type CartService struct {
	repo     *Repository
	products ProductReader
}

// NewCartService creates a new CartService.
func NewCartService(repo *Repository, products ProductReader) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
	}
}

// Get returns the priced cart of a user.
func (s *CartService) Get(ctx context.Context, userID string) (*CartView, error) {
	c, err := s.cartOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// AddItem adds qty of a product, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, qty int) (*CartView, error) {
	if qty < 1 {
		return nil, apperror.New(apperror.KindInvalidInput, "quantity must be at least 1")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperror.New(apperror.KindInvalidInput, "product_id is required")
	}
	if _, err := s.products.GetProduct(ctx, catalog.GetProductRequest{ID: productID}); err != nil {
		return nil, err
	}

	c, err := s.cartOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddQuantity(ctx, c.ID, productID, qty); err != nil {
		return nil, apperror.Internal("failed to add cart item", err)
	}
	return s.view(ctx, c)
}

// UpdateItem sets the quantity of an existing line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, qty int) (*CartView, error) {
	if qty < 1 {
		return nil, apperror.New(apperror.KindInvalidInput, "quantity must be at least 1")
	}
	c, err := s.cartOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetQuantity(ctx, c.ID, productID, qty); err != nil {
		return nil, lineError(err, "failed to update cart item")
	}
	return s.view(ctx, c)
}

// RemoveItem deletes the line of a product.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*CartView, error) {
	c, err := s.cartOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, c.ID, productID); err != nil {
		return nil, lineError(err, "failed to remove cart item")
	}
	return s.view(ctx, c)
}

// Clear empties the cart of a user.
func (s *CartService) Clear(ctx context.Context, userID string) (*CartView, error) {
	c, err := s.cartOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Clear(ctx, c.ID); err != nil {
		return nil, apperror.Internal("failed to clear cart", err)
	}
	return s.view(ctx, c)
}

func (s *CartService) cartOf(ctx context.Context, userID string) (*domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.New(apperror.KindUnauthorized, "user is required")
	}
	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, apperror.Internal("failed to load cart", err)
	}
	return c, nil
}

func (s *CartService) view(ctx context.Context, c *domain.Cart) (*CartView, error) {
	rows, err := s.repo.ListLines(ctx, c.ID)
	if err != nil {
		return nil, apperror.Internal("failed to load cart lines", err)
	}

	v := &CartView{
		ID:        c.ID,
		UserID:    c.UserID,
		Lines:     make([]LineView, 0, len(rows)),
		Subtotal:  decimal.Zero,
		UpdatedAt: c.UpdatedAt,
	}
	for _, row := range rows {
		line := LineView{
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
			UnitPrice: decimal.Zero,
			LineTotal: decimal.Zero,
		}
		if row.Name != nil {
			line.Name = *row.Name
		}
		if row.Price.Valid {
			line.UnitPrice = row.Price.Decimal
			line.LineTotal = row.Price.Decimal.Mul(decimal.NewFromInt(int64(row.Quantity))).Round(2)
		}
		line.Available = row.Lifecycle != nil && *row.Lifecycle == domaincatalog.LifecycleActive &&
			row.Stock != nil && *row.Stock >= row.Quantity
		if line.Available {
			v.Subtotal = v.Subtotal.Add(line.LineTotal)
		}
		v.ItemCount += row.Quantity
		v.Lines = append(v.Lines, line)
	}
	v.Subtotal = v.Subtotal.Round(2)
	return v, nil
}

func lineError(err error, msg string) error {
	if errors.Is(err, ErrLineNotFound) {
		return apperror.New(apperror.KindNotFound, "product is not in the cart")
	}
	return apperror.Internal(msg, err)
}
