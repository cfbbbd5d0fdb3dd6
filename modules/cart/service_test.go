package cart

import (
	"context"
	"testing"

	"github.com/example/storefront/domain/apperror"
	domaincatalog "github.com/example/storefront/domain/catalog"
	"github.com/example/storefront/modules/catalog"
	"github.com/example/storefront/modules/database"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

// catalogReader serves product lookups from an in-process catalog service.
type catalogReader struct {
	svc *catalog.CatalogService
}

func (r catalogReader) GetProduct(ctx context.Context, req catalog.GetProductRequest) (*domaincatalog.Product, error) {
	return r.svc.GetProduct(ctx, req.ID, req.IncludeRetired)
}

func setup(t *testing.T) (*CartService, *catalog.CatalogService) {
	t.Helper()
	db, err := database.Open(database.MemoryPath, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	cat := catalog.NewCatalogService(catalog.NewRepository(db), nil, &mockLogger{})
	return NewCartService(NewRepository(db), catalogReader{svc: cat}), cat
}

func product(t *testing.T, cat *catalog.CatalogService, name, price string, stock int) *domaincatalog.Product {
	t.Helper()
	p, err := cat.CreateProduct(context.Background(), catalog.CreateProductRequest{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func TestGet_CreatesEmptyCartOnce(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, first.Lines)
	assert.True(t, first.Subtotal.IsZero())

	second, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := svc.Get(ctx, "u2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	_, err = svc.Get(ctx, "")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestAddItem_MergesAndPrices(t *testing.T) {
	svc, cat := setup(t)
	ctx := context.Background()
	mug := product(t, cat, "Mug", "10.50", 10)
	cup := product(t, cat, "Cup", "3.00", 10)

	_, err := svc.AddItem(ctx, "u1", mug.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", cup.ID, 2)
	require.NoError(t, err)
	v, err := svc.AddItem(ctx, "u1", mug.ID, 2)
	require.NoError(t, err)

	require.Len(t, v.Lines, 2)
	assert.Equal(t, mug.ID, v.Lines[0].ProductID)
	assert.Equal(t, 3, v.Lines[0].Quantity)
	assert.Equal(t, "Mug", v.Lines[0].Name)
	assert.True(t, decimal.RequireFromString("31.50").Equal(v.Lines[0].LineTotal))
	assert.True(t, decimal.RequireFromString("37.50").Equal(v.Subtotal))
	assert.Equal(t, 5, v.ItemCount)
}

func TestAddItem_Rejects(t *testing.T) {
	svc, cat := setup(t)
	ctx := context.Background()
	mug := product(t, cat, "Mug", "10.50", 10)
	retired := product(t, cat, "Old", "1.00", 1)
	require.NoError(t, cat.RetireProduct(ctx, retired.ID))

	tests := []struct {
		name      string
		productID string
		qty       int
		kind      apperror.Kind
	}{
		{"zero quantity", mug.ID, 0, apperror.KindInvalidInput},
		{"negative quantity", mug.ID, -2, apperror.KindInvalidInput},
		{"missing product id", "", 1, apperror.KindInvalidInput},
		{"unknown product", "nope", 1, apperror.KindNotFound},
		{"retired product", retired.ID, 1, apperror.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, "u1", tt.productID, tt.qty)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
}

func TestUpdateRemoveClear(t *testing.T) {
	svc, cat := setup(t)
	ctx := context.Background()
	mug := product(t, cat, "Mug", "10.00", 10)
	cup := product(t, cat, "Cup", "2.00", 10)

	_, err := svc.AddItem(ctx, "u1", mug.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", cup.ID, 1)
	require.NoError(t, err)

	v, err := svc.UpdateItem(ctx, "u1", mug.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Lines[0].Quantity)

	_, err = svc.UpdateItem(ctx, "u1", mug.ID, 0)
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
	_, err = svc.UpdateItem(ctx, "u1", "nope", 1)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	v, err = svc.RemoveItem(ctx, "u1", cup.ID)
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)

	_, err = svc.RemoveItem(ctx, "u1", cup.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	v, err = svc.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, v.Lines)
}

func TestView_FlagsUnavailableLines(t *testing.T) {
	svc, cat := setup(t)
	ctx := context.Background()
	mug := product(t, cat, "Mug", "10.00", 1)
	cup := product(t, cat, "Cup", "2.00", 5)

	_, err := svc.AddItem(ctx, "u1", mug.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", cup.ID, 1)
	require.NoError(t, err)
	require.NoError(t, cat.RetireProduct(ctx, cup.ID))

	v, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, v.Lines, 2)
	assert.False(t, v.Lines[0].Available, "quantity above stock")
	assert.False(t, v.Lines[1].Available, "retired product")
	assert.True(t, v.Subtotal.IsZero())
}
