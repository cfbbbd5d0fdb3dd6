package purchase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/example/storefront/domain/apperror"
	domaincatalog "github.com/example/storefront/domain/catalog"
	domain "github.com/example/storefront/domain/purchase"
	domainuser "github.com/example/storefront/domain/user"
	"github.com/example/storefront/modules/cart"
	"github.com/example/storefront/modules/catalog"
	"github.com/example/storefront/modules/database"
	"github.com/example/storefront/modules/receipt"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validCard   = "4242 4242 4242 4242"
	invalidCard = "4242 4242 4242 4241"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

// fakeReceipts keeps rendered receipts in memory.
type fakeReceipts struct {
	mu      sync.Mutex
	docs    map[string][]byte
	renders int
	fail    bool
}

func newFakeReceipts() *fakeReceipts {
	return &fakeReceipts{docs: make(map[string][]byte)}
}

func (f *fakeReceipts) RenderReceipt(_ context.Context, req receipt.RenderReceiptRequest) (*receipt.RenderReceiptResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders++
	if f.fail {
		return nil, errors.New("render-receipt request failed: [internal] storage unavailable")
	}
	doc := receipt.Render(req)
	f.docs[req.PurchaseID] = doc
	return &receipt.RenderReceiptResponse{Key: receipt.Key(req.PurchaseID), Size: int64(len(doc))}, nil
}

func (f *fakeReceipts) GetReceipt(_ context.Context, purchaseID string) (*receipt.GetReceiptResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[purchaseID]
	if !ok {
		return nil, errors.New("get-receipt request failed: [not_found] receipt not found")
	}
	return &receipt.GetReceiptResponse{
		Key:         receipt.Key(purchaseID),
		ContentType: receipt.ContentType,
		Size:        int64(len(doc)),
		Content:     doc,
	}, nil
}

func (f *fakeReceipts) renderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renders
}

type fixture struct {
	svc      *PurchaseService
	catalog  *catalog.CatalogService
	carts    *cart.CartService
	receipts *fakeReceipts
}

type catalogReader struct {
	svc *catalog.CatalogService
}

func (r catalogReader) GetProduct(ctx context.Context, req catalog.GetProductRequest) (*domaincatalog.Product, error) {
	return r.svc.GetProduct(ctx, req.ID, req.IncludeRetired)
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(database.MemoryPath, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	cat := catalog.NewCatalogService(catalog.NewRepository(db), nil, &mockLogger{})
	ref, err := NewReferenceGenerator()
	require.NoError(t, err)
	receipts := newFakeReceipts()

	return &fixture{
		svc:      NewPurchaseService(NewRepository(db), NewAccountHasher(1, 8*1024, 1), ref, receipts, &mockLogger{}),
		catalog:  cat,
		carts:    cart.NewCartService(cart.NewRepository(db), catalogReader{svc: cat}),
		receipts: receipts,
	}
}

func client(id string) domainuser.Claims {
	return domainuser.Claims{UserID: id, Email: id + "@example.com", Role: domainuser.RoleClient}
}

func admin() domainuser.Claims {
	return domainuser.Claims{UserID: "admin", Email: "admin@example.com", Role: domainuser.RoleAdmin}
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *domaincatalog.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), catalog.CreateProductRequest{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) add(t *testing.T, userID, productID string, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.catalog.GetProduct(context.Background(), productID, true)
	require.NoError(t, err)
	return p.Stock
}

func cardCheckout() CheckoutInput {
	return CheckoutInput{
		ShippingAddress: "1 Main St, Springfield",
		PaymentMethod:   string(domain.PaymentCreditCard),
		PaymentAccount:  validCard,
	}
}

func (f *fixture) checkout(t *testing.T, userID string) *domain.Purchase {
	t.Helper()
	p, err := f.svc.Checkout(context.Background(), client(userID), cardCheckout())
	require.NoError(t, err)
	return p
}

func TestCheckout_CreatesPendingPurchase(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.50", 5)
	cup := f.product(t, "Cup", "3.25", 5)
	f.add(t, "u1", mug.ID, 2)
	f.add(t, "u1", cup.ID, 1)

	p := f.checkout(t, "u1")

	assert.Equal(t, domain.StatusPending, p.Status)
	assert.Equal(t, "u1", p.UserID)
	assert.True(t, isValidReference(p.Reference), p.Reference)
	assert.Equal(t, "24.25", p.Total.StringFixed(2))
	require.Len(t, p.Lines, 2)
	assert.Equal(t, "Mug", p.Lines[0].ProductName)
	assert.Equal(t, "21.00", p.Lines[0].LineTotal.StringFixed(2))
	assert.Equal(t, "4242", p.PaymentAccountLast4)
	assert.NotContains(t, p.PaymentAccountHash, "4242")

	ok, err := verifyAccount(validCard, p.PaymentAccountHash)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 3, f.stock(t, mug.ID))
	assert.Equal(t, 4, f.stock(t, cup.ID))

	view, err := f.carts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestCheckout_ValidationOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 1)

	tests := []struct {
		name string
		in   CheckoutInput
		kind apperror.Kind
	}{
		{
			name: "bad method wins over everything",
			in:   CheckoutInput{PaymentMethod: "cash", PaymentAccount: invalidCard},
			kind: apperror.KindInvalidInput,
		},
		{
			name: "missing account",
			in:   CheckoutInput{PaymentMethod: "credit_card", ShippingAddress: "x"},
			kind: apperror.KindInvalidInput,
		},
		{
			name: "missing address before checksum",
			in:   CheckoutInput{PaymentMethod: "credit_card", PaymentAccount: invalidCard},
			kind: apperror.KindInvalidInput,
		},
		{
			name: "checksum",
			in:   CheckoutInput{PaymentMethod: "credit_card", PaymentAccount: invalidCard, ShippingAddress: "x"},
			kind: apperror.KindInvalidPaymentAccount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Checkout(ctx, client("u1"), tt.in)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}

	// Nothing was written by the rejected attempts.
	assert.Equal(t, 5, f.stock(t, mug.ID))
	view, err := f.carts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)
}

func TestCheckout_PayPalSkipsChecksum(t *testing.T) {
	f := setup(t)
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 1)

	p, err := f.svc.Checkout(context.Background(), client("u1"), CheckoutInput{
		ShippingAddress: "1 Main St",
		PaymentMethod:   string(domain.PaymentPayPal),
		PaymentAccount:  "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPayPal, p.PaymentMethod)
	assert.Equal(t, "**** .com", p.MaskedAccount())
}

func TestCheckout_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, client("nocart"), cardCheckout())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = f.carts.Get(ctx, "empty")
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, client("empty"), cardCheckout())
	assert.Equal(t, apperror.KindEmptyCart, apperror.KindOf(err))

	_, err = f.svc.Checkout(ctx, domainuser.Claims{}, cardCheckout())
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	scarce := f.product(t, "Scarce", "5.00", 1)
	f.add(t, "greedy", scarce.ID, 2)
	_, err = f.svc.Checkout(ctx, client("greedy"), cardCheckout())
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Equal(t, 1, f.stock(t, scarce.ID))

	gone := f.product(t, "Gone", "5.00", 3)
	f.add(t, "late", gone.ID, 1)
	require.NoError(t, f.catalog.RetireProduct(ctx, gone.ID))
	_, err = f.svc.Checkout(ctx, client("late"), cardCheckout())
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestCheckout_ForeignCartID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "owner", mug.ID, 1)
	view, err := f.carts.Get(ctx, "owner")
	require.NoError(t, err)

	in := cardCheckout()
	in.CartID = view.ID
	_, err = f.svc.Checkout(ctx, client("intruder"), in)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	p, err := f.svc.Checkout(ctx, client("owner"), in)
	require.NoError(t, err)
	assert.Equal(t, "owner", p.UserID)
}

func TestCheckout_ConcurrentDoubleSubmit(t *testing.T) {
	f := setup(t)
	mug := f.product(t, "Mug", "10.00", 10)
	f.add(t, "u1", mug.ID, 3)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Checkout(context.Background(), client("u1"), cardCheckout())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, apperror.KindEmptyCart, apperror.KindOf(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, f.stock(t, mug.ID))
}

func TestCancel_RestocksOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 2)
	p := f.checkout(t, "u1")
	require.Equal(t, 3, f.stock(t, mug.ID))

	canceled, err := f.svc.Cancel(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, canceled.Status)
	assert.NotNil(t, canceled.CanceledAt)
	assert.Equal(t, 5, f.stock(t, mug.ID))

	_, err = f.svc.Cancel(ctx, client("u1"), p.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
	assert.Equal(t, 5, f.stock(t, mug.ID))

	_, err = f.svc.Pay(ctx, client("u1"), p.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
	assert.Equal(t, 0, f.receipts.renderCount())
}

func TestCancel_RestocksRetiredProduct(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 2)
	p := f.checkout(t, "u1")
	require.NoError(t, f.catalog.RetireProduct(ctx, mug.ID))

	_, err := f.svc.Cancel(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t, mug.ID))
}

func TestPay_RendersReceipt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 1)
	p := f.checkout(t, "u1")

	result, err := f.svc.Pay(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	require.NoError(t, result.ReceiptErr)
	assert.Equal(t, domain.StatusPaid, result.Purchase.Status)
	assert.NotNil(t, result.Purchase.PaidAt)
	assert.Equal(t, receipt.Key(p.ID), result.Purchase.ReceiptKey)

	stored, err := f.svc.Get(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.Key(p.ID), stored.ReceiptKey)

	doc, err := f.svc.Receipt(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(doc.Content), p.Reference))
	assert.Contains(t, string(doc.Content), "**** 4242")

	_, err = f.svc.Pay(ctx, client("u1"), p.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))

	_, err = f.svc.Cancel(ctx, client("u1"), p.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
	assert.Equal(t, 4, f.stock(t, mug.ID))
}

func TestPay_ReceiptFailureKeepsPaid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 1)
	p := f.checkout(t, "u1")
	f.receipts.fail = true

	result, err := f.svc.Pay(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	require.Error(t, result.ReceiptErr)
	assert.Equal(t, domain.StatusPaid, result.Purchase.Status)
	assert.Empty(t, result.Purchase.ReceiptKey)

	// The receipt is rendered on first fetch once storage recovers.
	f.receipts.fail = false
	doc, err := f.svc.Receipt(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.Key(p.ID), doc.Key)

	stored, err := f.svc.Get(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.Key(p.ID), stored.ReceiptKey)
}

func TestPay_NoReceiptService(t *testing.T) {
	f := setup(t)
	f.svc.receipts = nil
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 1)
	p := f.checkout(t, "u1")

	result, err := f.svc.Pay(context.Background(), client("u1"), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, result.Purchase.Status)
	assert.Error(t, result.ReceiptErr)
}

func TestReceipt_RequiresPaid(t *testing.T) {
	f := setup(t)
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 1)
	p := f.checkout(t, "u1")

	_, err := f.svc.Receipt(context.Background(), client("u1"), p.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestPurchase_PriceSnapshot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 2)
	p := f.checkout(t, "u1")

	newPrice := decimal.RequireFromString("99.99")
	newName := "Golden Mug"
	_, err := f.catalog.UpdateProduct(ctx, catalog.UpdateProductRequest{ID: mug.ID, Price: &newPrice, Name: &newName})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", got.Total.StringFixed(2))
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Mug", got.Lines[0].ProductName)
	assert.Equal(t, "10.00", got.Lines[0].UnitPrice.StringFixed(2))
}

func TestGet_Visibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 1)
	p := f.checkout(t, "u1")

	_, err := f.svc.Get(ctx, client("u2"), p.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.svc.Cancel(ctx, client("u2"), p.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	got, err := f.svc.Get(ctx, admin(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.svc.Get(ctx, client("u1"), "missing")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = f.svc.Get(ctx, domainuser.Claims{}, p.ID)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	// Admins may act on any purchase.
	_, err = f.svc.Pay(ctx, admin(), p.ID)
	require.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 5)
	f.add(t, "u1", mug.ID, 1)
	p := f.checkout(t, "u1")

	addr := "  2 Side St  "
	got, err := f.svc.Update(ctx, client("u1"), p.ID, PurchaseUpdate{ShippingAddress: &addr})
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", got.ShippingAddress)
	assert.Equal(t, p.PaymentAccountHash, got.PaymentAccountHash)
	assert.True(t, p.Total.Equal(got.Total))

	blank := " "
	_, err = f.svc.Update(ctx, client("u1"), p.ID, PurchaseUpdate{ShippingAddress: &blank})
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	paypal := string(domain.PaymentPayPal)
	_, err = f.svc.Update(ctx, client("u1"), p.ID, PurchaseUpdate{PaymentMethod: &paypal})
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	bad := invalidCard
	_, err = f.svc.Update(ctx, client("u1"), p.ID, PurchaseUpdate{PaymentAccount: &bad})
	assert.Equal(t, apperror.KindInvalidPaymentAccount, apperror.KindOf(err))

	account := "buyer@example.com"
	got, err = f.svc.Update(ctx, client("u1"), p.ID, PurchaseUpdate{PaymentMethod: &paypal, PaymentAccount: &account})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPayPal, got.PaymentMethod)
	assert.Equal(t, ".com", got.PaymentAccountLast4)

	_, err = f.svc.Update(ctx, client("u2"), p.ID, PurchaseUpdate{ShippingAddress: &addr})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.svc.Cancel(ctx, client("u1"), p.ID)
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, client("u1"), p.ID, PurchaseUpdate{ShippingAddress: &addr})
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", "10.00", 50)

	var firsts []*domain.Purchase
	for i := 0; i < 3; i++ {
		f.add(t, "u1", mug.ID, i+1)
		firsts = append(firsts, f.checkout(t, "u1"))
	}
	f.add(t, "u2", mug.ID, 1)
	f.checkout(t, "u2")

	_, err := f.svc.Pay(ctx, client("u1"), firsts[0].ID)
	require.NoError(t, err)

	purchases, total, _, _, err := f.svc.List(ctx, client("u1"), ListInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, p := range purchases {
		assert.Equal(t, "u1", p.UserID)
	}

	// Clients cannot widen the filter to other users.
	_, total, _, _, err = f.svc.List(ctx, client("u1"), ListInput{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, total, _, _, err = f.svc.List(ctx, admin(), ListInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	_, total, _, _, err = f.svc.List(ctx, admin(), ListInput{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	paid, total, _, _, err := f.svc.List(ctx, client("u1"), ListInput{Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, firsts[0].ID, paid[0].ID)

	byTotal, _, _, _, err := f.svc.List(ctx, client("u1"), ListInput{Sort: "total", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, byTotal, 3)
	assert.Equal(t, "30.00", byTotal[0].Total.StringFixed(2))
	assert.Equal(t, "10.00", byTotal[2].Total.StringFixed(2))
	require.Len(t, byTotal[0].Lines, 1)

	paged, total, offset, limit, err := f.svc.List(ctx, client("u1"), ListInput{Sort: "total", Order: "asc", Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, 1, offset)
	assert.Equal(t, 1, limit)
	require.Len(t, paged, 1)
	assert.Equal(t, "20.00", paged[0].Total.StringFixed(2))

	_, _, _, _, err = f.svc.List(ctx, client("u1"), ListInput{Status: "shipped"})
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
	_, _, _, _, err = f.svc.List(ctx, client("u1"), ListInput{Sort: "password"})
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
	_, _, _, _, err = f.svc.List(ctx, client("u1"), ListInput{Order: "sideways"})
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
}
