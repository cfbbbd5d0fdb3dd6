package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/storefront/domain/apperror"
	domaincatalog "github.com/example/storefront/domain/catalog"
	domainuser "github.com/example/storefront/domain/user"
	"github.com/example/storefront/modules/cart"
	"github.com/example/storefront/modules/catalog"
	"github.com/example/storefront/modules/purchase"
	"github.com/example/storefront/modules/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
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

// Tokens are "admin" and "client"; anything else is rejected.
type mockUsers struct {
	user.UserPort
}

func (m *mockUsers) ValidateToken(_ context.Context, token string) (*domainuser.Claims, error) {
	switch token {
	case "admin":
		return &domainuser.Claims{UserID: "admin-1", Email: "admin@example.com", Role: domainuser.RoleAdmin}, nil
	case "client":
		return &domainuser.Claims{UserID: "client-1", Email: "client@example.com", Role: domainuser.RoleClient}, nil
	}
	return nil, errors.New("validate-token request failed: invalid token")
}

func (m *mockUsers) GetUser(_ context.Context, userID string) (*user.UserResponse, error) {
	return &user.UserResponse{ID: userID, Email: userID + "@example.com"}, nil
}

type mockCatalog struct {
	catalog.CatalogPort
	lastList   catalog.ListProductsRequest
	retired    string
	productErr error
}

func (m *mockCatalog) ListProducts(_ context.Context, req catalog.ListProductsRequest) (*catalog.ProductListResponse, error) {
	m.lastList = req
	return &catalog.ProductListResponse{Products: []domaincatalog.Product{}, Offset: req.Offset, Limit: req.Limit}, nil
}

func (m *mockCatalog) GetProduct(_ context.Context, req catalog.GetProductRequest) (*domaincatalog.Product, error) {
	if m.productErr != nil {
		return nil, m.productErr
	}
	return &domaincatalog.Product{ID: req.ID, Name: "Mug"}, nil
}

func (m *mockCatalog) RetireCategory(_ context.Context, id string) (*catalog.RetireCategoryResponse, error) {
	m.retired = id
	return &catalog.RetireCategoryResponse{Category: domaincatalog.Category{ID: id}, Reassigned: 2}, nil
}

type mockCarts struct {
	cart.CartPort
}

func (m *mockCarts) AddItem(_ context.Context, req cart.AddCartItemRequest) (*cart.CartView, error) {
	return &cart.CartView{UserID: req.UserID, ItemCount: req.Quantity}, nil
}

type mockPurchases struct {
	purchase.PurchasePort
	checkoutErr error
	lastList    purchase.ListPurchasesRequest
	lastActor   domainuser.Claims
	receiptErr  string
}

func (m *mockPurchases) Checkout(_ context.Context, req purchase.CheckoutRequest) (*purchase.PurchaseResponse, error) {
	m.lastActor = req.Actor
	if m.checkoutErr != nil {
		return nil, m.checkoutErr
	}
	return &purchase.PurchaseResponse{ID: "p1", UserID: req.Actor.UserID, Status: "pending"}, nil
}

func (m *mockPurchases) ListPurchases(_ context.Context, req purchase.ListPurchasesRequest) (*purchase.ListPurchasesResponse, error) {
	m.lastList = req
	return &purchase.ListPurchasesResponse{Purchases: []purchase.PurchaseResponse{}}, nil
}

func (m *mockPurchases) PayPurchase(_ context.Context, req purchase.PurchaseIDRequest) (*purchase.PayPurchaseResponse, error) {
	return &purchase.PayPurchaseResponse{
		Purchase:     purchase.PurchaseResponse{ID: req.PurchaseID, Status: "paid"},
		ReceiptError: m.receiptErr,
	}, nil
}

func (m *mockPurchases) GetReceipt(_ context.Context, req purchase.PurchaseIDRequest) (*purchase.ReceiptResponse, error) {
	return &purchase.ReceiptResponse{
		PurchaseID:  req.PurchaseID,
		Key:         "receipt_" + req.PurchaseID + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Content:     []byte("RECEIPT"),
	}, nil
}

type testEnv struct {
	app       *fiber.App
	catalog   *mockCatalog
	purchases *mockPurchases
}

func newTestEnv(limit RateLimitConfig) *testEnv {
	users := &mockUsers{}
	cat := &mockCatalog{}
	purchases := &mockPurchases{}
	h := NewHandlers(users, cat, &mockCarts{}, purchases, &mockLogger{})
	return &testEnv{
		app:       NewApp(h, users, limit, &mockLogger{}),
		catalog:   cat,
		purchases: purchases,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperror.Kind
		want int
	}{
		{apperror.KindInvalidInput, http.StatusBadRequest},
		{apperror.KindInvalidPaymentAccount, http.StatusBadRequest},
		{apperror.KindEmptyCart, http.StatusBadRequest},
		{apperror.KindUnauthorized, http.StatusUnauthorized},
		{apperror.KindForbidden, http.StatusForbidden},
		{apperror.KindNotFound, http.StatusNotFound},
		{apperror.KindInvalidState, http.StatusConflict},
		{apperror.KindConflict, http.StatusConflict},
		{apperror.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})

	tests := []struct {
		name   string
		header string
		want   int
		body   string
	}{
		{name: "missing header", want: http.StatusUnauthorized, body: "Authorization header is required"},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized, body: "Invalid authorization header format"},
		{name: "invalid token", header: "Bearer nope", want: http.StatusUnauthorized, body: "Invalid or expired token"},
		{name: "valid token", header: "Bearer client", want: http.StatusOK, body: "client-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := env.app.Test(req, -1)
			require.NoError(t, err)
			data, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Contains(t, string(data), tt.body)
		})
	}
}

func TestRequireRole(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})

	resp, body := env.do(t, http.MethodDelete, "/api/v1/categories/c1", "client", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, `"error":"forbidden"`)
	assert.Empty(t, env.catalog.retired)

	resp, body = env.do(t, http.MethodDelete, "/api/v1/categories/c1", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"reassigned":2`)
	assert.Equal(t, "c1", env.catalog.retired)
}

func TestErrorMapping_FromPorts(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})

	tests := []struct {
		err  error
		want int
		kind string
		msg  string
	}{
		{
			err:  errors.New("checkout request failed: [invalid_payment_account] credit card number failed checksum validation"),
			want: http.StatusBadRequest, kind: "invalid_payment_account", msg: "credit card number failed checksum validation",
		},
		{
			err:  errors.New("checkout request failed: [empty_cart] cart is empty"),
			want: http.StatusBadRequest, kind: "empty_cart", msg: "cart is empty",
		},
		{
			err:  errors.New("checkout request failed: [conflict] insufficient stock for \"Mug\""),
			want: http.StatusConflict, kind: "conflict", msg: "insufficient stock",
		},
		{
			err:  errors.New("checkout request failed: [internal] failed to reserve stock: database is locked"),
			want: http.StatusInternalServerError, kind: "internal", msg: "an internal error occurred",
		},
		{
			err:  errors.New("checkout request failed: nats: timeout"),
			want: http.StatusInternalServerError, kind: "internal", msg: "an internal error occurred",
		},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			env.purchases.checkoutErr = tt.err
			resp, body := env.do(t, http.MethodPost, "/api/v1/purchases", "client", `{"payment_method":"credit_card"}`)
			assert.Equal(t, tt.want, resp.StatusCode)

			var got ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			assert.False(t, got.Success)
			assert.Equal(t, tt.kind, got.Error)
			assert.Contains(t, got.Message, tt.msg)
			assert.NotContains(t, got.Message, "database is locked")
		})
	}
}

func TestCheckout_UsesAuthenticatedActor(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})

	resp, body := env.do(t, http.MethodPost, "/api/v1/purchases", "client", `{"shipping_address":"x","payment_method":"paypal","payment_account":"a@b.c"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, body, `"success":true`)
	assert.Equal(t, "client-1", env.purchases.lastActor.UserID)
	assert.Equal(t, domainuser.RoleClient, env.purchases.lastActor.Role)
}

func TestListPurchases_PassesQuery(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})

	resp, _ := env.do(t, http.MethodGet, "/api/v1/purchases?user_id=u9&status=paid&offset=5&limit=7&sort=total&order=asc", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got := env.purchases.lastList
	assert.Equal(t, "u9", got.UserID)
	assert.Equal(t, "paid", got.Status)
	assert.Equal(t, 5, got.Offset)
	assert.Equal(t, 7, got.Limit)
	assert.Equal(t, "total", got.Sort)
	assert.Equal(t, "asc", got.Order)
	assert.True(t, got.Actor.IsAdmin())
}

func TestProducts_SearchAndRetiredVisibility(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})

	resp, _ := env.do(t, http.MethodGet, "/api/v1/products/search?q=mug", "client", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mug", env.catalog.lastList.Name)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/products/search", "client", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.do(t, http.MethodGet, "/api/v1/products?include_retired=true&category_id=c1", "client", "")
	assert.False(t, env.catalog.lastList.IncludeRetired)
	assert.Equal(t, "c1", env.catalog.lastList.CategoryID)

	env.do(t, http.MethodGet, "/api/v1/products?include_retired=true", "admin", "")
	assert.True(t, env.catalog.lastList.IncludeRetired)

	env.catalog.productErr = errors.New("get-product request failed: [not_found] product not found")
	resp, body := env.do(t, http.MethodGet, "/api/v1/products/p1", "client", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "product not found")
}

func TestCart_AddItem(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})

	resp, body := env.do(t, http.MethodPost, "/api/v1/cart/items", "client", `{"product_id":"p1","quantity":3}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"user_id":"client-1"`)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/cart/items", "client", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPay_ReceiptErrorStillOK(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})
	env.purchases.receiptErr = "receipt generation failed: storage unavailable"

	resp, body := env.do(t, http.MethodPost, "/api/v1/purchases/p1/pay", "client", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"paid"`)
	assert.Contains(t, body, `"receipt_error":"receipt generation failed: storage unavailable"`)
}

func TestGetReceipt_ReturnsDocument(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})

	resp, body := env.do(t, http.MethodGet, "/api/v1/purchases/p1/receipt", "client", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "RECEIPT", body)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "receipt_p1.txt")
}

func TestGetUser_SelfOrAdmin(t *testing.T) {
	env := newTestEnv(RateLimitConfig{})

	resp, _ := env.do(t, http.MethodGet, "/api/v1/users/client-1", "client", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/someone-else", "client", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/someone-else", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiter_InMemory(t *testing.T) {
	env := newTestEnv(RateLimitConfig{Max: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/profile", "client", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := env.do(t, http.MethodGet, "/api/v1/profile", "client", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "rate_limited")

	// Health is outside the limited group.
	resp, _ = env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestModule_StartRequiresDependencies(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	assert.Equal(t, "api", m.Name())
	assert.Equal(t, ":3000", m.config.Addr)
	assert.ElementsMatch(t, []string{"user", "catalog", "cart", "purchase"}, m.Dependencies())
	assert.Error(t, m.Start(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
}
