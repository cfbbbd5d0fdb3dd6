package receipt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/storefront/domain/apperror"
	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
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

func sampleRequest() RenderReceiptRequest {
	return RenderReceiptRequest{
		PurchaseID:      uuid.New().String(),
		Reference:       "K7Q2M9XP4D",
		UserID:          "user-1",
		Status:          "paid",
		PaymentMethod:   "credit_card",
		MaskedAccount:   "**** 0366",
		ShippingAddress: "Av. Siempre Viva 742",
		Total:           "43.00",
		Lines: []ReceiptLine{
			{ProductName: "Mug", Quantity: 2, UnitPrice: "10.50", LineTotal: "21.00"},
			{ProductName: "Tea", Quantity: 1, UnitPrice: "22.00", LineTotal: "22.00"},
		},
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		PaidAt:    time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	req := sampleRequest()
	text := string(Render(req))

	for _, want := range []string{
		req.PurchaseID,
		"K7Q2M9XP4D",
		"credit_card **** 0366",
		"Av. Siempre Viva 742",
		"Mug",
		"10.50",
		"TOTAL: 43.00",
		"2026-03-01T10:05:00Z",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "4532015112830366")
}

func TestRender_UnpaidShowsDash(t *testing.T) {
	req := sampleRequest()
	req.PaidAt = time.Time{}
	assert.True(t, strings.Contains(string(Render(req)), "Paid:      -"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "receipt_abc.txt", Key("abc"))
}

func createTestModule(t *testing.T) *ReceiptModule {
	t.Helper()
	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError),
	)
	require.NoError(t, err)

	plugin, err := fsjetstream.New(fsjetstream.Config{
		Buckets: []fsjetstream.BucketConfig{
			{
				Name:        BucketName,
				Description: "Test receipts",
				MaxBytes:    10 * 1024 * 1024,
				Storage:     fsjetstream.MemoryStorage,
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, app.RegisterPlugin(plugin, "storage"))
	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})

	m := NewModule(&mockLogger{})
	m.SetPlugin("storage", plugin)
	require.NoError(t, m.Start(context.Background()))
	return m
}

func TestReceiptService_StoreAndGet(t *testing.T) {
	m := createTestModule(t)
	ctx := context.Background()
	req := sampleRequest()

	stored, err := m.service.Store(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Key(req.PurchaseID), stored.Key)
	assert.Positive(t, stored.Size)

	got, err := m.service.Get(ctx, req.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, ContentType, got.ContentType)
	assert.Equal(t, Render(req), got.Content)

	// Rendering again replaces the document.
	req.Total = "50.00"
	_, err = m.service.Store(ctx, req)
	require.NoError(t, err)
	got, err = m.service.Get(ctx, req.PurchaseID)
	require.NoError(t, err)
	assert.Contains(t, string(got.Content), "TOTAL: 50.00")
}

func TestReceiptService_Errors(t *testing.T) {
	m := createTestModule(t)
	ctx := context.Background()

	_, err := m.service.Get(ctx, uuid.New().String())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = m.service.Get(ctx, "../etc/passwd")
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	req := sampleRequest()
	req.PurchaseID = ""
	_, err = m.service.Store(ctx, req)
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
}

func TestReceiptModule_Health(t *testing.T) {
	m := NewModule(&mockLogger{})
	assert.False(t, m.Health(context.Background()).Healthy)
	assert.Error(t, m.Start(context.Background()))

	started := createTestModule(t)
	assert.True(t, started.Health(context.Background()).Healthy)
}
