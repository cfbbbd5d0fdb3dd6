package notification

import (
	"context"
	"testing"

	"github.com/example/storefront/events"
	"github.com/go-monolith/mono/pkg/types"
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

func TestHandlers_RecordNotifications(t *testing.T) {
	m := NewModule(10, &mockLogger{})
	ctx := context.Background()

	require.NoError(t, m.handlePurchaseCreated(ctx, events.PurchaseCreatedEvent{PurchaseID: "p1", Reference: "ABC234DEF5", UserID: "u1", Total: "12.50"}, nil))
	require.NoError(t, m.handlePurchasePaid(ctx, events.PurchasePaidEvent{PurchaseID: "p1", Reference: "ABC234DEF5", UserID: "u1", ReceiptKey: "receipt_p1.txt"}, nil))
	require.NoError(t, m.handlePurchaseCanceled(ctx, events.PurchaseCanceledEvent{PurchaseID: "p2", Reference: "XYZ234DEF5", UserID: "u2"}, nil))
	require.NoError(t, m.handleCategoryRetired(ctx, events.CategoryRetiredEvent{CategoryID: "c1", Name: "Mugs", ReassignedCount: 3}, nil))

	got := m.Notifications()
	require.Len(t, got, 4)
	assert.Equal(t, "purchase_created", got[0].Type)
	assert.Equal(t, "Order ABC234DEF5 placed, total 12.50", got[0].Message)
	assert.Equal(t, "Order ABC234DEF5 paid, receipt ready", got[1].Message)
	assert.Equal(t, "purchase_canceled", got[2].Type)
	assert.Equal(t, "u2", got[2].UserID)
	assert.Equal(t, `Category "Mugs" retired, 3 products moved to Default`, got[3].Message)
	for _, n := range got {
		assert.False(t, n.Timestamp.IsZero())
	}
}

func TestRecord_DropsOldest(t *testing.T) {
	m := NewModule(2, &mockLogger{})
	for _, id := range []string{"a", "b", "c"} {
		m.record(Notification{SubjectID: id})
	}

	got := m.Notifications()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].SubjectID)
	assert.Equal(t, "c", got[1].SubjectID)
}

func TestNewModule_DefaultCapacity(t *testing.T) {
	m := NewModule(0, &mockLogger{})
	assert.Equal(t, DefaultCapacity, m.capacity)
	assert.Equal(t, "notification", m.Name())
}
