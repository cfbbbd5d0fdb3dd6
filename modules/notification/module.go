// Package notification reacts to store events. It logs each one and keeps the
// most recent notifications in memory for inspection.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/storefront/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// DefaultCapacity is the number of notifications kept when none is given.
const DefaultCapacity = 256

// Notification is one recorded event.
type Notification struct {
	SubjectID string    `json:"subject_id"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationModule consumes purchase and catalog events.
type NotificationModule struct {
	mu       sync.RWMutex
	entries  []Notification
	capacity int
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*NotificationModule)(nil)
	_ mono.EventConsumerModule = (*NotificationModule)(nil)
)

// NewModule creates a new NotificationModule that keeps up to capacity
// notifications. Older entries are dropped first.
func NewModule(capacity int, logger types.Logger) *NotificationModule {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &NotificationModule{
		entries:  make([]Notification, 0, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *NotificationModule) Name() string {
	return "notification"
}

// RegisterEventConsumers subscribes to every store event.
func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.PurchaseCreatedV1, m.handlePurchaseCreated, m); err != nil {
		return fmt.Errorf("failed to register PurchaseCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.PurchasePaidV1, m.handlePurchasePaid, m); err != nil {
		return fmt.Errorf("failed to register PurchasePaid consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.PurchaseCanceledV1, m.handlePurchaseCanceled, m); err != nil {
		return fmt.Errorf("failed to register PurchaseCanceled consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.CategoryRetiredV1, m.handleCategoryRetired, m); err != nil {
		return fmt.Errorf("failed to register CategoryRetired consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", "PurchaseCreated, PurchasePaid, PurchaseCanceled, CategoryRetired")
	return nil
}

func (m *NotificationModule) handlePurchaseCreated(_ context.Context, event events.PurchaseCreatedEvent, _ *mono.Msg) error {
	m.logger.Info("Purchase created", "purchase_id", event.PurchaseID, "reference", event.Reference, "user_id", event.UserID, "total", event.Total)
	m.record(Notification{
		SubjectID: event.PurchaseID,
		Type:      "purchase_created",
		UserID:    event.UserID,
		Message:   fmt.Sprintf("Order %s placed, total %s", event.Reference, event.Total),
	})
	return nil
}

func (m *NotificationModule) handlePurchasePaid(_ context.Context, event events.PurchasePaidEvent, _ *mono.Msg) error {
	m.logger.Info("Purchase paid", "purchase_id", event.PurchaseID, "reference", event.Reference, "receipt_key", event.ReceiptKey)
	msg := fmt.Sprintf("Order %s paid", event.Reference)
	if event.ReceiptKey != "" {
		msg += ", receipt ready"
	}
	m.record(Notification{
		SubjectID: event.PurchaseID,
		Type:      "purchase_paid",
		UserID:    event.UserID,
		Message:   msg,
	})
	return nil
}

func (m *NotificationModule) handlePurchaseCanceled(_ context.Context, event events.PurchaseCanceledEvent, _ *mono.Msg) error {
	m.logger.Info("Purchase canceled", "purchase_id", event.PurchaseID, "reference", event.Reference, "lines", len(event.Lines))
	m.record(Notification{
		SubjectID: event.PurchaseID,
		Type:      "purchase_canceled",
		UserID:    event.UserID,
		Message:   fmt.Sprintf("Order %s canceled", event.Reference),
	})
	return nil
}

func (m *NotificationModule) handleCategoryRetired(_ context.Context, event events.CategoryRetiredEvent, _ *mono.Msg) error {
	m.logger.Info("Category retired", "category_id", event.CategoryID, "name", event.Name, "reassigned", event.ReassignedCount)
	m.record(Notification{
		SubjectID: event.CategoryID,
		Type:      "category_retired",
		Message:   fmt.Sprintf("Category %q retired, %d products moved to Default", event.Name, event.ReassignedCount),
	})
	return nil
}

func (m *NotificationModule) record(n Notification) {
	n.Timestamp = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == m.capacity {
		copy(m.entries, m.entries[1:])
		m.entries = m.entries[:len(m.entries)-1]
	}
	m.entries = append(m.entries, n)
}

// Notifications returns the recorded notifications, oldest first.
func (m *NotificationModule) Notifications() []Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Notification, len(m.entries))
	copy(result, m.entries)
	return result
}

// Start starts the module.
func (m *NotificationModule) Start(_ context.Context) error {
	m.logger.Info("Notification module started, listening for store events")
	return nil
}

// Stop stops the module.
func (m *NotificationModule) Stop(_ context.Context) error {
	m.logger.Info("Notification module stopped")
	return nil
}
