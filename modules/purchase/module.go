// Package purchase turns carts into purchases and runs the purchase state
// machine: pending purchases are either paid or canceled, never both.
package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/storefront/domain/apperror"
	domain "github.com/example/storefront/domain/purchase"
	"github.com/example/storefront/events"
	"github.com/example/storefront/modules/database"
	"github.com/example/storefront/modules/receipt"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// PurchaseModule provides checkout and purchase services.
type PurchaseModule struct {
	db          *database.PluginModule
	receiptPort receipt.ReceiptPort
	hasher      *AccountHasher
	service     *PurchaseService
	eventBus    mono.EventBus
	logger      types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*PurchaseModule)(nil)
	_ mono.ServiceProviderModule = (*PurchaseModule)(nil)
	_ mono.UsePluginModule       = (*PurchaseModule)(nil)
	_ mono.DependentModule       = (*PurchaseModule)(nil)
	_ mono.EventEmitterModule    = (*PurchaseModule)(nil)
	_ mono.HealthCheckableModule = (*PurchaseModule)(nil)
)

// NewModule creates a new PurchaseModule. A nil hasher selects
// DefaultAccountHasher.
func NewModule(hasher *AccountHasher, logger types.Logger) *PurchaseModule {
	if hasher == nil {
		hasher = DefaultAccountHasher()
	}
	return &PurchaseModule{
		hasher: hasher,
		logger: logger,
	}
}

// Name returns the module name.
func (m *PurchaseModule) Name() string {
	return "purchase"
}

// Dependencies returns the list of module dependencies.
func (m *PurchaseModule) Dependencies() []string {
	return []string{"receipt"}
}

// SetDependencyServiceContainer receives the receipt service container.
func (m *PurchaseModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "receipt" {
		m.receiptPort = receipt.NewReceiptAdapter(container)
	}
}

// SetPlugin receives the database plugin.
func (m *PurchaseModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "db" {
		return
	}
	db, ok := plugin.(*database.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for db", "alias", alias, "expected", "*database.PluginModule")
		return
	}
	m.db = db
}

// SetEventBus receives the event bus used to publish purchase events.
func (m *PurchaseModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *PurchaseModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.PurchaseCreatedV1.ToBase(),
		events.PurchasePaidV1.ToBase(),
		events.PurchaseCanceledV1.ToBase(),
	}
}

// Start builds the service.
func (m *PurchaseModule) Start(_ context.Context) error {
	if m.db == nil || m.db.DB() == nil {
		return errors.New("required plugin 'db' not registered")
	}
	if m.receiptPort == nil {
		m.logger.Warn("Receipt dependency not set, payments will report receipt errors")
	}

	newReference, err := NewReferenceGenerator()
	if err != nil {
		return fmt.Errorf("failed to create reference generator: %w", err)
	}
	m.service = NewPurchaseService(NewRepository(m.db.DB()), m.hasher, newReference, m.receiptPort, m.logger)
	m.logger.Info("Purchase module started (depends on: receipt)")
	return nil
}

// Stop shuts down the module.
func (m *PurchaseModule) Stop(_ context.Context) error {
	m.logger.Info("Purchase module stopped")
	return nil
}

// Health reports whether the module is ready.
func (m *PurchaseModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"receipts_enabled": m.receiptPort != nil,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *PurchaseModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(container, "checkout", json.Unmarshal, json.Marshal, m.handleCheckout); err != nil {
		return fmt.Errorf("failed to register checkout service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "get-purchase", json.Unmarshal, json.Marshal, m.handleGet); err != nil {
		return fmt.Errorf("failed to register get-purchase service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "list-purchases", json.Unmarshal, json.Marshal, m.handleList); err != nil {
		return fmt.Errorf("failed to register list-purchases service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "update-purchase", json.Unmarshal, json.Marshal, m.handleUpdate); err != nil {
		return fmt.Errorf("failed to register update-purchase service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "cancel-purchase", json.Unmarshal, json.Marshal, m.handleCancel); err != nil {
		return fmt.Errorf("failed to register cancel-purchase service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "pay-purchase", json.Unmarshal, json.Marshal, m.handlePay); err != nil {
		return fmt.Errorf("failed to register pay-purchase service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "get-purchase-receipt", json.Unmarshal, json.Marshal, m.handleReceipt); err != nil {
		return fmt.Errorf("failed to register get-purchase-receipt service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "checkout, get-purchase, list-purchases, update-purchase, cancel-purchase, pay-purchase, get-purchase-receipt")
	return nil
}

func (m *PurchaseModule) handleCheckout(ctx context.Context, req CheckoutRequest, _ *mono.Msg) (PurchaseResponse, error) {
	p, err := m.service.Checkout(ctx, req.Actor, CheckoutInput{
		CartID:          req.CartID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentAccount:  req.PaymentAccount,
	})
	if err != nil {
		return PurchaseResponse{}, err
	}
	m.logger.Info("Purchase created", "purchase_id", p.ID, "reference", p.Reference, "user_id", p.UserID, "total", p.Total.StringFixed(2))

	m.publish("PurchaseCreated", p.ID, func(bus mono.EventBus) error {
		return events.PurchaseCreatedV1.Publish(bus, events.PurchaseCreatedEvent{
			PurchaseID: p.ID,
			Reference:  p.Reference,
			UserID:     p.UserID,
			Total:      p.Total.StringFixed(2),
			Lines:      lineEvents(p.Lines),
			CreatedAt:  p.CreatedAt,
		}, nil)
	})
	return toPurchaseResponse(p), nil
}

func (m *PurchaseModule) handleGet(ctx context.Context, req PurchaseIDRequest, _ *mono.Msg) (PurchaseResponse, error) {
	p, err := m.service.Get(ctx, req.Actor, req.PurchaseID)
	if err != nil {
		return PurchaseResponse{}, err
	}
	return toPurchaseResponse(p), nil
}

func (m *PurchaseModule) handleList(ctx context.Context, req ListPurchasesRequest, _ *mono.Msg) (ListPurchasesResponse, error) {
	purchases, total, offset, limit, err := m.service.List(ctx, req.Actor, ListInput{
		UserID: req.UserID,
		Status: req.Status,
		Offset: req.Offset,
		Limit:  req.Limit,
		Sort:   req.Sort,
		Order:  req.Order,
	})
	if err != nil {
		return ListPurchasesResponse{}, err
	}

	resp := ListPurchasesResponse{
		Purchases: make([]PurchaseResponse, 0, len(purchases)),
		Total:     total,
		Offset:    offset,
		Limit:     limit,
	}
	for i := range purchases {
		resp.Purchases = append(resp.Purchases, toPurchaseResponse(&purchases[i]))
	}
	return resp, nil
}

func (m *PurchaseModule) handleUpdate(ctx context.Context, req UpdatePurchaseRequest, _ *mono.Msg) (PurchaseResponse, error) {
	p, err := m.service.Update(ctx, req.Actor, req.PurchaseID, PurchaseUpdate{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentAccount:  req.PaymentAccount,
	})
	if err != nil {
		return PurchaseResponse{}, err
	}
	m.logger.Info("Purchase updated", "purchase_id", p.ID)
	return toPurchaseResponse(p), nil
}

func (m *PurchaseModule) handleCancel(ctx context.Context, req PurchaseIDRequest, _ *mono.Msg) (PurchaseResponse, error) {
	p, err := m.service.Cancel(ctx, req.Actor, req.PurchaseID)
	if err != nil {
		return PurchaseResponse{}, err
	}
	m.logger.Info("Purchase canceled", "purchase_id", p.ID, "reference", p.Reference)

	m.publish("PurchaseCanceled", p.ID, func(bus mono.EventBus) error {
		event := events.PurchaseCanceledEvent{
			PurchaseID: p.ID,
			Reference:  p.Reference,
			UserID:     p.UserID,
			Lines:      lineEvents(p.Lines),
		}
		if p.CanceledAt != nil {
			event.CanceledAt = *p.CanceledAt
		}
		return events.PurchaseCanceledV1.Publish(bus, event, nil)
	})
	return toPurchaseResponse(p), nil
}

func (m *PurchaseModule) handlePay(ctx context.Context, req PurchaseIDRequest, _ *mono.Msg) (PayPurchaseResponse, error) {
	result, err := m.service.Pay(ctx, req.Actor, req.PurchaseID)
	if err != nil {
		return PayPurchaseResponse{}, err
	}
	p := result.Purchase
	m.logger.Info("Purchase paid", "purchase_id", p.ID, "reference", p.Reference, "receipt_key", p.ReceiptKey)

	m.publish("PurchasePaid", p.ID, func(bus mono.EventBus) error {
		event := events.PurchasePaidEvent{
			PurchaseID: p.ID,
			Reference:  p.Reference,
			UserID:     p.UserID,
			Total:      p.Total.StringFixed(2),
			ReceiptKey: p.ReceiptKey,
		}
		if p.PaidAt != nil {
			event.PaidAt = *p.PaidAt
		}
		return events.PurchasePaidV1.Publish(bus, event, nil)
	})

	resp := PayPurchaseResponse{Purchase: toPurchaseResponse(p)}
	if result.ReceiptErr != nil {
		resp.ReceiptError = "receipt generation failed: " + apperror.MessageOf(result.ReceiptErr)
	}
	return resp, nil
}

func (m *PurchaseModule) handleReceipt(ctx context.Context, req PurchaseIDRequest, _ *mono.Msg) (ReceiptResponse, error) {
	doc, err := m.service.Receipt(ctx, req.Actor, req.PurchaseID)
	if err != nil {
		return ReceiptResponse{}, err
	}
	return ReceiptResponse{
		PurchaseID:  req.PurchaseID,
		Key:         doc.Key,
		ContentType: doc.ContentType,
		Content:     doc.Content,
	}, nil
}

// publish sends an event after the change committed. Failures are logged and
// never reach the caller.
func (m *PurchaseModule) publish(name, purchaseID string, send func(mono.EventBus) error) {
	if m.eventBus == nil {
		return
	}
	if err := send(m.eventBus); err != nil {
		m.logger.WithError(err).Warn("Failed to publish "+name+" event", "purchase_id", purchaseID)
	}
}

func lineEvents(lines []domain.Line) []events.PurchaseLineEvent {
	out := make([]events.PurchaseLineEvent, 0, len(lines))
	for _, l := range lines {
		out = append(out, events.PurchaseLineEvent{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
