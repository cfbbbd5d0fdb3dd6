// Package cart provides per-user shopping carts.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/storefront/modules/catalog"
	"github.com/example/storefront/modules/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// CartModule provides cart services.
type CartModule struct {
	db          *database.PluginModule
	catalogPort catalog.CatalogPort
	service     *CartService
	logger      types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*CartModule)(nil)
	_ mono.ServiceProviderModule = (*CartModule)(nil)
	_ mono.UsePluginModule       = (*CartModule)(nil)
	_ mono.DependentModule       = (*CartModule)(nil)
)

// NewModule creates a new CartModule.
func NewModule(logger types.Logger) *CartModule {
	return &CartModule{
		logger: logger,
	}
}

// Name returns the module name.
func (m *CartModule) Name() string {
	return "cart"
}

// Dependencies returns the list of module dependencies.
func (m *CartModule) Dependencies() []string {
	return []string{"catalog"}
}

// SetDependencyServiceContainer receives the catalog service container.
func (m *CartModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "catalog" {
		m.catalogPort = catalog.NewCatalogAdapter(container)
	}
}

// SetPlugin receives the database plugin.
func (m *CartModule) SetPlugin(alias string, plugin mono.PluginModule) {
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

// Start builds the service.
func (m *CartModule) Start(_ context.Context) error {
	if m.db == nil || m.db.DB() == nil {
		return errors.New("required plugin 'db' not registered")
	}
	if m.catalogPort == nil {
		return errors.New("catalog dependency not set")
	}
	m.service = NewCartService(NewRepository(m.db.DB()), m.catalogPort)
	m.logger.Info("Cart module started (depends on: catalog)")
	return nil
}

// Stop shuts down the module.
func (m *CartModule) Stop(_ context.Context) error {
	m.logger.Info("Cart module stopped")
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *CartModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(container, "get-cart", json.Unmarshal, json.Marshal, m.handleGetCart); err != nil {
		return fmt.Errorf("failed to register get-cart service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "add-cart-item", json.Unmarshal, json.Marshal, m.handleAddItem); err != nil {
		return fmt.Errorf("failed to register add-cart-item service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "update-cart-item", json.Unmarshal, json.Marshal, m.handleUpdateItem); err != nil {
		return fmt.Errorf("failed to register update-cart-item service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "remove-cart-item", json.Unmarshal, json.Marshal, m.handleRemoveItem); err != nil {
		return fmt.Errorf("failed to register remove-cart-item service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "clear-cart", json.Unmarshal, json.Marshal, m.handleClear); err != nil {
		return fmt.Errorf("failed to register clear-cart service: %w", err)
	}

	m.logger.Info("Registered services", "services", "get-cart, add-cart-item, update-cart-item, remove-cart-item, clear-cart")
	return nil
}

func (m *CartModule) handleGetCart(ctx context.Context, req GetCartRequest, _ *mono.Msg) (CartView, error) {
	return deref(m.service.Get(ctx, req.UserID))
}

func (m *CartModule) handleAddItem(ctx context.Context, req AddCartItemRequest, _ *mono.Msg) (CartView, error) {
	return deref(m.service.AddItem(ctx, req.UserID, req.ProductID, req.Quantity))
}

func (m *CartModule) handleUpdateItem(ctx context.Context, req UpdateCartItemRequest, _ *mono.Msg) (CartView, error) {
	return deref(m.service.UpdateItem(ctx, req.UserID, req.ProductID, req.Quantity))
}

func (m *CartModule) handleRemoveItem(ctx context.Context, req RemoveCartItemRequest, _ *mono.Msg) (CartView, error) {
	return deref(m.service.RemoveItem(ctx, req.UserID, req.ProductID))
}

func (m *CartModule) handleClear(ctx context.Context, req ClearCartRequest, _ *mono.Msg) (CartView, error) {
	return deref(m.service.Clear(ctx, req.UserID))
}

func deref(v *CartView, err error) (CartView, error) {
	if err != nil {
		return CartView{}, err
	}
	return *v, nil
}
