// Package catalog provides categories and products, including the Default
// category fallback used when a category is retired.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/storefront/domain/catalog"
	"github.com/example/storefront/events"
	"github.com/example/storefront/modules/cache"
	"github.com/example/storefront/modules/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// CatalogModule provides catalog services.
type CatalogModule struct {
	db          *database.PluginModule
	cachePlugin *cache.PluginModule
	service     *CatalogService
	eventBus    mono.EventBus
	logger      types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*CatalogModule)(nil)
	_ mono.ServiceProviderModule = (*CatalogModule)(nil)
	_ mono.UsePluginModule       = (*CatalogModule)(nil)
	_ mono.EventEmitterModule    = (*CatalogModule)(nil)
	_ mono.EventConsumerModule   = (*CatalogModule)(nil)
	_ mono.HealthCheckableModule = (*CatalogModule)(nil)
)

// NewModule creates a new CatalogModule.
func NewModule(logger types.Logger) *CatalogModule {
	return &CatalogModule{
		logger: logger,
	}
}

// Name returns the module name.
func (m *CatalogModule) Name() string {
	return "catalog"
}

// SetPlugin receives the database plugin and the optional cache plugin.
func (m *CatalogModule) SetPlugin(alias string, plugin mono.PluginModule) {
	switch alias {
	case "db":
		db, ok := plugin.(*database.PluginModule)
		if !ok {
			m.logger.Error("Invalid plugin type for db", "alias", alias, "expected", "*database.PluginModule")
			return
		}
		m.db = db
	case "cache":
		c, ok := plugin.(*cache.PluginModule)
		if !ok {
			m.logger.Error("Invalid plugin type for cache", "alias", alias, "expected", "*cache.PluginModule")
			return
		}
		m.cachePlugin = c
	}
}

// SetEventBus receives the event bus used to publish catalog events.
func (m *CatalogModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *CatalogModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.CategoryRetiredV1.ToBase(),
	}
}

// RegisterEventConsumers subscribes to purchase events that change stock.
func (m *CatalogModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.PurchaseCreatedV1, m.handlePurchaseCreated, m); err != nil {
		return fmt.Errorf("failed to register PurchaseCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.PurchaseCanceledV1, m.handlePurchaseCanceled, m); err != nil {
		return fmt.Errorf("failed to register PurchaseCanceled consumer: %w", err)
	}
	m.logger.Info("Registered event consumers", "events", "PurchaseCreated, PurchaseCanceled")
	return nil
}

// Start builds the service and provisions the Default category.
func (m *CatalogModule) Start(ctx context.Context) error {
	if m.db == nil || m.db.DB() == nil {
		return errors.New("required plugin 'db' not registered")
	}

	var c cache.CacheService
	if m.cachePlugin != nil {
		c = m.cachePlugin.Port()
	}
	if c == nil {
		m.logger.Warn("Cache plugin not available, product reads go to the database")
	}

	m.service = NewCatalogService(NewRepository(m.db.DB()), c, m.logger)

	def, err := m.service.EnsureDefaultCategory(ctx)
	if err != nil {
		return err
	}
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, catalog events will not be published")
	}

	m.logger.Info("Catalog module started", "default_category_id", def.ID, "cache_enabled", c != nil)
	return nil
}

// Stop shuts down the module.
func (m *CatalogModule) Stop(_ context.Context) error {
	m.logger.Info("Catalog module stopped")
	return nil
}

// Health reports whether the module is ready.
func (m *CatalogModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"cache_enabled": m.service.cache != nil,
		},
	}
}

// Service returns the underlying service. It is nil before Start.
func (m *CatalogModule) Service() *CatalogService {
	return m.service
}

// RegisterServices registers request-reply services in the service container.
func (m *CatalogModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(container, "create-category", json.Unmarshal, json.Marshal, m.handleCreateCategory); err != nil {
		return fmt.Errorf("failed to register create-category service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "get-category", json.Unmarshal, json.Marshal, m.handleGetCategory); err != nil {
		return fmt.Errorf("failed to register get-category service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "list-categories", json.Unmarshal, json.Marshal, m.handleListCategories); err != nil {
		return fmt.Errorf("failed to register list-categories service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "update-category", json.Unmarshal, json.Marshal, m.handleUpdateCategory); err != nil {
		return fmt.Errorf("failed to register update-category service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "retire-category", json.Unmarshal, json.Marshal, m.handleRetireCategory); err != nil {
		return fmt.Errorf("failed to register retire-category service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "create-product", json.Unmarshal, json.Marshal, m.handleCreateProduct); err != nil {
		return fmt.Errorf("failed to register create-product service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "get-product", json.Unmarshal, json.Marshal, m.handleGetProduct); err != nil {
		return fmt.Errorf("failed to register get-product service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "list-products", json.Unmarshal, json.Marshal, m.handleListProducts); err != nil {
		return fmt.Errorf("failed to register list-products service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "update-product", json.Unmarshal, json.Marshal, m.handleUpdateProduct); err != nil {
		return fmt.Errorf("failed to register update-product service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "retire-product", json.Unmarshal, json.Marshal, m.handleRetireProduct); err != nil {
		return fmt.Errorf("failed to register retire-product service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "restock-product", json.Unmarshal, json.Marshal, m.handleRestockProduct); err != nil {
		return fmt.Errorf("failed to register restock-product service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "create-category, get-category, list-categories, update-category, retire-category, "+
			"create-product, get-product, list-products, update-product, retire-product, restock-product")
	return nil
}

func (m *CatalogModule) handleCreateCategory(ctx context.Context, req CreateCategoryRequest, _ *mono.Msg) (domain.Category, error) {
	c, err := m.service.CreateCategory(ctx, req.Name)
	if err != nil {
		return domain.Category{}, err
	}
	m.logger.Info("Category created", "category_id", c.ID, "name", c.Name)
	return *c, nil
}

func (m *CatalogModule) handleGetCategory(ctx context.Context, req GetCategoryRequest, _ *mono.Msg) (domain.Category, error) {
	c, err := m.service.GetCategory(ctx, req.ID, req.IncludeRetired)
	if err != nil {
		return domain.Category{}, err
	}
	return *c, nil
}

func (m *CatalogModule) handleListCategories(ctx context.Context, req ListCategoriesRequest, _ *mono.Msg) (CategoryListResponse, error) {
	resp, err := m.service.ListCategories(ctx, req)
	if err != nil {
		return CategoryListResponse{}, err
	}
	return *resp, nil
}

func (m *CatalogModule) handleUpdateCategory(ctx context.Context, req UpdateCategoryRequest, _ *mono.Msg) (domain.Category, error) {
	c, err := m.service.RenameCategory(ctx, req.ID, req.Name)
	if err != nil {
		return domain.Category{}, err
	}
	return *c, nil
}

func (m *CatalogModule) handleRetireCategory(ctx context.Context, req RetireCategoryRequest, _ *mono.Msg) (RetireCategoryResponse, error) {
	resp, err := m.service.RetireCategory(ctx, req.ID)
	if err != nil {
		return RetireCategoryResponse{}, err
	}

	if m.eventBus != nil {
		event := events.CategoryRetiredEvent{
			CategoryID:        resp.Category.ID,
			Name:              resp.Category.Name,
			DefaultCategoryID: resp.DefaultCategoryID,
			ReassignedCount:   resp.Reassigned,
			RetiredAt:         time.Now(),
		}
		if err := events.CategoryRetiredV1.Publish(m.eventBus, event, nil); err != nil {
			// Best-effort; the retirement already committed.
			m.logger.WithError(err).Warn("Failed to publish CategoryRetired event", "category_id", resp.Category.ID)
		}
	}
	return *resp, nil
}

func (m *CatalogModule) handleCreateProduct(ctx context.Context, req CreateProductRequest, _ *mono.Msg) (domain.Product, error) {
	p, err := m.service.CreateProduct(ctx, req)
	if err != nil {
		return domain.Product{}, err
	}
	m.logger.Info("Product created", "product_id", p.ID, "category_id", p.CategoryID)
	return *p, nil
}

func (m *CatalogModule) handleGetProduct(ctx context.Context, req GetProductRequest, _ *mono.Msg) (domain.Product, error) {
	p, err := m.service.GetProduct(ctx, req.ID, req.IncludeRetired)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (m *CatalogModule) handleListProducts(ctx context.Context, req ListProductsRequest, _ *mono.Msg) (ProductListResponse, error) {
	resp, err := m.service.ListProducts(ctx, req)
	if err != nil {
		return ProductListResponse{}, err
	}
	return *resp, nil
}

func (m *CatalogModule) handleUpdateProduct(ctx context.Context, req UpdateProductRequest, _ *mono.Msg) (domain.Product, error) {
	p, err := m.service.UpdateProduct(ctx, req)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (m *CatalogModule) handleRetireProduct(ctx context.Context, req RetireProductRequest, _ *mono.Msg) (AckResponse, error) {
	if err := m.service.RetireProduct(ctx, req.ID); err != nil {
		return AckResponse{}, err
	}
	m.logger.Info("Product retired", "product_id", req.ID)
	return AckResponse{OK: true}, nil
}

func (m *CatalogModule) handleRestockProduct(ctx context.Context, req RestockProductRequest, _ *mono.Msg) (domain.Product, error) {
	p, err := m.service.AdjustStock(ctx, req.ID, req.Delta)
	if err != nil {
		return domain.Product{}, err
	}
	m.logger.Info("Stock adjusted", "product_id", p.ID, "delta", req.Delta, "stock", p.Stock)
	return *p, nil
}

func (m *CatalogModule) handlePurchaseCreated(ctx context.Context, event events.PurchaseCreatedEvent, _ *mono.Msg) error {
	if m.service == nil {
		return nil
	}
	m.service.InvalidateProducts(ctx, lineProductIDs(event.Lines)...)
	return nil
}

func (m *CatalogModule) handlePurchaseCanceled(ctx context.Context, event events.PurchaseCanceledEvent, _ *mono.Msg) error {
	if m.service == nil {
		return nil
	}
	m.service.InvalidateProducts(ctx, lineProductIDs(event.Lines)...)
	return nil
}

func lineProductIDs(lines []events.PurchaseLineEvent) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}
