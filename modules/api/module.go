// Package api exposes the store over HTTP with fiber.
package api

import (
	"context"
	"errors"
	"time"

	domainuser "github.com/example/storefront/domain/user"
	"github.com/example/storefront/modules/cache"
	"github.com/example/storefront/modules/cart"
	"github.com/example/storefront/modules/catalog"
	"github.com/example/storefront/modules/purchase"
	"github.com/example/storefront/modules/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr            string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// APIModule is the HTTP API module.
type APIModule struct {
	config      Config
	app         *fiber.App
	cachePlugin *cache.PluginModule
	users       user.UserPort
	catalog     catalog.CatalogPort
	carts       cart.CartPort
	purchases   purchase.PurchasePort
	logger      types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*APIModule)(nil)
	_ mono.DependentModule       = (*APIModule)(nil)
	_ mono.UsePluginModule       = (*APIModule)(nil)
	_ mono.HealthCheckableModule = (*APIModule)(nil)
)

// NewModule creates a new APIModule.
func NewModule(config Config, logger types.Logger) *APIModule {
	if config.Addr == "" {
		config.Addr = ":3000"
	}
	return &APIModule{
		config: config,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"user", "catalog", "cart", "purchase"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "user":
		m.users = user.NewUserAdapter(container)
	case "catalog":
		m.catalog = catalog.NewCatalogAdapter(container)
	case "cart":
		m.carts = cart.NewCartAdapter(container)
	case "purchase":
		m.purchases = purchase.NewPurchaseAdapter(container)
	}
}

// SetPlugin receives the optional cache plugin, whose Redis storage backs the
// rate limiter.
func (m *APIModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "cache" {
		return
	}
	c, ok := plugin.(*cache.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for cache", "alias", alias, "expected", "*cache.PluginModule")
		return
	}
	m.cachePlugin = c
}

// Start builds the fiber app and starts listening.
func (m *APIModule) Start(_ context.Context) error {
	if m.users == nil || m.catalog == nil || m.carts == nil || m.purchases == nil {
		return errors.New("api dependencies not set")
	}

	limit := RateLimitConfig{Max: m.config.RateLimitMax, Window: m.config.RateLimitWindow}
	if m.cachePlugin != nil {
		if s := m.cachePlugin.Storage(); s != nil {
			limit.Storage = s
		}
	}

	handlers := NewHandlers(m.users, m.catalog, m.carts, m.purchases, m.logger)
	m.app = NewApp(handlers, m.users, limit, m.logger)

	go func() {
		if err := m.app.Listen(m.config.Addr); err != nil {
			m.logger.WithError(err).Error("HTTP server error")
		}
	}()

	m.logger.Info("HTTP server started", "addr", m.config.Addr, "redis_rate_limit", limit.Storage != nil)
	return nil
}

// Stop shuts down the HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr": m.config.Addr,
		},
	}
}

// NewApp builds the fiber app with middleware and every route. A zero
// RateLimitConfig.Max disables rate limiting.
func NewApp(h *Handlers, tokens TokenValidator, limit RateLimitConfig, log types.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          newErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(HealthResponse{
			Status:  "healthy",
			Details: map[string]any{"module": "api"},
		})
	})

	v1 := app.Group("/api/v1")
	if limit.Max > 0 {
		v1.Use(RateLimiter(limit))
	}

	auth := v1.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)

	protected := v1.Group("", AuthMiddleware(tokens))
	admin := RequireRole(domainuser.RoleAdmin)

	protected.Get("/profile", h.Profile)

	protected.Get("/users", admin, h.ListUsers)
	protected.Get("/users/:id", h.GetUser)
	protected.Put("/users/:id", h.UpdateUser)
	protected.Delete("/users/:id", h.DeactivateUser)
	protected.Put("/users/:id/password", h.ChangePassword)

	protected.Get("/categories", h.ListCategories)
	protected.Get("/categories/:id", h.GetCategory)
	protected.Post("/categories", admin, h.CreateCategory)
	protected.Put("/categories/:id", admin, h.UpdateCategory)
	protected.Delete("/categories/:id", admin, h.RetireCategory)

	protected.Get("/products", h.ListProducts)
	protected.Get("/products/search", h.SearchProducts)
	protected.Get("/products/:id", h.GetProduct)
	protected.Post("/products", admin, h.CreateProduct)
	protected.Put("/products/:id", admin, h.UpdateProduct)
	protected.Delete("/products/:id", admin, h.RetireProduct)
	protected.Post("/products/:id/restock", admin, h.RestockProduct)

	protected.Get("/cart", h.GetCart)
	protected.Delete("/cart", h.ClearCart)
	protected.Post("/cart/items", h.AddCartItem)
	protected.Put("/cart/items/:productId", h.UpdateCartItem)
	protected.Delete("/cart/items/:productId", h.RemoveCartItem)

	protected.Post("/purchases", h.Checkout)
	protected.Get("/purchases", h.ListPurchases)
	protected.Get("/purchases/:id", h.GetPurchase)
	protected.Put("/purchases/:id", h.UpdatePurchase)
	protected.Post("/purchases/:id/cancel", h.CancelPurchase)
	protected.Post("/purchases/:id/pay", h.PayPurchase)
	protected.Get("/purchases/:id/receipt", h.GetReceipt)

	return app
}
