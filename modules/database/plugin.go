// Package database provides the shared SQLite store as a mono plugin.
//
// Checkout writes purchases, purchase lines, cart lines and product stock in a
// single transaction, so every store module works on the same *gorm.DB handle
// instead of opening its own database.
package database

import (
	"context"
	"fmt"
	"strings"

	domaincart "github.com/example/storefront/domain/cart"
	domaincatalog "github.com/example/storefront/domain/catalog"
	domainpurchase "github.com/example/storefront/domain/purchase"
	domainuser "github.com/example/storefront/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Models lists every persisted entity in migration order.
func Models() []any {
	return []any{
		&domainuser.User{},
		&domaincatalog.Category{},
		&domaincatalog.Product{},
		&domaincart.Cart{},
		&domaincart.Line{},
		&domainpurchase.Purchase{},
		&domainpurchase.Line{},
	}
}

// Open connects to the SQLite database at path and migrates the schema.
//
// The pool is limited to one connection: SQLite allows a single writer, and a
// private in-memory database only exists on the connection that created it.
func Open(path string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models()...); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func dsn(path string) string {
	if path == MemoryPath || strings.Contains(path, "?") {
		return path
	}
	return path + "?_txlock=immediate&_busy_timeout=5000"
}

// PluginModule owns the database connection for the whole application.
// Plugins start before regular modules and stop after them.
type PluginModule struct {
	container types.ServiceContainer
	db        *gorm.DB
	path      string
	debug     bool
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates the database plugin for the given path.
func NewPluginModule(path string, debug bool, logger types.Logger) *PluginModule {
	return &PluginModule{
		path:   path,
		debug:  debug,
		logger: logger,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "database"
}

// Start opens and migrates the database.
func (m *PluginModule) Start(_ context.Context) error {
	db, err := Open(m.path, m.debug)
	if err != nil {
		return err
	}
	m.db = db
	m.logger.Info("Database plugin started", "path", m.path)
	return nil
}

// Stop closes the database connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	m.logger.Info("Database plugin stopped")
	return nil
}

// SetContainer sets the service container for this plugin.
func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

// Container returns the service container for this plugin.
func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

// DB returns the shared handle. It is nil before Start.
func (m *PluginModule) DB() *gorm.DB {
	return m.db
}

// Health returns the health status of the database.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database error: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	stats := sqlDB.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"path":       m.path,
			"open_conns": stats.OpenConnections,
			"in_use":     stats.InUse,
			"wait_count": stats.WaitCount,
		},
	}
}
