package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/storage"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/storage/redis/v3"
)

// PluginModule provides caching services as a mono plugin module.
// The same Redis storage also backs the HTTP rate limiter.
type PluginModule struct {
	container types.ServiceContainer
	redis     *redis.Storage
	storage   storage.Storage
	service   CacheService
	redisAddr string
	prefix    string
	ttl       time.Duration
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates a new cache plugin module.
func NewPluginModule(redisAddr, prefix string, ttl time.Duration, logger types.Logger) *PluginModule {
	return &PluginModule{
		redisAddr: redisAddr,
		prefix:    prefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "cache"
}

// Start connects to Redis. gofiber/storage/redis panics when Redis is
// unreachable, so reachability is checked first.
func (m *PluginModule) Start(_ context.Context) error {
	host, port := parseRedisAddr(m.redisAddr)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return fmt.Errorf("redis not reachable at %s: %w", addr, err)
	}
	conn.Close()

	m.redis = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		PoolSize: 50,
	})
	m.storage = m.redis
	m.service = NewCacheService(m.storage, m.prefix, m.ttl, m.logger)
	m.logger.Info("Cache plugin started", "redis_addr", addr, "prefix", m.prefix, "ttl", m.ttl.String())
	return nil
}

// Stop closes the Redis connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.service != nil {
		if err := m.service.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close cache connection")
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	m.logger.Info("Cache plugin stopped")
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

// Port returns the CacheService used by consumers. It is nil before Start.
func (m *PluginModule) Port() CacheService {
	return m.service
}

// Storage returns the raw Redis storage for fiber middleware such as the
// rate limiter. It is nil before Start.
func (m *PluginModule) Storage() *redis.Storage {
	return m.redis
}

// Health pings Redis.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.redis == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "storage not initialized",
		}
	}

	if err := m.redis.Conn().Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("health check failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr": m.redisAddr,
			"prefix":     m.prefix,
			"ttl":        m.ttl.String(),
		},
	}
}

// parseRedisAddr parses "host:port" into host and port.
// Returns defaults (127.0.0.1:6379) for invalid or missing values.
func parseRedisAddr(addr string) (string, int) {
	const defaultHost = "127.0.0.1"
	const defaultPort = 6379

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}

	if host == "" {
		host = defaultHost
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}

	return host, port
}
