// Package cache provides the Redis-backed read cache used by the catalog.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// CacheService defines the caching operations used by consumers.
type CacheService interface {
	// Get unmarshals the cached value into dest and reports whether the key
	// was found.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores a JSON encoded value with the default TTL.
	Set(ctx context.Context, key string, value any) error

	// SetWithTTL stores a JSON encoded value with a custom TTL.
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// Close closes the underlying storage connection.
	Close() error
}

// Backend is the subset of mono's storage.Storage the cache needs.
type Backend interface {
	GetWithContext(ctx context.Context, key string) ([]byte, error)
	SetWithContext(ctx context.Context, key string, val []byte, exp time.Duration) error
	DeleteWithContext(ctx context.Context, key string) error
	Close() error
}

type cacheService struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	logger  types.Logger
}

// NewCacheService creates a CacheService with every key namespaced by prefix.
func NewCacheService(b Backend, prefix string, ttl time.Duration, logger types.Logger) CacheService {
	return &cacheService{
		backend: b,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger,
	}
}

func (c *cacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	fullKey := c.prefix + key

	data, err := c.backend.GetWithContext(ctx, fullKey)
	if err != nil {
		return false, fmt.Errorf("cache get error: %w", err)
	}

	// nil or empty means key not found
	if len(data) == 0 {
		c.logger.Debug("Cache miss", "key", fullKey)
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	c.logger.Debug("Cache hit", "key", fullKey)
	return true, nil
}

func (c *cacheService) Set(ctx context.Context, key string, value any) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

func (c *cacheService) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.backend.SetWithContext(ctx, c.prefix+key, data, ttl); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *cacheService) Delete(ctx context.Context, key string) error {
	if err := c.backend.DeleteWithContext(ctx, c.prefix+key); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (c *cacheService) Close() error {
	return c.backend.Close()
}
