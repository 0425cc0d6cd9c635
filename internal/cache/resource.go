// Package cache provides typed helpers over a repository.Cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/repository"
)

// ResourceCache stores JSON documents keyed by resource type and id.
// Cache failures never fail the caller: reads degrade to misses and
// writes are logged and dropped.
type ResourceCache struct {
	backend repository.Cache
	keys    repository.CacheKey
	logger  zerolog.Logger
}

// NewResourceCache creates a ResourceCache over backend.
func NewResourceCache(backend repository.Cache, prefix string, logger zerolog.Logger) *ResourceCache {
	return &ResourceCache{
		backend: backend,
		keys:    repository.CacheKey{Prefix: prefix},
		logger:  logger.With().Str("component", "resource_cache").Logger(),
	}
}

// Keys returns the key builder used by this cache.
func (c *ResourceCache) Keys() repository.CacheKey {
	return c.keys
}

// Backend returns the underlying cache.
func (c *ResourceCache) Backend() repository.Cache {
	return c.backend
}

// GetJSON decodes the cached resource into dst. It reports false on a miss.
func (c *ResourceCache) GetJSON(ctx context.Context, resourceType, resourceID string, dst any) bool {
	key := c.keys.For(resourceType, resourceID)
	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		_ = c.backend.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON stores value under the resource key for ttl.
func (c *ResourceCache) SetJSON(ctx context.Context, resourceType, resourceID string, value any, ttl time.Duration) {
	key := c.keys.For(resourceType, resourceID)
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.backend.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Invalidate removes the cached resources.
func (c *ResourceCache) Invalidate(ctx context.Context, resourceType string, resourceIDs ...string) {
	if len(resourceIDs) == 0 {
		return
	}
	keys := make([]string, len(resourceIDs))
	for i, id := range resourceIDs {
		keys[i] = c.keys.For(resourceType, id)
	}
	if err := c.backend.DeleteMulti(ctx, keys...); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

// PutString stores a plain string value under the resource key.
func (c *ResourceCache) PutString(ctx context.Context, resourceType, resourceID, value string, ttl time.Duration) error {
	key := c.keys.For(resourceType, resourceID)
	if err := c.backend.Set(ctx, key, []byte(value), ttl); err != nil {
		return fmt.Errorf("failed to store %s: %w", resourceType, err)
	}
	return nil
}

// TakeString returns and deletes a plain string value in one atomic step,
// so concurrent callers redeem a value at most once.
// Returns repository.ErrCacheMiss when the key is absent or expired.
func (c *ResourceCache) TakeString(ctx context.Context, resourceType, resourceID string) (string, error) {
	raw, err := c.backend.GetDel(ctx, c.keys.For(resourceType, resourceID))
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return "", err
		}
		return "", fmt.Errorf("failed to consume %s: %w", resourceType, err)
	}
	return string(raw), nil
}

// Count increments the counter under the resource key. The window is set
// atomically when the counter is created.
func (c *ResourceCache) Count(ctx context.Context, resourceType, resourceID string, window time.Duration) (int64, error) {
	return c.backend.IncrementWithTTL(ctx, c.keys.For(resourceType, resourceID), 1, window)
}

// Reset removes the counter under the resource key.
func (c *ResourceCache) Reset(ctx context.Context, resourceType, resourceID string) error {
	return c.backend.Delete(ctx, c.keys.For(resourceType, resourceID))
}
