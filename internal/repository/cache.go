package repository

import (
	"context"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache defines the interface for caching operations.
// Implemented by Redis for distributed deployments and in memory otherwise.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// DeleteMulti removes multiple values.
	DeleteMulti(ctx context.Context, keys ...string) error

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Expire sets or updates the TTL for a key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Increment atomically increments an integer value.
	// A missing key starts at zero.
	Increment(ctx context.Context, key string, delta int64) (int64, error)

	// IncrementWithTTL increments like Increment and, in the same atomic
	// step, sets ttl on a key the call creates. Existing TTLs are kept.
	IncrementWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// GetDel returns the value and removes the key atomically.
	// Returns ErrCacheMiss if the key doesn't exist.
	GetDel(ctx context.Context, key string) ([]byte, error)
}

// =============================================================================
// Common Cache Keys
// =============================================================================

// Resource types used in cache keys.
const (
	ResourceSnippet           = "snippet"
	ResourceVerificationToken = "verify-token"
	ResourceResetToken        = "reset-token"
	ResourceFailedLogin       = "failed-login"
	ResourceRecentSnippets    = "recent-snippets"
)

// CacheKey builds keys of the form <prefix>:<resource-type>:<resource-id>.
type CacheKey struct {
	Prefix string
}

// For returns the key of a resource.
func (k CacheKey) For(resourceType, resourceID string) string {
	prefix := k.Prefix
	if prefix == "" {
		prefix = "sharecode"
	}
	return prefix + ":" + resourceType + ":" + resourceID
}

// Snippet returns the key of a cached snippet response.
func (k CacheKey) Snippet(id string) string {
	return k.For(ResourceSnippet, id)
}

// VerificationToken returns the key holding the user ID for a verification token.
func (k CacheKey) VerificationToken(tokenHash string) string {
	return k.For(ResourceVerificationToken, tokenHash)
}

// ResetToken returns the key holding the user ID for a password reset token.
func (k CacheKey) ResetToken(tokenHash string) string {
	return k.For(ResourceResetToken, tokenHash)
}

// FailedLogin returns the key of a user's failed login counter.
func (k CacheKey) FailedLogin(userID string) string {
	return k.For(ResourceFailedLogin, userID)
}
