package cache

import (
	"context"
	"time"

	"github.com/linkforge/linkforge/internal/models"
)

// DefaultKeyPrefix is the namespace prepended to short codes.
const DefaultKeyPrefix = "url:"

// DefaultOpTimeout bounds each cache operation. The cache is advisory, so a
// slow backend must never stall the write path.
const DefaultOpTimeout = 500 * time.Millisecond

// LinkCache stores the denormalized short-code -> long-URL projection. It is
// never authoritative: entries may be missing or stale and callers must fall
// back to the repository.
type LinkCache struct {
	cache     Cache
	keyPrefix string
	opTimeout time.Duration
	now       func() time.Time
}

// NewLinkCache creates a LinkCache over the given backend.
func NewLinkCache(backend Cache, keyPrefix string, opTimeout time.Duration) *LinkCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &LinkCache{
		cache:     backend,
		keyPrefix: keyPrefix,
		opTimeout: opTimeout,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for TTL computation, for tests.
func (c *LinkCache) WithClock(now func() time.Time) *LinkCache {
	c.now = now
	return c
}

// Populate writes the link's long URL under its derived key. When the link
// has an expiry with positive remaining time, the entry's TTL is aligned to
// it; a non-positive remainder (link created already expired) skips the TTL
// silently so the entry falls back to plain eviction.
func (c *LinkCache) Populate(ctx context.Context, link *models.ShortLink) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	key := c.key(link.ShortCode)
	if err := c.cache.Set(ctx, key, link.LongURL, 0); err != nil {
		return err
	}

	if link.ExpiryAt != nil {
		ttl := link.ExpiryAt.Sub(c.now())
		if ttl > 0 {
			if err := c.cache.SetExpiry(ctx, key, ttl); err != nil {
				return err
			}
		}
	}

	return nil
}

// Lookup returns the cached long URL for a short code, or ErrCacheMiss.
func (c *LinkCache) Lookup(ctx context.Context, shortCode string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	return c.cache.Get(ctx, c.key(shortCode))
}

// Ping checks if the backend is healthy.
func (c *LinkCache) Ping(ctx context.Context) error {
	return c.cache.Ping(ctx)
}

func (c *LinkCache) key(shortCode string) string {
	return c.keyPrefix + shortCode
}
