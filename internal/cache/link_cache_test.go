package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkforge/linkforge/internal/models"
)

// fakeBackend is an in-memory Cache that records Set and SetExpiry calls.
type fakeBackend struct {
	entries map[string]string
	expiry  map[string]time.Duration

	setErr       error
	setExpiryErr error
	getErr       error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		entries: make(map[string]string),
		expiry:  make(map[string]time.Duration),
	}
}

func (f *fakeBackend) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return value, nil
}

func (f *fakeBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = value
	return nil
}

func (f *fakeBackend) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	if f.setExpiryErr != nil {
		return f.setExpiryErr
	}
	f.expiry[key] = ttl
	return nil
}

func (f *fakeBackend) Delete(ctx context.Context, key string) error {
	delete(f.entries, key)
	delete(f.expiry, key)
	return nil
}

func (f *fakeBackend) Ping(ctx context.Context) error { return nil }

func (f *fakeBackend) Close() error { return nil }

func testLink(code, longURL string, expiryAt *time.Time) *models.ShortLink {
	return &models.ShortLink{
		ID:        1,
		ShortCode: code,
		LongURL:   longURL,
		IsActive:  true,
		ExpiryAt:  expiryAt,
	}
}

func TestLinkCache_Populate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("stores the long url under the prefixed key", func(t *testing.T) {
		backend := newFakeBackend()
		lc := NewLinkCache(backend, "", 0).WithClock(clock)

		err := lc.Populate(ctx, testLink("abc1234", "https://example.com", nil))
		require.NoError(t, err)

		assert.Equal(t, "https://example.com", backend.entries["url:abc1234"])
		assert.NotContains(t, backend.expiry, "url:abc1234")
	})

	t.Run("aligns the ttl to a future expiry", func(t *testing.T) {
		backend := newFakeBackend()
		lc := NewLinkCache(backend, "", 0).WithClock(clock)
		expiry := now.Add(2 * time.Hour)

		err := lc.Populate(ctx, testLink("abc1234", "https://example.com", &expiry))
		require.NoError(t, err)

		assert.Equal(t, 2*time.Hour, backend.expiry["url:abc1234"])
	})

	t.Run("skips the ttl when the expiry has already passed", func(t *testing.T) {
		backend := newFakeBackend()
		lc := NewLinkCache(backend, "", 0).WithClock(clock)
		expiry := now.Add(-time.Hour)

		err := lc.Populate(ctx, testLink("abc1234", "https://example.com", &expiry))
		require.NoError(t, err)

		// Entry is still written; it just carries no TTL.
		assert.Equal(t, "https://example.com", backend.entries["url:abc1234"])
		assert.NotContains(t, backend.expiry, "url:abc1234")
	})

	t.Run("set failure is returned to the caller", func(t *testing.T) {
		backend := newFakeBackend()
		backend.setErr = errors.New("connection refused")
		lc := NewLinkCache(backend, "", 0).WithClock(clock)

		err := lc.Populate(ctx, testLink("abc1234", "https://example.com", nil))
		assert.Error(t, err)
	})

	t.Run("expiry failure is returned to the caller", func(t *testing.T) {
		backend := newFakeBackend()
		backend.setExpiryErr = errors.New("connection refused")
		lc := NewLinkCache(backend, "", 0).WithClock(clock)
		expiry := now.Add(time.Hour)

		err := lc.Populate(ctx, testLink("abc1234", "https://example.com", &expiry))
		assert.Error(t, err)
	})

	t.Run("custom key prefix", func(t *testing.T) {
		backend := newFakeBackend()
		lc := NewLinkCache(backend, "short:", 0).WithClock(clock)

		err := lc.Populate(ctx, testLink("abc1234", "https://example.com", nil))
		require.NoError(t, err)

		assert.Contains(t, backend.entries, "short:abc1234")
	})
}

func TestLinkCache_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the cached long url", func(t *testing.T) {
		backend := newFakeBackend()
		backend.entries["url:abc1234"] = "https://example.com"
		lc := NewLinkCache(backend, "", 0)

		got, err := lc.Lookup(ctx, "abc1234")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got)
	})

	t.Run("miss surfaces as ErrCacheMiss", func(t *testing.T) {
		backend := newFakeBackend()
		lc := NewLinkCache(backend, "", 0)

		_, err := lc.Lookup(ctx, "nothere")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("backend errors propagate", func(t *testing.T) {
		backend := newFakeBackend()
		backend.getErr = errors.New("connection refused")
		lc := NewLinkCache(backend, "", 0)

		_, err := lc.Lookup(ctx, "abc1234")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrCacheMiss)
	})
}

func TestNewLinkCache_Defaults(t *testing.T) {
	lc := NewLinkCache(newFakeBackend(), "", 0)
	assert.Equal(t, DefaultKeyPrefix, lc.keyPrefix)
	assert.Equal(t, DefaultOpTimeout, lc.opTimeout)
}
