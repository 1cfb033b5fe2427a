package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("allows requests under the limit", func(t *testing.T) {
		m := NewMemoryLimiter(Config{Requests: 3, Window: time.Minute})
		defer m.Close()

		for i := 0; i < 3; i++ {
			result, err := m.Allow(ctx, "ip:192.0.2.1")
			require.NoError(t, err)
			assert.True(t, result.Allowed)
			assert.Equal(t, 3, result.Limit)
			assert.Equal(t, 2-i, result.Remaining)
		}
	})

	t.Run("denies once the window is full", func(t *testing.T) {
		m := NewMemoryLimiter(Config{Requests: 2, Window: time.Minute})
		defer m.Close()

		for i := 0; i < 2; i++ {
			_, err := m.Allow(ctx, "ip:192.0.2.1")
			require.NoError(t, err)
		}

		result, err := m.Allow(ctx, "ip:192.0.2.1")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Zero(t, result.Remaining)
		assert.Greater(t, result.RetryAfter, time.Duration(0))
		assert.LessOrEqual(t, result.RetryAfter, time.Minute)
	})

	t.Run("identifiers are isolated", func(t *testing.T) {
		m := NewMemoryLimiter(Config{Requests: 1, Window: time.Minute})
		defer m.Close()

		first, err := m.Allow(ctx, "ip:192.0.2.1")
		require.NoError(t, err)
		assert.True(t, first.Allowed)

		blocked, err := m.Allow(ctx, "ip:192.0.2.1")
		require.NoError(t, err)
		assert.False(t, blocked.Allowed)

		other, err := m.Allow(ctx, "ip:192.0.2.2")
		require.NoError(t, err)
		assert.True(t, other.Allowed)
	})

	t.Run("window slides and frees capacity", func(t *testing.T) {
		m := NewMemoryLimiter(Config{Requests: 1, Window: 30 * time.Millisecond})
		defer m.Close()

		first, err := m.Allow(ctx, "ip:192.0.2.1")
		require.NoError(t, err)
		assert.True(t, first.Allowed)

		blocked, err := m.Allow(ctx, "ip:192.0.2.1")
		require.NoError(t, err)
		assert.False(t, blocked.Allowed)

		assert.Eventually(t, func() bool {
			result, err := m.Allow(ctx, "ip:192.0.2.1")
			return err == nil && result.Allowed
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("cancelled context aborts the check", func(t *testing.T) {
		m := NewMemoryLimiter(Config{Requests: 1, Window: time.Minute})
		defer m.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := m.Allow(cancelled, "ip:192.0.2.1")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("concurrent callers never exceed the limit", func(t *testing.T) {
		const limit = 10
		m := NewMemoryLimiter(Config{Requests: limit, Window: time.Minute})
		defer m.Close()

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := m.Allow(ctx, "ip:192.0.2.1")
				if err == nil && result.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, limit, allowed)
	})
}

func TestMemoryLimiter_Close(t *testing.T) {
	m := NewMemoryLimiter(Config{Requests: 1, Window: time.Minute})
	assert.NoError(t, m.Close())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Greater(t, cfg.Requests, 0)
	assert.Greater(t, cfg.Window, time.Duration(0))
}
