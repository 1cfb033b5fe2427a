package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter implements an in-memory sliding window rate limiter.
type MemoryLimiter struct {
	config  Config
	entries sync.Map // map[string]*entry

	done chan struct{}
	wg   sync.WaitGroup
}

// entry holds the request timestamps for a single identifier.
type entry struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// NewMemoryLimiter creates a new in-memory rate limiter and starts its
// periodic cleanup of idle identifiers.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	m := &MemoryLimiter{
		config: cfg,
		done:   make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// Allow checks if a request from the given identifier is allowed.
func (m *MemoryLimiter) Allow(ctx context.Context, identifier string) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	now := time.Now()
	windowStart := now.Add(-m.config.Window)

	entryVal, _ := m.entries.LoadOrStore(identifier, &entry{})
	e := entryVal.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.timestamps = pruneBefore(e.timestamps, windowStart)

	if len(e.timestamps) >= m.config.Requests {
		retryAfter := e.timestamps[0].Add(m.config.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return &Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: retryAfter,
			Limit:      m.config.Requests,
		}, nil
	}

	e.timestamps = append(e.timestamps, now)

	return &Result{
		Allowed:   true,
		Remaining: m.config.Requests - len(e.timestamps),
		Limit:     m.config.Requests,
	}, nil
}

// Close releases resources held by the limiter.
func (m *MemoryLimiter) Close() error {
	close(m.done)
	m.wg.Wait()
	return nil
}

// pruneBefore drops timestamps at or before the window start.
func pruneBefore(timestamps []time.Time, windowStart time.Time) []time.Time {
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	return valid
}

func (m *MemoryLimiter) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.Window)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup removes identifiers with no requests inside the current window.
func (m *MemoryLimiter) cleanup() {
	windowStart := time.Now().Add(-m.config.Window)

	m.entries.Range(func(key, value interface{}) bool {
		e := value.(*entry)
		e.mu.Lock()
		e.timestamps = pruneBefore(e.timestamps, windowStart)
		empty := len(e.timestamps) == 0
		e.mu.Unlock()

		if empty {
			m.entries.Delete(key)
		}
		return true
	})
}
