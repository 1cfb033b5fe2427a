// Package ratelimit provides rate limiting functionality.
package ratelimit

import (
	"context"
	"time"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed    bool          // Whether the request is allowed
	Remaining  int           // Remaining requests in the current window
	RetryAfter time.Duration // Suggested retry time (if blocked)
	Limit      int           // The configured limit
}

// Limiter defines the rate limiting interface.
type Limiter interface {
	// Allow checks if a request from the given identifier is allowed.
	Allow(ctx context.Context, identifier string) (*Result, error)

	// Close releases any resources held by the limiter.
	Close() error
}

// Config holds rate limiter configuration.
type Config struct {
	Requests int           // Maximum requests per window
	Window   time.Duration // Time window size
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Requests: 100,
		Window:   time.Minute,
	}
}
