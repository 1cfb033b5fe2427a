// Package models contains domain models and entities.
package models

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/linkforge/linkforge/internal/codec"
)

// Short code and URL bounds enforced at creation time.
const (
	MaxLongURLLength = 2048
	MinAliasLength   = 3
	MaxAliasLength   = 10
)

// ShortLink is the canonical persisted mapping from a short code to a long
// URL. The store is the single source of truth for it; cache entries are a
// best-effort projection.
type ShortLink struct {
	ID        int64      `json:"id"`
	ShortCode string     `json:"short_code"`
	LongURL   string     `json:"long_url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiryAt  *time.Time `json:"expiry_at,omitempty"`
	OwnerID   *int64     `json:"owner_id,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// LinkCreate holds the data needed to persist a new ShortLink.
type LinkCreate struct {
	ShortCode string
	LongURL   string
	ExpiryAt  *time.Time
	OwnerID   *int64
}

// Validation and lifecycle errors.
var (
	ErrEmptyURL     = errors.New("long url cannot be empty")
	ErrInvalidURL   = errors.New("invalid long url format")
	ErrURLTooLong   = errors.New("long url exceeds maximum length")
	ErrInvalidAlias = errors.New("custom alias must be 3-10 alphanumeric characters")

	ErrLinkNotFound = errors.New("short link not found")

	// ErrCodeTaken signals a storage-level uniqueness violation on short_code.
	// The allocator maps it to an AliasConflictError or a fresh random attempt.
	ErrCodeTaken = errors.New("short code already taken")

	// ErrCodeSpaceExhausted is returned when the random allocation retry
	// budget runs out without finding a free code.
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")
)

// AliasConflictError is the caller-correctable conflict for a custom alias
// that is already in use. It wraps ErrCodeTaken so errors.Is still matches.
type AliasConflictError struct {
	Alias string
}

func (e *AliasConflictError) Error() string {
	return "alias '" + e.Alias + "' is already taken"
}

// Unwrap lets errors.Is(err, ErrCodeTaken) match an alias conflict.
func (e *AliasConflictError) Unwrap() error {
	return ErrCodeTaken
}

// IsExpired reports whether the link's expiry time has passed at the given
// instant. Links without an expiry never expire.
func (l *ShortLink) IsExpired(now time.Time) bool {
	if l.ExpiryAt == nil {
		return false
	}
	return now.After(*l.ExpiryAt)
}

// Validate checks the creation data against the entity bounds.
func (c *LinkCreate) Validate() error {
	if err := ValidateLongURL(c.LongURL); err != nil {
		return err
	}
	if c.ShortCode != "" {
		if len(c.ShortCode) > MaxAliasLength {
			return ErrInvalidAlias
		}
		if !codec.IsValid(c.ShortCode) {
			return ErrInvalidAlias
		}
	}
	return nil
}

// ValidateLongURL checks that s is a well-formed http(s) URL within the
// length bound.
func ValidateLongURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmptyURL
	}
	if len(s) > MaxLongURLLength {
		return ErrURLTooLong
	}

	u, err := url.Parse(s)
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// ValidateAlias checks a caller-chosen short code: 3-10 characters, all from
// the 62-symbol alphabet.
func ValidateAlias(alias string) error {
	if len(alias) < MinAliasLength || len(alias) > MaxAliasLength {
		return ErrInvalidAlias
	}
	if !codec.IsValid(alias) {
		return ErrInvalidAlias
	}
	return nil
}

// IsValidationError reports whether err belongs to the caller-correctable
// input validation family.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyURL) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrURLTooLong) ||
		errors.Is(err, ErrInvalidAlias)
}
