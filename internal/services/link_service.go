// Package services contains business logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linkforge/linkforge/internal/codec"
	"github.com/linkforge/linkforge/internal/metrics"
	"github.com/linkforge/linkforge/internal/models"
	"github.com/linkforge/linkforge/internal/repository"
	"github.com/linkforge/linkforge/pkg/logger"
)

// DefaultMaxRetries is the retry budget for random code allocation.
const DefaultMaxRetries = 10

// LinkPopulator is the advisory cache the allocator writes through to.
type LinkPopulator interface {
	Populate(ctx context.Context, link *models.ShortLink) error
}

// CreateLinkRequest represents the input for creating a short link.
type CreateLinkRequest struct {
	LongURL     string
	CustomAlias string
	ExpiryAt    *time.Time
}

// CreateLinkResult represents a successfully created short link.
type CreateLinkResult struct {
	ShortURL  string
	ShortCode string
	LongURL   string
	CreatedAt time.Time
	ExpiryAt  *time.Time
}

// LinkService defines the allocation and lookup operations.
type LinkService interface {
	Create(ctx context.Context, req CreateLinkRequest) (*CreateLinkResult, error)
	Get(ctx context.Context, shortCode string) (*models.ShortLink, error)
}

// Config holds the allocator's injected configuration.
type Config struct {
	BaseURL    string
	MaxRetries int
}

// LinkServiceImpl implements LinkService.
//
// Uniqueness discipline: the pre-insert existence check is advisory; the
// store's unique index is what actually serializes concurrent writers of the
// same code. A violation at insert time becomes an alias conflict on the
// custom path and a fresh attempt on the random path.
type LinkServiceImpl struct {
	repo      repository.LinkRepository
	linkCache LinkPopulator
	generator codec.Generator
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

// NewLinkService creates a new LinkService instance. linkCache may be nil
// when no cache backend is configured.
func NewLinkService(repo repository.LinkRepository, linkCache LinkPopulator, gen codec.Generator, cfg Config, log *logger.Logger) *LinkServiceImpl {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &LinkServiceImpl{
		repo:      repo,
		linkCache: linkCache,
		generator: gen,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the service clock, for tests.
func (s *LinkServiceImpl) WithClock(now func() time.Time) *LinkServiceImpl {
	s.now = now
	return s
}

// Create allocates a short link. A non-blank custom alias is validated and
// used as-is; otherwise a random code is drawn, retrying on collisions up to
// the configured budget. An expiry in the past is accepted: the record is
// persisted already expired and picked up by the next sweep.
func (s *LinkServiceImpl) Create(ctx context.Context, req CreateLinkRequest) (*CreateLinkResult, error) {
	if err := models.ValidateLongURL(req.LongURL); err != nil {
		return nil, err
	}

	var link *models.ShortLink
	var err error

	if req.CustomAlias != "" {
		link, err = s.createWithAlias(ctx, req)
	} else {
		link, err = s.createWithRandomCode(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	// Best-effort cache population. The record is durable at this point, so
	// a cache failure is logged and swallowed, never surfaced.
	s.populateCache(ctx, link)

	return s.toResult(link), nil
}

// createWithAlias persists a link under a caller-chosen short code. A taken
// alias is a caller-correctable conflict and is never retried, whether it is
// caught by the pre-check or by the unique index afterwards.
func (s *LinkServiceImpl) createWithAlias(ctx context.Context, req CreateLinkRequest) (*models.ShortLink, error) {
	if err := models.ValidateAlias(req.CustomAlias); err != nil {
		return nil, err
	}

	taken, err := s.repo.Exists(ctx, req.CustomAlias)
	if err != nil {
		return nil, fmt.Errorf("alias uniqueness check: %w", err)
	}
	if taken {
		return nil, &models.AliasConflictError{Alias: req.CustomAlias}
	}

	link, err := s.repo.Create(ctx, &models.LinkCreate{
		ShortCode: req.CustomAlias,
		LongURL:   req.LongURL,
		ExpiryAt:  req.ExpiryAt,
	})
	if err != nil {
		if errors.Is(err, models.ErrCodeTaken) {
			// Lost the race between check and insert.
			return nil, &models.AliasConflictError{Alias: req.CustomAlias}
		}
		return nil, err
	}

	metrics.RecordLinkCreated(metrics.ModeAlias)
	return link, nil
}

// createWithRandomCode draws random codes until one is free or the retry
// budget runs out. A storage-level duplicate after a clean pre-check counts
// as a collision and consumes the attempt.
func (s *LinkServiceImpl) createWithRandomCode(ctx context.Context, req CreateLinkRequest) (*models.ShortLink, error) {
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		code, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate short code: %w", err)
		}

		taken, err := s.repo.Exists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("code uniqueness check: %w", err)
		}
		if taken {
			metrics.RecordCollision()
			s.log.Warn("short code collision, retrying", "attempt", attempt)
			continue
		}

		link, err := s.repo.Create(ctx, &models.LinkCreate{
			ShortCode: code,
			LongURL:   req.LongURL,
			ExpiryAt:  req.ExpiryAt,
		})
		if err != nil {
			if errors.Is(err, models.ErrCodeTaken) {
				metrics.RecordCollision()
				s.log.Warn("short code collision at insert, retrying", "attempt", attempt)
				continue
			}
			return nil, err
		}

		metrics.RecordLinkCreated(metrics.ModeRandom)
		return link, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", models.ErrCodeSpaceExhausted, s.cfg.MaxRetries)
}

// Get looks a link up by short code directly in the store. This is the
// informational lookup path, not the redirect hot path, so the cache is not
// consulted and there are no side effects.
func (s *LinkServiceImpl) Get(ctx context.Context, shortCode string) (*models.ShortLink, error) {
	return s.repo.GetByShortCode(ctx, shortCode)
}

func (s *LinkServiceImpl) populateCache(ctx context.Context, link *models.ShortLink) {
	if s.linkCache == nil {
		return
	}
	if err := s.linkCache.Populate(ctx, link); err != nil {
		metrics.RecordCachePopulateFailure()
		s.log.Warn("failed to populate link cache",
			"short_code", link.ShortCode,
			"error", err.Error(),
		)
		return
	}
	s.log.Debug("cached link mapping", "short_code", link.ShortCode)
}

func (s *LinkServiceImpl) toResult(link *models.ShortLink) *CreateLinkResult {
	return &CreateLinkResult{
		ShortURL:  fmt.Sprintf("%s/%s", s.cfg.BaseURL, link.ShortCode),
		ShortCode: link.ShortCode,
		LongURL:   link.LongURL,
		CreatedAt: link.CreatedAt,
		ExpiryAt:  link.ExpiryAt,
	}
}
