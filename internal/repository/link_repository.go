// Package repository handles data persistence.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linkforge/linkforge/internal/database"
	"github.com/linkforge/linkforge/internal/models"
)

// LinkRepository defines the interface for short-link persistence. The
// backing store is the single source of truth; it alone enforces short-code
// uniqueness, via the unique index on short_code.
type LinkRepository interface {
	// Create stores a new short link and returns the persisted entity.
	// A uniqueness violation on short_code returns models.ErrCodeTaken.
	Create(ctx context.Context, create *models.LinkCreate) (*models.ShortLink, error)

	// GetByShortCode retrieves a link by its short code.
	GetByShortCode(ctx context.Context, shortCode string) (*models.ShortLink, error)

	// Exists checks if a short code is already allocated.
	Exists(ctx context.Context, shortCode string) (bool, error)

	// DeactivateExpired flips is_active to false on every active link whose
	// expiry is before now, returning the number of rows affected.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// HealthCheck verifies the repository is healthy.
	HealthCheck(ctx context.Context) error
}

// PostgresLinkRepository implements LinkRepository using PostgreSQL.
type PostgresLinkRepository struct {
	pool *database.Pool
}

// NewPostgresLinkRepository creates a new PostgreSQL-backed link repository.
func NewPostgresLinkRepository(pool *database.Pool) *PostgresLinkRepository {
	return &PostgresLinkRepository{pool: pool}
}

// Create stores a new short link.
func (r *PostgresLinkRepository) Create(ctx context.Context, create *models.LinkCreate) (*models.ShortLink, error) {
	if err := create.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO short_links (short_code, long_url, expiry_at, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, short_code, long_url, created_at, expiry_at, owner_id, is_active
	`

	var link models.ShortLink
	err := r.pool.QueryRow(ctx, query,
		create.ShortCode, create.LongURL, create.ExpiryAt, create.OwnerID,
	).Scan(
		&link.ID,
		&link.ShortCode,
		&link.LongURL,
		&link.CreatedAt,
		&link.ExpiryAt,
		&link.OwnerID,
		&link.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("short code %q: %w", create.ShortCode, models.ErrCodeTaken)
		}
		return nil, fmt.Errorf("failed to create short link: %w", err)
	}

	return &link, nil
}

// GetByShortCode retrieves a link by its short code.
func (r *PostgresLinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.ShortLink, error) {
	query := `
		SELECT id, short_code, long_url, created_at, expiry_at, owner_id, is_active
		FROM short_links
		WHERE short_code = $1
	`

	var link models.ShortLink
	err := r.pool.QueryRow(ctx, query, shortCode).Scan(
		&link.ID,
		&link.ShortCode,
		&link.LongURL,
		&link.CreatedAt,
		&link.ExpiryAt,
		&link.OwnerID,
		&link.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get short link: %w", err)
	}

	return &link, nil
}

// Exists checks if a short code is already allocated.
func (r *PostgresLinkRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM short_links WHERE short_code = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, shortCode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return exists, nil
}

// DeactivateExpired bulk-deactivates expired active links. Zero rows affected
// is a normal outcome, not an error.
func (r *PostgresLinkRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE short_links
		SET is_active = FALSE
		WHERE expiry_at IS NOT NULL AND expiry_at < $1 AND is_active
	`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired links: %w", err)
	}

	return result.RowsAffected(), nil
}

// HealthCheck verifies the database connection is healthy.
func (r *PostgresLinkRepository) HealthCheck(ctx context.Context) error {
	return r.pool.HealthCheck(ctx)
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
