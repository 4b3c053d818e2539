package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/abimarket/auth-service/internal/domain"
)

// DBTX is the subset of pgxpool.Pool the repositories use. pgxmock pools
// satisfy it too, so repository tests run without a live database.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IdentityRepository defines persistence operations for identity records.
type IdentityRepository interface {
	// Create inserts a new identity into the store.
	Create(ctx context.Context, identity *domain.Identity) error

	// GetByID retrieves an identity by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Identity, error)

	// GetByEmail retrieves an identity by email address.
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)

	// GetByEmailOrPhone retrieves the identity matching either the email or
	// the normalized phone number.
	GetByEmailOrPhone(ctx context.Context, email, phone string) (*domain.Identity, error)

	// Update modifies an existing identity in the store.
	Update(ctx context.Context, identity *domain.Identity) error

	// RecordFailedLogin increments the identity's attempt counter and, when
	// the counter reaches threshold, sets the lockout deadline to lockedUntil.
	RecordFailedLogin(ctx context.Context, id string, threshold int, lockedUntil time.Time) error

	// ResetLoginAttempts zeroes the attempt counter and clears any lockout.
	ResetLoginAttempts(ctx context.Context, id string) error

	// RecordLogin stamps the identity's last successful login time.
	RecordLogin(ctx context.Context, id string, at time.Time) error

	// RecordSeen stamps the identity's last-seen time. Best-effort; callers
	// do not fail requests on its error.
	RecordSeen(ctx context.Context, id string, at time.Time) error
}

// RefreshTokenRepository defines persistence operations for refresh-token
// revocation records.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash with its expiry.
	Create(ctx context.Context, identityID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a revocation record by token hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke marks a specific token hash as revoked.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeAllForIdentity revokes every live token for the identity.
	RevokeAllForIdentity(ctx context.Context, identityID string) error

	// DeleteExpired removes records whose expiry passed before cutoff and
	// returns the number removed. Housekeeping; safety does not depend on it.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
