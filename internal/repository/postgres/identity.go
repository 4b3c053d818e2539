package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/abimarket/auth-service/internal/domain"
	"github.com/abimarket/auth-service/internal/repository"
	"github.com/abimarket/auth-service/pkg/apperrors"
)

const identityColumns = `id, email, phone, password_hash, first_name, last_name,
	is_business, company_name, email_verified, phone_verified, status,
	login_attempts, locked_until, last_login_at, last_seen_at, created_at, updated_at`

// IdentityRepository implements repository.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	db repository.DBTX
}

// NewIdentityRepository creates a new PostgreSQL-backed identity repository.
func NewIdentityRepository(db repository.DBTX) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create inserts a new identity. Email and phone collisions surface as
// DuplicateError naming the colliding field.
func (r *IdentityRepository) Create(ctx context.Context, i *domain.Identity) error {
	query := `
		INSERT INTO identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.Exec(ctx, query,
		i.ID,
		i.Email,
		i.Phone,
		i.PasswordHash,
		i.FirstName,
		i.LastName,
		i.IsBusiness,
		i.CompanyName,
		i.EmailVerified,
		i.PhoneVerified,
		i.Status,
		i.LoginAttempts,
		i.LockedUntil,
		i.LastLoginAt,
		i.LastSeenAt,
		i.CreatedAt,
		i.UpdatedAt,
	)
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return apperrors.Duplicate(field)
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	return nil
}

// GetByID retrieves an identity by its ID.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return r.scanIdentity(ctx, query, id)
}

// GetByEmail retrieves an identity by email address.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return r.scanIdentity(ctx, query, email)
}

// GetByEmailOrPhone retrieves the identity matching either value.
func (r *IdentityRepository) GetByEmailOrPhone(ctx context.Context, email, phone string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1 OR phone = $2`
	return r.scanIdentity(ctx, query, email, phone)
}

// Update modifies an existing identity.
func (r *IdentityRepository) Update(ctx context.Context, i *domain.Identity) error {
	i.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE identities
		SET email = $1, phone = $2, password_hash = $3, first_name = $4, last_name = $5,
		    is_business = $6, company_name = $7, email_verified = $8, phone_verified = $9,
		    status = $10, login_attempts = $11, locked_until = $12, updated_at = $13
		WHERE id = $14`

	ct, err := r.db.Exec(ctx, query,
		i.Email,
		i.Phone,
		i.PasswordHash,
		i.FirstName,
		i.LastName,
		i.IsBusiness,
		i.CompanyName,
		i.EmailVerified,
		i.PhoneVerified,
		i.Status,
		i.LoginAttempts,
		i.LockedUntil,
		i.UpdatedAt,
		i.ID,
	)
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return apperrors.Duplicate(field)
		}
		return fmt.Errorf("update identity: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("identity", i.ID)
	}

	return nil
}

// RecordFailedLogin increments the attempt counter and arms the lockout
// deadline once the counter reaches threshold, in a single statement so
// concurrent failures cannot lose the lockout.
func (r *IdentityRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockedUntil time.Time) error {
	query := `
		UPDATE identities
		SET login_attempts = login_attempts + 1,
		    locked_until = CASE WHEN login_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
		    updated_at = $4
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id, threshold, lockedUntil, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("identity", id)
	}

	return nil
}

// ResetLoginAttempts zeroes the counter and clears any lockout.
func (r *IdentityRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	query := `
		UPDATE identities
		SET login_attempts = 0, locked_until = NULL, updated_at = $2
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}

	return nil
}

// RecordLogin stamps the last successful login time.
func (r *IdentityRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE identities SET last_login_at = $2 WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}

	return nil
}

// RecordSeen stamps the last-seen time.
func (r *IdentityRepository) RecordSeen(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE identities SET last_seen_at = $2 WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("record seen: %w", err)
	}

	return nil
}

// scanIdentity executes a query expected to return a single identity row.
func (r *IdentityRepository) scanIdentity(ctx context.Context, query string, args ...any) (*domain.Identity, error) {
	var i domain.Identity

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&i.ID,
		&i.Email,
		&i.Phone,
		&i.PasswordHash,
		&i.FirstName,
		&i.LastName,
		&i.IsBusiness,
		&i.CompanyName,
		&i.EmailVerified,
		&i.PhoneVerified,
		&i.Status,
		&i.LoginAttempts,
		&i.LockedUntil,
		&i.LastLoginAt,
		&i.LastSeenAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	return &i, nil
}

// uniqueViolationField inspects a PostgreSQL unique violation (SQLSTATE
// 23505) and maps the constraint to the colliding input field.
func uniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "phone") {
			return "phone", true
		}
		return "email", true
	}
	// Fallback for drivers that flatten the error into text.
	if err != nil && strings.Contains(err.Error(), "23505") {
		if strings.Contains(err.Error(), "phone") {
			return "phone", true
		}
		return "email", true
	}
	return "", false
}
