package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/abimarket/auth-service/internal/domain"
	"github.com/abimarket/auth-service/internal/repository"
	"github.com/abimarket/auth-service/pkg/apperrors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	db repository.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(db repository.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create stores a new refresh token hash with its expiry.
func (r *RefreshTokenRepository) Create(ctx context.Context, identityID, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (identity_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, identityID, tokenHash, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a revocation record by its token hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, identity_id, token_hash, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1`

	var rt domain.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&rt.ID,
		&rt.IdentityID,
		&rt.TokenHash,
		&rt.ExpiresAt,
		&rt.CreatedAt,
		&rt.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &rt, nil
}

// Revoke marks a specific token hash as revoked.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE token_hash = $2 AND revoked_at IS NULL`

	_, err := r.db.Exec(ctx, query, time.Now().UTC(), tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

// RevokeAllForIdentity revokes every live token for the identity.
func (r *RefreshTokenRepository) RevokeAllForIdentity(ctx context.Context, identityID string) error {
	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE identity_id = $2 AND revoked_at IS NULL`

	_, err := r.db.Exec(ctx, query, time.Now().UTC(), identityID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens for identity: %w", err)
	}

	return nil
}

// DeleteExpired removes records whose expiry passed before cutoff.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`

	ct, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}
