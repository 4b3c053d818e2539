package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abimarket/auth-service/internal/domain"
	"github.com/abimarket/auth-service/internal/repository"
	"github.com/abimarket/auth-service/pkg/apperrors"
)

// AccountGuard enforces login-attempt thresholds and temporary lockouts.
// State lives on the identity record, so lockouts survive restarts and are
// shared across processes. Keying is per identity, not per IP+identity; a
// deliberate trade-off at this scale.
type AccountGuard struct {
	identities repository.IdentityRepository
	threshold  int
	lockout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewAccountGuard creates a guard locking an identity out for lockout
// duration after threshold consecutive failures.
func NewAccountGuard(identities repository.IdentityRepository, threshold int, lockout time.Duration, logger *slog.Logger) *AccountGuard {
	return &AccountGuard{
		identities: identities,
		threshold:  threshold,
		lockout:    lockout,
		logger:     logger,
		now:        time.Now,
	}
}

// Check rejects the attempt while the identity is inside its lockout
// window. The rejection happens before any password hashing so a locked
// attempt costs nothing and consumes no extra counter.
func (g *AccountGuard) Check(identity *domain.Identity) error {
	now := g.now().UTC()
	if !identity.IsLocked(now) {
		return nil
	}

	remaining := identity.LockoutRemaining(now)
	minutes := int64(remaining / time.Minute)
	if remaining%time.Minute > 0 {
		minutes++
	}

	return apperrors.Locked(fmt.Sprintf(
		"account temporarily locked, try again in %d minutes", minutes))
}

// RecordFailure bumps the identity's attempt counter; reaching the
// threshold arms the lockout deadline. The increment is not atomic against
// concurrent failures, which can under-count by one; acceptable with a
// coarse threshold.
func (g *AccountGuard) RecordFailure(ctx context.Context, identity *domain.Identity) {
	lockedUntil := g.now().UTC().Add(g.lockout)
	if err := g.identities.RecordFailedLogin(ctx, identity.ID, g.threshold, lockedUntil); err != nil {
		g.logger.ErrorContext(ctx, "failed to record login failure",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if identity.LoginAttempts+1 >= g.threshold {
		g.logger.WarnContext(ctx, "account locked after repeated failures",
			slog.String("identity_id", identity.ID),
			slog.Int("attempts", identity.LoginAttempts+1),
			slog.Time("locked_until", lockedUntil),
		)
	}
}

// Reset zeroes the counter and clears the lockout after a successful
// authentication. Skipped when there is nothing to clear.
func (g *AccountGuard) Reset(ctx context.Context, identity *domain.Identity) {
	if identity.LoginAttempts == 0 && identity.LockedUntil == nil {
		return
	}
	if err := g.identities.ResetLoginAttempts(ctx, identity.ID); err != nil {
		g.logger.ErrorContext(ctx, "failed to reset login attempts",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}
}
