// Package cache holds the advisory in-process state the token verifier
// leans on: a read-through identity cache and a denylist for tokens that
// were revoked before their natural expiry. Both have in-memory and Redis
// backends behind the same interfaces, so a single-process deployment can
// move to a shared store without touching call sites. The credential store
// stays authoritative; losing either structure is safe.
package cache

import (
	"context"
	"time"

	"github.com/abimarket/auth-service/internal/domain"
)

// IdentityCache is a bounded-freshness cache of identity snapshots keyed by
// identity id. Entries older than the configured freshness window are
// treated as absent.
type IdentityCache interface {
	// Get returns the cached snapshot for id, or false when the entry is
	// missing or stale.
	Get(ctx context.Context, id string) (*domain.Identity, bool)

	// Set stores a snapshot, resetting its freshness clock.
	Set(ctx context.Context, identity *domain.Identity)

	// Invalidate drops the entry for id, if any.
	Invalidate(ctx context.Context, id string)

	// Sweep removes stale entries. Backends with native TTLs may no-op.
	Sweep(ctx context.Context)
}

// TokenDenylist records token ids (jti) that must be rejected even though
// their signature and expiry still check out. Entries carry the token's
// natural expiry so the list stays bounded.
type TokenDenylist interface {
	// Add marks the token id as revoked until expiresAt.
	Add(ctx context.Context, jti string, expiresAt time.Time) error

	// Contains reports whether the token id is currently denylisted.
	Contains(ctx context.Context, jti string) bool

	// Sweep removes entries whose expiry has passed. Backends with native
	// TTLs may no-op.
	Sweep(ctx context.Context)
}
