package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abimarket/auth-service/internal/domain"
)

const (
	identityKeyPrefix = "auth:identity:"
	denylistKeyPrefix = "auth:denylist:"
)

// RedisIdentityCache is an IdentityCache backed by Redis. Freshness maps
// onto key TTLs, so Sweep is a no-op. Redis failures degrade to cache
// misses; the credential store remains the fallback.
type RedisIdentityCache struct {
	client    *redis.Client
	freshness time.Duration
	logger    *slog.Logger
}

// NewRedisIdentityCache creates a Redis-backed identity cache.
func NewRedisIdentityCache(client *redis.Client, freshness time.Duration, logger *slog.Logger) *RedisIdentityCache {
	return &RedisIdentityCache{client: client, freshness: freshness, logger: logger}
}

// Get fetches and decodes the cached snapshot for id.
func (c *RedisIdentityCache) Get(ctx context.Context, id string) (*domain.Identity, bool) {
	val, err := c.client.Get(ctx, identityKeyPrefix+id).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "identity cache read failed",
				slog.String("identity_id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	var identity domain.Identity
	if err := json.Unmarshal([]byte(val), &identity); err != nil {
		c.logger.WarnContext(ctx, "identity cache entry corrupt, dropping",
			slog.String("identity_id", id),
			slog.String("error", err.Error()),
		)
		c.client.Del(ctx, identityKeyPrefix+id)
		return nil, false
	}

	return &identity, true
}

// Set stores the snapshot with the freshness window as TTL.
func (c *RedisIdentityCache) Set(ctx context.Context, identity *domain.Identity) {
	if identity == nil || identity.ID == "" {
		return
	}

	data, err := json.Marshal(identity)
	if err != nil {
		c.logger.WarnContext(ctx, "identity cache encode failed",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := c.client.Set(ctx, identityKeyPrefix+identity.ID, data, c.freshness).Err(); err != nil {
		c.logger.WarnContext(ctx, "identity cache write failed",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate drops the entry for id.
func (c *RedisIdentityCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, identityKeyPrefix+id).Err(); err != nil {
		c.logger.WarnContext(ctx, "identity cache invalidate failed",
			slog.String("identity_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// Sweep is a no-op; Redis expires entries natively.
func (c *RedisIdentityCache) Sweep(context.Context) {}

// RedisDenylist is a TokenDenylist backed by Redis, shared across
// processes. Entries expire with the token they revoke.
type RedisDenylist struct {
	client  *redis.Client
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewRedisDenylist creates a Redis-backed token denylist.
func NewRedisDenylist(client *redis.Client, logger *slog.Logger) *RedisDenylist {
	return &RedisDenylist{client: client, logger: logger, nowFunc: time.Now}
}

// Add marks jti as revoked until expiresAt.
func (d *RedisDenylist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(d.nowFunc())
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistKeyPrefix+jti, "1", ttl).Err()
}

// Contains reports whether jti is denylisted. Redis failures are reported
// as not-denylisted; the miss is logged.
func (d *RedisDenylist) Contains(ctx context.Context, jti string) bool {
	n, err := d.client.Exists(ctx, denylistKeyPrefix+jti).Result()
	if err != nil {
		d.logger.WarnContext(ctx, "denylist read failed",
			slog.String("jti", jti),
			slog.String("error", err.Error()),
		)
		return false
	}
	return n > 0
}

// Sweep is a no-op; Redis expires entries natively.
func (d *RedisDenylist) Sweep(context.Context) {}
