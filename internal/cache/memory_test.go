package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abimarket/auth-service/internal/domain"
)

func testSnapshot(id string) *domain.Identity {
	return &domain.Identity{
		ID:     id,
		Email:  "awa@example.ci",
		Status: domain.StatusActive,
	}
}

func TestMemoryIdentityCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryIdentityCache(5 * time.Minute)

	c.Set(ctx, testSnapshot("id-1"))

	got, ok := c.Get(ctx, "id-1")
	require.True(t, ok)
	assert.Equal(t, "id-1", got.ID)

	_, ok = c.Get(ctx, "id-2")
	assert.False(t, ok)
}

func TestMemoryIdentityCache_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryIdentityCache(5 * time.Minute)
	c.Set(ctx, testSnapshot("id-1"))

	first, ok := c.Get(ctx, "id-1")
	require.True(t, ok)
	first.Email = "mutated@example.ci"

	second, ok := c.Get(ctx, "id-1")
	require.True(t, ok)
	assert.Equal(t, "awa@example.ci", second.Email, "mutating a returned snapshot must not affect the cache")
}

func TestMemoryIdentityCache_StaleEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryIdentityCache(5 * time.Minute)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return now }
	c.Set(ctx, testSnapshot("id-1"))

	// Still fresh just inside the window.
	c.nowFunc = func() time.Time { return now.Add(5 * time.Minute) }
	_, ok := c.Get(ctx, "id-1")
	assert.True(t, ok)

	// Stale just past it.
	c.nowFunc = func() time.Time { return now.Add(5*time.Minute + time.Second) }
	_, ok = c.Get(ctx, "id-1")
	assert.False(t, ok)
}

func TestMemoryIdentityCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryIdentityCache(5 * time.Minute)
	c.Set(ctx, testSnapshot("id-1"))

	c.Invalidate(ctx, "id-1")

	_, ok := c.Get(ctx, "id-1")
	assert.False(t, ok)
}

func TestMemoryIdentityCache_SweepDropsStaleOnly(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryIdentityCache(5 * time.Minute)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return now }
	c.Set(ctx, testSnapshot("old"))

	c.nowFunc = func() time.Time { return now.Add(4 * time.Minute) }
	c.Set(ctx, testSnapshot("fresh"))

	c.nowFunc = func() time.Time { return now.Add(6 * time.Minute) }
	c.Sweep(ctx)

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(ctx, "fresh")
	assert.True(t, ok)
}

func TestMemoryIdentityCache_IgnoresNilAndEmpty(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryIdentityCache(5 * time.Minute)

	c.Set(ctx, nil)
	c.Set(ctx, &domain.Identity{})

	assert.Equal(t, 0, c.Len())
}

func TestMemoryDenylist_AddContains(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()

	require.NoError(t, d.Add(ctx, "jti-1", time.Now().Add(time.Hour)))

	assert.True(t, d.Contains(ctx, "jti-1"))
	assert.False(t, d.Contains(ctx, "jti-2"))
}

func TestMemoryDenylist_ExpiredEntryNotContained(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.nowFunc = func() time.Time { return now }
	require.NoError(t, d.Add(ctx, "jti-1", now.Add(time.Minute)))

	assert.True(t, d.Contains(ctx, "jti-1"))

	d.nowFunc = func() time.Time { return now.Add(2 * time.Minute) }
	assert.False(t, d.Contains(ctx, "jti-1"))
}

func TestMemoryDenylist_SweepRemovesExpired(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.nowFunc = func() time.Time { return now }
	require.NoError(t, d.Add(ctx, "expired", now.Add(time.Minute)))
	require.NoError(t, d.Add(ctx, "live", now.Add(time.Hour)))

	d.nowFunc = func() time.Time { return now.Add(10 * time.Minute) }
	d.Sweep(ctx)

	assert.Equal(t, 1, d.Len())
	assert.True(t, d.Contains(ctx, "live"))
}
