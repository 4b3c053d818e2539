package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abimarket/auth-service/internal/domain"
	"github.com/abimarket/auth-service/pkg/apperrors"
)

func TestGuardCheck_NotLocked(t *testing.T) {
	identities := new(mockIdentityRepository)
	g := NewAccountGuard(identities, testThreshold, testLockout, newTestLogger())

	assert.NoError(t, g.Check(&domain.Identity{ID: "id-1"}))
}

func TestGuardCheck_LockedReportsWholeMinutesRoundedUp(t *testing.T) {
	identities := new(mockIdentityRepository)
	g := NewAccountGuard(identities, testThreshold, testLockout, newTestLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	for _, tc := range []struct {
		remaining time.Duration
		want      string
	}{
		{15 * time.Minute, "15 minutes"},
		{10*time.Minute + 30*time.Second, "11 minutes"},
		{59 * time.Second, "1 minutes"},
	} {
		lockedUntil := now.Add(tc.remaining)
		err := g.Check(&domain.Identity{ID: "id-1", LockedUntil: &lockedUntil})
		require.Error(t, err, tc.remaining)
		assert.ErrorIs(t, err, apperrors.ErrAccountLocked)
		assert.Contains(t, err.Error(), tc.want)
	}
}

func TestGuardCheck_ExpiredLockoutPasses(t *testing.T) {
	identities := new(mockIdentityRepository)
	g := NewAccountGuard(identities, testThreshold, testLockout, newTestLogger())

	lockedUntil := time.Now().UTC().Add(-time.Second)
	assert.NoError(t, g.Check(&domain.Identity{ID: "id-1", LockedUntil: &lockedUntil}))
}

func TestGuardRecordFailure_ArmsLockoutDeadline(t *testing.T) {
	identities := new(mockIdentityRepository)
	g := NewAccountGuard(identities, testThreshold, testLockout, newTestLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	identities.On("RecordFailedLogin", mock.Anything, "id-1", testThreshold, now.Add(testLockout)).Return(nil)

	g.RecordFailure(context.Background(), &domain.Identity{ID: "id-1", LoginAttempts: testThreshold - 1})

	identities.AssertExpectations(t)
}

func TestGuardReset_SkipsCleanIdentity(t *testing.T) {
	identities := new(mockIdentityRepository)
	g := NewAccountGuard(identities, testThreshold, testLockout, newTestLogger())

	// No ResetLoginAttempts expectation; a call would fail the test.
	g.Reset(context.Background(), &domain.Identity{ID: "id-1"})

	identities.AssertExpectations(t)
}

func TestGuardReset_ClearsAttempts(t *testing.T) {
	identities := new(mockIdentityRepository)
	g := NewAccountGuard(identities, testThreshold, testLockout, newTestLogger())

	identities.On("ResetLoginAttempts", mock.Anything, "id-1").Return(nil)

	g.Reset(context.Background(), &domain.Identity{ID: "id-1", LoginAttempts: 2})

	identities.AssertExpectations(t)
}
