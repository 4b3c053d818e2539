package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/abimarket/auth-service/internal/cache"
	"github.com/abimarket/auth-service/internal/domain"
	"github.com/abimarket/auth-service/internal/token"
	"github.com/abimarket/auth-service/pkg/apperrors"
)

// --- Mock Identity Repository ---

type mockIdentityRepository struct {
	mock.Mock
}

func (m *mockIdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *mockIdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockIdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockIdentityRepository) GetByEmailOrPhone(ctx context.Context, email, phone string) (*domain.Identity, error) {
	args := m.Called(ctx, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockIdentityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *mockIdentityRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockedUntil time.Time) error {
	args := m.Called(ctx, id, threshold, lockedUntil)
	return args.Error(0)
}

func (m *mockIdentityRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockIdentityRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockIdentityRepository) RecordSeen(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// --- Mock Refresh Token Repository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, identityID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, identityID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) RevokeAllForIdentity(ctx context.Context, identityID string) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Notifier ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendVerification(ctx context.Context, identity *domain.Identity, token string) {
	m.Called(ctx, identity, token)
}

func (m *mockNotifier) SendPasswordReset(ctx context.Context, identity *domain.Identity, token string) {
	m.Called(ctx, identity, token)
}

func (m *mockNotifier) AnnounceRegistered(ctx context.Context, identity *domain.Identity) {
	m.Called(ctx, identity)
}

// --- Test Helpers ---

const (
	testThreshold = 5
	testLockout   = 15 * time.Minute
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokenManager() *token.Manager {
	return token.NewManager(token.Config{
		AccessSecret:       "access-secret-for-testing-only!!",
		RefreshSecret:      "refresh-secret-for-testing-only!",
		Issuer:             "abimarket-auth",
		Audience:           "abimarket",
		AccessTTL:          15 * time.Minute,
		RefreshTTL:         7 * 24 * time.Hour,
		ExtendedRefreshTTL: 30 * 24 * time.Hour,
		VerificationTTL:    48 * time.Hour,
		ResetTTL:           time.Hour,
	})
}

type testEnv struct {
	identities    *mockIdentityRepository
	refreshTokens *mockRefreshTokenRepository
	notifier      *mockNotifier
	tokens        *token.Manager
	cache         *cache.MemoryIdentityCache
	denylist      *cache.MemoryDenylist
	svc           *AuthService
}

func newTestEnv() *testEnv {
	return newTestEnvWithCacheFreshness(5 * time.Minute)
}

func newTestEnvWithCacheFreshness(freshness time.Duration) *testEnv {
	logger := newTestLogger()
	env := &testEnv{
		identities:    new(mockIdentityRepository),
		refreshTokens: new(mockRefreshTokenRepository),
		notifier:      new(mockNotifier),
		tokens:        newTestTokenManager(),
		cache:         cache.NewMemoryIdentityCache(freshness),
		denylist:      cache.NewMemoryDenylist(),
	}
	guard := NewAccountGuard(env.identities, testThreshold, testLockout, logger)
	env.svc = NewAuthService(
		env.identities, env.refreshTokens, env.tokens,
		env.cache, env.denylist, env.notifier, guard, logger,
	).WithBcryptCost(bcrypt.MinCost)
	return env
}

// allowAsyncCalls registers expectations for the fire-and-forget side
// effects so detached goroutines cannot trip the mocks after a test ends.
func (e *testEnv) allowAsyncCalls() {
	e.notifier.On("SendVerification", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	e.notifier.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	e.notifier.On("AnnounceRegistered", mock.Anything, mock.Anything).Return().Maybe()
	e.identities.On("RecordLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	e.identities.On("RecordSeen", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func activeIdentity() *domain.Identity {
	now := time.Now().UTC()
	return &domain.Identity{
		ID:            "7b6f1f9e-4c2a-4d7e-9f3d-0a1b2c3d4e5f",
		Email:         "awa@example.ci",
		Phone:         "+2250701020304",
		PasswordHash:  hashForTest("SecurePass123"),
		FirstName:     "Awa",
		LastName:      "Kone",
		Status:        domain.StatusActive,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func strPtr(s string) *string {
	return &s
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	env := newTestEnv()
	env.allowAsyncCalls()
	ctx := context.Background()

	env.identities.On("GetByEmailOrPhone", ctx, "awa@example.ci", "+2250701020304").
		Return(nil, apperrors.ErrNotFound)
	env.identities.On("Create", ctx, mock.AnythingOfType("*domain.Identity")).Return(nil)
	env.refreshTokens.On("Create", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	identity, tokens, err := env.svc.Register(ctx, RegisterInput{
		Email:     "Awa@Example.ci",
		Phone:     "07 01 02 03 04",
		Password:  "SecurePass123",
		FirstName: "Awa",
		LastName:  "Kone",
	})

	require.NoError(t, err)
	require.NotNil(t, identity)
	require.NotNil(t, tokens)
	assert.NotEmpty(t, identity.ID)
	assert.Equal(t, "awa@example.ci", identity.Email, "email is lowercased")
	assert.Equal(t, "+2250701020304", identity.Phone, "local number normalized to E.164")
	assert.Equal(t, domain.StatusPendingVerification, identity.Status)
	assert.False(t, identity.EmailVerified)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int64(900), tokens.ExpiresIn)

	// The session tokens must decode back to this identity.
	claims, err := env.tokens.Verify(tokens.AccessToken, token.PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, claims.IdentityID())

	env.identities.AssertExpectations(t)
	env.refreshTokens.AssertExpectations(t)
}

func TestRegister_PasswordNeverSerialized(t *testing.T) {
	env := newTestEnv()
	env.allowAsyncCalls()
	ctx := context.Background()

	env.identities.On("GetByEmailOrPhone", ctx, mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrNotFound)
	env.identities.On("Create", ctx, mock.Anything).Return(nil)
	env.refreshTokens.On("Create", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	identity, _, err := env.svc.Register(ctx, RegisterInput{
		Email:     "awa@example.ci",
		Phone:     "0701020304",
		Password:  "SecurePass123",
		FirstName: "Awa",
		LastName:  "Kone",
	})
	require.NoError(t, err)

	raw, err := json.Marshal(identity)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), identity.PasswordHash)
}

func TestRegister_DuplicateEmailNamesField(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	env.identities.On("GetByEmailOrPhone", ctx, "awa@example.ci", "+2250799999999").
		Return(existing, nil)

	_, _, err := env.svc.Register(ctx, RegisterInput{
		Email:     "awa@example.ci",
		Phone:     "0799999999",
		Password:  "SecurePass123",
		FirstName: "Awa",
		LastName:  "Kone",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "email", appErr.Field)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestRegister_DuplicatePhoneNamesField(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	env.identities.On("GetByEmailOrPhone", ctx, "other@example.ci", existing.Phone).
		Return(existing, nil)

	_, _, err := env.svc.Register(ctx, RegisterInput{
		Email:     "other@example.ci",
		Phone:     "0701020304",
		Password:  "SecurePass123",
		FirstName: "Adjoua",
		LastName:  "Brou",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "phone", appErr.Field)
}

func TestRegister_WeakPasswords(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for name, password := range map[string]string{
		"too short":    "Ab1",
		"no uppercase": "securepass123",
		"no lowercase": "SECUREPASS123",
		"no digit":     "SecurePassword",
	} {
		_, _, err := env.svc.Register(ctx, RegisterInput{
			Email:     "awa@example.ci",
			Phone:     "0701020304",
			Password:  password,
			FirstName: "Awa",
			LastName:  "Kone",
		})
		require.Error(t, err, name)
		assert.ErrorIs(t, err, apperrors.ErrValidation, name)
	}
}

func TestRegister_InvalidPhone(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, _, err := env.svc.Register(ctx, RegisterInput{
		Email:     "awa@example.ci",
		Phone:     "not-a-number",
		Password:  "SecurePass123",
		FirstName: "Awa",
		LastName:  "Kone",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "phone", appErr.Field)
}

func TestRegister_BusinessRequiresCompanyName(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, _, err := env.svc.Register(ctx, RegisterInput{
		Email:      "shop@example.ci",
		Phone:      "0701020304",
		Password:   "SecurePass123",
		FirstName:  "Moussa",
		LastName:   "Diabate",
		IsBusiness: true,
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "company_name", appErr.Field)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	env := newTestEnv()
	env.allowAsyncCalls()
	ctx := context.Background()

	existing := activeIdentity()
	env.identities.On("GetByEmail", ctx, existing.Email).Return(existing, nil)
	env.refreshTokens.On("Create", ctx, existing.ID, mock.Anything, mock.Anything).Return(nil)

	identity, tokens, err := env.svc.Login(ctx, LoginInput{
		Identifier: "Awa@Example.ci",
		Password:   "SecurePass123",
	})

	require.NoError(t, err)
	assert.Equal(t, existing.ID, identity.ID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestLogin_ByPhone(t *testing.T) {
	env := newTestEnv()
	env.allowAsyncCalls()
	ctx := context.Background()

	existing := activeIdentity()
	env.identities.On("GetByEmailOrPhone", ctx, "", existing.Phone).Return(existing, nil)
	env.refreshTokens.On("Create", ctx, existing.ID, mock.Anything, mock.Anything).Return(nil)

	identity, _, err := env.svc.Login(ctx, LoginInput{
		Identifier: "07 01 02 03 04",
		Password:   "SecurePass123",
	})

	require.NoError(t, err)
	assert.Equal(t, existing.ID, identity.ID)
}

func TestLogin_SuccessResetsAttempts(t *testing.T) {
	env := newTestEnv()
	env.allowAsyncCalls()
	ctx := context.Background()

	existing := activeIdentity()
	existing.LoginAttempts = 3
	env.identities.On("GetByEmail", ctx, existing.Email).Return(existing, nil)
	env.identities.On("ResetLoginAttempts", ctx, existing.ID).Return(nil)
	env.refreshTokens.On("Create", ctx, existing.ID, mock.Anything, mock.Anything).Return(nil)

	_, _, err := env.svc.Login(ctx, LoginInput{
		Identifier: existing.Email,
		Password:   "SecurePass123",
	})

	require.NoError(t, err)
	env.identities.AssertCalled(t, "ResetLoginAttempts", ctx, existing.ID)
}

func TestLogin_UnknownIdentifierGenericMessage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.identities.On("GetByEmail", ctx, "ghost@example.ci").Return(nil, apperrors.ErrNotFound)

	_, _, err := env.svc.Login(ctx, LoginInput{
		Identifier: "ghost@example.ci",
		Password:   "SecurePass123",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, msgBadCredentials, appErr.Message)
}

func TestLogin_WrongPasswordRecordsFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	env.identities.On("GetByEmail", ctx, existing.Email).Return(existing, nil)
	env.identities.On("RecordFailedLogin", ctx, existing.ID, testThreshold, mock.AnythingOfType("time.Time")).Return(nil)

	_, _, err := env.svc.Login(ctx, LoginInput{
		Identifier: existing.Email,
		Password:   "WrongPass123",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	// Same message as the unknown-identifier case.
	assert.Equal(t, msgBadCredentials, appErr.Message)
	env.identities.AssertExpectations(t)
}

func TestLogin_LockedEvenWithCorrectPassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	lockedUntil := time.Now().UTC().Add(10*time.Minute + 30*time.Second)
	existing := activeIdentity()
	existing.LoginAttempts = testThreshold
	existing.LockedUntil = &lockedUntil
	env.identities.On("GetByEmail", ctx, existing.Email).Return(existing, nil)

	_, _, err := env.svc.Login(ctx, LoginInput{
		Identifier: existing.Email,
		Password:   "SecurePass123",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAccountLocked)
	// Remaining time is rounded up to whole minutes.
	assert.Contains(t, err.Error(), "11 minutes")
}

func TestLogin_ExpiredLockoutAdmits(t *testing.T) {
	env := newTestEnv()
	env.allowAsyncCalls()
	ctx := context.Background()

	lockedUntil := time.Now().UTC().Add(-time.Minute)
	existing := activeIdentity()
	existing.LoginAttempts = testThreshold
	existing.LockedUntil = &lockedUntil
	env.identities.On("GetByEmail", ctx, existing.Email).Return(existing, nil)
	env.identities.On("ResetLoginAttempts", ctx, existing.ID).Return(nil)
	env.refreshTokens.On("Create", ctx, existing.ID, mock.Anything, mock.Anything).Return(nil)

	_, _, err := env.svc.Login(ctx, LoginInput{
		Identifier: existing.Email,
		Password:   "SecurePass123",
	})

	require.NoError(t, err)
}

func TestLogin_SuspendedAndDeleted(t *testing.T) {
	for _, tc := range []struct {
		status  domain.Status
		message string
	}{
		{domain.StatusSuspended, "account is suspended"},
		{domain.StatusDeleted, "account has been deleted"},
	} {
		env := newTestEnv()
		ctx := context.Background()

		existing := activeIdentity()
		existing.Status = tc.status
		env.identities.On("GetByEmail", ctx, existing.Email).Return(existing, nil)

		_, _, err := env.svc.Login(ctx, LoginInput{
			Identifier: existing.Email,
			Password:   "SecurePass123",
		})

		require.Error(t, err, string(tc.status))
		assert.ErrorIs(t, err, apperrors.ErrAuthorization)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, tc.message, appErr.Message)
	}
}

// --- Refresh ---

func TestRefresh_RotatesToken(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	refreshToken, err := env.tokens.Issue(existing, token.PurposeRefresh, env.tokens.RefreshTTL(false))
	require.NoError(t, err)
	hash := hashToken(refreshToken)

	record := &domain.RefreshToken{
		ID:         "rec-1",
		IdentityID: existing.ID,
		TokenHash:  hash,
		ExpiresAt:  time.Now().UTC().Add(7 * 24 * time.Hour),
	}
	env.refreshTokens.On("GetByHash", ctx, hash).Return(record, nil)
	env.identities.On("GetByID", ctx, existing.ID).Return(existing, nil)
	env.refreshTokens.On("Revoke", ctx, hash).Return(nil)
	env.refreshTokens.On("Create", ctx, existing.ID, mock.Anything, mock.Anything).Return(nil)

	pair, err := env.svc.Refresh(ctx, refreshToken)

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, refreshToken, pair.RefreshToken)
	env.refreshTokens.AssertCalled(t, "Revoke", ctx, hash)
}

func TestRefresh_RevokedRecordRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	refreshToken, err := env.tokens.Issue(existing, token.PurposeRefresh, env.tokens.RefreshTTL(false))
	require.NoError(t, err)
	hash := hashToken(refreshToken)

	revokedAt := time.Now().UTC().Add(-time.Minute)
	record := &domain.RefreshToken{
		IdentityID: existing.ID,
		TokenHash:  hash,
		ExpiresAt:  time.Now().UTC().Add(24 * time.Hour),
		RevokedAt:  &revokedAt,
	}
	env.refreshTokens.On("GetByHash", ctx, hash).Return(record, nil)

	_, err = env.svc.Refresh(ctx, refreshToken)

	require.Error(t, err)
	assert.Equal(t, apperrors.AuthKindRevoked, apperrors.KindOf(err))
}

func TestRefresh_UnknownRecordRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	refreshToken, err := env.tokens.Issue(existing, token.PurposeRefresh, env.tokens.RefreshTTL(false))
	require.NoError(t, err)

	env.refreshTokens.On("GetByHash", ctx, hashToken(refreshToken)).Return(nil, apperrors.ErrNotFound)

	_, err = env.svc.Refresh(ctx, refreshToken)

	require.Error(t, err)
	assert.Equal(t, apperrors.AuthKindRevoked, apperrors.KindOf(err))
}

func TestRefresh_ExpiredRecordRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	refreshToken, err := env.tokens.Issue(existing, token.PurposeRefresh, env.tokens.RefreshTTL(false))
	require.NoError(t, err)
	hash := hashToken(refreshToken)

	record := &domain.RefreshToken{
		IdentityID: existing.ID,
		TokenHash:  hash,
		ExpiresAt:  time.Now().UTC().Add(-time.Minute),
	}
	env.refreshTokens.On("GetByHash", ctx, hash).Return(record, nil)

	_, err = env.svc.Refresh(ctx, refreshToken)

	require.Error(t, err)
	assert.Equal(t, apperrors.AuthKindExpired, apperrors.KindOf(err))
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, time.Minute)
	require.NoError(t, err)

	_, err = env.svc.Refresh(ctx, accessToken)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

// --- Logout ---

func TestLogout_RevokesAndDenylists(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)
	claims, err := env.tokens.Verify(accessToken, token.PurposeAccess)
	require.NoError(t, err)

	refreshToken, err := env.tokens.Issue(existing, token.PurposeRefresh, time.Hour)
	require.NoError(t, err)
	env.refreshTokens.On("Revoke", ctx, hashToken(refreshToken)).Return(nil)

	err = env.svc.Logout(ctx, claims, refreshToken, false)

	require.NoError(t, err)
	assert.True(t, env.denylist.Contains(ctx, claims.ID))
	env.refreshTokens.AssertExpectations(t)
}

func TestLogout_AllDevices(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)
	claims, err := env.tokens.Verify(accessToken, token.PurposeAccess)
	require.NoError(t, err)

	env.refreshTokens.On("RevokeAllForIdentity", ctx, existing.ID).Return(nil)

	err = env.svc.Logout(ctx, claims, "", true)

	require.NoError(t, err)
	env.refreshTokens.AssertCalled(t, "RevokeAllForIdentity", ctx, existing.ID)
	assert.True(t, env.denylist.Contains(ctx, claims.ID))
}

// --- Email verification ---

func TestVerifyEmail_ActivatesPendingAccount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pending := activeIdentity()
	pending.Status = domain.StatusPendingVerification
	pending.EmailVerified = false

	verificationToken, err := env.tokens.Issue(pending, token.PurposeVerification, time.Hour)
	require.NoError(t, err)

	env.identities.On("GetByID", ctx, pending.ID).Return(pending, nil)
	env.identities.On("Update", ctx, mock.MatchedBy(func(i *domain.Identity) bool {
		return i.EmailVerified && i.Status == domain.StatusActive
	})).Return(nil)

	identity, err := env.svc.VerifyEmail(ctx, verificationToken)

	require.NoError(t, err)
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, domain.StatusActive, identity.Status)
	env.identities.AssertExpectations(t)
}

func TestVerifyEmail_Idempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	verified := activeIdentity()
	verificationToken, err := env.tokens.Issue(verified, token.PurposeVerification, time.Hour)
	require.NoError(t, err)

	env.identities.On("GetByID", ctx, verified.ID).Return(verified, nil)

	identity, err := env.svc.VerifyEmail(ctx, verificationToken)

	require.NoError(t, err)
	assert.True(t, identity.EmailVerified)
	// No Update expectation was set; a write would have failed the test.
	env.identities.AssertExpectations(t)
}

func TestVerifyEmail_StaleEmailClaim(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	identity := activeIdentity()
	verificationToken, err := env.tokens.Issue(identity, token.PurposeVerification, time.Hour)
	require.NoError(t, err)

	changed := activeIdentity()
	changed.Email = "new-address@example.ci"
	env.identities.On("GetByID", ctx, identity.ID).Return(changed, nil)

	_, err = env.svc.VerifyEmail(ctx, verificationToken)

	require.Error(t, err)
	assert.Equal(t, apperrors.AuthKindStaleClaim, apperrors.KindOf(err))
}

func TestVerifyEmail_AccessTokenRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	accessToken, err := env.tokens.Issue(activeIdentity(), token.PurposeAccess, time.Minute)
	require.NoError(t, err)

	_, err = env.svc.VerifyEmail(ctx, accessToken)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

// --- Password reset ---

func TestForgotPassword_UnknownEmailSucceeds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.identities.On("GetByEmail", ctx, "ghost@example.ci").Return(nil, apperrors.ErrNotFound)

	err := env.svc.ForgotPassword(ctx, "ghost@example.ci")

	require.NoError(t, err)
	env.notifier.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything, mock.Anything)
}

func TestForgotPassword_KnownEmailSendsReset(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	env.identities.On("GetByEmail", ctx, existing.Email).Return(existing, nil)

	sent := make(chan string, 1)
	env.notifier.On("SendPasswordReset", mock.Anything, existing, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { sent <- args.String(2) }).Return()

	err := env.svc.ForgotPassword(ctx, existing.Email)
	require.NoError(t, err)

	select {
	case resetToken := <-sent:
		claims, err := env.tokens.Verify(resetToken, token.PurposeReset)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, claims.IdentityID())
	case <-time.After(2 * time.Second):
		t.Fatal("reset notification was not sent")
	}
}

func TestResetPassword_ClearsLockoutAndRevokesSessions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	lockedUntil := time.Now().UTC().Add(10 * time.Minute)
	existing := activeIdentity()
	existing.LoginAttempts = testThreshold
	existing.LockedUntil = &lockedUntil

	resetToken, err := env.tokens.Issue(existing, token.PurposeReset, time.Hour)
	require.NoError(t, err)

	oldHash := existing.PasswordHash
	env.identities.On("GetByID", ctx, existing.ID).Return(existing, nil)
	env.identities.On("Update", ctx, mock.MatchedBy(func(i *domain.Identity) bool {
		return i.PasswordHash != oldHash && i.LoginAttempts == 0 && i.LockedUntil == nil
	})).Return(nil)
	env.refreshTokens.On("RevokeAllForIdentity", ctx, existing.ID).Return(nil)

	err = env.svc.ResetPassword(ctx, resetToken, "BrandNewPass1")

	require.NoError(t, err)
	env.identities.AssertExpectations(t)
	env.refreshTokens.AssertExpectations(t)
}

func TestResetPassword_WeakPasswordRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resetToken, err := env.tokens.Issue(activeIdentity(), token.PurposeReset, time.Hour)
	require.NoError(t, err)

	err = env.svc.ResetPassword(ctx, resetToken, "weak")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestResetPassword_VerificationTokenRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	verificationToken, err := env.tokens.Issue(activeIdentity(), token.PurposeVerification, time.Hour)
	require.NoError(t, err)

	err = env.svc.ResetPassword(ctx, verificationToken, "BrandNewPass1")

	require.Error(t, err)
	assert.Equal(t, apperrors.AuthKindWrongPurpose, apperrors.KindOf(err))
}

// --- Change password ---

func TestChangePassword_Success(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	env.identities.On("GetByID", ctx, existing.ID).Return(existing, nil)
	env.identities.On("Update", ctx, mock.Anything).Return(nil)
	env.refreshTokens.On("RevokeAllForIdentity", ctx, existing.ID).Return(nil)

	err := env.svc.ChangePassword(ctx, existing.ID, "SecurePass123", "BrandNewPass1")

	require.NoError(t, err)
	env.refreshTokens.AssertCalled(t, "RevokeAllForIdentity", ctx, existing.ID)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	env.identities.On("GetByID", ctx, existing.ID).Return(existing, nil)

	err := env.svc.ChangePassword(ctx, existing.ID, "WrongPass123", "BrandNewPass1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestChangePassword_SameAsCurrentRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.svc.ChangePassword(ctx, "id-1", "SecurePass123", "SecurePass123")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// --- Profile ---

func TestUpdateProfile_PhoneChangeResetsVerification(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	existing.PhoneVerified = true
	env.identities.On("GetByID", ctx, existing.ID).Return(existing, nil)
	env.identities.On("Update", ctx, mock.MatchedBy(func(i *domain.Identity) bool {
		return i.Phone == "+2250505060708" && !i.PhoneVerified
	})).Return(nil)

	updated, err := env.svc.UpdateProfile(ctx, existing.ID, UpdateProfileInput{
		Phone: strPtr("05 05 06 07 08"),
	})

	require.NoError(t, err)
	assert.Equal(t, "+2250505060708", updated.Phone)
	assert.False(t, updated.PhoneVerified)
}

func TestUpdateProfile_EmptyNameRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	env.identities.On("GetByID", ctx, existing.ID).Return(existing, nil)

	_, err := env.svc.UpdateProfile(ctx, existing.ID, UpdateProfileInput{
		FirstName: strPtr(""),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// --- Token resolution ---

func TestResolveToken_Success(t *testing.T) {
	env := newTestEnv()
	env.allowAsyncCalls()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)

	env.identities.On("GetByID", ctx, existing.ID).Return(existing, nil).Once()

	identity, claims, err := env.svc.ResolveToken(ctx, accessToken)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, identity.ID)
	assert.Equal(t, existing.ID, claims.IdentityID())
}

func TestResolveToken_SecondCallServedFromCache(t *testing.T) {
	env := newTestEnv()
	env.allowAsyncCalls()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)

	// Only one store hit is permitted; the second resolution must come
	// from the cache.
	env.identities.On("GetByID", ctx, existing.ID).Return(existing, nil).Once()

	_, _, err = env.svc.ResolveToken(ctx, accessToken)
	require.NoError(t, err)
	_, _, err = env.svc.ResolveToken(ctx, accessToken)
	require.NoError(t, err)

	env.identities.AssertExpectations(t)
}

func TestResolveToken_StaleCacheEntryReloadedFromStore(t *testing.T) {
	env := newTestEnvWithCacheFreshness(200 * time.Millisecond)
	env.allowAsyncCalls()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)

	suspended := *existing
	suspended.Status = domain.StatusSuspended

	// First store read returns the active snapshot; the second, after the
	// cache entry goes stale, returns the suspension applied in between.
	env.identities.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()
	env.identities.On("GetByID", mock.Anything, existing.ID).Return(&suspended, nil).Once()

	_, _, err = env.svc.ResolveToken(ctx, accessToken)
	require.NoError(t, err)

	// Sustained traffic inside the freshness window is served from the
	// cache without re-stamping the entry.
	for i := 0; i < 2; i++ {
		time.Sleep(50 * time.Millisecond)
		_, _, err = env.svc.ResolveToken(ctx, accessToken)
		require.NoError(t, err)
	}
	env.identities.AssertNumberOfCalls(t, "GetByID", 1)

	// Once the entry is older than the window, the store is read again
	// and the suspension is observed even though requests never paused.
	time.Sleep(250 * time.Millisecond)
	_, _, err = env.svc.ResolveToken(ctx, accessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	env.identities.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestResolveToken_DenylistedRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)
	claims, err := env.tokens.Verify(accessToken, token.PurposeAccess)
	require.NoError(t, err)

	require.NoError(t, env.denylist.Add(ctx, claims.ID, claims.ExpiresAt.Time))

	_, _, err = env.svc.ResolveToken(ctx, accessToken)

	require.Error(t, err)
	assert.Equal(t, apperrors.AuthKindRevoked, apperrors.KindOf(err))
}

func TestResolveToken_UnknownIdentityDenylisted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)

	env.identities.On("GetByID", ctx, existing.ID).Return(nil, apperrors.ErrNotFound).Once()

	_, _, err = env.svc.ResolveToken(ctx, accessToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.AuthKindNotFound, apperrors.KindOf(err))

	// The same token is now rejected by the denylist without touching
	// the store.
	_, _, err = env.svc.ResolveToken(ctx, accessToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.AuthKindRevoked, apperrors.KindOf(err))
	env.identities.AssertExpectations(t)
}

func TestResolveToken_SuspendedForbidden(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)

	suspended := activeIdentity()
	suspended.Status = domain.StatusSuspended
	env.identities.On("GetByID", ctx, existing.ID).Return(suspended, nil)

	_, _, err = env.svc.ResolveToken(ctx, accessToken)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	// Suspension can be lifted; the token stays off the denylist.
	claims, _ := env.tokens.Verify(accessToken, token.PurposeAccess)
	assert.False(t, env.denylist.Contains(ctx, claims.ID))
}

func TestResolveToken_DeletedDenylisted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)

	deleted := activeIdentity()
	deleted.Status = domain.StatusDeleted
	env.identities.On("GetByID", ctx, existing.ID).Return(deleted, nil).Once()

	_, _, err = env.svc.ResolveToken(ctx, accessToken)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	claims, _ := env.tokens.Verify(accessToken, token.PurposeAccess)
	assert.True(t, env.denylist.Contains(ctx, claims.ID))
}

func TestResolveToken_StaleEmailClaimDenylisted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	existing := activeIdentity()
	accessToken, err := env.tokens.Issue(existing, token.PurposeAccess, 15*time.Minute)
	require.NoError(t, err)

	changed := activeIdentity()
	changed.Email = "new-address@example.ci"
	env.identities.On("GetByID", ctx, existing.ID).Return(changed, nil).Once()

	_, _, err = env.svc.ResolveToken(ctx, accessToken)

	require.Error(t, err)
	assert.Equal(t, apperrors.AuthKindStaleClaim, apperrors.KindOf(err))
	claims, _ := env.tokens.Verify(accessToken, token.PurposeAccess)
	assert.True(t, env.denylist.Contains(ctx, claims.ID))
}
