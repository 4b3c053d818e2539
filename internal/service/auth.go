package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abimarket/auth-service/internal/cache"
	"github.com/abimarket/auth-service/internal/domain"
	"github.com/abimarket/auth-service/internal/event"
	"github.com/abimarket/auth-service/internal/repository"
	"github.com/abimarket/auth-service/internal/token"
	"github.com/abimarket/auth-service/pkg/apperrors"
)

// defaultBcryptCost is the cost factor for bcrypt password hashing.
const defaultBcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// msgBadCredentials is the single message for every credential failure on
// login so a caller cannot tell an unknown identifier from a wrong
// password.
const msgBadCredentials = "incorrect credentials"

// AuthService implements the business logic for identity and session
// operations.
type AuthService struct {
	identities    repository.IdentityRepository
	refreshTokens repository.RefreshTokenRepository
	tokens        *token.Manager
	identityCache cache.IdentityCache
	denylist      cache.TokenDenylist
	notifier      event.Notifier
	guard         *AccountGuard
	logger        *slog.Logger
	bcryptCost    int
	now           func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	identities repository.IdentityRepository,
	refreshTokens repository.RefreshTokenRepository,
	tokens *token.Manager,
	identityCache cache.IdentityCache,
	denylist cache.TokenDenylist,
	notifier event.Notifier,
	guard *AccountGuard,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		identities:    identities,
		refreshTokens: refreshTokens,
		tokens:        tokens,
		identityCache: identityCache,
		denylist:      denylist,
		notifier:      notifier,
		guard:         guard,
		logger:        logger,
		bcryptCost:    defaultBcryptCost,
		now:           time.Now,
	}
}

// WithBcryptCost overrides the bcrypt cost factor. Tests use a low cost to
// stay fast.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// WithClock overrides the service clock. Used by tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new identity.
type RegisterInput struct {
	Email       string
	Phone       string
	Password    string
	FirstName   string
	LastName    string
	IsBusiness  bool
	CompanyName string
}

// LoginInput holds the parameters for login. Identifier is an email
// address or a phone number in any common local or international form.
type LoginInput struct {
	Identifier string
	Password   string
	RememberMe bool
}

// UpdateProfileInput holds the parameters for updating a profile. Nil
// fields are left unchanged.
type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	CompanyName *string
}

// --- Session flows ---

// Register creates a new identity in pending_verification status, hands a
// verification token to the notification pipeline, and returns an initial
// session pair. Email and phone collisions report the colliding field.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Identity, *domain.TokenPair, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, nil, apperrors.ValidationField("email", "email is required")
	}
	if input.FirstName == "" {
		return nil, nil, apperrors.ValidationField("first_name", "first name is required")
	}
	if input.LastName == "" {
		return nil, nil, apperrors.ValidationField("last_name", "last name is required")
	}
	if input.IsBusiness && input.CompanyName == "" {
		return nil, nil, apperrors.ValidationField("company_name", "company name is required for business accounts")
	}
	phone, err := domain.NormalizePhone(input.Phone)
	if err != nil {
		return nil, nil, apperrors.ValidationField("phone", err.Error())
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	// Pre-check so the common duplicate case reports the colliding field
	// without a round trip through a constraint violation. The unique
	// constraints remain the backstop for races.
	if existing, err := s.identities.GetByEmailOrPhone(ctx, email, phone); err == nil {
		field := "phone"
		if existing.Email == email {
			field = "email"
		}
		return nil, nil, apperrors.Duplicate(field)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing identity: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	identity := &domain.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hashedPassword),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		IsBusiness:   input.IsBusiness,
		CompanyName:  input.CompanyName,
		Status:       domain.StatusPendingVerification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, nil, err
	}

	verificationToken, err := s.tokens.Issue(identity, token.PurposeVerification, s.tokens.TTLFor(token.PurposeVerification))
	if err != nil {
		return nil, nil, fmt.Errorf("issue verification token: %w", err)
	}

	// Notification delivery never blocks or fails the registration.
	go func(ctx context.Context) {
		s.notifier.SendVerification(ctx, identity, verificationToken)
		s.notifier.AnnounceRegistered(ctx, identity)
	}(context.WithoutCancel(ctx))

	pair, err := s.issueSessionPair(ctx, identity, false)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "identity registered",
		slog.String("identity_id", identity.ID),
		slog.Bool("is_business", identity.IsBusiness),
	)

	return identity, pair, nil
}

// Login authenticates an identity by email or phone plus password. All
// credential failures share one generic message; lockout and account
// status are only disclosed once the caller has proven something.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.Identity, *domain.TokenPair, error) {
	if input.Identifier == "" {
		return nil, nil, apperrors.ValidationField("identifier", "email or phone is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.ValidationField("password", "password is required")
	}

	identity, err := s.findByIdentifier(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Authentication(apperrors.AuthKindBadCredentials, msgBadCredentials)
		}
		return nil, nil, fmt.Errorf("look up identity: %w", err)
	}

	// Locked accounts are rejected before the password is even compared,
	// so the lockout window cannot be probed with the right password.
	if err := s.guard.Check(identity); err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(input.Password)); err != nil {
		s.guard.RecordFailure(ctx, identity)
		return nil, nil, apperrors.Authentication(apperrors.AuthKindBadCredentials, msgBadCredentials)
	}

	switch identity.Status {
	case domain.StatusSuspended:
		return nil, nil, apperrors.Authorization("account is suspended")
	case domain.StatusDeleted:
		return nil, nil, apperrors.Authorization("account has been deleted")
	}

	s.guard.Reset(ctx, identity)

	pair, err := s.issueSessionPair(ctx, identity, input.RememberMe)
	if err != nil {
		return nil, nil, err
	}

	go func(ctx context.Context) {
		if err := s.identities.RecordLogin(ctx, identity.ID, s.now().UTC()); err != nil {
			s.logger.ErrorContext(ctx, "failed to record login time",
				slog.String("identity_id", identity.ID),
				slog.String("error", err.Error()),
			)
		}
	}(context.WithoutCancel(ctx))

	s.logger.InfoContext(ctx, "identity logged in",
		slog.String("identity_id", identity.ID),
	)

	return identity, pair, nil
}

// Refresh rotates a refresh token: the presented token's revocation record
// is revoked and a fresh pair issued. A token is usable exactly once;
// replaying a rotated token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.Authentication(apperrors.AuthKindMissing, "refresh token is required")
	}

	claims, err := s.tokens.Verify(refreshToken, token.PurposeRefresh)
	if err != nil {
		return nil, err
	}

	record, err := s.refreshTokens.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Authentication(apperrors.AuthKindRevoked, "refresh token is no longer valid")
		}
		return nil, fmt.Errorf("look up refresh token: %w", err)
	}

	now := s.now().UTC()
	if record.RevokedAt != nil {
		return nil, apperrors.Authentication(apperrors.AuthKindRevoked, "refresh token has been revoked")
	}
	if !now.Before(record.ExpiresAt) {
		return nil, apperrors.Authentication(apperrors.AuthKindExpired, "refresh token has expired")
	}

	identity, err := s.identities.GetByID(ctx, claims.IdentityID())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Authentication(apperrors.AuthKindNotFound, "refresh token is no longer valid")
		}
		return nil, fmt.Errorf("get identity for refresh: %w", err)
	}

	switch identity.Status {
	case domain.StatusSuspended:
		return nil, apperrors.Authorization("account is suspended")
	case domain.StatusDeleted:
		return nil, apperrors.Authorization("account has been deleted")
	}

	// Revoke before issuing. Single-use depends on this ordering, so a
	// revocation failure aborts the rotation.
	if err := s.refreshTokens.Revoke(ctx, record.TokenHash); err != nil {
		return nil, fmt.Errorf("revoke rotated refresh token: %w", err)
	}

	// A record issued with a "remember me" horizon keeps it through
	// rotation.
	extended := record.ExpiresAt.Sub(now) > s.tokens.RefreshTTL(false)

	pair, err := s.issueSessionPair(ctx, identity, extended)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session refreshed",
		slog.String("identity_id", identity.ID),
	)

	return pair, nil
}

// Logout revokes the presented refresh token, or every refresh token for
// the identity when allDevices is set, and denylists the current access
// token so it dies before its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *token.Claims, refreshToken string, allDevices bool) error {
	if allDevices {
		if err := s.refreshTokens.RevokeAllForIdentity(ctx, claims.IdentityID()); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
	} else if refreshToken != "" {
		if err := s.refreshTokens.Revoke(ctx, hashToken(refreshToken)); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}

	if err := s.denylist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.WarnContext(ctx, "failed to denylist access token on logout",
			slog.String("identity_id", claims.IdentityID()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "identity logged out",
		slog.String("identity_id", claims.IdentityID()),
		slog.Bool("all_devices", allDevices),
	)

	return nil
}

// --- Verification and password flows ---

// VerifyEmail consumes a verification-purpose token, marks the email as
// verified, and activates a pending account. Repeat calls with a still
// valid token succeed without changing anything.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenString string) (*domain.Identity, error) {
	claims, err := s.tokens.Verify(tokenString, token.PurposeVerification)
	if err != nil {
		return nil, err
	}

	identity, err := s.identities.GetByID(ctx, claims.IdentityID())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Authentication(apperrors.AuthKindNotFound, "verification token is no longer valid")
		}
		return nil, fmt.Errorf("get identity for verification: %w", err)
	}

	if claims.Email != identity.Email {
		// The address changed after the token was issued; the link no
		// longer proves ownership of the current address.
		return nil, apperrors.Authentication(apperrors.AuthKindStaleClaim, "verification token is no longer valid")
	}

	if identity.EmailVerified {
		return identity, nil
	}

	identity.EmailVerified = true
	if identity.Status == domain.StatusPendingVerification {
		identity.Status = domain.StatusActive
	}

	if err := s.identities.Update(ctx, identity); err != nil {
		return nil, fmt.Errorf("activate identity: %w", err)
	}

	s.identityCache.Invalidate(ctx, identity.ID)

	s.logger.InfoContext(ctx, "email verified",
		slog.String("identity_id", identity.ID),
	)

	return identity, nil
}

// ForgotPassword starts a password reset. The response is identical
// whether or not the email belongs to an account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("look up identity for reset: %w", err)
	}

	if identity.Status == domain.StatusSuspended || identity.Status == domain.StatusDeleted {
		return nil
	}

	resetToken, err := s.tokens.Issue(identity, token.PurposeReset, s.tokens.TTLFor(token.PurposeReset))
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	go func(ctx context.Context) {
		s.notifier.SendPasswordReset(ctx, identity, resetToken)
	}(context.WithoutCancel(ctx))

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("identity_id", identity.ID),
	)

	return nil
}

// ResetPassword sets a new password using a reset-purpose token, clears
// any lockout, and revokes every outstanding refresh token.
func (s *AuthService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	claims, err := s.tokens.Verify(tokenString, token.PurposeReset)
	if err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	identity, err := s.identities.GetByID(ctx, claims.IdentityID())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Authentication(apperrors.AuthKindNotFound, "reset token is no longer valid")
		}
		return fmt.Errorf("get identity for password reset: %w", err)
	}

	if claims.Email != identity.Email {
		return apperrors.Authentication(apperrors.AuthKindStaleClaim, "reset token is no longer valid")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	identity.PasswordHash = string(hashedPassword)
	identity.LoginAttempts = 0
	identity.LockedUntil = nil

	if err := s.identities.Update(ctx, identity); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.refreshTokens.RevokeAllForIdentity(ctx, identity.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens after password reset",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	s.identityCache.Invalidate(ctx, identity.ID)

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("identity_id", identity.ID),
	)

	return nil
}

// ChangePassword lets an authenticated identity rotate its password.
// Every refresh token is revoked so other sessions must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, identityID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.ValidationField("current_password", "current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.ValidationField("new_password", "new password must be different from current password")
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("get identity for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Authentication(apperrors.AuthKindBadCredentials, "current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	identity.PasswordHash = string(hashedPassword)
	if err := s.identities.Update(ctx, identity); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.refreshTokens.RevokeAllForIdentity(ctx, identity.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens after password change",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	s.identityCache.Invalidate(ctx, identity.ID)

	s.logger.InfoContext(ctx, "password changed",
		slog.String("identity_id", identity.ID),
	)

	return nil
}

// --- Profile operations ---

// GetProfile retrieves an identity by its ID.
func (s *AuthService) GetProfile(ctx context.Context, identityID string) (*domain.Identity, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("identity", identityID)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return identity, nil
}

// UpdateProfile updates an identity's profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, identityID string, input UpdateProfileInput) (*domain.Identity, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("identity", identityID)
		}
		return nil, fmt.Errorf("get identity for update: %w", err)
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, apperrors.ValidationField("first_name", "first name must not be empty")
		}
		identity.FirstName = *input.FirstName
	}

	if input.LastName != nil {
		if *input.LastName == "" {
			return nil, apperrors.ValidationField("last_name", "last name must not be empty")
		}
		identity.LastName = *input.LastName
	}

	if input.Phone != nil {
		phone, err := domain.NormalizePhone(*input.Phone)
		if err != nil {
			return nil, apperrors.ValidationField("phone", err.Error())
		}
		if phone != identity.Phone {
			identity.Phone = phone
			identity.PhoneVerified = false
		}
	}

	if input.CompanyName != nil {
		if identity.IsBusiness && *input.CompanyName == "" {
			return nil, apperrors.ValidationField("company_name", "company name is required for business accounts")
		}
		identity.CompanyName = *input.CompanyName
	}

	if err := s.identities.Update(ctx, identity); err != nil {
		return nil, err
	}

	s.identityCache.Invalidate(ctx, identity.ID)

	s.logger.InfoContext(ctx, "profile updated",
		slog.String("identity_id", identity.ID),
	)

	return identity, nil
}

// --- Bearer resolution ---

// ResolveToken turns a bearer token string into a live identity. It walks
// the full acceptance chain: signature, expiry, purpose, denylist,
// identity state. The identity cache answers repeat lookups within its
// freshness window; the store stays authoritative.
func (s *AuthService) ResolveToken(ctx context.Context, tokenString string) (*domain.Identity, *token.Claims, error) {
	claims, err := s.tokens.Verify(tokenString, token.PurposeAccess)
	if err != nil {
		return nil, nil, err
	}

	if s.denylist.Contains(ctx, claims.ID) {
		return nil, nil, apperrors.Authentication(apperrors.AuthKindRevoked, "token has been revoked")
	}

	identity, cached := s.identityCache.Get(ctx, claims.IdentityID())
	if !cached {
		identity, err = s.identities.GetByID(ctx, claims.IdentityID())
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				// A signed token for a missing identity will never become
				// valid again; keep it out for good.
				s.denylistClaims(ctx, claims)
				return nil, nil, apperrors.Authentication(apperrors.AuthKindNotFound, "token is invalid")
			}
			return nil, nil, fmt.Errorf("resolve token identity: %w", err)
		}
	}

	switch identity.Status {
	case domain.StatusSuspended:
		// Suspension can be lifted, so the token is not denylisted.
		return nil, nil, apperrors.Authorization("account is suspended")
	case domain.StatusDeleted:
		s.denylistClaims(ctx, claims)
		return nil, nil, apperrors.Authorization("account has been deleted")
	}

	if claims.Email != identity.Email {
		s.denylistClaims(ctx, claims)
		return nil, nil, apperrors.Authentication(apperrors.AuthKindStaleClaim, "token no longer matches the account")
	}

	// Only snapshots fresh from the store are cached. Re-stamping a cache
	// hit would slide the freshness window forever and externally applied
	// status changes would never be observed.
	if !cached {
		s.identityCache.Set(ctx, identity)
	}

	go func(ctx context.Context) {
		if err := s.identities.RecordSeen(ctx, identity.ID, s.now().UTC()); err != nil {
			s.logger.WarnContext(ctx, "failed to record last seen",
				slog.String("identity_id", identity.ID),
				slog.String("error", err.Error()),
			)
		}
	}(context.WithoutCancel(ctx))

	return identity, claims, nil
}

// --- Helpers ---

// findByIdentifier resolves a login identifier that may be an email
// address or a phone number.
func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*domain.Identity, error) {
	if strings.Contains(identifier, "@") {
		return s.identities.GetByEmail(ctx, normalizeEmail(identifier))
	}

	phone, err := domain.NormalizePhone(identifier)
	if err != nil {
		// Not a plausible phone number either; same outcome as an
		// unknown identifier.
		return nil, apperrors.ErrNotFound
	}

	return s.identities.GetByEmailOrPhone(ctx, "", phone)
}

// issueSessionPair creates an access/refresh pair and persists the refresh
// token's revocation record with a matching expiry.
func (s *AuthService) issueSessionPair(ctx context.Context, identity *domain.Identity, extended bool) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.Issue(identity, token.PurposeAccess, s.tokens.AccessTTL())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshTTL := s.tokens.RefreshTTL(extended)
	refreshToken, err := s.tokens.Issue(identity, token.PurposeRefresh, refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	expiresAt := s.now().UTC().Add(refreshTTL)
	if err := s.refreshTokens.Create(ctx, identity.ID, hashToken(refreshToken), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		Extended:     extended,
	}, nil
}

func (s *AuthService) denylistClaims(ctx context.Context, claims *token.Claims) {
	if err := s.denylist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.WarnContext(ctx, "failed to denylist token",
			slog.String("identity_id", claims.IdentityID()),
			slog.String("error", err.Error()),
		)
	}
}

// hashToken returns the SHA-256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword checks minimum password complexity.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.ValidationField("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.ValidationField("password",
			"password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
