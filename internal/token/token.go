package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/abimarket/auth-service/internal/domain"
	"github.com/abimarket/auth-service/pkg/apperrors"
)

// Purpose tags the intended use of a token. A token is only accepted by the
// operation whose purpose it carries.
type Purpose string

const (
	PurposeAccess       Purpose = "access"
	PurposeRefresh      Purpose = "refresh"
	PurposeVerification Purpose = "verification"
	PurposeReset        Purpose = "reset"
)

// IsValid checks whether p is a known token purpose.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeAccess, PurposeRefresh, PurposeVerification, PurposeReset:
		return true
	}
	return false
}

// Claims is the JWT claim set for every token the service issues.
type Claims struct {
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// IdentityID returns the subject identity id carried by the claims.
func (c *Claims) IdentityID() string {
	return c.Subject
}

// Config holds signing material and lifetimes for the token manager.
// Access tokens sign with AccessSecret; refresh, verification, and reset
// tokens sign with RefreshSecret so a leaked access secret cannot mint
// long-lived credentials.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string

	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	ExtendedRefreshTTL time.Duration
	VerificationTTL    time.Duration
	ResetTTL           time.Duration
}

// Manager issues and verifies purpose-tagged JWTs.
type Manager struct {
	cfg Config
	now func() time.Time // injectable clock for testing
}

// NewManager creates a token manager from the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, now: time.Now}
}

// WithClock overrides the manager's clock. Used by tests to exercise expiry.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) secretFor(purpose Purpose) []byte {
	if purpose == PurposeAccess {
		return []byte(m.cfg.AccessSecret)
	}
	return []byte(m.cfg.RefreshSecret)
}

// TTLFor returns the configured lifetime for the given purpose.
func (m *Manager) TTLFor(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeAccess:
		return m.cfg.AccessTTL
	case PurposeRefresh:
		return m.cfg.RefreshTTL
	case PurposeVerification:
		return m.cfg.VerificationTTL
	case PurposeReset:
		return m.cfg.ResetTTL
	default:
		return 0
	}
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.cfg.AccessTTL
}

// RefreshTTL returns the refresh token lifetime, extended when the caller
// asked to stay signed in.
func (m *Manager) RefreshTTL(extended bool) time.Duration {
	if extended && m.cfg.ExtendedRefreshTTL > m.cfg.RefreshTTL {
		return m.cfg.ExtendedRefreshTTL
	}
	return m.cfg.RefreshTTL
}

// Issue creates a signed token for the identity with the given purpose and
// lifetime. The returned token verifies back to the same identity, email,
// and purpose until ttl elapses.
func (m *Manager) Issue(identity *domain.Identity, purpose Purpose, ttl time.Duration) (string, error) {
	if identity == nil || identity.ID == "" {
		return "", fmt.Errorf("issue token: identity is required")
	}
	if !purpose.IsValid() {
		return "", fmt.Errorf("issue token: unknown purpose %q", purpose)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("issue token: ttl must be positive, got %s", ttl)
	}

	now := m.now().UTC()
	claims := &Claims{
		Email:   identity.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    m.cfg.Issuer,
			Audience:  jwt.ClaimStrings{m.cfg.Audience},
			ID:        uuid.New().String(),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secretFor(purpose))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", purpose, err)
	}

	return signed, nil
}

// Verify parses tokenString, checks its signature and expiry, and confirms
// it carries the expected purpose. Failures map onto the authentication
// error kinds so callers and the middleware can report them precisely.
func (m *Manager) Verify(tokenString string, expected Purpose) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
		jwt.WithTimeFunc(func() time.Time { return m.now().UTC() }),
	)

	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secretFor(expected), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Authentication(apperrors.AuthKindExpired, "token has expired")
		}
		return nil, apperrors.Authentication(apperrors.AuthKindMalformed, "token is invalid")
	}

	if !tok.Valid {
		return nil, apperrors.Authentication(apperrors.AuthKindMalformed, "token is invalid")
	}

	if claims.Purpose != expected {
		return nil, apperrors.Authentication(apperrors.AuthKindWrongPurpose,
			fmt.Sprintf("token cannot be used for %s", expected))
	}

	return claims, nil
}
