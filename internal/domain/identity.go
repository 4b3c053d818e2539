package domain

import (
	"time"
)

// Status is the lifecycle state of an identity.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusActive              Status = "active"
	StatusSuspended           Status = "suspended"
	StatusDeleted             Status = "deleted"
)

// ValidStatuses returns the set of valid identity statuses.
func ValidStatuses() []Status {
	return []Status{StatusPendingVerification, StatusActive, StatusSuspended, StatusDeleted}
}

// IsValid checks whether s is a known identity status.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// Identity represents one registered person or business account.
type Identity struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	PasswordHash  string     `json:"-"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	IsBusiness    bool       `json:"is_business"`
	CompanyName   string     `json:"company_name,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	PhoneVerified bool       `json:"phone_verified"`
	Status        Status     `json:"status"`
	LoginAttempts int        `json:"-"`
	LockedUntil   *time.Time `json:"-"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	LastSeenAt    *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsLocked reports whether the identity is inside its lockout window at now.
func (i *Identity) IsLocked(now time.Time) bool {
	return i.LockedUntil != nil && i.LockedUntil.After(now)
}

// LockoutRemaining returns the time left in the lockout window at now,
// or zero when the identity is not locked.
func (i *Identity) LockoutRemaining(now time.Time) time.Duration {
	if !i.IsLocked(now) {
		return 0
	}
	return i.LockedUntil.Sub(now)
}

// RefreshToken is a persisted revocation record for one refresh token.
// The token itself is never stored, only its SHA-256 hash; deleting or
// revoking the record invalidates the token before its natural expiry.
type RefreshToken struct {
	ID         string     `json:"id"`
	IdentityID string     `json:"identity_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Live reports whether the record still authorizes a refresh at now.
func (t *RefreshToken) Live(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// TokenPair holds the access/refresh tokens returned by the session flows.
// ExpiresIn is the access token lifetime in seconds. Extended marks pairs
// on the "remember me" refresh horizon; the flag survives rotation so the
// transport layer can size the refresh cookie to match.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Extended     bool   `json:"-"`
}
