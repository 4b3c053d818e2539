package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors_StatusAndSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		status   int
		sentinel error
	}{
		{"validation", Validation("bad input"), http.StatusBadRequest, ErrValidation},
		{"authentication", Authentication(AuthKindExpired, "token has expired"), http.StatusUnauthorized, ErrAuthentication},
		{"locked", Locked("account temporarily locked"), http.StatusUnauthorized, ErrAccountLocked},
		{"authorization", Authorization("account is suspended"), http.StatusForbidden, ErrAuthorization},
		{"not found", NotFound("identity", "id-1"), http.StatusNotFound, ErrNotFound},
		{"duplicate", Duplicate("email"), http.StatusConflict, ErrDuplicate},
		{"rate limited", RateLimited("too many requests"), http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestHTTPStatus_AppError(t *testing.T) {
	assert.Equal(t, http.StatusConflict, HTTPStatus(Duplicate("phone")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Authentication(AuthKindRevoked, "revoked")))
}

func TestHTTPStatus_WrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", Locked("locked"))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(wrapped))
}

func TestHTTPStatus_BareSentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrDuplicate))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrAccountLocked))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, AuthKindStaleClaim, KindOf(Authentication(AuthKindStaleClaim, "stale")))
	assert.Equal(t, AuthKindStaleClaim, KindOf(fmt.Errorf("resolve: %w", Authentication(AuthKindStaleClaim, "stale"))))
	assert.Equal(t, AuthKind(""), KindOf(errors.New("not an auth error")))
}

func TestDuplicate_CarriesField(t *testing.T) {
	err := Duplicate("phone")
	assert.Equal(t, "phone", err.Field)
	assert.Contains(t, err.Message, "phone")
}

func TestInternal_CauseNotSerialized(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Internal(cause)

	assert.Equal(t, "an internal error occurred", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused", "the server-side text keeps the cause")
}

func TestAppError_Unwrap(t *testing.T) {
	err := ValidationField("email", "invalid email")
	assert.Equal(t, "email", err.Field)
	assert.ErrorIs(t, err, ErrValidation)
}
