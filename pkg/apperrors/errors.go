package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the broad failure categories.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrDuplicate        = errors.New("resource already exists")
	ErrValidation       = errors.New("invalid input")
	ErrAuthentication   = errors.New("authentication failed")
	ErrAuthorization    = errors.New("forbidden")
	ErrAccountLocked    = errors.New("account locked")
	ErrRateLimited      = errors.New("rate limited")
	ErrInternal         = errors.New("internal error")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// AuthKind distinguishes the reasons an authentication check can fail.
// All kinds map to the same HTTP status; the kind is carried for logging
// and for callers that need to branch (e.g. refresh rotation).
type AuthKind string

const (
	AuthKindMissing        AuthKind = "missing"
	AuthKindMalformed      AuthKind = "malformed"
	AuthKindExpired        AuthKind = "expired"
	AuthKindWrongPurpose   AuthKind = "wrong-purpose"
	AuthKindRevoked        AuthKind = "revoked"
	AuthKindStaleClaim     AuthKind = "stale-claim"
	AuthKindNotFound       AuthKind = "not-found"
	AuthKindBadCredentials AuthKind = "bad-credentials"
	AuthKindLocked         AuthKind = "locked"
)

// AppError is a structured application error with an HTTP status mapping.
// Field is set for errors attributable to a single input field
// (validation failures and duplicate email/phone collisions).
type AppError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Field   string   `json:"field,omitempty"`
	Kind    AuthKind `json:"-"`
	Status  int      `json:"-"`
	Err     error    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation creates a 400 error for a malformed or missing input value.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// ValidationField creates a 400 error attributed to a specific field.
func ValidationField(field, message string) *AppError {
	e := Validation(message)
	e.Field = field
	return e
}

// Authentication creates a 401 error of the given kind. The message is the
// caller-visible text; kinds that must not leak account state (bad
// credentials, unknown identifier) share a single generic message by
// convention at the call sites.
func Authentication(kind AuthKind, message string) *AppError {
	return &AppError{
		Code:    "AUTHENTICATION_ERROR",
		Message: message,
		Kind:    kind,
		Status:  http.StatusUnauthorized,
		Err:     ErrAuthentication,
	}
}

// Locked creates a 401 error for an identity inside its lockout window.
func Locked(message string) *AppError {
	return &AppError{
		Code:    "ACCOUNT_LOCKED",
		Message: message,
		Kind:    AuthKindLocked,
		Status:  http.StatusUnauthorized,
		Err:     ErrAccountLocked,
	}
}

// Authorization creates a 403 error for an authenticated but disallowed caller.
func Authorization(message string) *AppError {
	return &AppError{
		Code:    "AUTHORIZATION_ERROR",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrAuthorization,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Duplicate creates a 409 error naming the field that collided.
func Duplicate(field string) *AppError {
	return &AppError{
		Code:    "DUPLICATE",
		Message: fmt.Sprintf("an account with this %s already exists", field),
		Field:   field,
		Status:  http.StatusConflict,
		Err:     ErrDuplicate,
	}
}

// RateLimited creates a 429 error.
func RateLimited(message string) *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// Internal creates a 500 error. The wrapped cause is logged server-side and
// never serialized to the caller.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrAccountLocked):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// KindOf returns the authentication failure kind carried by err, or "" when
// err is not an authentication error.
func KindOf(err error) AuthKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
