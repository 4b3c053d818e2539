package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abimarket/auth-service/internal/domain"
	"github.com/abimarket/auth-service/internal/service"
	"github.com/abimarket/auth-service/pkg/apperrors"
	"github.com/abimarket/auth-service/pkg/httputil"
	"github.com/abimarket/auth-service/pkg/validator"
)

// refreshCookieName is the HTTP-only cookie carrying the refresh token for
// browser clients. Mobile clients use the JSON body instead.
const refreshCookieName = "refresh_token"

// refreshCookiePath scopes the cookie to the endpoints that consume it.
const refreshCookiePath = "/api/v1/auth"

// maxBodyBytes caps request bodies on the auth endpoints.
const maxBodyBytes = 1 << 20 // 1MB

// AuthHandler handles HTTP requests for the auth endpoints.
type AuthHandler struct {
	service           *service.AuthService
	logger            *slog.Logger
	cookieSecure      bool
	extendedCookieTTL time.Duration
}

// NewAuthHandler creates a new auth HTTP handler. cookieSecure marks the
// refresh cookie Secure; disable only for local development over plain
// HTTP. extendedCookieTTL is the cookie lifetime for "remember me"
// sessions and must match the extended refresh token horizon.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger, cookieSecure bool, extendedCookieTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		service:           svc,
		logger:            logger,
		cookieSecure:      cookieSecure,
		extendedCookieTTL: extendedCookieTTL,
	}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for registration.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name" validate:"required,min=1,max=100"`
	LastName    string `json:"last_name" validate:"required,min=1,max=100"`
	IsBusiness  bool   `json:"is_business"`
	CompanyName string `json:"company_name" validate:"max=200"`
}

// LoginRequest is the JSON request body for login. Identifier accepts an
// email address or a phone number.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshRequest is the JSON request body for token refresh. The token may
// instead arrive in the refresh cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest is the JSON request body for logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	AllDevices   bool   `json:"all_devices"`
}

// ForgotPasswordRequest is the JSON request body for forgot password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the JSON request body for password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordRequest is the JSON request body for password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// --- Response types ---

// SessionResponse pairs the identity with its session tokens.
type SessionResponse struct {
	Identity *domain.Identity  `json:"identity"`
	Tokens   *domain.TokenPair `json:"tokens"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	identity, tokens, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		IsBusiness:  req.IsBusiness,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken, tokens.Extended)
	httputil.WriteJSON(w, http.StatusCreated, "account created, verification email sent",
		SessionResponse{Identity: identity, Tokens: tokens})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	identity, tokens, err := h.service.Login(r.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken, tokens.Extended)
	httputil.WriteJSON(w, http.StatusOK, "logged in",
		SessionResponse{Identity: identity, Tokens: tokens})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		refreshToken = h.refreshTokenFromCookie(r)
	}
	if refreshToken == "" {
		httputil.WriteError(w, r,
			apperrors.Authentication(apperrors.AuthKindMissing, "refresh token is required"), h.logger)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken, tokens.Extended)
	httputil.WriteJSON(w, http.StatusOK, "session refreshed", tokens)
}

// Logout handles POST /api/v1/auth/logout (authenticated)
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r,
			apperrors.Authentication(apperrors.AuthKindMissing, "authentication required"), h.logger)
		return
	}

	var req LogoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		refreshToken = h.refreshTokenFromCookie(r)
	}

	if err := h.service.Logout(r.Context(), claims, refreshToken, req.AllDevices); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.clearRefreshCookie(w)
	httputil.WriteJSON(w, http.StatusOK, "logged out", nil)
}

// VerifyEmail handles GET /api/v1/auth/verify/{token}
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	tokenString := chi.URLParam(r, "token")
	if tokenString == "" {
		httputil.WriteError(w, r,
			apperrors.Authentication(apperrors.AuthKindMissing, "verification token is required"), h.logger)
		return
	}

	identity, err := h.service.VerifyEmail(r.Context(), tokenString)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "email verified", identity)
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Same response whether or not the email exists.
	httputil.WriteJSON(w, http.StatusOK,
		"if the email exists, a password reset link has been sent", nil)
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "password has been reset", nil)
}

// ChangePassword handles POST /api/v1/auth/change-password (authenticated)
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r,
			apperrors.Authentication(apperrors.AuthKindMissing, "authentication required"), h.logger)
		return
	}

	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.IdentityID(), req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.clearRefreshCookie(w)
	httputil.WriteJSON(w, http.StatusOK, "password changed", nil)
}

// --- Helpers ---

// decode reads the JSON request body into dst. An empty body leaves dst
// zero-valued so cookie-only refresh and logout work without one. A false
// return means the error response was already written.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, r, apperrors.Validation("invalid request body: "+err.Error()), h.logger)
		return false
	}
	return true
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string, extended bool) {
	maxAge := 0 // session cookie unless the caller opted to stay signed in
	if extended {
		maxAge = int(h.extendedCookieTTL.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) refreshTokenFromCookie(r *http.Request) string {
	c, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
