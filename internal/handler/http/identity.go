package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/abimarket/auth-service/internal/service"
	"github.com/abimarket/auth-service/pkg/apperrors"
	"github.com/abimarket/auth-service/pkg/httputil"
	"github.com/abimarket/auth-service/pkg/validator"
)

// IdentityHandler handles HTTP requests for the profile endpoints.
type IdentityHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewIdentityHandler creates a new identity HTTP handler.
func NewIdentityHandler(svc *service.AuthService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{service: svc, logger: logger}
}

// UpdateProfileRequest is the JSON request body for profile updates.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone       *string `json:"phone"`
	CompanyName *string `json:"company_name" validate:"omitempty,max=200"`
}

// GetProfile handles GET /api/v1/users/me
func (h *IdentityHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r,
			apperrors.Authentication(apperrors.AuthKindMissing, "authentication required"), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "", identity)
}

// UpdateProfile handles PUT /api/v1/users/me
func (h *IdentityHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r,
			apperrors.Authentication(apperrors.AuthKindMissing, "authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.Validation("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), identity.ID, service.UpdateProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "profile updated", updated)
}
