package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/abimarket/auth-service/pkg/apperrors"
	"github.com/abimarket/auth-service/pkg/logger"
	"github.com/abimarket/auth-service/pkg/validator"
)

// APIVersion is reported in the meta block of every response.
const APIVersion = "1.0"

// Envelope is the uniform JSON response shape used by all endpoints.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Meta    Meta         `json:"meta"`
}

// FieldError is one entry in the errors list. Field is set only for
// failures attributable to a single input field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Meta carries response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func newMeta() Meta {
	return Meta{Timestamp: time.Now().UTC(), Version: APIVersion}
}

// WriteJSON writes v as the data payload of a successful envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, v any) {
	writeEnvelope(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    v,
		Meta:    newMeta(),
	})
}

// WriteError maps err onto the envelope. AppError values keep their status,
// code, and optional field attribution; anything else is reported as a
// generic internal error and logged server-side with full detail. The
// request-scoped logger from context is preferred over the fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status != http.StatusInternalServerError {
		writeEnvelope(w, appErr.Status, Envelope{
			Success: false,
			Message: appErr.Message,
			Errors:  []FieldError{{Field: appErr.Field, Message: appErr.Message, Code: appErr.Code}},
			Meta:    newMeta(),
		})
		return
	}

	// Internal or unclassified failures are logged with full detail and
	// surfaced to the caller as a generic message only.
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	writeEnvelope(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "an internal error occurred",
		Errors:  []FieldError{{Message: "an internal error occurred", Code: "INTERNAL_ERROR"}},
		Meta:    newMeta(),
	})
}

// WriteValidationError writes a 400 envelope with one entry per failed field.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		fields := valErr.Fields()
		errs := make([]FieldError, 0, len(fields))
		for field, msg := range fields {
			errs = append(errs, FieldError{Field: field, Message: msg, Code: "VALIDATION_ERROR"})
		}
		writeEnvelope(w, http.StatusBadRequest, Envelope{
			Success: false,
			Message: "request validation failed",
			Errors:  errs,
			Meta:    newMeta(),
		})
		return
	}

	writeEnvelope(w, http.StatusBadRequest, Envelope{
		Success: false,
		Message: err.Error(),
		Errors:  []FieldError{{Message: err.Error(), Code: "VALIDATION_ERROR"}},
		Meta:    newMeta(),
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(env)
}
