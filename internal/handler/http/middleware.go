package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abimarket/auth-service/internal/domain"
	"github.com/abimarket/auth-service/internal/token"
	"github.com/abimarket/auth-service/pkg/apperrors"
	"github.com/abimarket/auth-service/pkg/httputil"
	"github.com/abimarket/auth-service/pkg/logger"
)

type contextKey string

const (
	identityContextKey contextKey = "auth_identity"
	claimsContextKey   contextKey = "auth_claims"
)

// IdentityFromContext returns the authenticated identity stored by the
// Authenticate middleware.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*domain.Identity)
	return identity, ok
}

// ClaimsFromContext returns the access token claims stored by the
// Authenticate middleware.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*token.Claims)
	return claims, ok
}

// TokenResolver resolves a bearer token into a live identity and its
// claims. The auth service implements it.
type TokenResolver interface {
	ResolveToken(ctx context.Context, tokenString string) (*domain.Identity, *token.Claims, error)
}

// Authenticate requires a valid access token on every request it wraps.
// The resolved identity and claims are stored in the request context.
func Authenticate(resolver TokenResolver, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, r,
					apperrors.Authentication(apperrors.AuthKindMissing, "authentication required"), l)
				return
			}

			identity, claims, err := resolver.ResolveToken(r.Context(), tokenString)
			if err != nil {
				httputil.WriteError(w, r, err, l)
				return
			}

			ctx := withAuth(r.Context(), identity, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate resolves a bearer token when one is present but
// lets anonymous requests through. A token that is present and invalid is
// still rejected; silently downgrading a bad credential to anonymous
// would mask client bugs.
func OptionalAuthenticate(resolver TokenResolver, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			identity, claims, err := resolver.ResolveToken(r.Context(), tokenString)
			if err != nil {
				httputil.WriteError(w, r, err, l)
				return
			}

			ctx := withAuth(r.Context(), identity, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func withAuth(ctx context.Context, identity *domain.Identity, claims *token.Claims) context.Context {
	ctx = context.WithValue(ctx, identityContextKey, identity)
	ctx = context.WithValue(ctx, claimsContextKey, claims)
	return logger.WithIdentityID(ctx, identity.ID)
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

// ContentTypeJSON enforces Content-Type: application/json on requests with
// a body.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"success":false,"message":"Content-Type must be application/json"}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	AllowedOrigins []string
	Environment    string
}

// CORS sets Cross-Origin Resource Sharing headers. Development mode (or a
// "*" entry) allows any origin; otherwise the request Origin is validated
// against the configured list.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowWildcard := cfg.Environment == "development"
	originSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowWildcard = true
		}
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowWildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				if _, ok := originSet[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Correlation-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
