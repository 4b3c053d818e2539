package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abimarket/auth-service/internal/service"
	"github.com/abimarket/auth-service/pkg/health"
	"github.com/abimarket/auth-service/pkg/middleware"
)

// RouterConfig carries the HTTP-surface knobs the router needs.
type RouterConfig struct {
	CORS              CORSConfig
	CookieSecure      bool
	ExtendedCookieTTL time.Duration
	RateLimitRPS      int
	RateLimitBurst    int
}

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	authService *service.AuthService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("auth"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(authService, logger, cfg.CookieSecure, cfg.ExtendedCookieTTL)
	identityHandler := NewIdentityHandler(authService, logger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public endpoints take the brunt of credential stuffing and
		// enumeration attempts, so they are rate limited per client IP.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify/{token}", authHandler.VerifyEmail)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(authService, logger))

			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(Authenticate(authService, logger))

		r.Get("/me", identityHandler.GetProfile)
		r.Put("/me", identityHandler.UpdateProfile)
	})

	return r
}
