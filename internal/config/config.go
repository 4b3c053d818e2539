package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/abimarket/auth-service/pkg/config"
)

// devSecretPlaceholder is the shipped default for both JWT secrets. It is
// rejected outside development mode.
const devSecretPlaceholder = "change-this-to-a-secure-secret"

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"AUTH_HTTP_PORT" envDefault:"8001"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"abimarket"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"abimarket_secret"`
	PostgresDB   string `env:"AUTH_DB_NAME" envDefault:"auth_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis. Empty host means the in-memory cache and denylist are used.
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tokens
	JWTAccessSecret    string        `env:"JWT_ACCESS_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTRefreshSecret   string        `env:"JWT_REFRESH_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"abimarket-auth"`
	JWTAudience        string        `env:"JWT_AUDIENCE" envDefault:"abimarket"`
	AccessTTL          time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL         time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	ExtendedRefreshTTL time.Duration `env:"JWT_EXTENDED_REFRESH_TTL" envDefault:"720h"`
	VerificationTTL    time.Duration `env:"JWT_VERIFICATION_TTL" envDefault:"48h"`
	ResetTTL           time.Duration `env:"JWT_RESET_TTL" envDefault:"1h"`

	// Account lockout
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutDuration  time.Duration `env:"LOCKOUT_DURATION" envDefault:"15m"`

	// Session cache
	CacheFreshness time.Duration `env:"IDENTITY_CACHE_FRESHNESS" envDefault:"5m"`
	SweepInterval  time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1m"`

	// Rate limiting on the public auth endpoints, per client IP.
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Refresh cookie. Disable Secure only for local plain-HTTP setups.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.LockoutThreshold < 1 {
		return nil, fmt.Errorf("lockout threshold must be at least 1, got %d", cfg.LockoutThreshold)
	}

	// Outside development, both secrets must be explicitly set, strong,
	// and distinct from each other.
	if cfg.Environment != "development" {
		for name, secret := range map[string]string{
			"JWT_ACCESS_SECRET":  cfg.JWTAccessSecret,
			"JWT_REFRESH_SECRET": cfg.JWTRefreshSecret,
		} {
			if secret == devSecretPlaceholder {
				return nil, fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, cfg.Environment)
			}
			if len(secret) < 32 {
				return nil, fmt.Errorf("%s must be at least 32 characters long, got %d", name, len(secret))
			}
		}
		if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
			return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ in %q mode", cfg.Environment)
		}
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
