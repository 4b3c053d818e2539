// Package config provides the environment-variable loader shared by the
// auth service's typed configuration in internal/config.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from the process environment using its `env` struct
// tags. Defaults come from `envDefault` tags; validation of the resulting
// values is left to the caller, so a successful Load only means every
// variable parsed into its field type.
//
//	type Config struct {
//	    Port          int           `env:"HTTP_PORT" envDefault:"8001"`
//	    AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
