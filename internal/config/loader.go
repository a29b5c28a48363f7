// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load a .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"haitimeteo/internal/types"
)

// Load loads and validates the HaitiMeteo configuration from the environment.
// A .env file in the working directory is merged in first without overriding
// variables already set in the OS environment.
func Load() (*Config, error) {
	// Enforce UTC to keep stored dates and cache expiries stable across hosts.
	time.Local = time.UTC

	// godotenv.Load silently succeeds if no .env file exists and never
	// overrides existing environment variables.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeConfigSource,
			"failed to process environment configuration",
			err,
		)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeConfigSource,
			fmt.Sprintf("configuration validation failed: %v", err),
			err,
		)
	}

	return &cfg, nil
}
