// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
)

type AuthMode string

const (
	AuthModeJWT AuthMode = "jwt"
	// AuthModeDev trusts the X-Debug-Subject header. Local development only.
	AuthModeDev AuthMode = "dev"
)

type Config struct {
	Port string

	Storage     StorageBackend
	DatabaseURL string

	AuthMode   AuthMode
	DevSubject string
	// DevIssuer scopes idempotency keys in dev auth mode, standing in for the JWT issuer.
	DevIssuer  string
	JWT        JWTConfig

	LogLevel string

	SearchDefaultPageSize int
	SearchMaxPageSize     int
}

// Issuer is the identity provider that subjects belong to under the configured auth mode.
func (c Config) Issuer() string {
	if c.AuthMode == AuthModeDev {
		return c.DevIssuer
	}
	return c.JWT.Issuer
}

// Load reads the full service configuration. JWT settings are only required in jwt auth mode.
func Load() (Config, error) {
	cfg := Config{
		Port:                  envOr("PORT", "8080"),
		Storage:               StorageBackend(strings.ToLower(envOr("STORAGE_BACKEND", string(StorageMemory)))),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		AuthMode:              AuthMode(strings.ToLower(envOr("AUTH_MODE", string(AuthModeJWT)))),
		DevSubject:            os.Getenv("DEV_SUBJECT"),
		DevIssuer:             envOr("DEV_ISSUER", "dev"),
		LogLevel:              envOr("LOG_LEVEL", "info"),
		SearchDefaultPageSize: 20,
		SearchMaxPageSize:     100,
	}

	switch cfg.Storage {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", cfg.Storage)
	}

	switch cfg.AuthMode {
	case AuthModeJWT:
		jwtCfg, err := LoadJWTConfigFromEnv()
		if err != nil {
			return Config{}, err
		}
		cfg.JWT = jwtCfg
	case AuthModeDev:
	default:
		return Config{}, fmt.Errorf("AUTH_MODE must be jwt or dev, got %q", cfg.AuthMode)
	}

	var err error
	if cfg.SearchDefaultPageSize, err = positiveIntEnv("SEARCH_DEFAULT_PAGE_SIZE", cfg.SearchDefaultPageSize); err != nil {
		return Config{}, err
	}
	if cfg.SearchMaxPageSize, err = positiveIntEnv("SEARCH_MAX_PAGE_SIZE", cfg.SearchMaxPageSize); err != nil {
		return Config{}, err
	}
	if cfg.SearchDefaultPageSize > cfg.SearchMaxPageSize {
		return Config{}, fmt.Errorf("SEARCH_DEFAULT_PAGE_SIZE (%d) exceeds SEARCH_MAX_PAGE_SIZE (%d)", cfg.SearchDefaultPageSize, cfg.SearchMaxPageSize)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func positiveIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
