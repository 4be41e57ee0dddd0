package config

import (
	"fmt"
	"os"
	"time"
)

// JWTConfig configures bearer-token verification.
//
// Exactly one key source is used: JWKSURL (RS256, rotating keys) or Secret (HS256).
type JWTConfig struct {
	Issuer   string
	Audience string

	JWKSURL string
	Secret  []byte

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	issuer := os.Getenv("JWT_ISSUER")
	audience := os.Getenv("JWT_AUDIENCE")
	jwksURL := os.Getenv("JWT_JWKS_URL")
	secret := os.Getenv("JWT_SECRET")
	if issuer == "" || audience == "" {
		return JWTConfig{}, fmt.Errorf("missing required env vars: JWT_ISSUER, JWT_AUDIENCE")
	}
	switch {
	case jwksURL == "" && secret == "":
		return JWTConfig{}, fmt.Errorf("one of JWT_JWKS_URL or JWT_SECRET is required")
	case jwksURL != "" && secret != "":
		return JWTConfig{}, fmt.Errorf("JWT_JWKS_URL and JWT_SECRET are mutually exclusive")
	}

	cfg := JWTConfig{
		Issuer:    issuer,
		Audience:  audience,
		JWKSURL:   jwksURL,
		ClockSkew: 30 * time.Second,
		// Refresh periodically to pick up key rotation even if an old key is still cached.
		JWKSRefreshInterval: 5 * time.Minute,
		// Bound refresh frequency when a token presents an unknown kid.
		JWKSMinRefreshInterval: 10 * time.Second,
		HTTPTimeout:            5 * time.Second,
	}
	if secret != "" {
		cfg.Secret = []byte(secret)
	}

	var err error
	if cfg.ClockSkew, err = durationEnv("JWT_CLOCK_SKEW", cfg.ClockSkew); err != nil {
		return JWTConfig{}, err
	}
	if cfg.JWKSRefreshInterval, err = durationEnv("JWT_JWKS_REFRESH_INTERVAL", cfg.JWKSRefreshInterval); err != nil {
		return JWTConfig{}, err
	}
	if cfg.JWKSMinRefreshInterval, err = durationEnv("JWT_JWKS_MIN_REFRESH_INTERVAL", cfg.JWKSMinRefreshInterval); err != nil {
		return JWTConfig{}, err
	}
	if cfg.HTTPTimeout, err = durationEnv("JWT_HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return JWTConfig{}, err
	}
	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 30s): %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
