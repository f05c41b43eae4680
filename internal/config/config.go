package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries all process configuration, loaded once from the environment.
type Config struct {
	ListenAddr string
	PGDSN      string

	AuthSecret string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// CredentialKey is the AES-256 key protecting OAuth client secrets at rest.
	CredentialKey []byte

	// FrontendURL receives the token fragment after a successful OAuth callback.
	FrontendURL string

	RateLimitPerSecond int
	RateLimitBurst     int
}

const (
	envListenAddr    = "IDENTRA_LISTEN_ADDR"
	envPGDSN         = "IDENTRA_PG_DSN"
	envAuthSecret    = "IDENTRA_AUTH_SECRET"
	envIssuer        = "IDENTRA_ISSUER"
	envAccessTTL     = "IDENTRA_ACCESS_TTL"
	envRefreshTTL    = "IDENTRA_REFRESH_TTL"
	envCredentialKey = "IDENTRA_CRED_KEY"
	envFrontendURL   = "IDENTRA_FRONTEND_URL"
	envRateLimit     = "IDENTRA_RATE_LIMIT"
	envRateBurst     = "IDENTRA_RATE_BURST"
)

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         getEnv(envListenAddr, ":8080"),
		PGDSN:              os.Getenv(envPGDSN),
		AuthSecret:         strings.TrimSpace(os.Getenv(envAuthSecret)),
		Issuer:             getEnv(envIssuer, "identra"),
		AccessTTL:          15 * time.Minute,
		RefreshTTL:         7 * 24 * time.Hour,
		FrontendURL:        os.Getenv(envFrontendURL),
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
	}

	if cfg.AuthSecret == "" {
		return nil, errors.New("config: " + envAuthSecret + " is required")
	}

	if raw := os.Getenv(envAccessTTL); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: invalid %s: %q", envAccessTTL, raw)
		}
		cfg.AccessTTL = d
	}
	if raw := os.Getenv(envRefreshTTL); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: invalid %s: %q", envRefreshTTL, raw)
		}
		cfg.RefreshTTL = d
	}
	if raw := strings.TrimSpace(os.Getenv(envCredentialKey)); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) != 32 {
			return nil, errors.New("config: " + envCredentialKey + " must be 32 hex-encoded bytes")
		}
		cfg.CredentialKey = key
	} else {
		// Derive a stable key from the signing secret when none is provided.
		sum := sha256.Sum256([]byte(cfg.AuthSecret))
		cfg.CredentialKey = sum[:]
	}
	if raw := os.Getenv(envRateLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: invalid %s: %q", envRateLimit, raw)
		}
		cfg.RateLimitPerSecond = n
	}
	if raw := os.Getenv(envRateBurst); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: invalid %s: %q", envRateBurst, raw)
		}
		cfg.RateLimitBurst = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
