package config

import (
	"net/netip"
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr           string
	DatabaseURL    string
	JWTSigningKey  string
	Environment    string
	TrustedProxies []netip.Prefix
	TxTimeout      time.Duration
}

const (
	defaultAddr      = ":8080"
	defaultTxTimeout = 5 * time.Second
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:        envOr("PAYPREFS_ADDR", defaultAddr),
		DatabaseURL: os.Getenv("PAYPREFS_DATABASE_URL"),
		Environment: envOr("PAYPREFS_ENV", "development"),
		TxTimeout:   defaultTxTimeout,
	}

	// Use a default for development - must be overridden in production
	cfg.JWTSigningKey = envOr("PAYPREFS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production")

	if raw := os.Getenv("PAYPREFS_TX_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.TxTimeout = d
		}
	}
	if raw := os.Getenv("PAYPREFS_TRUSTED_PROXIES"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if prefix, err := netip.ParsePrefix(strings.TrimSpace(part)); err == nil {
				cfg.TrustedProxies = append(cfg.TrustedProxies, prefix)
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
