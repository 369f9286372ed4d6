package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultAddr          = ":8080"
	defaultLifetimeDays  = 7
	defaultCookieName    = "token"
	defaultGatewayTimeout = 10 * time.Second
)

// Config is the immutable process-wide configuration, built once at startup
// and passed explicitly into constructors. Secrets never change at runtime;
// rotating them requires a restart and invalidates outstanding tokens.
type Config struct {
	Addr        string
	Environment string
	PostgresDSN string

	// BaseURL is the externally reachable origin, used to build the
	// checkout success/cancel return URLs.
	BaseURL string

	TokenSecret   []byte
	TokenLifetime time.Duration

	WebhookSecret []byte

	CookieName     string
	CookieSameSite http.SameSite

	GatewayURL    string
	GatewayAPIKey string
	GatewayTimeout time.Duration

	CORSOrigins []string
}

// FromEnv reads configuration from the environment. Missing secrets are a
// fatal configuration error: callers are expected to abort startup rather
// than run with authentication or webhook verification disabled.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:          envOr("SHOP_ADDR", defaultAddr),
		Environment:   strings.ToLower(envOr("SHOP_ENV", EnvDevelopment)),
		PostgresDSN:   strings.TrimSpace(os.Getenv("SHOP_PG_DSN")),
		BaseURL:       strings.TrimRight(envOr("SHOP_BASE_URL", "http://localhost:5173"), "/"),
		CookieName:    envOr("SHOP_COOKIE_NAME", defaultCookieName),
		GatewayURL:    strings.TrimSpace(os.Getenv("SHOP_GATEWAY_URL")),
		GatewayAPIKey: strings.TrimSpace(os.Getenv("SHOP_GATEWAY_KEY")),
		GatewayTimeout: defaultGatewayTimeout,
	}

	secret := strings.TrimSpace(os.Getenv("SHOP_TOKEN_SECRET"))
	if secret == "" {
		return Config{}, errors.New("config: SHOP_TOKEN_SECRET is required")
	}
	cfg.TokenSecret = []byte(secret)

	webhookSecret := strings.TrimSpace(os.Getenv("SHOP_WEBHOOK_SECRET"))
	if webhookSecret == "" {
		return Config{}, errors.New("config: SHOP_WEBHOOK_SECRET is required")
	}
	cfg.WebhookSecret = []byte(webhookSecret)

	days := defaultLifetimeDays
	if raw := strings.TrimSpace(os.Getenv("SHOP_TOKEN_LIFETIME_DAYS")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("config: SHOP_TOKEN_LIFETIME_DAYS must be a positive integer, got %q", raw)
		}
		days = v
	}
	cfg.TokenLifetime = time.Duration(days) * 24 * time.Hour

	sameSite, err := parseSameSite(envOr("SHOP_COOKIE_SAMESITE", "lax"))
	if err != nil {
		return Config{}, err
	}
	cfg.CookieSameSite = sameSite

	if raw := strings.TrimSpace(os.Getenv("SHOP_CORS_ORIGINS")); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			origin = strings.TrimRight(strings.TrimSpace(origin), "/")
			if origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	} else if cfg.Environment == EnvDevelopment {
		// The allowlist is the only CORS bypass there is; in development the
		// storefront origin is allowed by default so local setups work
		// without extra env.
		cfg.CORSOrigins = []string{cfg.BaseURL}
	}

	if cfg.Environment != EnvDevelopment && cfg.Environment != EnvProduction {
		return Config{}, fmt.Errorf("config: SHOP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Environment)
	}
	if cfg.Environment == EnvProduction && cfg.GatewayURL == "" {
		return Config{}, errors.New("config: SHOP_GATEWAY_URL is required in production")
	}

	return cfg, nil
}

// SecureCookies reports whether the Secure attribute must be set on session
// cookies. Anything reachable over an untrusted network gets Secure; the
// SameSite=None mode additionally mandates it regardless of environment.
func (c Config) SecureCookies() bool {
	return c.Environment != EnvDevelopment || c.CookieSameSite == http.SameSiteNoneMode
}

func parseSameSite(raw string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("config: SHOP_COOKIE_SAMESITE must be lax, strict or none, got %q", raw)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
