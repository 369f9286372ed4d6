package config

import (
	"net/http"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SHOP_TOKEN_SECRET", "test-token-secret")
	t.Setenv("SHOP_WEBHOOK_SECRET", "test-webhook-secret")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.Environment != EnvDevelopment {
		t.Fatalf("unexpected environment: %s", cfg.Environment)
	}
	if cfg.TokenLifetime != 7*24*time.Hour {
		t.Fatalf("unexpected token lifetime: %s", cfg.TokenLifetime)
	}
	if cfg.CookieName != "token" {
		t.Fatalf("unexpected cookie name: %s", cfg.CookieName)
	}
	if cfg.CookieSameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected samesite: %d", cfg.CookieSameSite)
	}
	if cfg.SecureCookies() {
		t.Fatal("development + lax should not force secure cookies")
	}
}

func TestFromEnvMissingSecretsFail(t *testing.T) {
	t.Setenv("SHOP_TOKEN_SECRET", "")
	t.Setenv("SHOP_WEBHOOK_SECRET", "x")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for missing token secret")
	}

	t.Setenv("SHOP_TOKEN_SECRET", "x")
	t.Setenv("SHOP_WEBHOOK_SECRET", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for missing webhook secret")
	}
}

func TestSecureCookies(t *testing.T) {
	setRequired(t)

	t.Setenv("SHOP_ENV", "production")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error: production requires a gateway URL")
	}

	t.Setenv("SHOP_GATEWAY_URL", "https://gateway.example.com")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.SecureCookies() {
		t.Fatal("production must force secure cookies")
	}

	t.Setenv("SHOP_ENV", "development")
	t.Setenv("SHOP_COOKIE_SAMESITE", "none")
	cfg, err = FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.SecureCookies() {
		t.Fatal("SameSite=None must force secure cookies even in development")
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	setRequired(t)

	t.Setenv("SHOP_TOKEN_LIFETIME_DAYS", "zero")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for bad lifetime")
	}
	t.Setenv("SHOP_TOKEN_LIFETIME_DAYS", "7")

	t.Setenv("SHOP_COOKIE_SAMESITE", "whatever")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for bad samesite")
	}
	t.Setenv("SHOP_COOKIE_SAMESITE", "lax")

	t.Setenv("SHOP_ENV", "staging")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestCORSOriginsParsed(t *testing.T) {
	setRequired(t)
	t.Setenv("SHOP_CORS_ORIGINS", "https://shop.example.com/, https://admin.example.com")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.CORSOrigins[0] != "https://shop.example.com" {
		t.Fatalf("trailing slash not trimmed: %s", cfg.CORSOrigins[0])
	}
}

func TestCORSOriginsDefaultByEnvironment(t *testing.T) {
	setRequired(t)

	// Development defaults to the storefront origin.
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != cfg.BaseURL {
		t.Fatalf("unexpected development origins: %v", cfg.CORSOrigins)
	}

	// Production never gets an implicit origin.
	t.Setenv("SHOP_ENV", "production")
	t.Setenv("SHOP_GATEWAY_URL", "https://gateway.example.com")
	cfg, err = FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Fatalf("production must not default origins: %v", cfg.CORSOrigins)
	}
}
