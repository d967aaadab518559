package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_UsesAdminJWTSecretAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "ADMIN_JWT_SECRET")
	setEnvWithCleanup(t, "BOOKING_SERVICE_ADMIN_JWT_SECRET", "alias-only-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AdminJWTSecret != "alias-only-secret" {
		t.Fatalf("expected AdminJWTSecret from alias env var, got %q", cfg.AdminJWTSecret)
	}
}

func TestLoadConfig_AdminJWTSecretTakesPrecedenceOverAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "ADMIN_JWT_SECRET", "primary-secret")
	setEnvWithCleanup(t, "BOOKING_SERVICE_ADMIN_JWT_SECRET", "alias-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AdminJWTSecret != "primary-secret" {
		t.Fatalf("expected AdminJWTSecret to prioritize ADMIN_JWT_SECRET, got %q", cfg.AdminJWTSecret)
	}
}

func TestLoadConfig_NegativeCheckoutRateLimitDisables(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CHECKOUT_RATE_LIMIT_PER_MINUTE", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CheckoutRateLimitPerMinute != 0 {
		t.Fatalf("expected negative rate limit to coerce to 0, got %d", cfg.CheckoutRateLimitPerMinute)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "DEFAULT_CURRENCY")
	unsetEnvWithCleanup(t, "PAYMENT_GATEWAY_TIMEOUT_SECONDS")
	unsetEnvWithCleanup(t, "RESET_TOKEN_TTL_HOURS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DefaultCurrency != "USD" {
		t.Fatalf("expected default currency USD, got %q", cfg.DefaultCurrency)
	}
	if cfg.PaymentGatewayTimeoutSeconds != 30 {
		t.Fatalf("expected default gateway timeout 30s, got %d", cfg.PaymentGatewayTimeoutSeconds)
	}
	if cfg.ResetTokenTTLHours != 48 {
		t.Fatalf("expected default reset token TTL 48h, got %d", cfg.ResetTokenTTLHours)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
