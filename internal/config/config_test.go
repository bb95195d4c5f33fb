package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("PAYMENT_TIMEOUT", "")
	t.Setenv("PUBLIC_BASE_URL", "https://kawa.example.com/")

	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.PaymentTimeout != 10*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.PaymentTimeout)
	}
	if cfg.PublicBaseURL != "https://kawa.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.PublicBaseURL)
	}
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("PAYMENT_TIMEOUT", "soon")
	if got := Load().PaymentTimeout; got != 10*time.Second {
		t.Fatalf("expected fallback timeout, got %s", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{PaymentProvider: ProviderStripe, PaymentTimeout: time.Second}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error for empty config")
	}
	for _, want := range []string{"DATABASE_URL", "JWT_SECRET", "STRIPE_SECRET_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}

	ok := Config{DatabaseURL: "postgres://", JWTSecret: "s", PaymentProvider: ProviderSandbox, PaymentTimeout: time.Second}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected sandbox config to validate, got %v", err)
	}
}
