package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	RedisURL    string
	// PublicBaseURL is where the storefront is served; success and cancel
	// URLs handed to the payment provider are built from it.
	PublicBaseURL string
	CORSOrigins   string
	LogLevel      string

	PaymentProvider     string
	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentTimeout      time.Duration
	Currency            string

	SessionTTL time.Duration
}

const (
	ProviderStripe  = "stripe"
	ProviderSandbox = "sandbox"
)

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                getenv("ADDR", ":8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		RedisURL:            os.Getenv("REDIS_URL"),
		PublicBaseURL:       strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
		CORSOrigins:         getenv("CORS_ORIGINS", "*"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		PaymentProvider:     strings.ToLower(getenv("PAYMENT_PROVIDER", ProviderStripe)),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PaymentTimeout:      getduration("PAYMENT_TIMEOUT", 10*time.Second),
		Currency:            strings.ToLower(getenv("CURRENCY", "pln")),
		SessionTTL:          getduration("SESSION_TTL", 7*24*time.Hour),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	switch c.PaymentProvider {
	case ProviderStripe:
		if c.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is not set"))
		}
	case ProviderSandbox:
	default:
		errs = append(errs, errors.New("PAYMENT_PROVIDER must be stripe or sandbox"))
	}
	if c.PaymentTimeout <= 0 {
		errs = append(errs, errors.New("PAYMENT_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
