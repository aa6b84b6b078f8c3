package config

import (
	"errors"
	"os"
)

// Config holds application configuration. It is built once at startup and
// passed by reference into the components that need it; nothing reads the
// environment after Load returns.
type Config struct {
	ServiceName     string
	SecretKey       string
	PaystackBaseURL string
	CallbackURL     string
	DBPath          string
	Port            string
	OTELEndpoint    string
}

// ErrMissingSecretKey is returned when PAYSTACK_SECRET_KEY is unset. The
// secret doubles as the webhook HMAC key, so the service cannot run
// without it.
var ErrMissingSecretKey = errors.New("PAYSTACK_SECRET_KEY is not set")

// Load loads configuration from environment variables
func Load() (*Config, error) {
	secret := os.Getenv("PAYSTACK_SECRET_KEY")
	if secret == "" {
		return nil, ErrMissingSecretKey
	}

	return &Config{
		ServiceName:     "payments-service",
		SecretKey:       secret,
		PaystackBaseURL: getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		CallbackURL:     getEnv("CALLBACK_URL", "http://localhost:8081/webhook"),
		DBPath:          getEnv("DB_PATH", "payments.db"),
		Port:            getEnv("PORT", "8081"),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
