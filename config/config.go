package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	ServiceName  string
	OTELEndpoint string
	Port         string

	BackendAPIURL   string
	BackendAPIToken string

	RedisURL     string
	KafkaBrokers string
	KafkaTopic   string

	// Verification poller tunables.
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64

	// How long a terminal outcome stays cached.
	OutcomeCacheTTL time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		ServiceName:  "verification-service",
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Port:         getEnv("PORT", "8082"),

		BackendAPIURL:   getEnv("BACKEND_API_URL", "http://localhost:3002"),
		BackendAPIToken: getEnv("BACKEND_API_TOKEN", ""),

		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "verification.completed"),

		MaxAttempts:       getEnvInt("VERIFY_MAX_ATTEMPTS", 30),
		InitialDelay:      getEnvDuration("VERIFY_INITIAL_DELAY", 2*time.Second),
		MaxDelay:          getEnvDuration("VERIFY_MAX_DELAY", 10*time.Second),
		BackoffMultiplier: getEnvFloat("VERIFY_BACKOFF_MULTIPLIER", 1.5),

		OutcomeCacheTTL: getEnvDuration("OUTCOME_CACHE_TTL", 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
