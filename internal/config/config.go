package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	// Server
	HTTPAddr    string
	DatabaseURL string
	RedisAddr   string
	RedisPass   string

	// Sessions
	SessionMaxAge     time.Duration
	SessionIdle       time.Duration
	SessionRenewal    time.Duration
	SessionMaxPerUser int
	SessionSweep      time.Duration

	// Rate limiting
	APIRateWindow   time.Duration
	APIRateMax      int
	LoginRateWindow time.Duration
	LoginRateMax    int

	// Streams
	HeartbeatInterval time.Duration

	// QR signing
	QRSecret string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASS", ""),

		SessionMaxAge:     getEnvDuration("SESSION_MAX_AGE", 8*time.Hour),
		SessionIdle:       getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionRenewal:    getEnvDuration("SESSION_RENEWAL_THRESHOLD", time.Hour),
		SessionMaxPerUser: getEnvInt("SESSION_MAX_PER_USER", 5),
		SessionSweep:      getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		APIRateWindow:   getEnvDuration("API_RATE_WINDOW", time.Minute),
		APIRateMax:      getEnvInt("API_RATE_MAX", 120),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", 15*time.Minute),
		LoginRateMax:    getEnvInt("LOGIN_RATE_MAX", 5),

		HeartbeatInterval: getEnvDuration("STREAM_HEARTBEAT_INTERVAL", 25*time.Second),

		QRSecret: getEnv("QR_SIGNING_SECRET", ""),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
