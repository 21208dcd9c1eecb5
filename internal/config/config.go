// Package config loads application configuration from environment
// variables.  main loads an optional .env file first.
package config

import (
	"os"
	"time"

	"github.com/iliyamo/sportshub-ticketing/internal/logging"
)

// Config holds the core runtime settings.  Feature-specific settings live
// in their own structs (CacheConfig, RateLimitConfig, QueueConfig,
// EventsConfig, PaymentConfig).
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	DBUser         string
	DBPass         string // may be empty
	DBHost         string
	DBPort         string
	DBName         string
	DBAutoMigrate  bool   // apply the embedded schema on start
	JWTSecret      string // HMAC key for access tokens
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	LogLevel       string
	LogFormat      string
	// SeatMapCacheTTL bounds how long a layout may be served from Redis.
	SeatMapCacheTTL time.Duration
	ShutdownTimeout time.Duration
	// OwnerEmails are promoted to OWNER on start.  Signup only ever
	// creates customers.
	OwnerEmails []string
}

// Load reads the required variables and exits the process when one is
// missing or malformed.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		DBAutoMigrate:   envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:       must("JWT_SECRET"),
		AccessTTLMin:    mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:  mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:      mustInt("BCRYPT_COST"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		LogFormat:       envStr("LOG_FORMAT", "json"),
		SeatMapCacheTTL: envDur("SEAT_MAP_CACHE_TTL", 10*time.Second),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
		OwnerEmails:     envList("OWNER_EMAILS"),
	}
}

// must retrieves a required variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logging.Fatal().Str("key", key).Msg("missing required env var")
	}
	return v
}

// mustInt is must for integers.
func mustInt(key string) int {
	s := must(key)
	n, ok := parseInt(s)
	if !ok {
		logging.Fatal().Str("key", key).Str("value", s).Msg("invalid int in env var")
	}
	return n
}
