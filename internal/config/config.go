// Package config loads service configuration from the environment. There
// is no file-based or remote config source; every setting a deployment
// needs to override has a corresponding env var, and all of them except
// the required DB_SOURCE have a sane default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every env-derived setting the service reads at startup.
type Config struct {
	DBSource string
	Port     string
	Env      string

	DBMaxConns int32
	DBMinConns int32

	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	// IdempotencyTTL is how long a completed idempotency row is considered
	// authoritative. The core never reads this field to decide replay
	// eligibility (the unique partial index has no expiry); it exists for
	// an optional, out-of-scope hygiene job to consult.
	IdempotencyTTL time.Duration
}

// Load reads Config from the environment, failing closed if DB_SOURCE is
// absent.
func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := getOr("SERVER_PORT", "8080")
	env := getOr("ENVIRONMENT", "development")

	maxConns, err := getInt32Or("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, err
	}
	minConns, err := getInt32Or("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getDurationOr("SHUTDOWN_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getDurationOr("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	idempotencyTTL, err := getDurationOr("IDEMPOTENCY_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	return &Config{
		DBSource:        dbSource,
		Port:            port,
		Env:             env,
		DBMaxConns:      maxConns,
		DBMinConns:      minConns,
		ShutdownTimeout: shutdownTimeout,
		RequestTimeout:  requestTimeout,
		IdempotencyTTL:  idempotencyTTL,
	}, nil
}

func getOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt32Or(key string, fallback int32) (int32, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return int32(n), nil
}

func getDurationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}
