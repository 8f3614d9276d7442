package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environments recognised in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	DatabaseDSN    string
	JWTSecret      string
	AppKeys        []string
	Env            string
	AllowedOrigins []string
	StatsSchedule  string
}

// Load loads configuration from environment variables or sets defaults.
// DATABASE_DSN and JWT_SECRET have no default and must be set.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	cfg := &Config{
		ServerPort:     port,
		DatabaseDSN:    getEnv("DATABASE_DSN", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AppKeys:        splitList(getEnv("APP_KEYS", "")),
		Env:            getEnv("APP_ENV", EnvDevelopment),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		StatsSchedule:  getEnv("STATS_SCHEDULE", "@every 15s"),
	}

	var errs []error
	if cfg.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch cfg.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("invalid APP_ENV %q", cfg.Env))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// splitList parses a comma separated list, dropping blank entries.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
