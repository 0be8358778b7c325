package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr         string
	DatabaseURL  string
	JWTSecret    string
	TokenTTL     time.Duration
	EnsureSchema bool
}

type WorkerConfig struct {
	DatabaseURL  string
	PollEvery    time.Duration
	MaxAttempts  int32
	EnsureSchema bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("SQUADMARKET_API_ADDR", ":4000")
	}

	cfg := APIConfig{
		Addr:         addr,
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:    strings.TrimSpace(os.Getenv("SQUADMARKET_JWT_SECRET")),
		TokenTTL:     envDurationDefault("SQUADMARKET_TOKEN_TTL", 24*time.Hour),
		EnsureSchema: envBoolDefault("SQUADMARKET_ENSURE_SCHEMA", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("SQUADMARKET_JWT_SECRET is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PollEvery:    envDurationDefault("SQUADMARKET_WORKER_POLL_EVERY", 2*time.Second),
		MaxAttempts:  int32(envIntDefault("SQUADMARKET_WORKER_MAX_ATTEMPTS", 5)),
		EnsureSchema: envBoolDefault("SQUADMARKET_ENSURE_SCHEMA", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("SQM_API_BASE_URL", "http://localhost:4000"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
