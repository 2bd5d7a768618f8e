package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	ServerAddr  string
	LogLevel    slog.Level

	// DisplayLocation is the zone absolute ban and note times are shown in.
	DisplayLocation *time.Location
	// PolicyExpr is an optional CEL expression evaluated on every
	// permission check. Empty defers to role grants alone.
	PolicyExpr string
	// AccountURLFormat renders account links; it takes one %d verb.
	AccountURLFormat string

	NodeID    int64
	RateLimit int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         envOrDefault("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		ServerAddr:       envOrDefault("SERVER_ADDR", ":8080"),
		LogLevel:         parseLogLevel(os.Getenv("LOG_LEVEL")),
		PolicyExpr:       os.Getenv("POLICY_EXPR"),
		AccountURLFormat: envOrDefault("ACCOUNT_URL_FORMAT", "/adm/mship/account/%d"),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		panic(fmt.Sprintf("required environment variables not set: %s", strings.Join(missing, ", ")))
	}

	loc, err := time.LoadLocation(envOrDefault("DISPLAY_TIMEZONE", "UTC"))
	if err != nil {
		panic(fmt.Sprintf("invalid DISPLAY_TIMEZONE: %v", err))
	}
	cfg.DisplayLocation = loc

	if strings.Count(cfg.AccountURLFormat, "%d") != 1 {
		panic(fmt.Sprintf("ACCOUNT_URL_FORMAT must contain exactly one %%d, got %q", cfg.AccountURLFormat))
	}

	cfg.NodeID = int64(intOrDefault("NODE_ID", 1))
	cfg.RateLimit = intOrDefault("RATE_LIMIT", 60)

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid %s: %v", key, err))
	}
	return n
}
