// Package config centralizes the process-wide environment configuration
// described in spec.md §6. Every variable is optional; unknown variables
// are ignored.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the resolved, process-wide configuration snapshot.
type Config struct {
	Port int

	UseHTTPFinancials bool
	FinancialsHTTPURL string
	HTTPTimeoutSec    int

	MetricDelayMS int

	CacheBackend   string // "memory" | "redis"
	RedisAddr      string
	TaskStore      string // "memory" | "postgres"
	PostgresDSN    string

	WorkerBinary string // path to the basket worker executable for the child-process transport
}

// Load reads the environment the way control_plane/main.go does: plain
// os.Getenv lookups with sane defaults, no required variables.
func Load() Config {
	cfg := Config{
		Port:              envInt("PORT", 8080),
		UseHTTPFinancials: envBool("USE_HTTP_FINANCIALS", false),
		FinancialsHTTPURL: os.Getenv("FINANCIALS_HTTP_URL"),
		HTTPTimeoutSec:    envInt("HTTP_TIMEOUT", 30),
		MetricDelayMS:     envInt("METRIC_DELAY_MS", 0),
		CacheBackend:      envOr("CACHE_BACKEND", "memory"),
		RedisAddr:         envOr("REDIS_ADDR", "localhost:6379"),
		TaskStore:         envOr("TASK_STORE", "memory"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		WorkerBinary:      envOr("WORKER_BINARY", "basket-worker"),
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
