// Package config loads FlowForge's environment configuration: a plain
// struct with documented defaults, sourced from the environment instead
// of Go literals, since a deployed engine/worker/scheduler process is
// configured at process start, not by the library's caller.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is FlowForge's process-wide configuration, read once at startup.
type Config struct {
	PostgresConnection string
	RedisConnection    string

	WorkerMaxConcurrency    int
	WorkerHeartbeatInterval time.Duration

	SchedulerEnabled          bool
	SchedulerCheckInterval    time.Duration
	SchedulerMaxStartsPerTick int
	SchedulerTimezone         string

	EngineDefaultTimeout time.Duration
	DefaultRetryPolicy   RetryPolicyConfig

	// KeyPrefix namespaces lock/queue/heartbeat keys.
	KeyPrefix string
}

// RetryPolicyConfig mirrors workflow.RetryPolicy's shape for the
// engine-wide default.
type RetryPolicyConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// FromEnv loads a Config from the process environment, applying the
// documented default for every key left unset.
func FromEnv() Config {
	return Config{
		PostgresConnection: os.Getenv("POSTGRES_CONNECTION"),
		RedisConnection:    os.Getenv("REDIS_CONNECTION"),

		WorkerMaxConcurrency:    envInt("WORKER_MAX_CONCURRENCY", 10),
		WorkerHeartbeatInterval: envDuration("WORKER_HEARTBEAT_INTERVAL", 30*time.Second),

		SchedulerEnabled:          envBool("SCHEDULER_ENABLED", true),
		SchedulerCheckInterval:    envDuration("SCHEDULER_CHECK_INTERVAL", 10*time.Second),
		SchedulerMaxStartsPerTick: envInt("SCHEDULER_MAX_STARTS_PER_CHECK", 100),
		SchedulerTimezone:         envString("SCHEDULER_TIMEZONE", "UTC"),

		EngineDefaultTimeout: envDuration("ENGINE_DEFAULT_TIMEOUT", time.Hour),
		DefaultRetryPolicy: RetryPolicyConfig{
			MaxAttempts:       envInt("ENGINE_DEFAULT_RETRY_MAX_ATTEMPTS", 3),
			InitialDelay:      envDuration("ENGINE_DEFAULT_RETRY_INITIAL_DELAY", time.Second),
			MaxDelay:          envDuration("ENGINE_DEFAULT_RETRY_MAX_DELAY", 5*time.Minute),
			BackoffMultiplier: envFloat("ENGINE_DEFAULT_RETRY_BACKOFF_MULTIPLIER", 2),
		},

		KeyPrefix: envString("FLOWFORGE_KEY_PREFIX", "flowforge:"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
