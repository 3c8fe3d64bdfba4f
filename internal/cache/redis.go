// internal/cache/redis.go
package cache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "uno"

// Config holds the Redis connection and coordination settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// LockTTL bounds how long a crashed lock holder can wedge a game.
	LockTTL time.Duration
	// LockWait is the total time spent retrying a contended lock before giving up with ErrBusy.
	LockWait time.Duration

	// HistoryQueue is the Redis list that receives committed actions for the historian.
	HistoryQueue string
}

// ConfigFromEnv reads the configuration from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_PASSWORD (optional)
//   - REDIS_DB (optional, default 0)
//   - LOCK_TTL_MS (default 5000)
//   - LOCK_WAIT_MS (default 10000)
//   - HISTORIAN_QUEUE_NAME (default "uno_actions")
func ConfigFromEnv() Config {
	return Config{
		Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           getEnvInt("REDIS_DB", 0),
		LockTTL:      time.Duration(getEnvInt("LOCK_TTL_MS", 5000)) * time.Millisecond,
		LockWait:     time.Duration(getEnvInt("LOCK_WAIT_MS", 10000)) * time.Millisecond,
		HistoryQueue: getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName),
	}
}

// ConnectRedis opens the process-wide client and verifies it with a PING.
// The caller owns the client and closes it at exit.
func ConnectRedis(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

func recordKey(gameID string) string { return KeyPrefix + ":" + gameID }
func lockKey(gameID string) string   { return KeyPrefix + ":" + gameID + ":lock" }
func channel(gameID string) string   { return KeyPrefix + ":" + gameID + ":turns" }
func seqKey(gameID string) string    { return KeyPrefix + ":" + gameID + ":seq" }

// GameKeys returns every key a game owns, for tooling that clears a table between runs.
func GameKeys(gameID string) []string {
	return []string{recordKey(gameID), lockKey(gameID), seqKey(gameID)}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
