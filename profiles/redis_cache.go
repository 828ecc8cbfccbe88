package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liamcoop/shiftrules/internal/logger"
	"github.com/liamcoop/shiftrules/rules"
)

// RedisConfig configures the Redis profile cache.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// Timeout for Redis operations
	Timeout time.Duration

	// PoolSize is the maximum number of connections
	PoolSize int
}

// DefaultRedisConfig returns the defaults for address
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:  address,
		Timeout:  2 * time.Second,
		PoolSize: 10,
	}
}

// RedisProfileCache shares cached profiles between server replicas.
// Redis failures degrade to cache misses and are logged, never returned.
type RedisProfileCache struct {
	client  *redis.Client
	config  CacheConfig
	timeout time.Duration
}

// NewRedisProfileCache connects to Redis and verifies the connection
func NewRedisProfileCache(cfg RedisConfig, config CacheConfig) (*RedisProfileCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisProfileCache(client, config, cfg.Timeout), nil
}

func newRedisProfileCache(client *redis.Client, config CacheConfig, timeout time.Duration) *RedisProfileCache {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisProfileCache{client: client, config: config, timeout: timeout}
}

func (c *RedisProfileCache) key(employeeID int) string {
	return c.config.Prefix + strconv.Itoa(employeeID)
}

// Get returns the cached profile, treating any Redis error as a miss
func (c *RedisProfileCache) Get(ctx context.Context, employeeID int) (rules.EmployeeProfile, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.key(employeeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return rules.EmployeeProfile{}, false
	}
	if err != nil {
		logger.Warn("profile cache read failed", "employee_id", employeeID, "error", err)
		return rules.EmployeeProfile{}, false
	}

	var p rules.EmployeeProfile
	if err := json.Unmarshal(data, &p); err != nil {
		logger.Warn("profile cache entry corrupt", "employee_id", employeeID, "error", err)
		return rules.EmployeeProfile{}, false
	}
	return p, true
}

// Set stores a profile with the configured TTL
func (c *RedisProfileCache) Set(ctx context.Context, profile rules.EmployeeProfile) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(profile)
	if err != nil {
		logger.Warn("failed to encode profile for cache", "employee_id", profile.EmployeeID, "error", err)
		return
	}

	if err := c.client.Set(ctx, c.key(profile.EmployeeID), data, c.config.TTL).Err(); err != nil {
		logger.Warn("profile cache write failed", "employee_id", profile.EmployeeID, "error", err)
	}
}

// Invalidate drops one entry
func (c *RedisProfileCache) Invalidate(ctx context.Context, employeeID int) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Del(ctx, c.key(employeeID)).Err(); err != nil {
		logger.Warn("profile cache invalidation failed", "employee_id", employeeID, "error", err)
	}
}

// Close releases the Redis connection pool
func (c *RedisProfileCache) Close() error {
	return c.client.Close()
}
