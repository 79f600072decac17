package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"menlo.ai/query-cache/app/domain/querycache"
	"menlo.ai/query-cache/app/utils/logger"
	"menlo.ai/query-cache/config/environment_variables"
)

// RedisCacheService stores serialized query results in Redis.
type RedisCacheService struct {
	client *redis.Client
}

var _ querycache.Store = (*RedisCacheService)(nil)

// NewRedisClient builds a client from CACHE_URL, CACHE_PASSWORD and CACHE_DB.
func NewRedisClient() (*redis.Client, error) {
	redisURL := environment_variables.EnvironmentVariables.CACHE_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Override with environment variables if provided
	if environment_variables.EnvironmentVariables.CACHE_PASSWORD != "" {
		opts.Password = environment_variables.EnvironmentVariables.CACHE_PASSWORD
	}
	if environment_variables.EnvironmentVariables.CACHE_DB != "" {
		if db, err := strconv.Atoi(environment_variables.EnvironmentVariables.CACHE_DB); err == nil {
			opts.DB = db
		}
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logger.GetLogger().Info("Successfully connected to Redis")
	}
	return client, nil
}

func NewRedisCacheService(client *redis.Client) *RedisCacheService {
	return &RedisCacheService{
		client: client,
	}
}

// Get returns the payload stored under key; a missing key is a miss, not an error.
func (r *RedisCacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, EntryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, querycache.Unavailable("get", err)
	}
	return val, true, nil
}

// Put stores value under key; querycache.Forever stores it without expiry.
func (r *RedisCacheService) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiration := ttl
	if ttl == querycache.Forever {
		expiration = 0
	}
	return querycache.Unavailable("put", r.client.Set(ctx, EntryKey(key), value, expiration).Err())
}

// Delete removes keys asynchronously (UNLINK); missing keys are ignored.
func (r *RedisCacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	entryKeys := make([]string, len(keys))
	for i, key := range keys {
		entryKeys[i] = EntryKey(key)
	}
	return querycache.Unavailable("delete", r.client.Unlink(ctx, entryKeys...).Err())
}

// Flush removes every entry and tag bucket written by the query cache.
func (r *RedisCacheService) Flush(ctx context.Context) error {
	return r.DeletePattern(ctx, QueryCachePrefix+":*")
}

// DeletePattern removes all keys matching a pattern
func (r *RedisCacheService) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			pipe := r.client.Pipeline()
			for _, k := range keys {
				pipe.Unlink(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to unlink keys: %w", err)
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return nil
}

// HealthCheck verifies Redis connectivity
func (r *RedisCacheService) HealthCheck(ctx context.Context) error {
	return querycache.Unavailable("ping", r.client.Ping(ctx).Err())
}
