package cache

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"menlo.ai/query-cache/app/domain/querycache"
	"menlo.ai/query-cache/app/utils/logger"
	"menlo.ai/query-cache/config/environment_variables"
)

const (
	CacheTypeRedis  = "redis"
	CacheTypeMemory = "memory"
	CacheTypeNone   = "none"
)

// Flusher drops everything the query cache has written.
type Flusher interface {
	Flush(ctx context.Context) error
}

// SweepLock keeps sweeps of one tag index from overlapping.
type SweepLock interface {
	TryLock(ctx context.Context) (func(), error)
}

// Backend bundles the store and tag index of one cache type. Sweeper is nil when
// there is nothing to sweep; Redis is nil unless the backend is Redis-backed.
type Backend struct {
	Store     querycache.Store
	Tags      querycache.TagIndex
	Sweeper   querycache.Sweeper
	SweepLock SweepLock
	Flusher   Flusher
	Redis     *redis.Client
}

func (b *Backend) Close() error {
	if b == nil || b.Redis == nil {
		return nil
	}
	return b.Redis.Close()
}

// FlushAll clears both the entries and the tag buckets.
func (b *Backend) FlushAll(ctx context.Context) error {
	var err error
	if b.Flusher != nil {
		err = multierr.Append(err, b.Flusher.Flush(ctx))
	}
	if f, ok := b.Tags.(Flusher); ok && f != b.Flusher {
		err = multierr.Append(err, f.Flush(ctx))
	}
	return err
}

// NewBackend creates a cache backend based on configuration
func NewBackend() (*Backend, error) {
	cacheType := strings.ToLower(environment_variables.EnvironmentVariables.CACHE_TYPE)

	// Default to Redis if no cache type is specified
	if cacheType == "" {
		cacheType = CacheTypeRedis
	}
	if !environment_variables.EnvironmentVariables.QueryCacheEnabled() {
		cacheType = CacheTypeNone
	}

	switch cacheType {
	case CacheTypeMemory:
		return NewMemoryBackend(environment_variables.EnvironmentVariables.CacheMaxEntries())
	case CacheTypeNone:
		return NewNoOpBackend(), nil
	case CacheTypeRedis:
		client, err := NewRedisClient()
		if err != nil {
			logger.GetLogger().WithError(err).Error("query cache: invalid Redis configuration, caching disabled")
			return NewNoOpBackend(), nil
		}
		return NewRedisBackend(client), nil
	default:
		logger.GetLogger().WithField("cache_type", cacheType).Warn("query cache: unknown cache type, caching disabled")
		return NewNoOpBackend(), nil
	}
}

func NewRedisBackend(client *redis.Client) *Backend {
	store := NewRedisCacheService(client)
	tags := NewRedisTagIndex(client)
	return &Backend{
		Store:     store,
		Tags:      tags,
		Sweeper:   tags,
		SweepLock: NewRedisSweepLock(client),
		Flusher:   store,
		Redis:     client,
	}
}

func NewMemoryBackend(maxEntries int) (*Backend, error) {
	store, err := NewMemoryCacheService(maxEntries)
	if err != nil {
		return nil, err
	}
	tags := NewMemoryTagIndex(store)
	return &Backend{
		Store:     store,
		Tags:      tags,
		Sweeper:   tags,
		SweepLock: &LocalSweepLock{},
		Flusher:   store,
	}, nil
}

func NewNoOpBackend() *Backend {
	noop := &NoOpCacheService{}
	return &Backend{
		Store:     noop,
		Tags:      noop,
		SweepLock: &LocalSweepLock{},
		Flusher:   noop,
	}
}

// NewQueryCacheConfig reads the handler configuration from the environment.
func NewQueryCacheConfig() querycache.Config {
	ev := &environment_variables.EnvironmentVariables
	return querycache.Config{
		Enabled:        ev.QueryCacheEnabled(),
		DefaultTTL:     ev.QueryCacheExpiration(),
		DisabledTables: ev.QueryCacheDisabledTables(),
		StoreTimeout:   ev.QueryCacheStoreTimeout(),
		CollapseMisses: ev.QueryCacheCollapseMisses(),
	}
}
