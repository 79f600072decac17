// Package querycache is the tag-indexed read-through cache that sits between a query layer and its relational store.
package querycache

import (
	"context"
	"time"
)

//go:generate mockgen -destination=../../../mocks/mock_querycache/mock_store.go -package=mock_querycache menlo.ai/query-cache/app/domain/querycache Store,TagIndex

// Forever disables time-based expiry. Entries stored with it still leave through
// invalidation or backend eviction.
const Forever time.Duration = -1

// Store holds serialized results by cache key.
// A miss is (nil, false, nil); backend failures are reported as *StoreUnavailableError.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	HealthCheck(ctx context.Context) error
}

// TagIndex maps table names to the cache keys populated from them.
type TagIndex interface {
	// Register adds key to the bucket of every table in one atomic step.
	Register(ctx context.Context, key string, tables []string) error
	// Invalidate removes and returns the union of the tables' buckets in one atomic step.
	Invalidate(ctx context.Context, tables []string) ([]string, error)
}

// Sweeper drops tag members whose entries have expired or been evicted.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
