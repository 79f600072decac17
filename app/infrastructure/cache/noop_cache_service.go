package cache

import (
	"context"
	"time"

	"menlo.ai/query-cache/app/domain/querycache"
)

// NoOpCacheService provides a no-operation cache service for graceful degradation
type NoOpCacheService struct{}

var (
	_ querycache.Store    = (*NoOpCacheService)(nil)
	_ querycache.TagIndex = (*NoOpCacheService)(nil)
)

// Get always misses
func (n *NoOpCacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Put is a no-op implementation
func (n *NoOpCacheService) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

// Delete is a no-op implementation
func (n *NoOpCacheService) Delete(ctx context.Context, keys ...string) error {
	return nil
}

// Register is a no-op implementation
func (n *NoOpCacheService) Register(ctx context.Context, key string, tables []string) error {
	return nil
}

// Invalidate never has anything to return
func (n *NoOpCacheService) Invalidate(ctx context.Context, tables []string) ([]string, error) {
	return nil, nil
}

// Flush is a no-op implementation
func (n *NoOpCacheService) Flush(ctx context.Context) error {
	return nil
}

// HealthCheck always returns nil (healthy)
func (n *NoOpCacheService) HealthCheck(ctx context.Context) error {
	return nil
}
