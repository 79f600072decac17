package querycache

import (
	"context"
	"time"

	"menlo.ai/query-cache/app/domain/query"
)

// Executor runs statements against the real data source.
type Executor interface {
	ExecuteRead(ctx context.Context, desc *query.Descriptor, dest any) error
	ExecuteWrite(ctx context.Context, desc *query.Descriptor) (int64, error)
}

// CachingExecutor decorates an Executor: reads go through the cache, successful
// writes invalidate after the inner executor returns.
type CachingExecutor struct {
	inner   Executor
	handler *QueryHandler
	pending Pending
}

var _ Executor = (*CachingExecutor)(nil)

func NewCachingExecutor(inner Executor, handler *QueryHandler) *CachingExecutor {
	return &CachingExecutor{
		inner:   inner,
		handler: handler,
	}
}

// Remember returns a copy whose reads are cached for ttl under key.
func (e *CachingExecutor) Remember(ttl time.Duration, key string) *CachingExecutor {
	return e.with(Remember(ttl, key))
}

func (e *CachingExecutor) RememberForever(key string) *CachingExecutor {
	return e.with(RememberForever(key))
}

func (e *CachingExecutor) NoCache() *CachingExecutor {
	return e.with(NoCache())
}

func (e *CachingExecutor) with(p Pending) *CachingExecutor {
	c := *e
	c.pending = p
	return &c
}

func (e *CachingExecutor) ExecuteRead(ctx context.Context, desc *query.Descriptor, dest any) error {
	return e.handler.CacheQuery(ctx, desc, e.pending, dest, func(ctx context.Context) error {
		return e.inner.ExecuteRead(ctx, desc, dest)
	})
}

func (e *CachingExecutor) ExecuteWrite(ctx context.Context, desc *query.Descriptor) (int64, error) {
	affected, err := e.inner.ExecuteWrite(ctx, desc)
	if err != nil {
		return affected, err
	}
	e.handler.InvalidateQuery(ctx, desc)
	return affected, nil
}
