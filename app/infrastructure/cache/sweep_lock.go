package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"menlo.ai/query-cache/app/domain/querycache"
)

// ErrLockHeld is returned when another holder owns the sweep lock.
var ErrLockHeld = querycache.ErrSweepLockHeld

const sweepLockExpiry = 5 * time.Minute

// RedisSweepLock lets one process of a fleet sweep the shared tag index.
type RedisSweepLock struct {
	rs *redsync.Redsync
}

func NewRedisSweepLock(client *redis.Client) *RedisSweepLock {
	return &RedisSweepLock{
		rs: redsync.New(goredis.NewPool(client)),
	}
}

// TryLock makes a single attempt; the returned func releases the lock. A lock owned
// by someone else is ErrLockHeld, a Redis failure is a *querycache.StoreUnavailableError.
func (l *RedisSweepLock) TryLock(ctx context.Context) (func(), error) {
	mutex := l.rs.NewMutex(SweepLockKey,
		redsync.WithExpiry(sweepLockExpiry),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return nil, errors.Join(ErrLockHeld, err)
		}
		return nil, querycache.Unavailable("lock", err)
	}
	return func() {
		_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
	}, nil
}

// LocalSweepLock guards an in-process tag index.
type LocalSweepLock struct {
	mu sync.Mutex
}

func (l *LocalSweepLock) TryLock(ctx context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrLockHeld
	}
	return l.mu.Unlock, nil
}
