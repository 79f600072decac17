package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"menlo.ai/query-cache/app/domain/querycache"
)

// assertConcurrentTagIndex registers keys under two tables while other goroutines
// keep invalidating both. Each key must come back from exactly one Invalidate.
func assertConcurrentTagIndex(t *testing.T, tags querycache.TagIndex) {
	t.Helper()
	ctx := context.Background()
	const registrations = 200
	const invalidators = 4

	var mu sync.Mutex
	returned := make(map[string]int)
	collect := func(keys []string) {
		mu.Lock()
		defer mu.Unlock()
		for _, key := range keys {
			returned[key]++
		}
	}

	done := make(chan struct{})
	var registers, invalidations sync.WaitGroup
	for i := 0; i < invalidators; i++ {
		tables := []string{"orders", "users"}
		if i%2 == 1 {
			tables = []string{"users", "orders"}
		}
		invalidations.Add(1)
		go func() {
			defer invalidations.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				keys, err := tags.Invalidate(ctx, tables)
				if !assert.NoError(t, err) {
					return
				}
				collect(keys)
			}
		}()
	}
	for i := 0; i < registrations; i++ {
		registers.Add(1)
		go func(i int) {
			defer registers.Done()
			assert.NoError(t, tags.Register(ctx, fmt.Sprintf("k%d", i), []string{"orders", "users"}))
		}(i)
	}

	registers.Wait()
	close(done)
	invalidations.Wait()

	keys, err := tags.Invalidate(ctx, []string{"orders", "users"})
	require.NoError(t, err)
	collect(keys)

	assert.Len(t, returned, registrations)
	for key, n := range returned {
		assert.Equalf(t, 1, n, "key %s returned %d times", key, n)
	}
}

func TestMemoryTagIndex_ConcurrentRegisterInvalidate(t *testing.T) {
	store, err := NewMemoryCacheService(10)
	require.NoError(t, err)
	assertConcurrentTagIndex(t, NewMemoryTagIndex(store))
}

func TestRedisTagIndex_ConcurrentRegisterInvalidate(t *testing.T) {
	_, client := newTestRedis(t)
	assertConcurrentTagIndex(t, NewRedisTagIndex(client))
}
