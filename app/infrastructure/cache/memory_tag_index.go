package cache

import (
	"context"
	"slices"
	"sync"

	"menlo.ai/query-cache/app/domain/querycache"
)

type entryChecker interface {
	Exists(key string) bool
}

// MemoryTagIndex keeps tag buckets in process memory under a single lock.
type MemoryTagIndex struct {
	mu      sync.Mutex
	buckets map[string]map[string]struct{}
	entries entryChecker
}

var (
	_ querycache.TagIndex = (*MemoryTagIndex)(nil)
	_ querycache.Sweeper  = (*MemoryTagIndex)(nil)
)

// NewMemoryTagIndex indexes the keys of entries; entries is consulted by Sweep.
func NewMemoryTagIndex(entries *MemoryCacheService) *MemoryTagIndex {
	return &MemoryTagIndex{
		buckets: make(map[string]map[string]struct{}),
		entries: entries,
	}
}

func (t *MemoryTagIndex) Register(ctx context.Context, key string, tables []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, table := range tables {
		bucket, ok := t.buckets[table]
		if !ok {
			bucket = make(map[string]struct{})
			t.buckets[table] = bucket
		}
		bucket[key] = struct{}{}
	}
	return nil
}

func (t *MemoryTagIndex) Invalidate(ctx context.Context, tables []string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	union := make(map[string]struct{})
	for _, table := range tables {
		for key := range t.buckets[table] {
			union[key] = struct{}{}
		}
		delete(t.buckets, table)
	}

	keys := make([]string, 0, len(union))
	for key := range union {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// Sweep holds the index lock while checking entries, so a Register that follows a
// Put always lands after the check and is never undone.
func (t *MemoryTagIndex) Sweep(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for table, bucket := range t.buckets {
		for key := range bucket {
			if t.entries == nil || !t.entries.Exists(key) {
				delete(bucket, key)
				removed++
			}
		}
		if len(bucket) == 0 {
			delete(t.buckets, table)
		}
	}
	return removed, nil
}

// Members returns a sorted copy of one bucket.
func (t *MemoryTagIndex) Members(table string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.buckets[table]))
	for key := range t.buckets[table] {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func (t *MemoryTagIndex) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buckets = make(map[string]map[string]struct{})
	return nil
}
