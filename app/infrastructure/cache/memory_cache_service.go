package cache

import (
	"context"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"menlo.ai/query-cache/app/domain/querycache"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCacheService is a process-local store bounded by an LRU; evictions behave like expiry.
type MemoryCacheService struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

var _ querycache.Store = (*MemoryCacheService)(nil)

func NewMemoryCacheService(maxEntries int) (*MemoryCacheService, error) {
	entries, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryCacheService{
		entries: entries,
		now:     time.Now,
	}, nil
}

func (m *MemoryCacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if entry.expired(m.now()) {
		m.entries.Remove(key)
		return nil, false, nil
	}
	return slices.Clone(entry.value), true, nil
}

func (m *MemoryCacheService) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: slices.Clone(value)}
	if ttl != querycache.Forever && ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries.Add(key, entry)
	return nil
}

func (m *MemoryCacheService) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		m.entries.Remove(key)
	}
	return nil
}

// Exists reports whether key holds an unexpired entry.
func (m *MemoryCacheService) Exists(key string) bool {
	entry, ok := m.entries.Peek(key)
	return ok && !entry.expired(m.now())
}

func (m *MemoryCacheService) Flush(ctx context.Context) error {
	m.entries.Purge()
	return nil
}

func (m *MemoryCacheService) Len() int {
	return m.entries.Len()
}

func (m *MemoryCacheService) HealthCheck(ctx context.Context) error {
	return nil
}
