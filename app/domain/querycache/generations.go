package querycache

import (
	"slices"
	"sync"
)

// generations counts the invalidations this process has started per table. A result
// read while any of its tables moved on may predate a committed write.
type generations struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func newGenerations() *generations {
	return &generations{
		counts: make(map[string]uint64),
	}
}

func (g *generations) bump(tables []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, table := range tables {
		g.counts[table]++
	}
}

func (g *generations) snapshot(tables []string) []uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := make([]uint64, len(tables))
	for i, table := range tables {
		seen[i] = g.counts[table]
	}
	return seen
}

// moved reports whether any table was invalidated since seen was taken.
func (g *generations) moved(tables []string, seen []uint64) bool {
	return !slices.Equal(g.snapshot(tables), seen)
}
