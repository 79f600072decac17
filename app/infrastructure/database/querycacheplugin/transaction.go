package querycacheplugin

import (
	"context"
	"sync"

	"gorm.io/gorm"
	"menlo.ai/query-cache/app/domain/query"
)

type collectorKey struct{}

// collector remembers the writes of one transaction.
type collector struct {
	mu     sync.Mutex
	writes []*query.Descriptor
}

func (c *collector) add(desc *query.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, desc)
}

func (c *collector) drain() []*query.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	writes := c.writes
	c.writes = nil
	return writes
}

func collectorFrom(ctx context.Context) *collector {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(collectorKey{}).(*collector)
	return c
}

// Transaction runs fn in a database transaction. Writes inside it invalidate
// immediately and again after the commit, which removes entries that concurrent
// readers populated from the pre-commit snapshot in between. Nested calls join
// the outermost transaction's bookkeeping.
func Transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	plugin, ok := pluginOf(db)
	if !ok || collectorFrom(ctx) != nil {
		return db.WithContext(ctx).Transaction(fn)
	}

	c := &collector{}
	ctx = context.WithValue(ctx, collectorKey{}, c)
	if err := db.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}

	for _, desc := range c.drain() {
		plugin.handler.InvalidateQuery(context.WithoutCancel(ctx), desc)
	}
	return nil
}

func pluginOf(db *gorm.DB) (*Plugin, bool) {
	if db.Config == nil {
		return nil, false
	}
	plugin, ok := db.Config.Plugins[PluginName].(*Plugin)
	return plugin, ok
}
